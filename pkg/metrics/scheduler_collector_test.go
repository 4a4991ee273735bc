package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeStrand struct {
	name    string
	ready   int
	blocked int
	pool    int
}

func (f *fakeStrand) Name() string     { return f.name }
func (f *fakeStrand) ReadyLen() int    { return f.ready }
func (f *fakeStrand) BlockedLen() int  { return f.blocked }
func (f *fakeStrand) FiberPoolLen() int { return f.pool }

type fakeThread struct {
	id      string
	parks   int64
	notifies int64
}

func (f *fakeThread) ThreadID() string   { return f.id }
func (f *fakeThread) ParkCount() int64   { return f.parks }
func (f *fakeThread) NotifyCount() int64 { return f.notifies }

func TestSchedulerCollectorScrapesRegisteredSources(t *testing.T) {
	c := NewSchedulerCollector()
	c.AddStrand(&fakeStrand{name: "tasks", ready: 2, blocked: 1, pool: 3})
	c.AddThread(&fakeThread{id: "worker", parks: 7, notifies: 5})

	expected := `
# HELP strand_ready_queue_depth Number of fibers on a strand's ready deque awaiting dispatch.
# TYPE strand_ready_queue_depth gauge
strand_ready_queue_depth{strand="tasks"} 2
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "strand_ready_queue_depth"); err != nil {
		t.Errorf("unexpected ready-depth metric: %v", err)
	}

	if got := testutil.CollectAndCount(c); got != 5 {
		t.Errorf("CollectAndCount() = %d, want 5 (three strand gauges + two thread counters)", got)
	}
}

func TestSchedulerCollectorEmptyIsValid(t *testing.T) {
	c := NewSchedulerCollector()
	if got := testutil.CollectAndCount(c); got != 0 {
		t.Errorf("CollectAndCount() on empty collector = %d, want 0", got)
	}
}
