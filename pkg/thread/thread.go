// Package thread implements the scheduler's OS-thread host: a goroutine
// that drains one or more strands, owns a 1024-slot unblock ring used by
// foreign threads to cheaply signal a local fiber is runnable, and a
// sleep-timer heap, parking via a mutex/condition-variable pair with a
// gated notify discipline when it has nothing left to do.
package thread

import (
	"container/heap"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-strand/strand/pkg/clock"
	"github.com/go-strand/strand/pkg/cursor"
	"github.com/go-strand/strand/pkg/ringbuffer"
	"github.com/go-strand/strand/pkg/safe"
	"github.com/go-strand/strand/pkg/sequence"
	"github.com/go-strand/strand/pkg/strand"
)

// unblockRingCapacity is the thread's unblock ring size.
const unblockRingCapacity = 1024

type unblockEntry struct {
	strandName string
	fiberID    string
}

type timerEntry struct {
	deadline   time.Time
	strandName string
	fiberID    string
	index      int
}

// timerHeap is a container/heap min-heap ordered by deadline, backing the
// thread's sleep-timer queue.
type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Thread is an OS-thread host for one or more strands. Exactly one
// goroutine ever runs a Thread's dispatch loop, matching the "no strand
// instruction executes on a thread other than its pinned host" invariant.
type Thread struct {
	name  string
	clock clock.Clock

	strands map[string]*strand.Strand

	unblockRing *ringbuffer.RingBuffer[unblockEntry]
	unblockPost *cursor.MultiWriter
	unblockRead *cursor.Read

	// timers has no lock of its own: the dispatch loop blocks on the
	// fiber's out channel for the whole time a fiber body (and thus any
	// scheduleWake call it makes) is running, so the two goroutines are
	// never actually touching the heap at once.
	timers timerHeap

	mu   sync.Mutex
	cond *sync.Cond

	postedMessages atomic.Int32
	done           atomic.Bool
	doneCh         chan struct{}
	started        atomic.Bool

	parkCount   atomic.Int64
	notifyCount atomic.Int64
}

// New returns an unstarted Thread named name. clk is the wall-clock
// source sleep timers are evaluated against; clock.Default if nil.
func New(name string, clk clock.Clock) *Thread {
	if clk == nil {
		clk = clock.Default
	}
	t := &Thread{
		name:        name,
		clock:       clk,
		strands:     make(map[string]*strand.Strand),
		unblockRing: ringbuffer.New[unblockEntry](unblockRingCapacity),
		unblockPost: cursor.NewMultiWriter(nil),
		unblockRead: cursor.NewRead(),
		doneCh:      make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// ThreadID satisfies strand.Host.
func (t *Thread) ThreadID() string { return t.name }

// AddStrand registers s as hosted by this thread. Must be called before
// Start.
func (t *Thread) AddStrand(s *strand.Strand) {
	t.strands[s.Name()] = s
}

// StrandNamed returns the hosted strand registered under name, or nil if
// none was added.
func (t *Thread) StrandNamed(name string) *strand.Strand {
	return t.strands[name]
}

// Notify implements the 0->1 gate transition a producer uses to decide
// whether it alone is responsible for waking a parked thread: only the
// poster that observes postedMessages go from 0 to 1 pays the
// mutex/condition-variable cost.
func (t *Thread) Notify() {
	if t.postedMessages.Add(1) == 1 {
		t.notifyCount.Add(1)
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
	}
}

// ParkCount returns the number of times this thread's dispatch loop has
// parked on its condition variable with nothing left to do. Exported for
// pkg/metrics' scheduler collector.
func (t *Thread) ParkCount() int64 { return t.parkCount.Load() }

// NotifyCount returns the number of times a poster observed this
// thread's 0->1 gate transition and paid the wake cost.
func (t *Thread) NotifyCount() int64 { return t.notifyCount.Load() }

// PostUnblock relays an unblock request for fiberID on strandName from a
// goroutine that isn't this thread's own dispatch loop: it claims a slot
// on the unblock ring, publishes it, and notifies the thread.
func (t *Thread) PostUnblock(strandName, fiberID string) {
	seq := t.unblockPost.Next()
	gating := []*sequence.Sequence{t.unblockRead.Sequence()}
	ringbuffer.AwaitFreeSlot(t.unblockRing.Capacity(), seq, gating, nil)
	t.unblockRing.Set(seq, unblockEntry{strandName: strandName, fiberID: fiberID})
	t.unblockPost.PublishAfter(seq)
	t.Notify()
}

// scheduleWake pushes a timer entry onto the heap for the fiber identified
// by strandName/fiberID, to be unblocked once clk.Now() reaches deadline.
func (t *Thread) scheduleWake(strandName, fiberID string, deadline time.Time) {
	heap.Push(&t.timers, &timerEntry{deadline: deadline, strandName: strandName, fiberID: fiberID})
}

// SleepUntil suspends the fiber currently running on s until deadline is
// reached, then resumes it. It must be called from within a fiber body
// hosted by s, which must in turn be hosted by this thread.
func (t *Thread) SleepUntil(s *strand.Strand, deadline time.Time) error {
	f, ctx, err := s.BlockCurrent("sleep")
	if err != nil {
		return err
	}
	t.scheduleWake(s.Name(), ctx.FiberID, deadline)
	f.Yield(ctx)
	return nil
}

// Start launches the thread's dispatch loop on a new goroutine. It must
// be called exactly once, after every hosted strand has been added.
func (t *Thread) Start() {
	if !t.started.CompareAndSwap(false, true) {
		panic("thread: Start called more than once")
	}
	go safe.Do("thread:"+t.name, t.loop)
}

// loop is the thread's main run loop: drain unblocks, drain expired
// timers, run each hosted strand's ready work, and park when there is
// nothing left to do.
func (t *Thread) loop() {
	defer close(t.doneCh)
	for {
		if t.done.Load() {
			return
		}

		didWork := t.drainUnblocks()
		if t.drainTimers() {
			didWork = true
		}
		for _, s := range t.strands {
			for s.RunOne() {
				didWork = true
			}
		}
		if didWork {
			continue
		}
		if t.park() {
			return
		}
	}
}

func (t *Thread) drainUnblocks() bool {
	did := false
	for t.unblockPost.Get() > t.unblockRead.Get() {
		next := t.unblockRead.Get() + 1
		entry := *t.unblockRing.Get(next)
		if s, ok := t.strands[entry.strandName]; ok {
			s.ApplyUnblock(entry.fiberID)
		}
		t.unblockRead.Advance(next)
		did = true
	}
	return did
}

func (t *Thread) drainTimers() bool {
	did := false
	now := t.clock.Now()
	for len(t.timers) > 0 && !t.timers[0].deadline.After(now) {
		e := heap.Pop(&t.timers).(*timerEntry)
		if s, ok := t.strands[e.strandName]; ok {
			s.ApplyUnblock(e.fiberID)
		}
		did = true
	}
	return did
}

// hasWorkLocked re-checks every source of work after the notify gate has
// been reset to 0: this is the "one last recheck before waiting" half of
// the park/wake correctness argument, closing the race between a poster
// observing a stale gate and this thread committing to park.
func (t *Thread) hasWorkLocked() bool {
	if t.unblockPost.Get() > t.unblockRead.Get() {
		return true
	}
	if len(t.timers) > 0 && !t.timers[0].deadline.After(t.clock.Now()) {
		return true
	}
	for _, s := range t.strands {
		if s.HasPendingTasks() || s.HasReady() {
			return true
		}
	}
	return false
}

// park blocks until woken by Notify, a fired timer, or Join, returning
// true if the thread should exit.
func (t *Thread) park() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.postedMessages.Store(0)
	if t.done.Load() {
		return true
	}
	if t.hasWorkLocked() {
		return false
	}

	var wakeTimer *time.Timer
	if len(t.timers) > 0 {
		d := t.timers[0].deadline.Sub(t.clock.Now())
		if d < 0 {
			d = 0
		}
		wakeTimer = time.AfterFunc(d, func() {
			t.mu.Lock()
			t.cond.Broadcast()
			t.mu.Unlock()
		})
	}
	t.parkCount.Add(1)
	t.cond.Wait()
	if wakeTimer != nil {
		wakeTimer.Stop()
	}
	return false
}

// Done returns a channel closed once the dispatch loop has exited,
// letting a caller managing a pool of threads (see internal/runtime)
// wait on several at once without each one blocking a dedicated
// goroutine inside Join.
func (t *Thread) Done() <-chan struct{} { return t.doneCh }

// Join sets done, notifies the dispatch loop, and waits for its goroutine
// to exit. Pending timers and blocked contexts are dropped. A caller that
// returns from Join before the loop has actually stopped could still see
// a strand instruction in flight on this thread, so Join always waits
// for the goroutine to finish rather than returning as soon as the flag
// is set.
func (t *Thread) Join() {
	t.done.Store(true)
	t.mu.Lock()
	t.cond.Broadcast()
	t.mu.Unlock()
	<-t.doneCh
}

// String satisfies fmt.Stringer for diagnostic logging.
func (t *Thread) String() string {
	return fmt.Sprintf("thread(%s)", t.name)
}
