// Package runtime is the top-level facade that wires the scheduler's
// pieces together: a small struct owning the pool of threads a
// program hosts, started and torn down as a unit. Beyond lifecycle
// management it carries the pool-wide task surface (Post/Async/Await
// free of any particular strand or thread, dispatched round-robin
// across every registered strand); everything else delegates to
// pkg/strand and pkg/thread unchanged.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/go-strand/strand/pkg/clock"
	"github.com/go-strand/strand/pkg/contextlocal"
	"github.com/go-strand/strand/pkg/future"
	"github.com/go-strand/strand/pkg/log"
	"github.com/go-strand/strand/pkg/metrics"
	"github.com/go-strand/strand/pkg/shutdown"
	"github.com/go-strand/strand/pkg/strand"
	"github.com/go-strand/strand/pkg/support"
	"github.com/go-strand/strand/pkg/thread"
)

// DefaultPoolSize is how many threads NewPool hosts when given a
// non-positive count.
const DefaultPoolSize = 8

// ErrNoStrands is returned by the pool-wide Post/Async/Await when the
// runtime has no registered strands to dispatch onto.
var ErrNoStrands = errors.New("runtime: no strands registered")

// Runtime owns a named pool of threads, each hosting one or more
// strands, plus the shutdown gate and scheduler metrics collector every
// thread and strand in the pool is registered against.
type Runtime struct {
	clk       clock.Clock
	threads   map[string]*thread.Thread
	collector *metrics.SchedulerCollector
	shutdown  *shutdown.Gate

	// strands is every registered strand in registration order, the
	// dispatch set for the pool-wide Post/Async/Await. Registration
	// must finish before Start; after that the slice is read-only and
	// only the round-robin counter moves.
	strands []*strand.Strand
	nextRR  atomic.Uint64
}

// New returns an empty Runtime. clk is the wall-clock source every
// hosted thread evaluates sleep timers against; clock.Default if nil.
func New(clk clock.Clock) *Runtime {
	return &Runtime{
		clk:       clk,
		threads:   make(map[string]*thread.Thread),
		collector: metrics.NewSchedulerCollector(),
		shutdown:  shutdown.NewGate(),
	}
}

// NewPool returns a Runtime pre-populated with numThreads threads, each
// hosting one strand, for callers that only want the pool-wide
// Post/Async/Await surface and have no reason to name threads or pin
// work themselves. A non-positive numThreads means DefaultPoolSize.
func NewPool(clk clock.Clock, numThreads int) *Runtime {
	if numThreads <= 0 {
		numThreads = DefaultPoolSize
	}
	r := New(clk)
	for i := 0; i < numThreads; i++ {
		name := fmt.Sprintf("pool-%d", i)
		if _, err := r.AddThread(name, name); err != nil {
			// Names are generated and the map is empty; a collision is
			// a programming error, not a runtime condition.
			panic(err)
		}
	}
	return r
}

// Collector returns the runtime's scheduler metrics collector, for
// registration against a metrics.Server's Prometheus registry.
func (r *Runtime) Collector() *metrics.SchedulerCollector { return r.collector }

// AddThread creates and registers a new thread named name, hosting the
// given strand names (each strand gets the runtime's default ring
// capacity; construct one with strand.New directly and use AddStrandTo
// instead if a non-default capacity is needed).
func (r *Runtime) AddThread(name string, strandNames ...string) (*thread.Thread, error) {
	if _, exists := r.threads[name]; exists {
		return nil, fmt.Errorf("runtime: thread %q already registered", name)
	}
	t := thread.New(name, r.clk)
	for _, sn := range strandNames {
		s := strand.New(sn, t, 0)
		t.AddStrand(s)
		r.collector.AddStrand(s)
		r.strands = append(r.strands, s)
	}
	r.threads[name] = t
	r.collector.AddThread(t)
	return t, nil
}

// AddStrandTo registers an already-constructed strand against the named
// thread, for callers that need a non-default ring capacity or want to
// hold onto the *strand.Strand before the thread exists.
func (r *Runtime) AddStrandTo(threadName string, s *strand.Strand) error {
	t, ok := r.threads[threadName]
	if !ok {
		return fmt.Errorf("runtime: no thread named %q", threadName)
	}
	t.AddStrand(s)
	r.collector.AddStrand(s)
	r.strands = append(r.strands, s)
	return nil
}

// pickStrand returns the next strand in round-robin order.
func (r *Runtime) pickStrand() (*strand.Strand, error) {
	if len(r.strands) == 0 {
		return nil, ErrNoStrands
	}
	n := r.nextRR.Add(1) - 1
	return r.strands[n%uint64(len(r.strands))], nil
}

// Post enqueues task onto the next strand in round-robin order: the
// pool-wide submission path for operations free of any particular
// strand or thread. Callers that need ordering relative to other work
// should post to a specific strand instead; pool-posted tasks only
// promise that some strand, on some thread, runs them once.
func (r *Runtime) Post(task support.Task) error {
	s, err := r.pickStrand()
	if err != nil {
		return err
	}
	return s.Post(task)
}

// Async runs fn on the next pool strand and returns a future for its
// result, the strand-free counterpart to strand.Async.
func Async[T any](r *Runtime, fn func(ctx *contextlocal.Context) (T, error)) (*future.Future[T], error) {
	s, err := r.pickStrand()
	if err != nil {
		return nil, err
	}
	return strand.Async(s, fn)
}

// Await runs fn on the next pool strand and blocks the caller until it
// completes, returning fn's result or re-raising its error. Called from
// inside a fiber it suspends just that fiber (strand.Await's contract);
// called from an ordinary goroutine it falls back to a plain blocking
// wait.
func Await[T any](r *Runtime, fn func(ctx *contextlocal.Context) (T, error)) (T, error) {
	s, err := r.pickStrand()
	if err != nil {
		var zero T
		return zero, err
	}
	return strand.Await(s, fn)
}

// Thread returns the named thread, or nil if none was registered.
func (r *Runtime) Thread(name string) *thread.Thread {
	return r.threads[name]
}

// Start launches every registered thread's dispatch loop.
func (r *Runtime) Start() {
	for name, t := range r.threads {
		log.GetLogger().Debugw("starting thread", "thread", name)
		t.Start()
	}
}

// Wait blocks until ctx is cancelled or the runtime's shutdown manager
// is told to Shutdown, then joins every thread and returns once all of
// their dispatch loops have exited. Errors from an individual thread's
// loop would surface here via the errgroup, even though pkg/thread's
// loop never itself returns an error today (fiber-fatal errors are
// scoped to the fiber that threw, not the hosting thread).
func (r *Runtime) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-r.shutdown.Wait():
		log.GetLogger().Debugw("shutdown triggered", "reason", r.shutdown.Reason())
	}
	return r.Shutdown()
}

// Shutdown joins every registered thread concurrently, returning once
// all of their goroutines have exited.
func (r *Runtime) Shutdown() error {
	g := &errgroup.Group{}
	for name, t := range r.threads {
		t := t
		name := name
		g.Go(func() error {
			t.Join()
			log.GetLogger().Debugw("thread joined", "thread", name)
			return nil
		})
	}
	return g.Wait()
}

// TriggerShutdown tells Wait's caller to begin tearing down, recording
// reason as the cause; safe to call from a signal handler or any other
// goroutine.
func (r *Runtime) TriggerShutdown(reason string) {
	r.shutdown.Trigger(reason)
}
