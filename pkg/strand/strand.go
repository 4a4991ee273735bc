// Package strand implements the scheduler's logical task queue: a
// strand owns a posted-functor ring, a pool of fibers that drain it, a
// ready deque and a blocked-context table. Exactly one OS thread ever
// executes a strand's functors at a time; callers on any goroutine may
// post to it or resolve a promise that unblocks one of its fibers.
package strand

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-strand/strand/pkg/contextlocal"
	"github.com/go-strand/strand/pkg/cursor"
	"github.com/go-strand/strand/pkg/fiber"
	"github.com/go-strand/strand/pkg/future"
	"github.com/go-strand/strand/pkg/orderly"
	"github.com/go-strand/strand/pkg/ringbuffer"
	"github.com/go-strand/strand/pkg/sequence"
	"github.com/go-strand/strand/pkg/support"
)

// DefaultCapacity is the posted-functor ring size used when none is
// given explicitly.
const DefaultCapacity = 128

// ErrCancelled is returned by Post/Await once a strand has been
// cancelled.
var ErrCancelled = errors.New("strand: cancelled")

// Host is what a Strand needs from whatever hosts it (a thread.Thread):
// a way to wake it up when new work appears, and a way to deliver an
// unblock request that arrived from a goroutine other than the host's
// own dispatch loop.
type Host interface {
	ThreadID() string
	Notify()
	PostUnblock(strandName string, fiberID string)
}

type blockedEntry struct {
	f   *fiber.Fiber
	ctx *contextlocal.Context
}

// Strand is a pinned logical task queue plus its fiber pool.
type Strand struct {
	name string
	host Host

	ring       *ringbuffer.RingBuffer[support.Task]
	postCursor *cursor.MultiWriter
	readCursor *cursor.Read

	// ready and free are touched only by the hosting thread's single
	// dispatch goroutine, so the slices themselves need no
	// synchronisation; readyCount and freeCount shadow their lengths
	// for observers on other goroutines (Wait, the metrics collector).
	ready   []*blockedEntry
	blocked *orderly.Map
	free    []*fiber.Fiber

	readyCount atomic.Int32
	freeCount  atomic.Int32

	cancelSeq *sequence.Sequence

	mu       sync.Mutex
	idleCond *sync.Cond
}

// New returns a Strand named name, hosted by host, with a posted-functor
// ring of capacity slots (must be a power of two; DefaultCapacity if 0).
func New(name string, host Host, capacity int64) *Strand {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	s := &Strand{
		name:       name,
		host:       host,
		ring:       ringbuffer.New[support.Task](capacity),
		postCursor: cursor.NewMultiWriter(nil),
		readCursor: cursor.NewRead(),
		blocked:    orderly.New(1 << 20),
		cancelSeq:  sequence.NewInitial(),
	}
	s.idleCond = sync.NewCond(&s.mu)
	return s
}

// Name returns the strand's diagnostic name.
func (s *Strand) Name() string { return s.name }

// ReadyLen reports how many fibers are currently sitting on the ready
// deque, waiting for the dispatch loop to resume them. Exported for
// pkg/metrics' scheduler collector.
func (s *Strand) ReadyLen() int { return int(s.readyCount.Load()) }

// BlockedLen reports how many contexts are parked in the blocked table,
// waiting on a promise, a sleep timer, or a foreign unblock.
func (s *Strand) BlockedLen() int { return s.blocked.Len() }

// FiberPoolLen reports how many retired fibers are sitting in the free
// list, available for reuse by the next dispatched worker.
func (s *Strand) FiberPoolLen() int { return int(s.freeCount.Load()) }

// Post enqueues task for eventual execution by one of this strand's
// worker fibers and wakes the hosting thread if it was idle. The hot
// path performs no heap allocation beyond whatever task's closure
// already captured: the ring slot it lands in was pre-allocated at
// construction.
func (s *Strand) Post(task support.Task) error {
	if s.cancelSeq.IsAlerted() {
		return ErrCancelled
	}
	seq := s.postCursor.Next()
	gating := []*sequence.Sequence{s.readCursor.Sequence()}
	ringbuffer.AwaitFreeSlot(s.ring.Capacity(), seq, gating, nil)
	s.ring.Set(seq, task)
	s.postCursor.PublishAfter(seq)
	s.host.Notify()
	return nil
}

// Async posts a task that invokes fn and resolves the returned future
// with its result, matching strand.async's contract: a returned promise
// rather than a blocking wait.
func Async[T any](s *Strand, fn func(ctx *contextlocal.Context) (T, error)) (*future.Future[T], error) {
	p := future.NewPromise[T]()
	err := s.Post(func(ctx *contextlocal.Context) {
		v, err := fn(ctx)
		p.Set(v, err)
	})
	if err != nil {
		return nil, err
	}
	return p.Future(), nil
}

// Await posts fn by reference, suspends the calling fiber until it
// completes, then returns fn's result (or re-raises its error). Called
// from within a fiber body hosted by some strand, only that fiber
// suspends: this is the fast path for cross-strand synchronous calls,
// where the calling fiber simply doesn't run again until the posted
// closure resolves it. Called from an ordinary goroutine (no fiber
// context is set), Await degrades to posting fn and blocking the
// goroutine on the result future.
func Await[T any](s *Strand, fn func(ctx *contextlocal.Context) (T, error)) (T, error) {
	var zero T

	var callerFiber *fiber.Fiber
	var callerStrand *Strand
	current := contextlocal.Current()
	if current != nil {
		callerFiber, _ = current.Fiber.(*fiber.Fiber)
		callerStrand, _ = current.StrandOwner.(*Strand)
	}

	p := future.NewPromise[T]()

	if callerFiber == nil || callerStrand == nil {
		// No fiber to suspend, or no owning strand to register the
		// block against (the caller is an ordinary goroutine, or is
		// driving its own fiber directly rather than through a Strand's
		// dispatch loop): fall back to a plain blocking wait on the
		// calling goroutine.
		task := func(ctx *contextlocal.Context) {
			v, err := fn(ctx)
			p.Set(v, err)
		}
		if err := s.Post(task); err != nil {
			return zero, err
		}
		return p.Future().Wait()
	}

	fiberID := current.FiberID
	task := func(ctx *contextlocal.Context) {
		v, err := fn(ctx)
		p.Set(v, err)
		callerStrand.Unblock(fiberID)
	}

	// Register the block before posting: this call is made from the
	// owning thread's dispatch goroutine (it's the one currently running
	// callerFiber's body), so it's safe under block's "called only from
	// the owning thread" contract, and it closes the race a post-then-
	// block ordering would otherwise leave between the posted closure
	// resolving the promise and this fiber actually suspending.
	callerStrand.block(callerFiber, current, "future")
	if err := s.Post(task); err != nil {
		// The caller never actually suspended; discard the registration
		// rather than queue a still-running fiber for resumption.
		callerStrand.dropBlock(fiberID)
		return zero, err
	}
	callerFiber.Yield(current)
	return p.Future().Wait()
}

// currentFiberAndContext retrieves the calling goroutine's fiber and
// Context, failing if Await/BlockCurrent is invoked outside a fiber body.
func currentFiberAndContext() (*fiber.Fiber, *contextlocal.Context, error) {
	current := contextlocal.Current()
	if current == nil {
		return nil, nil, fmt.Errorf("strand: called outside a fiber context")
	}
	callerFiber, ok := current.Fiber.(*fiber.Fiber)
	if !ok || callerFiber == nil {
		return nil, nil, fmt.Errorf("strand: called from a context with no owning fiber")
	}
	return callerFiber, current, nil
}

// BlockCurrent registers the calling fiber as blocked on this strand for
// reason desc (e.g. a sleep timer) and returns the fiber so the caller can
// Yield it; some other path (a timer, a foreign unblock) is responsible
// for eventually calling Unblock/ApplyUnblock with the returned Context's
// FiberID. Must be called from the strand's hosting thread, same as block.
func (s *Strand) BlockCurrent(desc string) (*fiber.Fiber, *contextlocal.Context, error) {
	f, ctx, err := currentFiberAndContext()
	if err != nil {
		return nil, nil, err
	}
	owner, _ := ctx.StrandOwner.(*Strand)
	if owner != s {
		return nil, nil, fmt.Errorf("strand: BlockCurrent called for a strand that doesn't own the current fiber")
	}
	s.block(f, ctx, desc)
	return f, ctx, nil
}

// Cancel alerts the post cursor so further Posts fail and any barrier
// following it unblocks with an error.
func (s *Strand) Cancel() {
	s.cancelSeq.Alert()
	s.postCursor.Sequence().Alert()
	s.host.Notify()
}

// IsCancelled reports whether Cancel has been called.
func (s *Strand) IsCancelled() bool {
	return s.cancelSeq.IsAlerted()
}

// Wait blocks the calling goroutine until this strand has no pending
// tasks, no ready fibers, and no blocked contexts.
func (s *Strand) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.idleLocked() {
		s.idleCond.Wait()
	}
}

func (s *Strand) idleLocked() bool {
	return !s.HasPendingTasks() && s.readyCount.Load() == 0 && s.blocked.Len() == 0
}

// HasPendingTasks reports whether the posted-functor ring has slots the
// worker fibers haven't consumed yet.
func (s *Strand) HasPendingTasks() bool {
	return s.postCursor.Get() > s.readCursor.Get()
}

// HasReady reports whether a fiber is waiting to be resumed.
func (s *Strand) HasReady() bool {
	return len(s.ready) > 0
}

// RunOne performs one step of the dispatch routine's tail (resume a
// ready fiber, or dispatch a fresh/reused worker fiber against the task
// ring) for this strand specifically. The two higher-priority steps
// (unblocks, timers) are thread-global and handled by the hosting
// thread before it calls RunOne on each of its strands in turn.
func (s *Strand) RunOne() bool {
	if entry := s.popReady(); entry != nil {
		s.resumeEntry(entry)
		return true
	}
	if s.HasPendingTasks() {
		s.dispatchWorker()
		return true
	}
	return false
}

func (s *Strand) popReady() *blockedEntry {
	if len(s.ready) == 0 {
		return nil
	}
	e := s.ready[0]
	s.ready = s.ready[1:]
	s.readyCount.Add(-1)
	return e
}

func (s *Strand) pushReadyFront(e *blockedEntry) {
	s.ready = append([]*blockedEntry{e}, s.ready...)
	s.readyCount.Add(1)
}

func (s *Strand) dispatchWorker() {
	f := s.acquireFiber()
	ctx := s.newContext(f)
	s.resumeEntry(&blockedEntry{f: f, ctx: ctx})
}

func (s *Strand) newContext(f *fiber.Fiber) *contextlocal.Context {
	ctx := contextlocal.New()
	ctx.ThreadID = s.host.ThreadID()
	ctx.StrandName = s.name
	ctx.FiberID = ctx.ID.String()
	ctx.Fiber = f
	ctx.StrandOwner = s
	return ctx
}

func (s *Strand) resumeEntry(e *blockedEntry) {
	var out *contextlocal.Context
	var err error
	if e.f.State() == fiber.Fresh {
		out, err = e.f.Start(e.ctx)
	} else {
		out, err = e.f.Resume(e.ctx)
	}
	if e.f.Done() {
		s.release(e.f)
		if err != nil {
			// A fiber-fatal error from a worker body surfaces here; in
			// the absence of a supervising caller to re-raise to, it is
			// not silently dropped: callers that need fiber-fatal
			// propagation should drive their own fiber via Start/Resume
			// directly instead of going through the worker-pool path.
			_ = err
		}
		s.broadcastIfIdle()
		return
	}
	// Suspended mid-task: it yielded because it's now blocked (e.g. on a
	// promise via Await), which registers it in s.blocked itself; if it
	// yielded for any other reason, put it back on the ready queue so
	// the next RunOne picks it up again.
	if _, stillBlocked := s.blocked.Get(out.FiberID); !stillBlocked {
		s.ready = append(s.ready, &blockedEntry{f: e.f, ctx: out})
		s.readyCount.Add(1)
	}
}

func (s *Strand) acquireFiber() *fiber.Fiber {
	if n := len(s.free); n > 0 {
		f := s.free[n-1]
		s.free = s.free[:n-1]
		s.freeCount.Add(-1)
		f.Reset(s.workerBody())
		return f
	}
	return fiber.New(0, s.workerBody())
}

func (s *Strand) release(f *fiber.Fiber) {
	// Retired fibers are returned to the free list instead of being
	// discarded, so the next dispatchWorker call reuses the goroutine
	// (and whatever stack growth it already paid for) instead of
	// allocating a brand new fiber per task.
	s.free = append(s.free, f)
	s.freeCount.Add(1)
}

func (s *Strand) broadcastIfIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleLocked() {
		s.idleCond.Broadcast()
	}
}

func (s *Strand) workerBody() fiber.Body {
	return func(f *fiber.Fiber, ctx *contextlocal.Context) {
		for {
			avail := s.postCursor.Get()
			next := s.readCursor.Get() + 1
			if next > avail {
				return
			}
			task := *s.ring.Get(next)
			// The read cursor is advanced before task runs, not after: a
			// task invoked through Await can suspend this fiber mid-call
			// (it yields back to the dispatch loop while waiting on a
			// promise). If the cursor only advanced on return, the next
			// RunOne would see this slot as still unread and dispatch a
			// second worker fiber onto the very same task, running it
			// twice. Advancing first marks the slot claimed the instant
			// it's handed to a fiber; the task's closure was already
			// copied out of the ring slot above, so a producer reusing
			// the slot afterward cannot race with this invocation.
			s.readCursor.Advance(next)
			task(ctx)
		}
	}
}

// block registers ctx (and its fiber) as waiting on something described
// by desc, to be resumed later via unblock. Must only be called from
// the hosting thread's dispatch goroutine, matching block's "called only
// from the owning thread" contract.
func (s *Strand) block(f *fiber.Fiber, ctx *contextlocal.Context, desc string) {
	ctx.BlockDesc = desc
	s.blocked.Set(ctx.FiberID, &blockedEntry{f: f, ctx: ctx})
}

// Unblock moves the context identified by fiberID from the blocked set
// to the front of the ready deque. If the caller is not running on this
// strand's hosting thread, the request is relayed through the thread's
// unblock ring instead of touching strand-local state directly.
func (s *Strand) Unblock(fiberID string) {
	if current := contextlocal.Current(); current != nil && current.ThreadID == s.host.ThreadID() {
		s.applyUnblockLocal(fiberID)
		return
	}
	s.host.PostUnblock(s.name, fiberID)
}

// ApplyUnblock is called by the hosting thread once it has drained an
// unblock-ring entry for this strand; it performs the same local
// transition Unblock does when already running on the owning thread.
func (s *Strand) ApplyUnblock(fiberID string) {
	s.applyUnblockLocal(fiberID)
}

func (s *Strand) dropBlock(fiberID string) {
	s.blocked.Delete(fiberID)
}

func (s *Strand) applyUnblockLocal(fiberID string) {
	v, ok := s.blocked.Delete(fiberID)
	if !ok {
		return
	}
	entry := v.(*blockedEntry)
	s.pushReadyFront(entry)
}
