// Package fiber implements the scheduler's cooperative unit of work: a
// goroutine parked on a pair of rendezvous channels standing in for a
// stackful coroutine. start/resume hand control (and a *contextlocal.Context)
// into the fiber; yield/yield_to hand it back out. Exactly one goroutine
// is ever running a given fiber's body at a time, so from the caller's
// perspective a fiber behaves like a coroutine even though under the
// hood it is an ordinary Go goroutine blocked on a channel the rest of
// the time.
package fiber

import (
	"errors"
	"fmt"

	"github.com/go-strand/strand/pkg/contextlocal"
	"github.com/go-strand/strand/pkg/statemachine"
)

// State is a Fiber's lifecycle position.
type State string

const (
	Fresh     State = "fresh"
	Running   State = "running"
	Suspended State = "suspended"
	Done      State = "done"
)

// ErrDone is returned by Start/Resume if the fiber has already run to
// completion.
var ErrDone = errors.New("fiber: already done")

// Body is the function a fiber runs. It receives the fiber itself so it
// can call Yield to suspend, and the Context it was most recently resumed
// with.
type Body func(f *Fiber, ctx *contextlocal.Context)

// Fiber is a single cooperatively scheduled unit of work.
type Fiber struct {
	body Body
	sm   *statemachine.Machine[State]

	into chan *contextlocal.Context // caller -> fiber goroutine
	out  chan *contextlocal.Context // fiber goroutine -> caller

	exitErr  error
	finished bool
}

// New returns a fresh Fiber running body. stackHint exists only to keep
// the constructor's shape compatible with a stack-allocating coroutine
// runtime's allocate(size) call; goroutine stacks are runtime-managed
// and grow on demand, so stackHint is otherwise unused.
func New(stackHint int, body Body) *Fiber {
	_ = stackHint
	f := &Fiber{}
	f.reset(body)
	return f
}

// Reset rearms a Done fiber to run body from Fresh again. A finished
// fiber's backing goroutine has already exited (Go gives up a goroutine's
// stack on return, unlike a stackful coroutine that could be re-entered),
// so this cannot resume the old goroutine; what it reuses is the Fiber
// wrapper itself, letting a pool hand out the same handle repeatedly
// instead of constructing a new one per task. Panics if the fiber hasn't
// finished.
func (f *Fiber) Reset(body Body) {
	if f.sm != nil && f.State() != Done {
		panic("fiber: Reset called on a fiber that hasn't finished")
	}
	f.reset(body)
}

func (f *Fiber) reset(body Body) {
	sm := statemachine.NewWithState(Fresh)
	sm.AddTransition(Fresh, Running)
	sm.AddTransition(Running, Suspended)
	sm.AddTransition(Suspended, Running)
	sm.AddTransition(Running, Done)

	f.body = body
	f.sm = sm
	f.into = make(chan *contextlocal.Context)
	f.out = make(chan *contextlocal.Context)
	f.exitErr = nil
	f.finished = false
}

// State returns the fiber's current lifecycle state.
func (f *Fiber) State() State {
	return f.sm.Current()
}

// Done reports whether the fiber has run to completion. This is kept as
// a single boolean driven only by the state machine transition to Done,
// rather than inferred separately from exitErr, so the two can never
// disagree about whether the fiber has finished.
func (f *Fiber) Done() bool {
	return f.finished
}

// Start begins running the fiber's body on a new goroutine and blocks
// until the body either yields or returns. It must be called exactly
// once, before any Resume.
func (f *Fiber) Start(ctx *contextlocal.Context) (*contextlocal.Context, error) {
	if f.finished {
		return nil, ErrDone
	}
	f.sm.MustTransitionTo(Running)

	go f.run()
	f.into <- ctx
	return f.waitForSwitch()
}

// Resume hands control back to a suspended fiber along with ctx, and
// blocks until it yields again or finishes.
func (f *Fiber) Resume(ctx *contextlocal.Context) (*contextlocal.Context, error) {
	if f.finished {
		return nil, ErrDone
	}
	f.sm.MustTransitionTo(Running)
	f.into <- ctx
	return f.waitForSwitch()
}

func (f *Fiber) waitForSwitch() (*contextlocal.Context, error) {
	out := <-f.out
	if f.finished && f.exitErr != nil {
		err := f.exitErr
		return out, err
	}
	return out, nil
}

// Yield suspends the fiber's body, handing ctx back to whoever last
// called Start/Resume, and blocks until the fiber is resumed again. It
// must only be called from within the fiber's own body.
func (f *Fiber) Yield(ctx *contextlocal.Context) *contextlocal.Context {
	f.sm.MustTransitionTo(Suspended)
	f.out <- ctx
	resumed := <-f.into
	contextlocal.SetCurrent(resumed)
	return resumed
}

// YieldTo suspends this fiber's body and transfers control to other,
// running it until it next suspends or completes, then resumes here
// with whatever context other handed back. The host blocked in this
// fiber's Start/Resume is never involved in the handoff: from its point
// of view this fiber is still running. If other completes during the
// handoff, its exit error is re-raised here and the returned context is
// the one this fiber passed in. Must only be called from within this
// fiber's own body, and never with other == f.
func (f *Fiber) YieldTo(other *Fiber, ctx *contextlocal.Context) (*contextlocal.Context, error) {
	if other == f {
		panic("fiber: YieldTo(self)")
	}
	f.sm.MustTransitionTo(Suspended)

	var out *contextlocal.Context
	var err error
	if other.State() == Fresh {
		out, err = other.Start(ctx)
	} else {
		out, err = other.Resume(ctx)
	}

	f.sm.MustTransitionTo(Running)
	if out == nil {
		out = ctx
	}
	contextlocal.SetCurrent(out)
	return out, err
}

// run is the fiber's backing goroutine. It, and only it, ever writes the
// goroutine-local "current context" slot for the lifetime of the fiber's
// body: Start/Resume/Yield are the sole context-switch primitives, so
// the slot has exactly one writer and can never leak a stale pointer
// across a switch.
func (f *Fiber) run() {
	ctx := <-f.into
	contextlocal.SetCurrent(ctx)
	defer func() {
		if r := recover(); r != nil {
			f.exitErr = fmt.Errorf("fiber: panic: %v", r)
		}
		f.finished = true
		f.sm.MustTransitionTo(Done)
		contextlocal.Clear()
		f.out <- nil
	}()
	f.body(f, ctx)
}
