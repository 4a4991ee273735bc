// Package parallel fans a scenario's independent stages out across
// goroutines the way cmd/strandctl's pipeline scenario runs its three
// consumer stages concurrently: Group is an errgroup-shaped barrier
// that cancels every stage as soon as one fails, Future is a single
// cancellable result a caller can poll or block on. Both dispatch
// through pkg/trace.GoWithContext so a scenario's span and panic
// recovery follow the work onto its goroutine.
package parallel

import (
	"context"
	"sync"
	"time"

	"github.com/go-strand/strand/pkg/trace"
)

// Group runs a set of stages concurrently, cancelling the rest as soon
// as one returns an error.
type Group struct {
	ctx    context.Context
	cancel func()

	wg sync.WaitGroup

	errOnce sync.Once
	err     error
}

// GoGroup returns a Group whose stages share ctx, optionally bounded by
// WithTimeout.
func GoGroup(ctx context.Context, opts ...RunOption) *Group {
	rOpts := &runOptions{}
	for _, opt := range opts {
		opt(rOpts)
	}
	g := &Group{}
	if rOpts.timeout > 0 {
		g.ctx, g.cancel = context.WithTimeout(ctx, rOpts.timeout)
	} else {
		g.ctx, g.cancel = context.WithCancel(ctx)
	}
	return g
}

// Wait blocks until every stage started with Go has returned, then
// returns the first non-nil error (if any) from them.
func (g *Group) Wait() error {
	g.wg.Wait()
	if g.cancel != nil {
		g.cancel()
	}
	return g.err
}

// Go starts fn on a new goroutine as one of the group's stages. The
// first stage to return a non-nil error cancels every other stage's
// context and is the error Wait returns.
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.wg.Add(1)
	trace.GoWithContext(g.ctx, func(ctx context.Context) {
		defer g.wg.Done()
		if err := fn(ctx); err != nil {
			g.errOnce.Do(func() {
				g.err = err
				if g.cancel != nil {
					g.cancel()
				}
			})
		}
	})
}

// RunOption configures a Group or Future at construction.
type RunOption func(opts *runOptions)

type runOptions struct {
	timeout time.Duration
}

// WithTimeout bounds a Group's or Future's context with a timeout
// instead of plain cancellation.
func WithTimeout(timeout time.Duration) RunOption {
	return func(opts *runOptions) {
		opts.timeout = timeout
	}
}
