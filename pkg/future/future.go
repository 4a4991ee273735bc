// Package future implements Promise[T]/Future[T], the single-producer
// single-consumer result handoff strands use for async/await. A Promise
// may be set exactly once; at most one goroutine may be waiting on it at
// a time. Supporting more waiters would require a broadcast; keeping to
// one preserves the cheap single-waiter fast path.
package future

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/go-strand/strand/pkg/spinlock"
)

// ErrAlreadyWaiting is returned by Wait/WaitContext if another goroutine
// is already waiting on the same Future.
var ErrAlreadyWaiting = errors.New("future: another context is already waiting")

// Promise is the write side of a one-shot result slot.
type Promise[T any] struct {
	lock    spinlock.OnceSpinLock
	value   T
	err     error
	waiting atomic.Bool
	ready   chan struct{}
}

// NewPromise returns an unset Promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{ready: make(chan struct{})}
}

// Set stores the promise's result. Only the first call has any effect;
// subsequent calls are no-ops, matching the set-once invariant a
// strand.Async task relies on (a task body runs exactly once, so it can
// only ever resolve its promise once).
func (p *Promise[T]) Set(value T, err error) {
	if !p.lock.TryAcquire() {
		return
	}
	p.value = value
	p.err = err
	close(p.ready)
}

// IsSet reports whether Set has been called.
func (p *Promise[T]) IsSet() bool {
	return p.lock.IsOpen()
}

// Future returns the read side of this promise.
func (p *Promise[T]) Future() *Future[T] {
	return &Future[T]{p: p}
}

// Future is the read side of a one-shot result slot.
type Future[T any] struct {
	p *Promise[T]
}

// IsReady reports whether the result is available without blocking.
func (f *Future[T]) IsReady() bool {
	return f.p.IsSet()
}

// Wait blocks until the promise is set and returns its result. Only one
// goroutine may call Wait (or WaitContext) at a time; a second
// concurrent caller gets ErrAlreadyWaiting immediately rather than
// silently racing for the single waiting slot.
func (f *Future[T]) Wait() (T, error) {
	return f.WaitContext(context.Background())
}

// WaitContext is Wait with cancellation: if ctx is done before the
// promise resolves, it returns ctx.Err() and the zero value, and the
// promise remains waitable again for a future caller.
func (f *Future[T]) WaitContext(ctx context.Context) (T, error) {
	if !f.p.waiting.CompareAndSwap(false, true) {
		var zero T
		return zero, ErrAlreadyWaiting
	}
	defer f.p.waiting.Store(false)

	select {
	case <-f.p.ready:
		return f.p.value, f.p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
