// Package spinlock implements OnceSpinLock, the one-time gate used by
// promises and other single-transition primitives: many goroutines may
// race to "win" the transition, but it opens permanently the first time
// anyone succeeds, after which every future attempt (racing or not)
// observes it open.
package spinlock

import "sync/atomic"

// OnceSpinLock starts closed and opens exactly once. TryAcquire is the
// only way to open it; whichever caller's CAS wins the race gets true,
// every other concurrent or later caller gets false. IsOpen lets
// observers that don't need to race for ownership just check state.
type OnceSpinLock struct {
	state atomic.Int32
}

const (
	closed int32 = 0
	open   int32 = 1
)

// TryAcquire attempts to open the lock. Returns true exactly once across
// the lock's lifetime, for whichever caller's compare-and-swap lands
// first.
func (l *OnceSpinLock) TryAcquire() bool {
	return l.state.CompareAndSwap(closed, open)
}

// IsOpen reports whether the lock has been opened.
func (l *OnceSpinLock) IsOpen() bool {
	return l.state.Load() == open
}

// SpinUntilOpen busy-waits until the lock opens. Intended for the short
// critical sections this primitive is meant for (checking a promise's
// result slot has been written); callers needing a bounded backoff
// should poll IsOpen themselves with a waitstrategy.Strategy instead.
func (l *OnceSpinLock) SpinUntilOpen() {
	for !l.IsOpen() {
	}
}
