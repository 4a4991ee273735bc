// Package sequence provides the monotonic counter primitive the rest of
// the ring-buffer and fiber scheduler packages are built on. A Sequence
// is a cache-line padded int64 that supports plain, acquire and release
// loads/stores plus a side-channel "alert" flag used to unblock waiters
// when a component is shutting down.
package sequence

import "sync/atomic"

// cacheLinePad is sized to push neighboring Sequence fields onto distinct
// cache lines and kill false sharing between a producer's cursor and a
// consumer's read sequence sitting next to each other in memory.
type cacheLinePad [7]int64

// Initial is the value every cursor and barrier starts from; the first
// published slot is sequence 0.
const Initial int64 = -1

// Sequence is a padded, atomically updated counter.
type Sequence struct {
	_     cacheLinePad
	value atomic.Int64
	_     cacheLinePad
	alert atomic.Bool
}

// New returns a Sequence initialized to v.
func New(v int64) *Sequence {
	s := &Sequence{}
	s.value.Store(v)
	return s
}

// NewInitial returns a Sequence at Initial (-1).
func NewInitial() *Sequence {
	return New(Initial)
}

// Get returns the current value with acquire semantics.
func (s *Sequence) Get() int64 {
	return s.value.Load()
}

// Set stores v with release semantics.
func (s *Sequence) Set(v int64) {
	s.value.Store(v)
}

// Incr adds delta and returns the new value.
func (s *Sequence) Incr(delta int64) int64 {
	return s.value.Add(delta)
}

// CompareAndSwap attempts to move the sequence from old to new, returning
// whether it succeeded.
func (s *Sequence) CompareAndSwap(old, new int64) bool {
	return s.value.CompareAndSwap(old, new)
}

// Alert marks the sequence as alerted: any Barrier waiting on it should
// stop spinning and return ErrAlerted to its caller.
func (s *Sequence) Alert() {
	s.alert.Store(true)
}

// ClearAlert resets the alert flag, allowing the sequence to be reused.
func (s *Sequence) ClearAlert() {
	s.alert.Store(false)
}

// IsAlerted reports whether Alert has been called since the last
// ClearAlert.
func (s *Sequence) IsAlerted() bool {
	return s.alert.Load()
}

// MinOf returns the smallest current value among seqs. Panics if seqs is
// empty, mirroring the barrier's "must have at least one upstream
// sequence" invariant.
func MinOf(seqs []*Sequence) int64 {
	if len(seqs) == 0 {
		panic("sequence: MinOf called with no sequences")
	}
	min := seqs[0].Get()
	for _, s := range seqs[1:] {
		if v := s.Get(); v < min {
			min = v
		}
	}
	return min
}
