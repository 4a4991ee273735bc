// Package ringbuffer implements the generalized Disruptor-style ring
// buffer the rest of strand is built on: a power-of-two fixed-capacity
// slot array with no internal synchronization of its own, gated by the
// cursor and barrier packages. Both single- and multi-writer producers
// are supported by choosing the matching cursor.SingleWriter or
// cursor.MultiWriter.
package ringbuffer

import (
	"github.com/go-strand/strand/pkg/barrier"
	"github.com/go-strand/strand/pkg/cursor"
	"github.com/go-strand/strand/pkg/sequence"
	"github.com/go-strand/strand/pkg/waitstrategy"
)

// RingBuffer is a fixed-capacity, power-of-two sized slot array. It does
// not synchronize access to its slots itself: callers coordinate through
// a producer cursor (claim a slot, write it, publish it) and one or more
// consumer barriers gated on the producer's published sequence.
type RingBuffer[T any] struct {
	slots []T
	mask  int64
}

// New returns a RingBuffer with room for capacity slots. capacity must
// be a power of two; anything else is a programming error and panics.
func New[T any](capacity int64) *RingBuffer[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("ringbuffer: capacity must be a power of 2 greater than 0")
	}
	return &RingBuffer[T]{
		slots: make([]T, capacity),
		mask:  capacity - 1,
	}
}

// Capacity returns the number of slots in the ring.
func (r *RingBuffer[T]) Capacity() int64 {
	return int64(len(r.slots))
}

// Get returns a pointer to the slot for seq, letting callers write into
// place (PublishWith-style) or read without copying.
func (r *RingBuffer[T]) Get(seq int64) *T {
	return &r.slots[seq&r.mask]
}

// Set copies v into the slot for seq.
func (r *RingBuffer[T]) Set(seq int64, v T) {
	r.slots[seq&r.mask] = v
}

// NewBarrierFor builds a Barrier that gates a consumer of this ring on
// the given upstream cursors (typically the producer cursor, or another
// consumer's Read cursor when consumers are chained).
func NewBarrierFor(strategy waitstrategy.Strategy, upstream ...cursor.Cursor) *barrier.Barrier {
	seqs := make([]*sequence.Sequence, len(upstream))
	for i, u := range upstream {
		seqs[i] = u.Sequence()
	}
	return barrier.New(seqs, strategy)
}

// GatingSequences collects the Sequence of every consumer cursor given,
// for use by a producer that must not overwrite slots still unread by
// any consumer (the wrap-point check in AwaitFreeSlot).
func GatingSequences(consumers ...cursor.Cursor) []*sequence.Sequence {
	seqs := make([]*sequence.Sequence, len(consumers))
	for i, c := range consumers {
		seqs[i] = c.Sequence()
	}
	return seqs
}

// AwaitFreeSlot blocks, using strategy, until claiming nextSeq would not
// overwrite a slot some consumer in gating hasn't read yet. This is the
// producer-side half of the ring's bounded-capacity invariant: a
// producer may be at most Capacity() slots ahead of the slowest
// consumer. A nil strategy defaults to the tiered backoff, constructed
// only once the wait is actually needed so the free-slot fast path stays
// allocation-free.
func AwaitFreeSlot(capacity int64, nextSeq int64, gating []*sequence.Sequence, strategy waitstrategy.Strategy) {
	wrapPoint := nextSeq - capacity
	if len(gating) == 0 {
		return
	}
	if wrapPoint <= sequence.MinOf(gating) {
		return
	}
	if strategy == nil {
		strategy = waitstrategy.NewDefaultTiered()
	}
	strategy.Reset()
	for wrapPoint > sequence.MinOf(gating) {
		strategy.Wait()
	}
}
