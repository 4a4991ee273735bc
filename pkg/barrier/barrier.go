// Package barrier implements the gating condition a consumer waits on
// before it may read a slot: the minimum of one or more upstream
// sequences (a producer's cursor, or another consumer's progress when
// consumers are chained).
package barrier

import (
	"errors"
	"math"

	"github.com/go-strand/strand/pkg/sequence"
	"github.com/go-strand/strand/pkg/waitstrategy"
)

// ErrAlerted is returned by WaitFor when one of the upstream sequences
// was alerted while waiting, signalling the caller to stop rather than
// keep waiting for a sequence that will never advance.
var ErrAlerted = errors.New("barrier: alerted")

// Barrier tracks one or more upstream sequences and exposes the minimum
// of their current values, caching the last-known minimum so repeated
// WaitFor calls for the same target don't needlessly recompute it once
// it's already known to be sufficient.
type Barrier struct {
	upstream []*sequence.Sequence
	strategy waitstrategy.Strategy
	lastMin  int64
}

// New builds a Barrier gated on upstream. At least one upstream sequence
// is required; an empty slice is a programming error and panics, mirroring
// the "must have at least one upstream sequence" invariant.
func New(upstream []*sequence.Sequence, strategy waitstrategy.Strategy) *Barrier {
	if len(upstream) == 0 {
		panic("barrier: at least one upstream sequence is required")
	}
	if strategy == nil {
		strategy = waitstrategy.NewDefaultTiered()
	}
	return &Barrier{
		upstream: upstream,
		strategy: strategy,
		lastMin:  sequence.Initial,
	}
}

// Min returns the current minimum across all upstream sequences.
func (b *Barrier) Min() int64 {
	return sequence.MinOf(b.upstream)
}

// WaitFor blocks until every upstream sequence has reached at least
// target, returning the (possibly higher) minimum actually observed.
//
// Each upstream is waited on independently with its own tiered spin ->
// yield -> sleep backoff. If an upstream is alerted while this barrier is
// still waiting on it, the alert is resolved against that upstream's own
// current value rather than the barrier's overall minimum: if the
// upstream has already advanced past target (the producer published more
// before raising the alert), WaitFor returns upstream-1 so the caller can
// drain everything that was genuinely published before the fault; only
// when the upstream is alerted at or behind target does WaitFor surface
// ErrAlerted. A downstream consumer therefore drains up to the last
// published index instead of failing one target early.
func (b *Barrier) WaitFor(target int64) (int64, error) {
	if b.lastMin >= target {
		return b.lastMin, nil
	}

	min := int64(math.MaxInt64)
	for _, s := range b.upstream {
		b.strategy.Reset()
		for {
			v := s.Get()
			if s.IsAlerted() {
				if v > target {
					return v - 1, nil
				}
				return b.lastMin, ErrAlerted
			}
			if v >= target {
				if v < min {
					min = v
				}
				break
			}
			b.strategy.Wait()
		}
	}
	b.lastMin = min
	return min, nil
}
