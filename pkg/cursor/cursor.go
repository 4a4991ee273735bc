// Package cursor implements the three cursor flavors a ring buffer is
// built from: a bare read cursor tracking a consumer's progress, a
// single-writer cursor for the common one-producer case, and a
// multi-writer cursor that preserves claim-order publication when
// several goroutines race to append.
package cursor

import (
	"sync"

	"github.com/go-strand/strand/pkg/sequence"
	"github.com/go-strand/strand/pkg/waitstrategy"
)

// Cursor is the common read surface every cursor flavor exposes.
type Cursor interface {
	// Get returns the cursor's current published sequence.
	Get() int64
	// Sequence exposes the underlying Sequence so it can be used as a
	// barrier's upstream or gating sequence.
	Sequence() *sequence.Sequence
}

// Read is a plain consumer-side cursor: it has no claim/publish protocol
// of its own, it is simply advanced by whatever reads the ring.
type Read struct {
	seq *sequence.Sequence
}

// NewRead returns a Read cursor starting at sequence.Initial.
func NewRead() *Read {
	return &Read{seq: sequence.NewInitial()}
}

func (r *Read) Get() int64                    { return r.seq.Get() }
func (r *Read) Sequence() *sequence.Sequence  { return r.seq }
func (r *Read) Advance(to int64)              { r.seq.Set(to) }

// SingleWriter is a producer-side cursor used when exactly one goroutine
// ever publishes. claim and publish collapse to a single store because
// there is no concurrent claimant to race against.
type SingleWriter struct {
	seq       *sequence.Sequence
	claimed   int64
	published bool
}

// NewSingleWriter returns a SingleWriter cursor starting at
// sequence.Initial.
func NewSingleWriter() *SingleWriter {
	return &SingleWriter{seq: sequence.NewInitial(), claimed: sequence.Initial}
}

func (w *SingleWriter) Get() int64                   { return w.seq.Get() }
func (w *SingleWriter) Sequence() *sequence.Sequence { return w.seq }

// Next claims the next sequence for writing. It panics if the
// previously claimed sequence was never published: a single-writer
// cursor permits exactly one outstanding claim at a time, and publishing
// twice or claiming twice without publishing is a programming error.
func (w *SingleWriter) Next() int64 {
	if w.claimed != sequence.Initial && !w.published {
		panic("cursor: SingleWriter.Next called before prior claim was published")
	}
	w.claimed++
	w.published = false
	return w.claimed
}

// Publish makes the previously claimed sequence visible to readers.
func (w *SingleWriter) Publish() {
	if w.published {
		panic("cursor: SingleWriter.Publish called twice for the same claim")
	}
	w.seq.Set(w.claimed)
	w.published = true
}

// MultiWriter is a producer-side cursor usable by any number of
// concurrent writers. Writers claim slots with an atomic add (Next) and
// must publish in claim order (PublishAfter), so a slow writer holding
// an earlier slot blocks the visible cursor from passing it even though
// later slots may already be filled in memory.
type MultiWriter struct {
	claim     *sequence.Sequence // highest claimed sequence
	published *sequence.Sequence // highest contiguous published sequence
	// available tracks, per-slot, whether that slot has been written
	// and is waiting for its predecessor to publish.
	available map[int64]bool
	// newStrategy builds a fresh wait strategy per blocked publisher;
	// Tiered strategies carry per-wait state, so concurrent publishers
	// each need their own.
	newStrategy func() waitstrategy.Strategy
	availMu     sync.Mutex
}

// NewMultiWriter returns a MultiWriter cursor starting at
// sequence.Initial. newStrategy supplies the backoff each blocked
// publisher waits with; nil means the default tiered strategy.
func NewMultiWriter(newStrategy func() waitstrategy.Strategy) *MultiWriter {
	if newStrategy == nil {
		newStrategy = func() waitstrategy.Strategy { return waitstrategy.NewDefaultTiered() }
	}
	return &MultiWriter{
		claim:       sequence.NewInitial(),
		published:   sequence.NewInitial(),
		available:   make(map[int64]bool),
		newStrategy: newStrategy,
	}
}

func (m *MultiWriter) Get() int64                   { return m.published.Get() }
func (m *MultiWriter) Sequence() *sequence.Sequence { return m.published }

// Next claims the next single sequence, returning the slot this caller
// alone won.
func (m *MultiWriter) Next() int64 {
	_, last := m.Claim(1)
	return last
}

// Claim atomically reserves n consecutive sequences for the calling
// writer, returning the inclusive range [first, last]. The range is
// this caller's alone; concurrent claimers each get disjoint ranges in
// claim order. Publish the whole range with PublishRange once every
// slot in it has been written.
func (m *MultiWriter) Claim(n int64) (first, last int64) {
	if n <= 0 {
		panic("cursor: Claim requires a positive count")
	}
	last = m.claim.Incr(n)
	return last - n + 1, last
}

// PublishAfter marks seq as written and then advances the visible
// published sequence through any run of contiguous slots that are now
// available, starting from published+1. If seq's predecessor hasn't
// published yet, this writer's slot sits marked-available but invisible
// until the predecessor (and any slots between) publish, preserving
// claim-order publication. The wait for a predecessor is bounded by the
// same tiered spin/yield/sleep strategy used elsewhere, so a writer never
// spins unbounded on a stalled peer.
func (m *MultiWriter) PublishAfter(seq int64) {
	m.PublishRange(seq, seq)
}

// PublishRange marks every sequence in [first, last] as written and
// advances the visible published sequence under the same claim-order
// discipline as PublishAfter: a range whose predecessor hasn't published
// yet sits available-but-invisible until the gap closes, with the wait
// bounded by the tiered strategy.
func (m *MultiWriter) PublishRange(first, last int64) {
	if first > last {
		panic("cursor: PublishRange requires first <= last")
	}
	m.markAvailable(first, last)

	if expected := m.published.Get() + 1; first != expected {
		// Another writer claimed a lower slot and hasn't published yet;
		// wait for it, bounded by the tiered strategy.
		ws := m.newStrategy()
		for m.published.Get() < last {
			ws.Wait()
		}
		return
	}

	m.advance()
}

func (m *MultiWriter) markAvailable(first, last int64) {
	m.availMu.Lock()
	for seq := first; seq <= last; seq++ {
		m.available[seq] = true
	}
	m.availMu.Unlock()
}

func (m *MultiWriter) isAvailable(seq int64) bool {
	m.availMu.Lock()
	defer m.availMu.Unlock()
	return m.available[seq]
}

// advance walks forward from published+1 while consecutive slots are
// marked available, publishing the highest contiguous run in one pass so
// a burst of writers that finish out of order still becomes visible as
// soon as the gap closes.
func (m *MultiWriter) advance() {
	m.availMu.Lock()
	defer m.availMu.Unlock()

	next := m.published.Get() + 1
	for m.available[next] {
		delete(m.available, next)
		next++
	}
	if highest := next - 1; highest >= m.published.Get() {
		m.published.Set(highest)
	}
}
