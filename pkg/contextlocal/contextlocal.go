// Package contextlocal provides the goroutine-local "current context"
// slot the scheduler threads through every fiber resume. It is the Go
// analogue of a thread-local pointer: exactly one Context is considered
// "current" for a given OS thread (here, a given goroutine acting as a
// Thread) at a time, and only the context-switch primitive in pkg/fiber
// is supposed to write it.
package contextlocal

import (
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/timandy/routine"
)

const bucketsSize = 128

// Context is the per-fiber diagnostic and scheduling handle threaded
// across every suspend/resume. Beyond an identifier and an arbitrary
// Value slot a caller can use to pass data across a yield, it records
// which thread, strand and fiber are currently active and, while
// blocked, what it's waiting on.
type Context struct {
	ID    ulid.ULID
	Value any

	ThreadID   string
	StrandName string
	FiberID    string
	BlockDesc  string

	// Fiber is the *fiber.Fiber currently running this context, stored
	// as any to avoid an import cycle (pkg/fiber already depends on
	// this package to maintain the current-context slot). Callers that
	// need to suspend the running fiber type-assert this back.
	Fiber any

	// StrandOwner is the *strand.Strand dispatching this context's
	// fiber, stored as any for the same import-cycle reason as Fiber.
	StrandOwner any
}

// New returns a freshly identified Context with no Value set.
func New() *Context {
	return &Context{ID: ulid.Make()}
}

type bucket struct {
	lock sync.RWMutex
	data map[uint64]*Context
}

var buckets [bucketsSize]*bucket

func init() {
	for i := range buckets {
		buckets[i] = &bucket{data: make(map[uint64]*Context)}
	}
}

func bucketFor(goid uint64) *bucket {
	return buckets[goid%bucketsSize]
}

// Current returns the Context set as current for the calling goroutine,
// or nil if none has been set.
func Current() *Context {
	goid := routine.Goid()
	b := bucketFor(goid)
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.data[goid]
}

// SetCurrent installs ctx as current for the calling goroutine. Only the
// context-switch primitive (pkg/fiber's resume/yield path) is expected to
// call this: every other reader should treat the slot as read-only,
// matching the single-writer discipline the scheduler requires of its
// "current fiber" pointer.
func SetCurrent(ctx *Context) {
	goid := routine.Goid()
	b := bucketFor(goid)
	b.lock.Lock()
	defer b.lock.Unlock()
	b.data[goid] = ctx
}

// Clear removes whatever Context is current for the calling goroutine.
func Clear() {
	goid := routine.Goid()
	b := bucketFor(goid)
	b.lock.Lock()
	defer b.lock.Unlock()
	delete(b.data, goid)
}

// Scoped installs ctx as current for the duration of fn, restoring
// whatever was current beforehand on return. This is the scoped
// acquisition helper collaborators use instead of calling SetCurrent /
// Clear by hand.
func Scoped(ctx *Context, fn func()) {
	prev := Current()
	SetCurrent(ctx)
	defer SetCurrent(prev)
	fn()
}
