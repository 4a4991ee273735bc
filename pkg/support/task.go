// Package support holds the small value types shared across the
// scheduler packages: the posted task callable and the free-list helper
// used to recycle fibers instead of allocating a fresh one per task.
package support

import "github.com/go-strand/strand/pkg/contextlocal"

// Task is the callable posted into a strand's ring buffer. Go closures
// are reference-sized function values, so a Task is stored directly in a
// pre-allocated ring slot rather than copied into a fixed-capacity
// inline buffer; the pre-allocation of the ring itself is what keeps
// posting a task off the hot-path allocator.
type Task func(ctx *contextlocal.Context)

// Noop is a Task that does nothing, useful as a zero value for ring
// slots that haven't been written yet.
func Noop(*contextlocal.Context) {}
