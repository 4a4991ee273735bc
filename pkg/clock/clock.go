// Package clock supplies the wall-clock collaborator the scheduler's
// sleep timers are built against, so tests can substitute a fake clock
// instead of depending on real time.
package clock

import "time"

// Clock is the time source a Thread consults for "now" and for parking
// until a deadline.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// System is the real wall clock, backed directly by the time package.
type System struct{}

func (System) Now() time.Time         { return time.Now() }
func (System) Sleep(d time.Duration)  { time.Sleep(d) }

// Default is the Clock every Thread uses unless told otherwise.
var Default Clock = System{}
