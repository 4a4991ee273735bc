// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package loop runs a polling function on a fixed interval until it asks
// to stop, backing off the interval on repeated errors. It is the
// periodic-reporter primitive cmd/strandctl's scenarios use to print
// progress alongside a running Runtime without hooking into the
// scheduler's own timer heap (pkg/thread's sleep timers are for fibers,
// not for a CLI's own background ticking).
package loop

import (
	"context"
	"math"
	"time"

	"github.com/go-strand/strand/pkg/clock"
)

// Loop repeatedly invokes a polling function on an interval, stretching
// the interval on consecutive errors and resetting it on success.
type Loop struct {
	clk          clock.Clock
	maxIters     uint64
	backoffRatio float64
	backoffCap   time.Duration
	interval     time.Duration
	nextSleep    time.Duration
	ctx          context.Context
}

// Option configures a Loop.
type Option func(*Loop)

// New builds a Loop with a 1s interval, unlimited iterations, and no
// error backoff by default.
func New(options ...Option) *Loop {
	l := &Loop{
		clk:          clock.Default,
		interval:     time.Second,
		maxIters:     math.MaxUint64,
		backoffRatio: 1,
	}
	for _, op := range options {
		op(l)
	}
	l.nextSleep = l.interval
	return l
}

// sleep waits d, honoring l.ctx if one was configured. Returns true if
// the wait was cut short by context cancellation.
func (l *Loop) sleep(d time.Duration) (aborted bool) {
	if l.ctx == nil {
		l.clk.Sleep(d)
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-l.ctx.Done():
		return true
	}
}

// Do calls f repeatedly until it reports done=true, returns an error
// that isn't retried away, the iteration cap is reached, or the
// configured context is cancelled. f reports (done, err): done stops the
// loop immediately with err; a non-nil err with done=false stretches the
// next sleep by backoffRatio (capped at backoffCap) before retrying.
func (l *Loop) Do(f func() (done bool, err error)) error {
	if l.ctx != nil && l.ctx.Err() != nil {
		return nil
	}

	var lastErr error
	for i := uint64(0); i < l.maxIters; i++ {
		done, err := f()
		if done {
			return err
		}
		if err != nil {
			lastErr = err
			l.nextSleep = time.Duration(float64(l.nextSleep) * l.backoffRatio)
			if l.backoffCap > 0 && l.nextSleep > l.backoffCap {
				l.nextSleep = l.backoffCap
			}
		} else {
			lastErr = nil
			l.nextSleep = l.interval
		}
		if l.sleep(l.nextSleep) {
			return nil
		}
	}
	return lastErr
}

// WithMaxIterations caps the number of times f is invoked; default is
// unlimited.
func WithMaxIterations(n uint64) Option {
	return func(l *Loop) { l.maxIters = n }
}

// WithBackoffRatio multiplies the sleep interval by n after each error;
// default 1 (no backoff). Values below 1 are ignored.
func WithBackoffRatio(n float64) Option {
	return func(l *Loop) {
		if n >= 1 {
			l.backoffRatio = n
		}
	}
}

// WithBackoffCap bounds how long the backoff-stretched interval may grow;
// default is unbounded. Negative values are ignored.
func WithBackoffCap(d time.Duration) Option {
	return func(l *Loop) {
		if d >= 0 {
			l.backoffCap = d
		}
	}
}

// WithInterval sets the steady-state interval between calls to f;
// default 1s. Values under a millisecond are ignored.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d >= time.Millisecond {
			l.interval = d
		}
	}
}

// WithContext makes the loop stop as soon as ctx is done, in addition to
// its other stop conditions.
func WithContext(ctx context.Context) Option {
	return func(l *Loop) { l.ctx = ctx }
}

// WithClock overrides the wall clock used for the non-context sleep
// path; clock.Default if unset.
func WithClock(clk clock.Clock) Option {
	return func(l *Loop) { l.clk = clk }
}
