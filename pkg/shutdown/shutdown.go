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

// Package shutdown is the signal internal/runtime.Runtime.Wait blocks on:
// a CAS-guarded one-shot gate that a caller (a signal handler, a failed
// health check, a scenario's own completion) trips to ask the thread pool
// to start tearing down, layered above pkg/thread.Join's own per-thread
// stop rather than replacing it.
package shutdown

import (
	"sync/atomic"
)

// Gate is a one-shot shutdown signal: the first call to Trigger wins,
// records why, and closes the channel Wait returns; later calls are
// no-ops.
type Gate struct {
	triggered atomic.Bool
	reason    atomic.Value // string
	done      chan struct{}
}

// NewGate returns an untripped Gate.
func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Triggered reports whether Trigger has already fired.
func (g *Gate) Triggered() bool {
	return g.triggered.Load()
}

// Trigger trips the gate with reason, closing the channel Wait returns.
// Returns true if this call was the one that tripped it, false if the
// gate was already triggered (by a prior call, with a prior reason).
func (g *Gate) Trigger(reason string) bool {
	if !g.triggered.CompareAndSwap(false, true) {
		return false
	}
	g.reason.Store(reason)
	close(g.done)
	return true
}

// Reason returns the reason passed to the Trigger call that tripped the
// gate, or "" if it hasn't tripped yet.
func (g *Gate) Reason() string {
	if r, ok := g.reason.Load().(string); ok {
		return r
	}
	return ""
}

// Wait returns a channel closed once Trigger has fired.
func (g *Gate) Wait() <-chan struct{} {
	return g.done
}
