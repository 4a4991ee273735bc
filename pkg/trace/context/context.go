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

// Package context is the goroutine-local slot pkg/log's trace-aware core
// reads on every log line to attach the active span, keyed by the same
// timandy/routine goroutine-id technique pkg/contextlocal uses for the
// scheduler's own current-context pointer.
package context

import (
	"context"
	"sync"

	"github.com/timandy/routine"
	"go.opentelemetry.io/otel/trace"
)

const bucketCount = 128

type contextBucket struct {
	lock sync.RWMutex
	data map[uint64]context.Context
}

var buckets [bucketCount]*contextBucket

func init() {
	for i := range buckets {
		buckets[i] = &contextBucket{data: make(map[uint64]context.Context)}
	}
}

func bucketFor(goid uint64) *contextBucket {
	return buckets[goid%bucketCount]
}

// GetContext returns the context.Context installed as current for the
// calling goroutine, or nil if none has been set.
func GetContext() context.Context {
	goid := routine.Goid()
	b := bucketFor(goid)
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.data[goid]
}

// SetContext installs ctx as current for the calling goroutine.
func SetContext(ctx context.Context) {
	goid := routine.Goid()
	b := bucketFor(goid)
	b.lock.Lock()
	defer b.lock.Unlock()
	b.data[goid] = ctx
}

// ClearContext removes whatever context.Context is current for the
// calling goroutine.
func ClearContext() {
	goid := routine.Goid()
	b := bucketFor(goid)
	b.lock.Lock()
	defer b.lock.Unlock()
	delete(b.data, goid)
}

// RunWithContext installs ctx as current for the duration of fn.
func RunWithContext(ctx context.Context, fn func(ctx context.Context)) {
	SetContext(ctx)
	defer ClearContext()
	fn(ctx)
}

// ContextWithSpan returns ctx with the active span attached, pulling it
// from the goroutine-local slot if ctx doesn't already carry a valid
// span. This is what lets a log line emitted deep inside a fiber body
// pick up the span that was active when the fiber's strand posted the
// task, without threading a context.Context through every call.
func ContextWithSpan(ctx context.Context) context.Context {
	if span := trace.SpanFromContext(ctx); !span.SpanContext().IsValid() {
		if parent := GetContext(); parent != nil {
			if span := trace.SpanFromContext(parent); span.SpanContext().IsValid() {
				ctx = trace.ContextWithSpan(ctx, span)
			}
		}
	}
	return ctx
}
