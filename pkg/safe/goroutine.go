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

// Package safe launches the scheduler's long-lived goroutines (a
// thread's dispatch loop, the metrics HTTP listener) behind a panic
// recovery so that one runaway fiber body can't take the host process
// down with it; a panic is logged with the component name that started
// the goroutine instead of being silently swallowed.
package safe

import (
	"runtime/debug"

	"github.com/go-strand/strand/pkg/log"
)

// Go starts f on a new goroutine, labeled component for the recovered
// panic log line.
func Go(component string, f func()) {
	go Do(component, f)
}

// Do runs f on the calling goroutine, recovering any panic and logging
// it (with a stack trace) under component rather than letting it
// propagate and crash the host thread.
func Do(component string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			log.GetLogger().Errorw("recovered from panic",
				"component", component,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	f()
}
