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

package loop

import (
	"math"
	"time"
)

// PreviewInterval returns the sleep Do uses after n-1 consecutive
// errors (interval * backoffRatio^(n-1), capped at backoffCap), without
// mutating the Loop's own running state; PreviewInterval(1) is the plain
// interval. Useful for logging "next retry in ~Xs" before Do actually
// sleeps that long.
func (l *Loop) PreviewInterval(n uint64) time.Duration {
	if n == 0 {
		return 0
	}
	interval := time.Duration(float64(l.interval) * math.Pow(l.backoffRatio, float64(n-1)))
	if l.backoffCap > 0 && interval > l.backoffCap {
		interval = l.backoffCap
	}
	if interval < 0 {
		interval = l.interval
	}
	return interval
}
