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

// Package duration parses the calendar-unit duration strings
// pkg/conf's decode hook falls back to when time.ParseDuration doesn't
// understand a config value (a "sleep_for: 3d" in config.toml, say,
// rather than a plain "72h").
package duration

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformed is returned when s isn't a bare integer followed by one
// of the recognized unit suffixes.
var ErrMalformed = errors.New("duration: malformed value")

// ErrUnknownUnit is returned when s parses as a number but its suffix
// isn't one of the recognized units.
var ErrUnknownUnit = errors.New("duration: unknown unit")

// unitLengths maps a single-character suffix to its duration, in units
// of a day where the unit is calendar-based (a month is treated as a
// fixed 30 days, a year as 365, since this package has no notion of a
// reference date to resolve a real calendar month/year against).
var unitLengths = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
	'M': 30 * 24 * time.Hour,
	'y': 365 * 24 * time.Hour,
}

// Parse parses a duration string shaped as a non-negative integer
// followed by one unit suffix: s(econd), m(inute), h(our), d(ay),
// w(eek), M(onth, 30 days) or y(ear, 365 days). Unlike
// time.ParseDuration, only a single integer/unit pair is accepted;
// "1h30m" is not.
func Parse(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	unit := s[len(s)-1]
	digits := s[:len(s)-1]

	var value int64
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		value = value*10 + int64(c-'0')
	}
	if digits == "" {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	length, ok := unitLengths[unit]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, string(unit))
	}

	return time.Duration(value) * length, nil
}

// MustParse is Parse, panicking on error.
func MustParse(s string) time.Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseSeconds is Parse truncated down to whole seconds.
func ParseSeconds(s string) (int64, error) {
	d, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return int64(d.Seconds()), nil
}

// MustParseSeconds is ParseSeconds, panicking on error.
func MustParseSeconds(s string) int64 {
	return int64(MustParse(s).Seconds())
}
