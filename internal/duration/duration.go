// Copyright Project Contour Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package duration provides the DDS Duration_t value used throughout
// QoS policies (deadline period, liveliness lease duration, lifespan,
// reliability max_blocking_time): either a finite time.Duration or the
// DURATION_INFINITE sentinel. The zero value is a zero-length finite
// Value (the wire's {sec: 0, nanosec: 0}, e.g. TIME_BASED_FILTER's
// "no minimum separation" default); DURATION_INFINITE is the distinct
// sentinel constructed by Infinite, matching the original's separate
// {0x7fffffff, 0xffffffff} wire encoding for "no bound".
package duration

import "time"

// Value is a DDS Duration_t: either infinite or a concrete span. The
// zero value is a zero-length Value, not DURATION_INFINITE.
type Value struct {
	val      time.Duration
	infinite bool
}

// IsInfinite reports whether the duration is DURATION_INFINITE.
func (s Value) IsInfinite() bool {
	return s.infinite
}

// Duration returns the explicit duration. It is meaningless when
// IsInfinite is true.
func (s Value) Duration() time.Duration {
	return s.val
}

// Infinite returns the DURATION_INFINITE value.
func Infinite() Value {
	return Value{infinite: true}
}

// Finite returns a Value with the given finite duration.
func Finite(d time.Duration) Value {
	return Value{val: d}
}

// LessEqual implements the writer<=reader / writer>=reader comparisons
// QoS matching performs (spec.md §4.3): infinite compares as larger
// than any finite value, and is equal to infinite.
func (s Value) LessEqual(other Value) bool {
	switch {
	case s.infinite && other.infinite:
		return true
	case s.infinite:
		return false
	case other.infinite:
		return true
	default:
		return s.val <= other.val
	}
}

// Parse parses the textual form used in QoS profile YAML:
//   - an empty string or "0"/"0s" means DURATION_INFINITE.
//   - "infinite"/"infinity" means DURATION_INFINITE explicitly.
//   - any other valid Go duration string is a finite Value.
func Parse(text string) (Value, error) {
	switch text {
	case "", "0", "0s", "infinite", "infinity":
		return Infinite(), nil
	}

	d, err := time.ParseDuration(text)
	if err != nil {
		return Value{}, err
	}
	return Finite(d), nil
}
