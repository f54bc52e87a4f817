/*
 * Copyright 2025 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package time provides the logical clocks attached to content operations.
package time

import (
	"sort"
	"strconv"
	"strings"
)

// VectorClock is a map of user id to the number of operations that user has
// emitted and that are known to the owner of the clock.
type VectorClock map[string]int64

// NewVectorClock creates a new instance of VectorClock.
func NewVectorClock() VectorClock {
	return make(VectorClock)
}

// Get returns the counter of the given user. Missing users count as zero.
func (vc VectorClock) Get(id string) int64 {
	return vc[id]
}

// Increment increments the counter of the given user in place and returns
// the new value.
func (vc VectorClock) Increment(id string) int64 {
	vc[id]++
	return vc[id]
}

// Merge folds the given clock into this clock by taking the maximum counter of
// every user. Counters never decrease.
func (vc VectorClock) Merge(other VectorClock) {
	for k, v := range other {
		if vc[k] < v {
			vc[k] = v
		}
	}
}

// Copy returns a new deep copied VectorClock.
func (vc VectorClock) Copy() VectorClock {
	if vc == nil {
		return nil
	}
	rep := make(VectorClock, len(vc))
	for k, v := range vc {
		rep[k] = v
	}
	return rep
}

// Dominates returns whether every counter of this clock is greater than or
// equal to the corresponding counter of the given clock.
func (vc VectorClock) Dominates(other VectorClock) bool {
	for k, v := range other {
		if vc[k] < v {
			return false
		}
	}
	return true
}

// String returns the deterministic string form of this clock, e.g. `{a:1,b:2}`.
func (vc VectorClock) String() string {
	keys := make([]string, 0, len(vc))
	for k := range vc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	builder := strings.Builder{}
	builder.WriteRune('{')
	for i, k := range keys {
		if i > 0 {
			builder.WriteRune(',')
		}
		builder.WriteString(k)
		builder.WriteRune(':')
		builder.WriteString(strconv.FormatInt(vc[k], 10))
	}
	builder.WriteRune('}')

	return builder.String()
}

// HappensBefore returns true iff every entry of a is less than or equal to the
// corresponding entry of b and at least one entry is strictly less.
func HappensBefore(a, b VectorClock) bool {
	strictlyLess := false
	for k, av := range a {
		bv := b[k]
		if av > bv {
			return false
		}
		if av < bv {
			strictlyLess = true
		}
	}

	// NOTE: entries only present in b are strictly greater than the implicit
	// zero of a.
	for k, bv := range b {
		if _, ok := a[k]; !ok && bv > 0 {
			strictlyLess = true
		}
	}

	return strictlyLess
}
