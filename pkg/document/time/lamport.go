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

package time

// Lamport is a Lamport clock. It gives a total order over operations that is
// consistent with causality but does not imply it.
type Lamport int64

// Value returns the current value of this clock.
func (l Lamport) Value() int64 {
	return int64(l)
}

// Tick advances this clock for a local event and returns the new value.
func (l *Lamport) Tick() int64 {
	*l++
	return int64(*l)
}

// Witness advances this clock on receipt of a remote timestamp to
// max(local, received) + 1 and returns the new value.
func (l *Lamport) Witness(received int64) int64 {
	if int64(*l) < received {
		*l = Lamport(received)
	}
	*l++
	return int64(*l)
}
