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

package operation

import (
	"fmt"
)

// Apply applies the given operation to text and returns the result. Offsets
// are counted in runes and clamped to the bounds of text.
func Apply(text string, op *Operation) (string, error) {
	runes := []rune(text)
	pos := min(max(op.Position, 0), len(runes))

	switch op.Type {
	case Insert:
		return string(runes[:pos]) + op.Content + string(runes[pos:]), nil
	case Delete:
		end := min(pos+max(op.Length, 0), len(runes))
		return string(runes[:pos]) + string(runes[end:]), nil
	case Replace:
		end := min(pos+max(op.Length, 0), len(runes))
		return string(runes[:pos]) + op.Content + string(runes[end:]), nil
	default:
		return text, fmt.Errorf("apply %s: %w", op.Type, ErrUnsupportedOperation)
	}
}
