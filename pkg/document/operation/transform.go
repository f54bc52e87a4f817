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

import "unicode/utf8"

// Transform returns a copy of op adjusted so that applying it after against
// has been applied preserves the effect op had on the text it was created
// against. op and against are never mutated.
//
// Operations that are causally ordered are returned unchanged. Resulting
// positions and lengths are clamped to zero.
func Transform(op, against *Operation) *Operation {
	if op == nil || against == nil {
		return op.DeepCopy()
	}

	if HappensBefore(op, against) || HappensBefore(against, op) {
		return op.DeepCopy()
	}

	result, _ := TransformPair(op, against)
	return result
}

// TransformPair transforms two operations created against the same text. It
// returns a' to apply after b and b' to apply after a; both orders produce the
// same text. Neither input is mutated.
//
// Where the operations meet, the text both removed is gone and both inserted
// contents survive at the start of the affected range, ordered by user id and
// then operation id.
func TransformPair(a, b *Operation) (*Operation, *Operation) {
	if a == nil || b == nil {
		return a.DeepCopy(), b.DeepCopy()
	}

	aFirst := insertsBefore(a, b)
	return transform(a, b, aFirst), transform(b, a, !aFirst)
}

// transform returns op rewritten to apply after against. Both are read as a
// removal of [Position, Position+Length) followed by an insertion of Content
// at Position.
func transform(op, against *Operation, opFirst bool) *Operation {
	result := op.DeepCopy()
	clamp(result)
	if op.Type == Move || against.Type == Move || against.IsNoop() {
		return result
	}

	a0, a1 := result.Position, result.Position+result.removed()
	b0, b1 := max(against.Position, 0), max(against.Position, 0)+against.removed()
	ca, cb := result.inserted(), against.inserted()

	switch {
	case a0 < b0 && a1 <= b0:
		return result
	case b0 < a0 && b1 <= a0:
		result.Position += utf8.RuneCountInString(cb) - (b1 - b0)
		return result
	}

	// The ranges meet. The merged range [m0, m1) becomes both contents.
	m0, m1 := min(a0, b0), max(a1, b1)
	before, after := b0-m0, m1-b1
	unordered := ca == "" || cb == ""
	switch {
	case (opFirst || unordered) && after == 0:
		reshape(result, m0, before, ca)
	case (!opFirst || unordered) && before == 0:
		reshape(result, m0+utf8.RuneCountInString(cb), after, ca)
	default:
		merged := cb + ca
		if opFirst {
			merged = ca + cb
		}
		reshape(result, m0, before+utf8.RuneCountInString(cb)+after, merged)
	}

	return result
}

// reshape sets the range and content of op and picks the narrowest type.
func reshape(op *Operation, position, length int, content string) {
	op.Position, op.Length, op.Content = position, length, content
	switch {
	case length == 0:
		op.Type = Insert
	case content == "":
		op.Type = Delete
	default:
		op.Type = Replace
	}
}

// insertsBefore returns whether the content of a is placed before the content
// of b when both land at the same position. The order is total over distinct
// operations.
func insertsBefore(a, b *Operation) bool {
	if a.UserID != b.UserID {
		return a.UserID < b.UserID
	}
	return a.ID < b.ID
}

func clamp(op *Operation) {
	if op.Position < 0 {
		op.Position = 0
	}
	if op.Length < 0 {
		op.Length = 0
	}
}
