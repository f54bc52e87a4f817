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

// Package operation provides content operations of a shared text document and
// the pairwise transform used to reconcile concurrent operations.
package operation

import (
	"fmt"
	"unicode/utf8"

	"github.com/yorkie-team/coedit/pkg/document/time"
	"github.com/yorkie-team/coedit/pkg/errors"
)

// Type is the type of content operation.
type Type string

// Below are the types of content operation.
const (
	Insert  Type = "insert"
	Delete  Type = "delete"
	Replace Type = "replace"
	Move    Type = "move"
)

var (
	// ErrInvalidOperation is returned when an operation is malformed.
	ErrInvalidOperation = errors.InvalidArgument("invalid operation").WithCode("ErrInvalidOperation")

	// ErrUnsupportedOperation is returned when an operation cannot be applied
	// to a text.
	ErrUnsupportedOperation = errors.FailedPrecond("unsupported operation").WithCode("ErrUnsupportedOperation")
)

// Operation is the atomic unit of document mutation. Operations are immutable
// once created; transforms return adjusted copies.
type Operation struct {
	ID               string           `json:"id"`
	Type             Type             `json:"type"`
	UserID           string           `json:"userId"`
	Position         int              `json:"position"`
	Content          string           `json:"content,omitempty"`
	Length           int              `json:"length,omitempty"`
	Timestamp        int64            `json:"timestamp"`
	VectorClock      time.VectorClock `json:"vectorClock,omitempty"`
	LamportTimestamp int64            `json:"lamportTimestamp"`

	// Base is the sequence of the last relayed operation the author had
	// applied when it created this operation.
	Base int64 `json:"base"`

	// Seq is the position of this operation in the room's relay order. It is
	// zero until the relay assigns it.
	Seq int64 `json:"seq,omitempty"`
}

// DeepCopy returns a deep copy of this operation.
func (o *Operation) DeepCopy() *Operation {
	if o == nil {
		return nil
	}

	clone := *o
	clone.VectorClock = o.VectorClock.Copy()
	return &clone
}

// Span returns the number of runes this operation affects at its position:
// the inserted rune count for inserts, the removed rune count for deletes.
func (o *Operation) Span() int {
	switch o.Type {
	case Insert:
		return utf8.RuneCountInString(o.Content)
	case Delete, Replace:
		return o.Length
	default:
		return 0
	}
}

func (o *Operation) removed() int {
	switch o.Type {
	case Delete, Replace:
		return max(o.Length, 0)
	default:
		return 0
	}
}

func (o *Operation) inserted() string {
	switch o.Type {
	case Insert, Replace:
		return o.Content
	default:
		return ""
	}
}

// IsNoop returns whether applying this operation leaves any text unchanged.
func (o *Operation) IsNoop() bool {
	switch o.Type {
	case Insert:
		return o.Content == ""
	case Delete:
		return o.Length == 0
	case Replace:
		return o.Length == 0 && o.Content == ""
	default:
		return true
	}
}

// Validate returns an error if this operation is malformed.
func (o *Operation) Validate() error {
	if o.ID == "" || o.UserID == "" {
		return fmt.Errorf("id and userId are required: %w", ErrInvalidOperation)
	}

	switch o.Type {
	case Insert, Delete, Replace, Move:
	default:
		return fmt.Errorf("unknown type %q: %w", o.Type, ErrInvalidOperation)
	}

	if o.Position < 0 || o.Length < 0 {
		return fmt.Errorf("negative position or length: %w", ErrInvalidOperation)
	}

	if o.Base < 0 || o.Seq < 0 || (o.Seq > 0 && o.Base >= o.Seq) {
		return fmt.Errorf("base %d and seq %d out of order: %w", o.Base, o.Seq, ErrInvalidOperation)
	}

	return nil
}

// String returns a compact representation of this operation for logging.
func (o *Operation) String() string {
	switch o.Type {
	case Insert:
		return fmt.Sprintf("%s(%d,%q)@%s%s", o.Type, o.Position, o.Content, o.UserID, o.VectorClock)
	case Replace:
		return fmt.Sprintf("%s(%d,%d,%q)@%s%s", o.Type, o.Position, o.Length, o.Content, o.UserID, o.VectorClock)
	default:
		return fmt.Sprintf("%s(%d,%d)@%s%s", o.Type, o.Position, o.Length, o.UserID, o.VectorClock)
	}
}

// HappensBefore returns whether a is causally known to have happened before b.
// When either operation lacks a vector clock, it falls back to Lamport order,
// which is best-effort only: Lamport order does not imply causality.
func HappensBefore(a, b *Operation) bool {
	if a == nil || b == nil {
		return false
	}

	if len(a.VectorClock) == 0 || len(b.VectorClock) == 0 {
		return a.LamportTimestamp < b.LamportTimestamp
	}

	return time.HappensBefore(a.VectorClock, b.VectorClock)
}
