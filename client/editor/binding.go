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

// Package editor provides the adapter between a text editing widget and the
// shared document of a room.
package editor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/pkg/document/operation"
)

// Kind is the kind of binding.
type Kind string

// Below are the kinds of binding.
const (
	// KindNative binds widgets that report their own change ranges.
	KindNative Kind = "native"

	// KindDiff binds widgets that only expose their full text. Changes are
	// derived by diffing successive values.
	KindDiff Kind = "diff"
)

// Change is a local edit reported by a widget: the text in
// [RangeStartOffset, RangeStartOffset+RangeLength) was replaced by
// InsertedText. Offsets are counted in runes.
type Change struct {
	RangeStartOffset int
	RangeLength      int
	InsertedText     string
}

// Position is a zero based line and column in the widget.
type Position struct {
	Line   int
	Column int
}

// Widget is the text editing component being bound. Implementations are
// provided by the host application.
type Widget interface {
	GetValue() string
	SetValue(value string)
	Cursor() Position
	Selection() (start, end Position)
}

// ChangeSource is implemented by widgets that report their own changes.
type ChangeSource interface {
	Widget
	OnChange(handler func(changes []Change)) (unsubscribe func())
}

// Binding is the contract between a widget and the shared document.
type Binding interface {
	// Value returns the text of the widget.
	Value() string

	// SetValue replaces the text of the widget without reporting changes.
	SetValue(value string)

	// OnChange subscribes handler to local changes of the widget.
	OnChange(handler func(changes []Change)) (unsubscribe func())

	// Sync reports the changes made to the widget since the last call. It is
	// needed only by bindings that can not observe changes themselves.
	Sync()

	// ApplyOperation applies a remote operation to the widget without
	// reporting it as a local change.
	ApplyOperation(op *operation.Operation) error

	// Cursor returns the cursor of the widget.
	Cursor() *types.CursorPosition

	// Selection returns the selection of the widget.
	Selection() *types.SelectionRange

	// Close releases the widget.
	Close()
}

// NewBinding creates the binding of the given kind for widget. KindNative
// requires a ChangeSource.
func NewBinding(kind Kind, widget Widget) (Binding, error) {
	switch kind {
	case KindNative:
		source, ok := widget.(ChangeSource)
		if !ok {
			return nil, fmt.Errorf("%T does not report changes: %w", widget, ErrUnsupportedWidget)
		}
		return newNativeBinding(source), nil
	case KindDiff, "":
		return newDiffBinding(widget), nil
	default:
		return nil, fmt.Errorf("unknown binding %q: %w", kind, ErrUnsupportedWidget)
	}
}

// base holds what both bindings share: the widget, the change handlers and
// the guard that keeps remote applies from being reported as local.
type base struct {
	widget Widget

	mu       sync.Mutex
	handlers map[int]func(changes []Change)
	nextID   int
	applying bool
}

func (b *base) Value() string {
	return b.widget.GetValue()
}

func (b *base) OnChange(handler func(changes []Change)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
		})
	}
}

func (b *base) emit(changes []Change) {
	if len(changes) == 0 {
		return
	}

	b.mu.Lock()
	if b.applying {
		b.mu.Unlock()
		return
	}
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	handlers := make([]func([]Change), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(changes)
	}
}

func (b *base) setApplying(applying bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.applying = applying
}

func (b *base) Cursor() *types.CursorPosition {
	return PositionToCursor(b.widget.Cursor())
}

func (b *base) Selection() *types.SelectionRange {
	start, end := b.widget.Selection()
	return &types.SelectionRange{
		Start: *PositionToCursor(start),
		End:   *PositionToCursor(end),
	}
}
