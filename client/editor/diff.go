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

package editor

import (
	"sync"

	"github.com/yorkie-team/coedit/pkg/document/operation"
)

// diffBinding derives changes by comparing the widget text with the last
// text it observed.
type diffBinding struct {
	base

	lastMu sync.Mutex
	last   string
}

func newDiffBinding(widget Widget) *diffBinding {
	return &diffBinding{
		base: base{widget: widget, handlers: make(map[int]func([]Change))},
		last: widget.GetValue(),
	}
}

func (b *diffBinding) SetValue(value string) {
	b.lastMu.Lock()
	defer b.lastMu.Unlock()

	b.widget.SetValue(value)
	b.last = value
}

func (b *diffBinding) Sync() {
	b.lastMu.Lock()
	current := b.widget.GetValue()
	change, changed := Diff(b.last, current)
	b.last = current
	b.lastMu.Unlock()

	if changed {
		b.emit([]Change{change})
	}
}

func (b *diffBinding) ApplyOperation(op *operation.Operation) error {
	b.lastMu.Lock()
	defer b.lastMu.Unlock()

	text, err := operation.Apply(b.last, op)
	if err != nil {
		return err
	}

	// Widget edits not synced yet are rebased onto op and reported by the
	// next Sync.
	value := text
	if current := b.widget.GetValue(); current != b.last {
		change, _ := Diff(b.last, current)
		_, rebased := operation.TransformPair(&operation.Operation{
			Type:     operation.Replace,
			Position: change.RangeStartOffset,
			Length:   change.RangeLength,
			Content:  change.InsertedText,
		}, op)
		if value, err = operation.Apply(current, rebased); err != nil {
			return err
		}
	}

	b.widget.SetValue(value)
	b.last = text
	return nil
}

func (b *diffBinding) Close() {}

// Diff returns the single change turning before into after: the span between
// their common prefix and common suffix. It returns false if they are equal.
func Diff(before, after string) (Change, bool) {
	if before == after {
		return Change{}, false
	}

	a, b := []rune(before), []rune(after)
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}

	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	return Change{
		RangeStartOffset: prefix,
		RangeLength:      len(a) - prefix - suffix,
		InsertedText:     string(b[prefix : len(b)-suffix]),
	}, true
}
