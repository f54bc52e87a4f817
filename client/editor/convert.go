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
	"github.com/yorkie-team/coedit/api/types"
)

// Edit is a change expressed as the local document call it maps to.
type Edit struct {
	Position int
	Length   int
	Content  string
}

// Kind returns the operation kind of this edit: insert, delete or replace,
// or "" if it changes nothing.
func (e Edit) Kind() string {
	switch {
	case e.Length == 0 && e.Content == "":
		return ""
	case e.Length == 0:
		return "insert"
	case e.Content == "":
		return "delete"
	default:
		return "replace"
	}
}

// ChangeToEdit converts a widget change to an edit of the document.
func ChangeToEdit(c Change) Edit {
	return Edit{
		Position: max(c.RangeStartOffset, 0),
		Length:   max(c.RangeLength, 0),
		Content:  c.InsertedText,
	}
}

// PositionToCursor converts a widget position to a cursor. X and Y carry the
// column and line for widgets without pixel coordinates.
func PositionToCursor(p Position) *types.CursorPosition {
	line, column := p.Line, p.Column
	return &types.CursorPosition{
		X:      float64(column),
		Y:      float64(line),
		Line:   &line,
		Column: &column,
	}
}

// CursorToPosition converts a cursor to a widget position.
func CursorToPosition(c *types.CursorPosition) Position {
	if c == nil {
		return Position{}
	}

	p := Position{Line: int(c.Y), Column: int(c.X)}
	if c.Line != nil {
		p.Line = *c.Line
	}
	if c.Column != nil {
		p.Column = *c.Column
	}
	return p
}

// OffsetToPosition converts a rune offset in text to a line and column.
func OffsetToPosition(text string, offset int) Position {
	p := Position{}
	i := 0
	for _, r := range text {
		if i >= offset {
			break
		}
		if r == '\n' {
			p.Line++
			p.Column = 0
		} else {
			p.Column++
		}
		i++
	}
	return p
}

// PositionToOffset converts a line and column in text to a rune offset,
// clamped to the end of the line.
func PositionToOffset(text string, p Position) int {
	line, column, offset := 0, 0, 0
	for _, r := range text {
		if line == p.Line && (column == p.Column || r == '\n') {
			return offset
		}
		if r == '\n' {
			line++
			column = 0
		} else {
			column++
		}
		offset++
	}
	return offset
}
