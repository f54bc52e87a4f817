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

package types

import (
	"hash/fnv"
	gotime "time"
)

// Status is the online status of a user.
type Status string

// Below are the statuses of a user.
const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusBusy    Status = "busy"
	StatusOffline Status = "offline"
)

// IsValid returns whether the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	default:
		return false
	}
}

// CursorPosition is a point in the editor. It is always replaced as a whole.
type CursorPosition struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Line   *int    `json:"line,omitempty"`
	Column *int    `json:"column,omitempty"`
}

// SelectionRange is a range between two cursor positions.
type SelectionRange struct {
	Start CursorPosition `json:"start"`
	End   CursorPosition `json:"end"`
}

// UserPresence is the identity and the ephemeral state of one participant of
// one room.
type UserPresence struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Avatar      string          `json:"avatar,omitempty"`
	Color       string          `json:"color"`
	Status      Status          `json:"status"`
	LastSeen    gotime.Time     `json:"lastSeen"`
	CurrentFile string          `json:"currentFile,omitempty"`
	Cursor      *CursorPosition `json:"cursor,omitempty"`
	Selection   *SelectionRange `json:"selection,omitempty"`
	Typing      bool            `json:"typing,omitempty"`
}

// DeepCopy returns a deep copy of this presence.
func (p *UserPresence) DeepCopy() *UserPresence {
	if p == nil {
		return nil
	}

	clone := *p
	if p.Cursor != nil {
		clone.Cursor = p.Cursor.DeepCopy()
	}
	if p.Selection != nil {
		selection := SelectionRange{
			Start: *p.Selection.Start.DeepCopy(),
			End:   *p.Selection.End.DeepCopy(),
		}
		clone.Selection = &selection
	}
	return &clone
}

// DeepCopy returns a deep copy of this position.
func (c *CursorPosition) DeepCopy() *CursorPosition {
	if c == nil {
		return nil
	}

	clone := *c
	if c.Line != nil {
		line := *c.Line
		clone.Line = &line
	}
	if c.Column != nil {
		column := *c.Column
		clone.Column = &column
	}
	return &clone
}

// palette is the set of colors assigned to users.
var palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F",
	"#BB8FCE", "#85C1E9", "#F8B500", "#6C5CE7",
}

// ColorForUser returns the color of the given user. It is a pure function of
// the id, so every process derives the same color without transmitting it.
func ColorForUser(id string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return palette[h.Sum32()%uint32(len(palette))]
}
