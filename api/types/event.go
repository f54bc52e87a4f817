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
	"github.com/yorkie-team/coedit/pkg/document/operation"
)

// EventType is the type of a collaboration event.
type EventType string

// Below are the types of collaboration event.
const (
	UserJoined      EventType = "user_joined"
	UserLeft        EventType = "user_left"
	CursorMove      EventType = "cursor_move"
	SelectionChange EventType = "selection_change"
	ContentChange   EventType = "content_change"
	FileOpen        EventType = "file_open"
	FileClose       EventType = "file_close"
	TypingStart     EventType = "typing_start"
	TypingStop      EventType = "typing_stop"
	PresenceUpdate  EventType = "presence_update"
)

// EventTypes is every collaboration event type.
var EventTypes = []EventType{
	UserJoined, UserLeft, CursorMove, SelectionChange, ContentChange,
	FileOpen, FileClose, TypingStart, TypingStop, PresenceUpdate,
}

// Payload is the data carried by the envelope of a room message. Fields not
// used by a message type are left empty.
type Payload struct {
	RoomID    string               `json:"roomId"`
	UserID    string               `json:"userId,omitempty"`
	User      *UserPresence        `json:"user,omitempty"`
	Cursor    *CursorPosition      `json:"cursor,omitempty"`
	Selection *SelectionRange      `json:"selection,omitempty"`
	FileID    string               `json:"fileId,omitempty"`
	Status    Status               `json:"status,omitempty"`
	Operation *operation.Operation `json:"operation,omitempty"`

	// Extra carries application defined fields. Sensitive keys are stripped
	// before it is relayed.
	Extra map[string]any `json:"extra,omitempty"`
}

// Sanitized returns a copy of this payload without sensitive extra fields.
func (p Payload) Sanitized() Payload {
	p.Extra = SanitizeMap(p.Extra)
	return p
}

// Event is a typed collaboration event of a room.
type Event struct {
	Type      EventType
	RoomID    string
	UserID    string
	Payload   Payload
	Timestamp int64
}
