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

// Package api provides the wire format exchanged between collaboration
// clients and the relay server.
package api

import (
	"encoding/json"
	"fmt"
	gotime "time"

	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/pkg/errors"
)

// MessageType is the type of envelope.
type MessageType string

// Below are the types of envelope.
const (
	Ping            MessageType = "ping"
	Pong            MessageType = "pong"
	JoinRoom        MessageType = "join_room"
	LeaveRoom       MessageType = "leave_room"
	UserJoined      MessageType = "user_joined"
	UserLeft        MessageType = "user_left"
	PresenceUpdate  MessageType = "presence_update"
	CursorMove      MessageType = "cursor_move"
	SelectionChange MessageType = "selection_change"
	ContentChange   MessageType = "content_change"
	FileOpen        MessageType = "file_open"
	FileClose       MessageType = "file_close"
	TypingStart     MessageType = "typing_start"
	TypingStop      MessageType = "typing_stop"
	Error           MessageType = "error"

	// Wildcard subscribes to every message type.
	Wildcard MessageType = "*"
)

// Envelope is the unit of transport: `{"type", "data", "timestamp"}`.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewEnvelope creates a new envelope stamped with the current wall clock.
func NewEnvelope(t MessageType, data any) (*Envelope, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s data: %w", t, err)
		}
		raw = encoded
	}

	return &Envelope{
		Type:      t,
		Data:      raw,
		Timestamp: gotime.Now().UnixMilli(),
	}, nil
}

// Encode encodes this envelope to JSON.
func (e *Envelope) Encode() ([]byte, error) {
	encoded, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", e.Type, err)
	}
	return encoded, nil
}

// DecodeEnvelope decodes an envelope from JSON.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	e := &Envelope{}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("unmarshal envelope: missing type")
	}
	return e, nil
}

// Payload decodes the data of this envelope as a room payload.
func (e *Envelope) Payload() (types.Payload, error) {
	var p types.Payload
	if len(e.Data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return p, fmt.Errorf("unmarshal %s payload: %w", e.Type, err)
	}
	return p, nil
}

// EventTypeOf returns the event type an inbound envelope of the given type
// is dispatched as. Room membership requests are reported as membership
// events.
func EventTypeOf(t MessageType) (types.EventType, bool) {
	switch t {
	case JoinRoom, UserJoined:
		return types.UserJoined, true
	case LeaveRoom, UserLeft:
		return types.UserLeft, true
	case PresenceUpdate, CursorMove, SelectionChange, ContentChange,
		FileOpen, FileClose, TypingStart, TypingStop:
		return types.EventType(t), true
	default:
		return "", false
	}
}

// IsRoomMessage returns whether envelopes of the given type are scoped to a
// room and relayed to its other participants.
func IsRoomMessage(t MessageType) bool {
	_, ok := EventTypeOf(t)
	return ok
}

// ErrorData is the data of an error envelope sent by the relay server.
type ErrorData struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// NewErrorEnvelope creates an error envelope describing err.
func NewErrorEnvelope(err error) *Envelope {
	data, _ := json.Marshal(ErrorData{
		Code:    errors.CodeOf(err),
		Message: err.Error(),
	})

	return &Envelope{
		Type:      Error,
		Data:      data,
		Timestamp: gotime.Now().UnixMilli(),
	}
}
