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
	gotime "time"

	"github.com/go-playground/validator/v10"

	"github.com/yorkie-team/coedit/pkg/errors"
)

// RoomType is the type of a room.
type RoomType string

// Below are the types of a room.
const (
	RoomTypeProject RoomType = "project"
	RoomTypeFile    RoomType = "file"
	RoomTypeVoice   RoomType = "voice"
	RoomTypeCustom  RoomType = "custom"
)

var (
	// ErrRoomNotFound is returned when the room does not exist.
	ErrRoomNotFound = errors.NotFound("room not found").WithCode("ErrRoomNotFound")

	// ErrRoomFull is returned when a room has reached its maximum participants.
	ErrRoomFull = errors.FailedPrecond("room is full").WithCode("ErrRoomFull")
)

// Room is a named scope grouping a document and the presence of its
// participants.
type Room struct {
	ID              string         `json:"id" bson:"_id"`
	Name            string         `json:"name" bson:"name"`
	Type            RoomType       `json:"type" bson:"type"`
	ProjectID       string         `json:"projectId,omitempty" bson:"project_id,omitempty"`
	FileID          string         `json:"fileId,omitempty" bson:"file_id,omitempty"`
	Participants    []string       `json:"participants" bson:"participants"`
	MaxParticipants *int           `json:"maxParticipants,omitempty" bson:"max_participants,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt       gotime.Time    `json:"createdAt" bson:"created_at"`
}

// DeepCopy returns a deep copy of this room.
func (r *Room) DeepCopy() *Room {
	if r == nil {
		return nil
	}

	clone := *r
	clone.Participants = append([]string{}, r.Participants...)
	if r.MaxParticipants != nil {
		maxParticipants := *r.MaxParticipants
		clone.MaxParticipants = &maxParticipants
	}
	clone.Metadata = copyMap(r.Metadata)
	return &clone
}

// HasParticipant returns whether the given user is a participant.
func (r *Room) HasParticipant(userID string) bool {
	for _, id := range r.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// IsFull returns whether the room can not accept the given user.
func (r *Room) IsFull(userID string) bool {
	if r.MaxParticipants == nil || r.HasParticipant(userID) {
		return false
	}
	return len(r.Participants) >= *r.MaxParticipants
}

// CreateRoomRequest is a set of fields used to create a room.
type CreateRoomRequest struct {
	Name            string         `json:"name" validate:"required,min=1,max=100"`
	Type            RoomType       `json:"type" validate:"required,room_type"`
	ProjectID       string         `json:"projectId,omitempty" validate:"omitempty,max=100"`
	FileID          string         `json:"fileId,omitempty" validate:"omitempty,max=255"`
	MaxParticipants *int           `json:"maxParticipants,omitempty" validate:"omitempty,min=1"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Validate validates the request.
func (r *CreateRoomRequest) Validate() error {
	return validateStruct(r)
}

func init() {
	registerValidation("room_type", func(level validator.FieldLevel) bool {
		switch RoomType(level.Field().String()) {
		case RoomTypeProject, RoomTypeFile, RoomTypeVoice, RoomTypeCustom:
			return true
		default:
			return false
		}
	})
}
