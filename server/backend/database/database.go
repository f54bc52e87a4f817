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

// Package database provides the database interface of the relay server.
package database

import (
	"context"

	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/pkg/document/operation"
	"github.com/yorkie-team/coedit/pkg/errors"
)

var (
	// ErrRoomAlreadyExists is returned when the room already exists.
	ErrRoomAlreadyExists = errors.AlreadyExists("room already exists").WithCode("ErrRoomAlreadyExists")

	// ErrRoomNotFound is returned when the room could not be found.
	ErrRoomNotFound = types.ErrRoomNotFound

	// ErrRoomFull is returned when the room has reached its maximum
	// participants.
	ErrRoomFull = types.ErrRoomFull
)

// OperationInfo is a content operation stored in the log of a room.
type OperationInfo struct {
	RoomID    string               `bson:"room_id"`
	Seq       int64                `bson:"seq"`
	OpID      string               `bson:"op_id"`
	Operation *operation.Operation `bson:"operation"`
}

// DeepCopy returns a deep copy of this info.
func (i *OperationInfo) DeepCopy() *OperationInfo {
	if i == nil {
		return nil
	}

	clone := *i
	clone.Operation = i.Operation.DeepCopy()
	return &clone
}

// Database represents database which reads or saves rooms and their
// operation logs.
type Database interface {
	// Close all resources of this database.
	Close() error

	// CreateRoom creates the given room. The id of the room must be set.
	CreateRoom(ctx context.Context, room *types.Room) (*types.Room, error)

	// FindRoomByID returns the room of the given id.
	FindRoomByID(ctx context.Context, id string) (*types.Room, error)

	// ListRooms returns the rooms of the given project ordered by creation,
	// or every room if projectID is empty.
	ListRooms(ctx context.Context, projectID string) ([]*types.Room, error)

	// AddParticipant adds the user to the participants of the room. It
	// returns ErrRoomFull if the room can not accept the user.
	AddParticipant(ctx context.Context, roomID, userID string) (*types.Room, error)

	// RemoveParticipant removes the user from the participants of the room.
	RemoveParticipant(ctx context.Context, roomID, userID string) (*types.Room, error)

	// AppendOperation appends op to the log of the room and returns its
	// sequence. An operation already in the log is not appended again.
	AppendOperation(ctx context.Context, roomID string, op *operation.Operation) (int64, error)

	// FindOperationsAfter returns the operations of the room whose sequence
	// is greater than seq, in log order.
	FindOperationsAfter(ctx context.Context, roomID string, seq int64) ([]*OperationInfo, error)
}
