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

// Package memory implements the database interface using in-memory database.
package memory

import (
	"context"
	"fmt"
	"sort"
	gotime "time"

	"github.com/hashicorp/go-memdb"

	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/pkg/document/operation"
	"github.com/yorkie-team/coedit/server/backend/database"
)

// DB is an in-memory database for testing or temporarily.
type DB struct {
	db *memdb.MemDB
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{
		db: memDB,
	}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return nil
}

// CreateRoom creates the given room.
func (d *DB) CreateRoom(_ context.Context, room *types.Room) (*types.Room, error) {
	if room.ID == "" {
		return nil, fmt.Errorf("create room: empty id")
	}

	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblRooms, "id", room.ID)
	if err != nil {
		return nil, fmt.Errorf("find room by id: %w", err)
	}
	if raw != nil {
		return nil, fmt.Errorf("%s: %w", room.ID, database.ErrRoomAlreadyExists)
	}

	created := room.DeepCopy()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = gotime.Now()
	}
	if created.Participants == nil {
		created.Participants = []string{}
	}
	if err := txn.Insert(tblRooms, created); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	txn.Commit()

	return created.DeepCopy(), nil
}

// FindRoomByID returns the room of the given id.
func (d *DB) FindRoomByID(_ context.Context, id string) (*types.Room, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	room, err := findRoom(txn, id)
	if err != nil {
		return nil, err
	}
	return room.DeepCopy(), nil
}

// ListRooms returns the rooms of the given project ordered by creation.
func (d *DB) ListRooms(_ context.Context, projectID string) ([]*types.Room, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	var iter memdb.ResultIterator
	var err error
	if projectID == "" {
		iter, err = txn.Get(tblRooms, "id")
	} else {
		iter, err = txn.Get(tblRooms, "project_id", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("list rooms of %q: %w", projectID, err)
	}

	rooms := []*types.Room{}
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		rooms = append(rooms, raw.(*types.Room).DeepCopy())
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, nil
}

// AddParticipant adds the user to the participants of the room.
func (d *DB) AddParticipant(_ context.Context, roomID, userID string) (*types.Room, error) {
	return d.updateRoom(roomID, func(room *types.Room) error {
		if room.HasParticipant(userID) {
			return nil
		}
		if room.IsFull(userID) {
			return fmt.Errorf("%s: %w", roomID, database.ErrRoomFull)
		}
		room.Participants = append(room.Participants, userID)
		return nil
	})
}

// RemoveParticipant removes the user from the participants of the room.
func (d *DB) RemoveParticipant(_ context.Context, roomID, userID string) (*types.Room, error) {
	return d.updateRoom(roomID, func(room *types.Room) error {
		participants := room.Participants[:0]
		for _, id := range room.Participants {
			if id != userID {
				participants = append(participants, id)
			}
		}
		room.Participants = participants
		return nil
	})
}

func (d *DB) updateRoom(roomID string, fn func(room *types.Room) error) (*types.Room, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	found, err := findRoom(txn, roomID)
	if err != nil {
		return nil, err
	}

	room := found.DeepCopy()
	if err := fn(room); err != nil {
		return nil, err
	}
	if err := txn.Insert(tblRooms, room); err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}
	txn.Commit()

	return room.DeepCopy(), nil
}

// AppendOperation appends op to the log of the room.
func (d *DB) AppendOperation(_ context.Context, roomID string, op *operation.Operation) (int64, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	if _, err := findRoom(txn, roomID); err != nil {
		return 0, err
	}

	raw, err := txn.First(tblOperations, "id", roomID, op.ID)
	if err != nil {
		return 0, fmt.Errorf("find operation by id: %w", err)
	}
	if raw != nil {
		return raw.(*database.OperationInfo).Seq, nil
	}

	iter, err := txn.Get(tblOperations, "room_id", roomID)
	if err != nil {
		return 0, fmt.Errorf("find operations of %s: %w", roomID, err)
	}
	var last int64
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		last = max(last, raw.(*database.OperationInfo).Seq)
	}

	info := &database.OperationInfo{
		RoomID:    roomID,
		Seq:       last + 1,
		OpID:      op.ID,
		Operation: op.DeepCopy(),
	}
	if err := txn.Insert(tblOperations, info); err != nil {
		return 0, fmt.Errorf("insert operation: %w", err)
	}
	txn.Commit()

	return info.Seq, nil
}

// FindOperationsAfter returns the operations of the room after seq.
func (d *DB) FindOperationsAfter(_ context.Context, roomID string, seq int64) ([]*database.OperationInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblOperations, "room_id", roomID)
	if err != nil {
		return nil, fmt.Errorf("find operations of %s: %w", roomID, err)
	}

	var infos []*database.OperationInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		info := raw.(*database.OperationInfo)
		if info.Seq > seq {
			infos = append(infos, info.DeepCopy())
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Seq < infos[j].Seq
	})
	return infos, nil
}

func findRoom(txn *memdb.Txn, id string) (*types.Room, error) {
	raw, err := txn.First(tblRooms, "id", id)
	if err != nil {
		return nil, fmt.Errorf("find room by id: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", id, database.ErrRoomNotFound)
	}
	return raw.(*types.Room), nil
}
