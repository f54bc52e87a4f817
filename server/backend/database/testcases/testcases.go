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

// Package testcases contains testcases for database. It is used by database
// implementations to test their own implementations with the same testcases.
package testcases

import (
	"context"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/pkg/document/operation"
	"github.com/yorkie-team/coedit/server/backend/database"
)

func newRoom(projectID string, maxParticipants *int) *types.Room {
	return &types.Room{
		ID:              xid.New().String(),
		Name:            "room",
		Type:            types.RoomTypeFile,
		ProjectID:       projectID,
		MaxParticipants: maxParticipants,
		Metadata:        map[string]any{"lang": "go", "nested": map[string]any{"tab": "4"}},
	}
}

// RunRoomTest runs the room tests for the given db.
func RunRoomTest(t *testing.T, db database.Database) {
	ctx := context.Background()

	t.Run("create and find room test", func(t *testing.T) {
		room := newRoom(xid.New().String(), nil)
		created, err := db.CreateRoom(ctx, room)
		require.NoError(t, err)
		assert.Equal(t, room.ID, created.ID)
		assert.Empty(t, created.Participants)
		assert.False(t, created.CreatedAt.IsZero())

		found, err := db.FindRoomByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, room.Name, found.Name)
		assert.Equal(t, "4", found.Metadata["nested"].(map[string]any)["tab"])

		_, err = db.CreateRoom(ctx, room)
		assert.ErrorIs(t, err, database.ErrRoomAlreadyExists)

		_, err = db.FindRoomByID(ctx, xid.New().String())
		assert.ErrorIs(t, err, database.ErrRoomNotFound)
	})

	t.Run("list rooms by project test", func(t *testing.T) {
		projectID := xid.New().String()
		first := newRoom(projectID, nil)
		_, err := db.CreateRoom(ctx, first)
		require.NoError(t, err)
		second := newRoom(projectID, nil)
		_, err = db.CreateRoom(ctx, second)
		require.NoError(t, err)
		_, err = db.CreateRoom(ctx, newRoom(xid.New().String(), nil))
		require.NoError(t, err)

		rooms, err := db.ListRooms(ctx, projectID)
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		assert.Equal(t, first.ID, rooms[0].ID)
		assert.Equal(t, second.ID, rooms[1].ID)

		all, err := db.ListRooms(ctx, "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 3)
	})

	t.Run("participants test", func(t *testing.T) {
		limit := 2
		room := newRoom("", &limit)
		_, err := db.CreateRoom(ctx, room)
		require.NoError(t, err)

		_, err = db.AddParticipant(ctx, room.ID, "A")
		require.NoError(t, err)
		updated, err := db.AddParticipant(ctx, room.ID, "A")
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, updated.Participants)

		_, err = db.AddParticipant(ctx, room.ID, "B")
		require.NoError(t, err)
		_, err = db.AddParticipant(ctx, room.ID, "C")
		assert.ErrorIs(t, err, database.ErrRoomFull)

		updated, err = db.RemoveParticipant(ctx, room.ID, "A")
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, updated.Participants)

		updated, err = db.AddParticipant(ctx, room.ID, "C")
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C"}, updated.Participants)

		_, err = db.AddParticipant(ctx, xid.New().String(), "A")
		assert.ErrorIs(t, err, database.ErrRoomNotFound)
	})
}

// RunOperationTest runs the operation log tests for the given db.
func RunOperationTest(t *testing.T, db database.Database) {
	ctx := context.Background()

	t.Run("append and find operations test", func(t *testing.T) {
		room := newRoom("", nil)
		_, err := db.CreateRoom(ctx, room)
		require.NoError(t, err)

		ops := []*operation.Operation{
			{ID: "op-1", Type: operation.Insert, UserID: "A", Content: "hello", LamportTimestamp: 1},
			{ID: "op-2", Type: operation.Delete, UserID: "B", Position: 1, Length: 2, LamportTimestamp: 2},
			{ID: "op-3", Type: operation.Insert, UserID: "A", Position: 3, Content: "!", LamportTimestamp: 3},
		}
		for i, op := range ops {
			seq, err := db.AppendOperation(ctx, room.ID, op)
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), seq)
		}

		seq, err := db.AppendOperation(ctx, room.ID, ops[1])
		require.NoError(t, err)
		assert.Equal(t, int64(2), seq)

		infos, err := db.FindOperationsAfter(ctx, room.ID, 0)
		require.NoError(t, err)
		require.Len(t, infos, 3)
		for i, info := range infos {
			assert.Equal(t, ops[i].ID, info.Operation.ID)
			assert.Equal(t, ops[i].Type, info.Operation.Type)
		}

		infos, err = db.FindOperationsAfter(ctx, room.ID, 2)
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, "op-3", infos[0].OpID)

		_, err = db.AppendOperation(ctx, xid.New().String(), ops[0])
		assert.ErrorIs(t, err, database.ErrRoomNotFound)
	})
}
