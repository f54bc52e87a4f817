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

package rooms_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/client/rooms"
	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/pkg/errors"
)

func newClient(url string, retries uint64) *rooms.Client {
	return rooms.NewClient(url, rooms.Options{
		CacheTTL:        time.Minute,
		MaxRetries:      retries,
		RetryInterval:   time.Millisecond,
		MaxWaitInterval: 5 * time.Millisecond,
		Logger:          logging.Nop(),
	})
}

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("get room is cached until invalidated test", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, "/collaboration/rooms/r1", r.URL.Path)
			_ = json.NewEncoder(w).Encode(&types.Room{ID: "r1", Name: "pair", Type: types.RoomTypeFile})
		}))
		defer server.Close()

		client := newClient(server.URL, 0)
		room, err := client.GetRoom(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "pair", room.Name)

		room.Name = "changed"
		again, err := client.GetRoom(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "pair", again.Name)
		assert.Equal(t, int32(1), calls.Load())

		client.Invalidate("r1")
		_, err = client.GetRoom(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("missing room test", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(rooms.ErrorBody{Code: "ErrRoomNotFound", Message: "room r9 not found"})
		}))
		defer server.Close()

		_, err := newClient(server.URL, 2).GetRoom(ctx, "r9")
		assert.ErrorIs(t, err, types.ErrRoomNotFound)
		assert.Contains(t, err.Error(), "room r9 not found")
	})

	t.Run("client errors are not retried test", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newClient(server.URL, 3).GetRoom(ctx, "r9")
		assert.ErrorIs(t, err, types.ErrRoomNotFound)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("retry stops when the context is done test", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newClient(server.URL, 5).GetRoom(canceled, "r1")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unreadable error body is logged test", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		client := rooms.NewClient("http://rooms.test", rooms.Options{
			HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusBadRequest,
					Body:       io.NopCloser(iotest.ErrReader(stderrors.New("connection reset"))),
					Request:    r,
				}, nil
			})},
			Logger: zap.New(core).Sugar(),
		})

		_, err := client.GetRoom(ctx, "r1")
		assert.Equal(t, errors.ErrCodeInvalidArgument, errors.StatusOf(err))
		assert.Contains(t, err.Error(), http.StatusText(http.StatusBadRequest))
		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].Message, "connection reset")
	})

	t.Run("retry on unavailable test", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(&types.Room{ID: "r1"})
		}))
		defer server.Close()

		room, err := newClient(server.URL, 3).GetRoom(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "r1", room.ID)
		assert.Equal(t, int32(3), calls.Load())

		calls.Store(-10)
		_, err = newClient(server.URL, 1).GetRoom(ctx, "r2")
		assert.Equal(t, errors.ErrCodeUnavailable, errors.StatusOf(err))
	})

	t.Run("create and list test", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				req := &types.CreateRoomRequest{}
				assert.NoError(t, json.NewDecoder(r.Body).Decode(req))
				w.WriteHeader(http.StatusCreated)
				_ = json.NewEncoder(w).Encode(&types.Room{ID: "new", Name: req.Name, Type: req.Type, ProjectID: req.ProjectID})
			case http.MethodGet:
				assert.Equal(t, "p1", r.URL.Query().Get("projectId"))
				_ = json.NewEncoder(w).Encode([]*types.Room{{ID: "a"}, {ID: "b"}})
			}
		}))
		defer server.Close()

		client := newClient(server.URL, 0)
		room, err := client.CreateRoom(ctx, &types.CreateRoomRequest{Name: "pair", Type: types.RoomTypeProject, ProjectID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, "new", room.ID)

		list, err := client.ListRooms(ctx, "p1")
		require.NoError(t, err)
		assert.Len(t, list, 2)

		_, err = client.CreateRoom(ctx, &types.CreateRoomRequest{Type: types.RoomTypeProject})
		assert.ErrorIs(t, err, types.ErrInvalidFields)
	})
}
