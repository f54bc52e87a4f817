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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/server/backend/database/memory"
	"github.com/yorkie-team/coedit/server/rooms"
)

func newServer(t *testing.T) *httptest.Server {
	db, err := memory.New()
	require.NoError(t, err)

	r := mux.NewRouter()
	rooms.NewHandler(db).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		assert.NoError(t, db.Close())
	})
	return srv
}

func do(t *testing.T, method, url string, body any, out any) int {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRooms(t *testing.T) {
	t.Run("create get and list test", func(t *testing.T) {
		srv := newServer(t)
		base := srv.URL + rooms.BasePath

		limit := 4
		created := &types.Room{}
		status := do(t, http.MethodPost, base, types.CreateRoomRequest{
			Name:            "design",
			Type:            types.RoomTypeProject,
			ProjectID:       "p1",
			MaxParticipants: &limit,
		}, created)
		assert.Equal(t, http.StatusCreated, status)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "design", created.Name)
		assert.Empty(t, created.Participants)
		assert.Equal(t, 4, *created.MaxParticipants)

		other := &types.Room{}
		status = do(t, http.MethodPost, base, types.CreateRoomRequest{
			Name: "scratch",
			Type: types.RoomTypeCustom,
		}, other)
		assert.Equal(t, http.StatusCreated, status)

		found := &types.Room{}
		assert.Equal(t, http.StatusOK, do(t, http.MethodGet, base+"/"+created.ID, nil, found))
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "p1", found.ProjectID)

		var listed []*types.Room
		assert.Equal(t, http.StatusOK, do(t, http.MethodGet, base+"?projectId=p1", nil, &listed))
		require.Len(t, listed, 1)
		assert.Equal(t, created.ID, listed[0].ID)

		listed = nil
		assert.Equal(t, http.StatusOK, do(t, http.MethodGet, base, nil, &listed))
		assert.Len(t, listed, 2)
	})

	t.Run("metadata secrets are never stored test", func(t *testing.T) {
		srv := newServer(t)
		base := srv.URL + rooms.BasePath

		created := &types.Room{}
		status := do(t, http.MethodPost, base, types.CreateRoomRequest{
			Name: "design",
			Type: types.RoomTypeFile,
			Metadata: map[string]any{
				"language": "go",
				"API_KEY":  "k",
				"nested":   map[string]any{"password": "p", "tabs": 4},
			},
		}, created)
		require.Equal(t, http.StatusCreated, status)

		found := &types.Room{}
		require.Equal(t, http.StatusOK, do(t, http.MethodGet, base+"/"+created.ID, nil, found))
		assert.Equal(t, map[string]any{
			"language": "go",
			"nested":   map[string]any{"tabs": float64(4)},
		}, found.Metadata)
	})

	t.Run("errors are reported as json test", func(t *testing.T) {
		srv := newServer(t)
		base := srv.URL + rooms.BasePath

		body := &rooms.ErrorBody{}
		assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, base+"/missing", nil, body))
		assert.Equal(t, types.ErrRoomNotFound.Code(), body.Code)

		body = &rooms.ErrorBody{}
		assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, base, types.CreateRoomRequest{
			Name: "design",
			Type: "unknown",
		}, body))
		assert.Equal(t, types.ErrInvalidFields.Code(), body.Code)

		body = &rooms.ErrorBody{}
		assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, base, "not a request", body))
		assert.Equal(t, rooms.ErrInvalidBody.Code(), body.Code)
	})
}
