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

// Package rooms provides the HTTP handlers of the rooms of the relay server.
package rooms

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/xid"

	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/pkg/errors"
	"github.com/yorkie-team/coedit/server/backend/database"
)

// BasePath is the path of the room collection.
const BasePath = "/collaboration/rooms"

// maxBodyBytes is the maximum size of a request body.
const maxBodyBytes = 1 << 20

// ErrInvalidBody is returned when a request body can not be decoded.
var ErrInvalidBody = errors.InvalidArgument("invalid request body").WithCode("ErrInvalidBody")

// ErrorBody is the body of an error response.
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Handler serves the rooms of the database.
type Handler struct {
	db     database.Database
	logger logging.Logger
}

// NewHandler creates an instance of Handler.
func NewHandler(db database.Database) *Handler {
	return &Handler{
		db:     db,
		logger: logging.New("rooms"),
	}
}

// Register registers the routes of the handler to the router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc(BasePath, h.listRooms).Methods(http.MethodGet)
	r.HandleFunc(BasePath, h.createRoom).Methods(http.MethodPost)
	r.HandleFunc(BasePath+"/{id}", h.getRoom).Methods(http.MethodGet)
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.db.ListRooms(r.Context(), r.URL.Query().Get("projectId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	for i, room := range rooms {
		rooms[i] = sanitized(room)
	}
	h.writeJSON(w, r, http.StatusOK, rooms)
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	req := &types.CreateRoomRequest{}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(req); err != nil {
		h.writeError(w, r, fmt.Errorf("%s: %w", err.Error(), ErrInvalidBody))
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	room, err := h.db.CreateRoom(r.Context(), &types.Room{
		ID:              xid.New().String(),
		Name:            req.Name,
		Type:            req.Type,
		ProjectID:       req.ProjectID,
		FileID:          req.FileID,
		Participants:    []string{},
		MaxParticipants: req.MaxParticipants,
		Metadata:        types.SanitizeMap(req.Metadata),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.loggerOf(r).Infof("room created: %s(%s)", room.ID, room.Name)
	h.writeJSON(w, r, http.StatusCreated, sanitized(room))
}

func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.db.FindRoomByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, sanitized(room))
}

// loggerOf returns the logger of the request, falling back to the one of the
// handler when no interceptor set it.
func (h *Handler) loggerOf(r *http.Request) logging.Logger {
	return logging.From(r.Context(), h.logger)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.loggerOf(r).Warnf("write response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.StatusOf(err)
	if !status.IsClientError() {
		h.loggerOf(r).Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}

	h.writeJSON(w, r, status.HTTPStatus(), ErrorBody{
		Code:    errors.CodeOf(err),
		Message: err.Error(),
	})
}

func sanitized(room *types.Room) *types.Room {
	room = room.DeepCopy()
	room.Metadata = types.SanitizeMap(room.Metadata)
	return room
}
