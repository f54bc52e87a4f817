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

// Package hub provides the socket endpoint of the relay server. It keeps the
// room membership of connections and relays room messages to the other
// members through the broker.
package hub

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/yorkie-team/coedit/api"
	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/pkg/errors"
	"github.com/yorkie-team/coedit/server/backend"
	"github.com/yorkie-team/coedit/server/backend/broker"
)

// ErrInvalidMessage is sent back when an envelope can not be handled.
var ErrInvalidMessage = errors.InvalidArgument("invalid message").WithCode("ErrInvalidMessage")

// room is the set of local connections of a room.
type room struct {
	members     map[string]*conn
	unsubscribe func()
}

// Hub accepts socket connections and relays their room messages.
type Hub struct {
	conf     *Config
	be       *backend.Backend
	upgrader websocket.Upgrader
	logger   logging.Logger

	mu    sync.RWMutex
	conns map[string]*conn
	rooms map[string]*room
}

// New creates an instance of Hub.
func New(conf *Config, be *backend.Backend) *Hub {
	h := &Hub{
		conf:   conf,
		be:     be,
		logger: logging.New("hub"),
		conns:  make(map[string]*conn),
		rooms:  make(map[string]*room),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.conf.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	for _, allowed := range h.conf.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the request to a socket connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debugf("upgrade: %v", err)
		return
	}

	id := xid.New().String()
	c := newConn(id, ws, h.conf.SendBufferSize, h.logger.With("conn", id))

	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
	h.be.Metrics.AddConnections(1)

	writeTimeout := h.conf.ParseWriteTimeout()
	if !h.be.Background.AttachGoroutine(func(ctx context.Context) {
		c.writePump(ctx, writeTimeout)
	}, "hub-write") {
		h.unregister(context.Background(), c)
		return
	}
	if !h.be.Background.AttachGoroutine(func(ctx context.Context) {
		defer h.unregister(context.Background(), c)
		c.readPump(ctx, h.conf.MaxMessageBytes, func(ctx context.Context, e *api.Envelope) {
			h.handle(ctx, c, e)
		})
	}, "hub-read") {
		h.unregister(context.Background(), c)
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.conns)
}

// Members returns the number of local connections in the room.
func (h *Hub) Members(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if r, ok := h.rooms[roomID]; ok {
		return len(r.members)
	}
	return 0
}

// Close closes every connection.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
}

func (h *Hub) handle(ctx context.Context, c *conn, e *api.Envelope) {
	h.be.Metrics.AddReceivedMessage(string(e.Type))

	if e.Type == api.Ping {
		pong, err := api.NewEnvelope(api.Pong, nil)
		if err == nil {
			h.deliver(c, pong)
		}
		return
	}

	if !api.IsRoomMessage(e.Type) || e.Type == api.UserJoined || e.Type == api.UserLeft {
		h.reject(c, fmt.Errorf("unexpected %q: %w", e.Type, ErrInvalidMessage))
		return
	}

	payload, err := e.Payload()
	if err != nil {
		h.reject(c, fmt.Errorf("%s: %w", err.Error(), ErrInvalidMessage))
		return
	}
	if payload.UserID == "" && payload.User != nil {
		payload.UserID = payload.User.ID
	}
	if payload.RoomID == "" || payload.UserID == "" {
		h.reject(c, fmt.Errorf("%s without room or user: %w", e.Type, ErrInvalidMessage))
		return
	}

	switch e.Type {
	case api.JoinRoom:
		err = h.join(ctx, c, payload)
	case api.LeaveRoom:
		err = h.leave(ctx, c, payload.RoomID, &payload)
	default:
		err = h.relay(ctx, c, e, payload)
	}
	if err != nil {
		h.reject(c, err)
	}
}

// join adds the connection to the room, announces the user to the other
// members and replays the content log of the room to the connection.
func (h *Hub) join(ctx context.Context, c *conn, payload types.Payload) error {
	roomID := payload.RoomID
	if _, err := h.be.DB.AddParticipant(ctx, roomID, payload.UserID); err != nil {
		return err
	}

	c.join(roomID, payload.UserID)
	if err := h.addMember(ctx, roomID, c); err != nil {
		return err
	}

	if err := h.publish(ctx, c, api.UserJoined, payload); err != nil {
		return err
	}

	infos, err := h.be.DB.FindOperationsAfter(ctx, roomID, 0)
	if err != nil {
		return err
	}
	for _, info := range infos {
		op := info.Operation.DeepCopy()
		op.Seq = info.Seq
		e, err := api.NewEnvelope(api.ContentChange, types.Payload{
			RoomID:    roomID,
			UserID:    op.UserID,
			Operation: op,
		})
		if err != nil {
			return err
		}
		if !h.deliver(c, e) {
			break
		}
	}

	c.logger.Debugf("%s joined %s, replayed %d operations", payload.UserID, roomID, len(infos))
	return nil
}

// leave removes the connection from the room and announces it to the other
// members. payload is nil when the connection closed.
func (h *Hub) leave(ctx context.Context, c *conn, roomID string, payload *types.Payload) error {
	userID, ok := c.leave(roomID)
	if !ok {
		return nil
	}
	h.removeMember(roomID, c)

	if !h.hasLocalUser(roomID, userID) {
		if _, err := h.be.DB.RemoveParticipant(ctx, roomID, userID); err != nil &&
			!errors.IsStatus(err, errors.ErrCodeNotFound) {
			return err
		}
	}

	left := types.Payload{RoomID: roomID, UserID: userID}
	if payload != nil {
		left = *payload
		left.UserID = userID
	}
	return h.publish(ctx, c, api.UserLeft, left)
}

// relay stores content operations and publishes the message to the other
// members. Content changes are sequenced and echoed to the sender too. A connection sending to a room it did not join is added to it.
func (h *Hub) relay(ctx context.Context, c *conn, e *api.Envelope, payload types.Payload) error {
	roomID := payload.RoomID
	if userID, ok := c.userOf(roomID); !ok {
		if _, err := h.be.DB.AddParticipant(ctx, roomID, payload.UserID); err != nil {
			return err
		}
		c.join(roomID, payload.UserID)
		if err := h.addMember(ctx, roomID, c); err != nil {
			return err
		}
	} else if userID != payload.UserID {
		return fmt.Errorf("%s sent as %s in %s: %w", userID, payload.UserID, roomID, ErrInvalidMessage)
	}

	if e.Type == api.ContentChange {
		op := payload.Operation
		if op == nil {
			return fmt.Errorf("content change without operation: %w", ErrInvalidMessage)
		}
		if err := op.Validate(); err != nil {
			return err
		}
		if op.UserID != payload.UserID {
			return fmt.Errorf("operation of %s sent as %s: %w", op.UserID, payload.UserID, ErrInvalidMessage)
		}

		seq, err := h.be.DB.AppendOperation(ctx, roomID, op)
		if err != nil {
			return err
		}
		h.be.Metrics.AddStoredOperation()

		// the echo to the sender acknowledges the operation
		sequenced := op.DeepCopy()
		sequenced.Seq = seq
		payload.Operation = sequenced
		return h.publishMessage(ctx, c, e.Type, payload, e.Timestamp, true)
	}

	return h.publishAt(ctx, c, e.Type, payload, e.Timestamp)
}

func (h *Hub) publish(ctx context.Context, origin *conn, t api.MessageType, payload types.Payload) error {
	return h.publishAt(ctx, origin, t, payload, 0)
}

// publishAt publishes the sanitized payload to the room. A zero timestamp is
// replaced by the current one.
func (h *Hub) publishAt(
	ctx context.Context,
	origin *conn,
	t api.MessageType,
	payload types.Payload,
	timestamp int64,
) error {
	return h.publishMessage(ctx, origin, t, payload, timestamp, false)
}

func (h *Hub) publishMessage(
	ctx context.Context,
	origin *conn,
	t api.MessageType,
	payload types.Payload,
	timestamp int64,
	echo bool,
) error {
	e, err := api.NewEnvelope(t, payload.Sanitized())
	if err != nil {
		return err
	}
	if timestamp != 0 {
		e.Timestamp = timestamp
	}
	encoded, err := e.Encode()
	if err != nil {
		return err
	}

	return h.be.Broker.Publish(ctx, &broker.Message{
		Origin:   origin.id,
		Echo:     echo,
		RoomID:   payload.RoomID,
		Envelope: encoded,
	})
}

// fanout delivers a message of the broker to the local members of its room.
// The origin only receives echoed messages.
func (h *Hub) fanout(msg *broker.Message) {
	h.mu.RLock()
	r, ok := h.rooms[msg.RoomID]
	var members []*conn
	if ok {
		members = make([]*conn, 0, len(r.members))
		for id, c := range r.members {
			if id != msg.Origin || msg.Echo {
				members = append(members, c)
			}
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range members {
		if h.enqueue(c, msg.Envelope) {
			delivered++
		}
	}

	if delivered > 0 {
		e, err := api.DecodeEnvelope(msg.Envelope)
		if err == nil {
			h.be.Metrics.AddRelayedMessages(string(e.Type), delivered)
		}
	}
}

func (h *Hub) deliver(c *conn, e *api.Envelope) bool {
	encoded, err := e.Encode()
	if err != nil {
		h.logger.Warnf("encode %s: %v", e.Type, err)
		return false
	}
	return h.enqueue(c, encoded)
}

// enqueue buffers data for c. A connection that can not keep up is closed.
func (h *Hub) enqueue(c *conn, data []byte) bool {
	if c.enqueue(data) {
		return true
	}

	select {
	case <-c.done:
	default:
		h.be.Metrics.AddDroppedMessage("slow_consumer")
		c.logger.Warnf("drop slow connection %s", c.id)
		c.close()
	}
	return false
}

func (h *Hub) reject(c *conn, err error) {
	h.be.Metrics.AddDroppedMessage("rejected")
	c.logger.Debugf("reject: %v", err)
	h.deliver(c, api.NewErrorEnvelope(err))
}

func (h *Hub) addMember(ctx context.Context, roomID string, c *conn) error {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if ok {
		r.members[c.id] = c
		h.mu.Unlock()
		return nil
	}
	r = &room{members: map[string]*conn{c.id: c}}
	h.rooms[roomID] = r
	h.mu.Unlock()

	unsubscribe, err := h.be.Broker.Subscribe(ctx, roomID, h.fanout)
	if err != nil {
		h.mu.Lock()
		delete(r.members, c.id)
		if len(r.members) == 0 && h.rooms[roomID] == r {
			delete(h.rooms, roomID)
		}
		h.mu.Unlock()
		return fmt.Errorf("subscribe to %s: %w", roomID, err)
	}

	h.mu.Lock()
	if h.rooms[roomID] == r && len(r.members) > 0 {
		r.unsubscribe = unsubscribe
		unsubscribe = nil
	}
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		return nil
	}
	h.be.Metrics.AddRooms(1)
	return nil
}

func (h *Hub) removeMember(roomID string, c *conn) {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(r.members, c.id)
	if len(r.members) > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.rooms, roomID)
	unsubscribe := r.unsubscribe
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		h.be.Metrics.AddRooms(-1)
	}
}

// hasLocalUser returns whether another local connection is in the room as
// userID.
func (h *Hub) hasLocalUser(roomID, userID string) bool {
	h.mu.RLock()
	r, ok := h.rooms[roomID]
	var members []*conn
	if ok {
		for _, c := range r.members {
			members = append(members, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range members {
		if id, ok := c.userOf(roomID); ok && id == userID {
			return true
		}
	}
	return false
}

func (h *Hub) unregister(ctx context.Context, c *conn) {
	c.close()

	h.mu.Lock()
	_, ok := h.conns[c.id]
	delete(h.conns, c.id)
	h.mu.Unlock()
	if !ok {
		return
	}
	h.be.Metrics.AddConnections(-1)

	for roomID := range c.joined() {
		if err := h.leave(ctx, c, roomID, nil); err != nil {
			c.logger.Warnf("leave %s on close: %v", roomID, err)
		}
	}
}
