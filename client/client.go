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

// Package client provides the collaboration client. It keeps a reconnecting
// connection to the relay server, the presence of the rooms the local user
// joined, and a shared document per room.
package client

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yorkie-team/coedit/api"
	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/client/editor"
	"github.com/yorkie-team/coedit/client/rooms"
	"github.com/yorkie-team/coedit/client/transport"
	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/pkg/document"
	"github.com/yorkie-team/coedit/pkg/document/operation"
	"github.com/yorkie-team/coedit/pkg/errors"
	"github.com/yorkie-team/coedit/pkg/presence"
	"github.com/yorkie-team/coedit/pkg/pubsub"
)

var (
	// ErrRoomNotJoined occurs when an operation targets a room that is not
	// joined.
	ErrRoomNotJoined = errors.FailedPrecond("room is not joined").WithCode("ErrRoomNotJoined")

	// ErrClientClosed occurs when the client is used after Close.
	ErrClientClosed = errors.FailedPrecond("client is closed").WithCode("ErrClientClosed")
)

// RoomState is the join state of a room.
type RoomState int

// Below are the join states of a room.
const (
	NotJoined RoomState = iota
	Joining
	Joined
	Left
)

// String returns the string representation of the state.
func (s RoomState) String() string {
	switch s {
	case NotJoined:
		return "not-joined"
	case Joining:
		return "joining"
	case Joined:
		return "joined"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("room-state(%d)", int(s))
	}
}

// session is the local state of a room.
type session struct {
	state RoomState

	// token identifies the latest join or leave of the room. A join that
	// completes after a newer call leaves the state alone.
	token   uint64
	room    *types.Room
	doc     *document.Document
	binding editor.Binding
}

func (s *session) active() bool {
	return s.state == Joining || s.state == Joined
}

// Client is the collaboration client of the local user.
type Client struct {
	conf *Config
	user *types.UserPresence

	socket    *transport.Socket
	rooms     *rooms.Client
	presences *presence.Store
	events    *pubsub.Bus[types.EventType, types.Event]
	joins     singleflight.Group

	mu       sync.RWMutex
	sessions map[string]*session
	token    uint64
	closed   bool

	refreshOnce sync.Once
	stopRefresh chan struct{}
	unsubscribe []func()

	logger logging.Logger
}

// New creates an instance of Client.
func New(conf *Config, opts ...Option) (*Client, error) {
	if conf == nil {
		conf = NewConfig()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	var options Options
	for _, opt := range opts {
		opt(&options)
	}

	if options.UserID == "" {
		options.UserID = uuid.NewString()
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.New("client", logging.NewField("user", options.UserID))
	}

	presences, err := presence.NewStore()
	if err != nil {
		return nil, err
	}

	socketOpts := []transport.Option{
		transport.WithHeartbeatInterval(conf.HeartbeatIntervalDuration()),
		transport.WithReconnect(conf.ReconnectBaseDelayDuration(), conf.MaxReconnectAttempts),
		transport.WithLogger(logger),
	}
	if options.Dialer != nil {
		socketOpts = append(socketOpts, transport.WithDialer(options.Dialer))
	}

	cli := &Client{
		conf: conf,
		user: &types.UserPresence{
			ID:     options.UserID,
			Name:   options.Name,
			Email:  options.Email,
			Avatar: options.Avatar,
			Color:  types.ColorForUser(options.UserID),
			Status: types.StatusOnline,
		},
		socket: transport.New(conf.WSURL, socketOpts...),
		rooms: rooms.NewClient(conf.APIURL, rooms.Options{
			HTTPClient: options.HTTPClient,
			CacheSize:  conf.RoomCacheSize,
			CacheTTL:   conf.RoomCacheTTLDuration(),
			MaxRetries: conf.RoomRequestMaxRetries,
			Logger:     logger,
		}),
		presences:   presences,
		events:      pubsub.New[types.EventType, types.Event]("client", logger),
		sessions:    make(map[string]*session),
		stopRefresh: make(chan struct{}),
		logger:      logger,
	}

	cli.unsubscribe = append(cli.unsubscribe,
		cli.socket.On(api.Wildcard, cli.handleEnvelope),
		cli.socket.OnStateChange(cli.handleStateChange),
	)

	return cli, nil
}

// UserID returns the id of the local user.
func (c *Client) UserID() string {
	return c.user.ID
}

// Connect opens the connection to the relay server and starts refreshing the
// presence of the local user.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClientClosed
	}

	if err := c.socket.Connect(ctx); err != nil {
		return err
	}

	c.refreshOnce.Do(func() {
		go c.refreshPresence(c.conf.PresenceRefreshIntervalDuration())
	})
	return nil
}

// Close leaves every room and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	var joined []string
	for id, s := range c.sessions {
		if s.active() {
			joined = append(joined, id)
		}
	}
	c.mu.Unlock()

	for _, id := range joined {
		if err := c.LeaveRoom(id); err != nil {
			c.logger.Warnf("leave %s: %v", id, err)
		}
	}

	close(c.stopRefresh)
	for _, unsubscribe := range c.unsubscribe {
		unsubscribe()
	}

	return c.socket.Disconnect()
}

// ConnectionState returns the state of the connection.
func (c *Client) ConnectionState() transport.State {
	return c.socket.State()
}

// OnConnectionStateChange subscribes handler to connection state changes.
func (c *Client) OnConnectionStateChange(handler func(state transport.State)) func() {
	return c.socket.OnStateChange(handler)
}

// JoinRoom joins the room of the given id. It announces the local user,
// fetches the room and resolves once the room is known. Concurrent calls for
// the same room share one join.
func (c *Client) JoinRoom(ctx context.Context, roomID string) (*types.Room, error) {
	v, err, _ := c.joins.Do(roomID, func() (any, error) {
		return c.join(ctx, roomID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Room).DeepCopy(), nil
}

func (c *Client) join(ctx context.Context, roomID string) (*types.Room, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClientClosed
	}
	s, ok := c.sessions[roomID]
	if ok && s.state == Joined {
		room := s.room
		c.mu.Unlock()
		return room, nil
	}
	if !ok {
		s = &session{doc: document.New(roomID, c.user.ID)}
		c.sessions[roomID] = s
	}
	c.token++
	token := c.token
	s.token = token
	s.state = Joining

	self, err := c.announce(roomID, api.JoinRoom)
	if err == nil {
		c.resend(roomID, s.doc)
	}
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	room, err := c.rooms.GetRoom(ctx, roomID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if s.token != token {
		// left or rejoined while fetching
		if err != nil {
			return nil, err
		}
		return room, nil
	}

	if err != nil {
		s.state = NotJoined
		if _, rmErr := c.presences.RemoveRoom(roomID); rmErr != nil {
			c.logger.Warnf("remove presence of %s: %v", roomID, rmErr)
		}
		if sendErr := c.socket.Send(api.LeaveRoom, types.Payload{RoomID: roomID, UserID: self.ID}); sendErr != nil {
			c.logger.Warnf("retract join of %s: %v", roomID, sendErr)
		}
		return nil, fmt.Errorf("join %s: %w", roomID, err)
	}

	s.state = Joined
	s.room = room
	c.logger.Debugf("joined %s", roomID)
	return room, nil
}

// LeaveRoom leaves the room of the given id. It does nothing if the room is
// not joined. The document of the room is kept for a later join.
func (c *Client) LeaveRoom(roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[roomID]
	if !ok || !s.active() {
		return nil
	}

	c.token++
	s.token = c.token
	s.state = Left
	s.room = nil

	if err := c.socket.Send(api.LeaveRoom, types.Payload{RoomID: roomID, UserID: c.user.ID}); err != nil {
		return err
	}
	if _, err := c.presences.RemoveRoom(roomID); err != nil {
		return err
	}
	c.rooms.Invalidate(roomID)

	c.logger.Debugf("left %s", roomID)
	return nil
}

// State returns the join state of the room of the given id.
func (c *Client) State(roomID string) RoomState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if s, ok := c.sessions[roomID]; ok {
		return s.state
	}
	return NotJoined
}

// Room returns the joined room of the given id.
func (c *Client) Room(roomID string) (*types.Room, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[roomID]
	if !ok || s.state != Joined {
		return nil, false
	}
	return s.room.DeepCopy(), true
}

// JoinedRooms returns the ids of the joined rooms in ascending order.
func (c *Client) JoinedRooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var ids []string
	for id, s := range c.sessions {
		if s.state == Joined {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// RoomPresence returns the presence of every known user of the room,
// including the local user.
func (c *Client) RoomPresence(roomID string) []*types.UserPresence {
	return c.presences.List(roomID)
}

// Document returns the shared document of the room of the given id.
func (c *Client) Document(roomID string) (*document.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[roomID]
	if !ok || !s.active() {
		return nil, fmt.Errorf("document of %s: %w", roomID, ErrRoomNotJoined)
	}
	return s.doc, nil
}

// UpdateStatus changes the status of the local user in every joined room.
func (c *Client) UpdateStatus(status types.Status) error {
	if !status.IsValid() {
		return fmt.Errorf("status %q: %w", status, types.ErrInvalidFields)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.user.Status = status
	for id, s := range c.sessions {
		if !s.active() {
			continue
		}
		if _, err := c.announce(id, api.PresenceUpdate); err != nil {
			return err
		}
	}
	return nil
}

// SetTyping announces whether the local user is typing in the room.
func (c *Client) SetTyping(roomID string, typing bool) error {
	t := api.TypingStop
	if typing {
		t = api.TypingStart
	}
	return c.sendPresence(roomID, t, func(p *types.UserPresence, payload *types.Payload) {
		p.Typing = typing
	})
}

// SendCursor announces the cursor of the local user in the room.
func (c *Client) SendCursor(roomID string, cursor *types.CursorPosition) error {
	return c.sendPresence(roomID, api.CursorMove, func(p *types.UserPresence, payload *types.Payload) {
		p.Cursor = cursor.DeepCopy()
		payload.Cursor = cursor
	})
}

// SendSelection announces the selection of the local user in the room.
func (c *Client) SendSelection(roomID string, selection *types.SelectionRange) error {
	return c.sendPresence(roomID, api.SelectionChange, func(p *types.UserPresence, payload *types.Payload) {
		if selection != nil {
			sel := *selection
			p.Selection = &sel
		} else {
			p.Selection = nil
		}
		payload.Selection = selection
	})
}

// OpenFile announces that the local user opened the file in the room.
func (c *Client) OpenFile(roomID, fileID string) error {
	return c.sendPresence(roomID, api.FileOpen, func(p *types.UserPresence, payload *types.Payload) {
		p.CurrentFile = fileID
		payload.FileID = fileID
	})
}

// CloseFile announces that the local user closed the file in the room.
func (c *Client) CloseFile(roomID, fileID string) error {
	return c.sendPresence(roomID, api.FileClose, func(p *types.UserPresence, payload *types.Payload) {
		if p.CurrentFile == fileID {
			p.CurrentFile = ""
		}
		payload.FileID = fileID
	})
}

// sendPresence patches the local presence of the room and sends a message of
// type t built by fn.
func (c *Client) sendPresence(
	roomID string,
	t api.MessageType,
	fn func(p *types.UserPresence, payload *types.Payload),
) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[roomID]
	if !ok || !s.active() {
		return fmt.Errorf("send %s to %s: %w", t, roomID, ErrRoomNotJoined)
	}

	payload := types.Payload{RoomID: roomID, UserID: c.user.ID}
	if _, err := c.presences.Patch(roomID, c.user.ID, func(p *types.UserPresence) {
		fn(p, &payload)
	}); err != nil {
		return err
	}

	return c.socket.Send(t, payload)
}

// Insert inserts content at position of the document of the room and sends
// the operation.
func (c *Client) Insert(roomID string, position int, content string) (*operation.Operation, error) {
	return c.edit(roomID, func(doc *document.Document) (*operation.Operation, error) {
		return doc.Insert(position, content)
	})
}

// Delete deletes length runes from position of the document of the room and
// sends the operation.
func (c *Client) Delete(roomID string, position, length int) (*operation.Operation, error) {
	return c.edit(roomID, func(doc *document.Document) (*operation.Operation, error) {
		return doc.Delete(position, length)
	})
}

// Replace replaces length runes from position of the document of the room
// with content and sends the operation.
func (c *Client) Replace(roomID string, position, length int, content string) (*operation.Operation, error) {
	return c.edit(roomID, func(doc *document.Document) (*operation.Operation, error) {
		return doc.Replace(position, length, content)
	})
}

func (c *Client) edit(
	roomID string,
	fn func(doc *document.Document) (*operation.Operation, error),
) (*operation.Operation, error) {
	doc, err := c.Document(roomID)
	if err != nil {
		return nil, err
	}

	op, err := fn(doc)
	if err != nil {
		return nil, err
	}

	if err := c.push(roomID, doc); err != nil {
		return nil, err
	}
	return op, nil
}

// push sends the next local operation of the document once the previous one
// has been relayed back.
func (c *Client) push(roomID string, doc *document.Document) error {
	op := doc.Outgoing()
	if op == nil {
		return nil
	}
	return c.sendOperation(roomID, op)
}

// resend sends the operation of the document still awaiting relay again. The
// relay drops it if it was stored before.
func (c *Client) resend(roomID string, doc *document.Document) {
	op := doc.Unacknowledged()
	if op == nil {
		if err := c.push(roomID, doc); err != nil {
			c.logger.Warnf("send operation to %s: %v", roomID, err)
		}
		return
	}
	if err := c.sendOperation(roomID, op); err != nil {
		c.logger.Warnf("resend %s to %s: %v", op, roomID, err)
	}
}

func (c *Client) sendOperation(roomID string, op *operation.Operation) error {
	return c.socket.Send(api.ContentChange, types.Payload{
		RoomID:    roomID,
		UserID:    c.user.ID,
		Operation: op,
	})
}

// CreateRoom creates a room on the server.
func (c *Client) CreateRoom(ctx context.Context, req *types.CreateRoomRequest) (*types.Room, error) {
	return c.rooms.CreateRoom(ctx, req)
}

// ListRooms lists the rooms of the project.
func (c *Client) ListRooms(ctx context.Context, projectID string) ([]*types.Room, error) {
	return c.rooms.ListRooms(ctx, projectID)
}

// Subscribe subscribes handler to the events of the given type. The returned
// function unsubscribes.
func (c *Client) Subscribe(t types.EventType, handler func(event types.Event)) func() {
	return c.events.Subscribe(t, handler)
}

// SubscribeAll subscribes handler to every event.
func (c *Client) SubscribeAll(handler func(event types.Event)) func() {
	return c.events.SubscribeAll(handler)
}

// BindEditor binds widget to the document of the joined room. The widget is
// set to the text of the document, local changes of the widget are sent as
// operations and remote operations are applied to the widget. The returned
// function unbinds.
func (c *Client) BindEditor(roomID string, widget editor.Widget) (editor.Binding, func(), error) {
	doc, err := c.Document(roomID)
	if err != nil {
		return nil, nil, err
	}

	binding, err := editor.NewBinding(c.conf.EditorBinding, widget)
	if err != nil {
		return nil, nil, err
	}
	binding.SetValue(doc.Text())

	c.mu.Lock()
	if s, ok := c.sessions[roomID]; ok {
		s.binding = binding
	}
	c.mu.Unlock()

	offChange := binding.OnChange(func(changes []editor.Change) {
		for _, change := range changes {
			if err := c.applyEdit(roomID, editor.ChangeToEdit(change)); err != nil {
				c.logger.Warnf("apply edit to %s: %v", roomID, err)
			}
		}
	})
	offContent := c.Subscribe(types.ContentChange, func(event types.Event) {
		if event.RoomID != roomID || event.Payload.Operation == nil {
			return
		}
		if err := binding.ApplyOperation(event.Payload.Operation); err != nil {
			c.logger.Warnf("apply %s to editor: %v", event.Payload.Operation, err)
		}
	})

	var once sync.Once
	return binding, func() {
		once.Do(func() {
			c.mu.Lock()
			if s, ok := c.sessions[roomID]; ok && s.binding == binding {
				s.binding = nil
			}
			c.mu.Unlock()

			offChange()
			offContent()
			binding.Close()
		})
	}, nil
}

func (c *Client) applyEdit(roomID string, edit editor.Edit) error {
	var err error
	switch edit.Kind() {
	case "insert":
		_, err = c.Insert(roomID, edit.Position, edit.Content)
	case "delete":
		_, err = c.Delete(roomID, edit.Position, edit.Length)
	case "replace":
		_, err = c.Replace(roomID, edit.Position, edit.Length, edit.Content)
	}
	return err
}

// announce stores the local presence of the room and sends it as a message
// of type t. It must be called with mu held.
func (c *Client) announce(roomID string, t api.MessageType) (*types.UserPresence, error) {
	self, err := c.presences.Patch(roomID, c.user.ID, func(p *types.UserPresence) {
		p.Name = c.user.Name
		p.Email = c.user.Email
		p.Avatar = c.user.Avatar
		p.Color = c.user.Color
		p.Status = c.user.Status
	})
	if err != nil {
		return nil, err
	}

	if err := c.socket.Send(t, types.Payload{
		RoomID: roomID,
		UserID: c.user.ID,
		User:   self,
		Status: self.Status,
	}); err != nil {
		return nil, err
	}
	return self, nil
}

// handleStateChange announces the local user again in every room once the
// connection is restored, as the server forgets a dropped connection.
func (c *Client) handleStateChange(state transport.State) {
	if state != transport.Connected {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, s := range c.sessions {
		if !s.active() {
			continue
		}
		if _, err := c.announce(id, api.JoinRoom); err != nil {
			c.logger.Warnf("rejoin %s: %v", id, err)
			continue
		}
		c.resend(id, s.doc)
	}
}

// handleEnvelope applies an inbound room message to the local state of the
// room and publishes it as an event.
func (c *Client) handleEnvelope(e *api.Envelope) {
	if e.Type == api.Error {
		c.logger.Warnf("relay error: %s", string(e.Data))
		return
	}

	eventType, ok := api.EventTypeOf(e.Type)
	if !ok {
		return
	}

	payload, err := e.Payload()
	if err != nil {
		c.logger.Warnf("drop %s: %v", e.Type, err)
		return
	}

	userID := payload.UserID
	if userID == "" && payload.User != nil {
		userID = payload.User.ID
	}
	if payload.RoomID == "" || userID == "" {
		c.logger.Debugf("drop %s without room or user", e.Type)
		return
	}
	payload.UserID = userID

	// own content comes back as the acknowledgement of the relay.
	if userID == c.user.ID && eventType != types.ContentChange {
		return
	}

	c.mu.RLock()
	s, ok := c.sessions[payload.RoomID]
	active := ok && s.active()
	c.mu.RUnlock()
	if !active {
		return
	}

	if eventType == types.ContentChange {
		if err := c.applyContent(s, payload, e.Timestamp); err != nil {
			c.logger.Warnf("apply %s of %s to %s: %v", eventType, userID, payload.RoomID, err)
		}
		return
	}

	if err := c.applyEvent(s, eventType, &payload); err != nil {
		c.logger.Warnf("apply %s of %s to %s: %v", eventType, userID, payload.RoomID, err)
		return
	}

	c.events.Publish(eventType, types.Event{
		Type:      eventType,
		RoomID:    payload.RoomID,
		UserID:    userID,
		Payload:   payload,
		Timestamp: e.Timestamp,
	})
}

func (c *Client) applyEvent(s *session, eventType types.EventType, payload *types.Payload) error {
	roomID, userID := payload.RoomID, payload.UserID

	switch eventType {
	case types.UserJoined:
		if err := c.upsertRemote(roomID, userID, payload.User); err != nil {
			return err
		}

		// the newcomer learns about us from our presence
		c.mu.Lock()
		defer c.mu.Unlock()
		if s.active() {
			if _, err := c.announce(roomID, api.PresenceUpdate); err != nil {
				return err
			}
		}
		return nil
	case types.UserLeft:
		_, err := c.presences.Remove(roomID, userID)
		return err
	case types.PresenceUpdate:
		if payload.User == nil {
			return c.patchRemote(roomID, userID, func(p *types.UserPresence) {
				if payload.Status.IsValid() {
					p.Status = payload.Status
				}
			})
		}
		return c.upsertRemote(roomID, userID, payload.User)
	case types.CursorMove:
		return c.patchRemote(roomID, userID, func(p *types.UserPresence) {
			p.Cursor = payload.Cursor.DeepCopy()
		})
	case types.SelectionChange:
		return c.patchRemote(roomID, userID, func(p *types.UserPresence) {
			if payload.Selection == nil {
				p.Selection = nil
				return
			}
			sel := *payload.Selection
			p.Selection = &sel
		})
	case types.TypingStart, types.TypingStop:
		return c.patchRemote(roomID, userID, func(p *types.UserPresence) {
			p.Typing = eventType == types.TypingStart
		})
	case types.FileOpen:
		return c.patchRemote(roomID, userID, func(p *types.UserPresence) {
			p.CurrentFile = payload.FileID
		})
	case types.FileClose:
		return c.patchRemote(roomID, userID, func(p *types.UserPresence) {
			if p.CurrentFile == payload.FileID {
				p.CurrentFile = ""
			}
		})
	}

	return nil
}

// applyContent applies a relayed operation to the document of the room and
// publishes an event for every remote operation it releases.
func (c *Client) applyContent(s *session, payload types.Payload, timestamp int64) error {
	if payload.Operation == nil {
		return fmt.Errorf("missing operation: %w", operation.ErrInvalidOperation)
	}
	roomID := payload.RoomID

	c.mu.RLock()
	binding := s.binding
	c.mu.RUnlock()
	if binding != nil {
		binding.Sync()
	}

	applied, err := s.doc.ApplySequenced(payload.Operation)
	if pushErr := c.push(roomID, s.doc); pushErr != nil {
		c.logger.Warnf("send operation to %s: %v", roomID, pushErr)
	}
	if err != nil && len(applied) == 0 {
		return err
	}

	for _, op := range applied {
		if op.UserID != c.user.ID {
			if err := c.patchRemote(roomID, op.UserID, func(*types.UserPresence) {}); err != nil {
				return err
			}
		}

		event := payload
		event.UserID = op.UserID
		event.Operation = op
		c.events.Publish(types.ContentChange, types.Event{
			Type:      types.ContentChange,
			RoomID:    roomID,
			UserID:    op.UserID,
			Payload:   event,
			Timestamp: timestamp,
		})
	}
	return err
}

// upsertRemote stores the presence of a peer. LastSeen is the local receipt
// time.
func (c *Client) upsertRemote(roomID, userID string, p *types.UserPresence) error {
	if p == nil {
		return c.patchRemote(roomID, userID, func(*types.UserPresence) {})
	}

	p = p.DeepCopy()
	p.ID = userID
	p.LastSeen = time.Time{}
	_, err := c.presences.Upsert(roomID, p)
	return err
}

func (c *Client) patchRemote(roomID, userID string, fn func(p *types.UserPresence)) error {
	_, err := c.presences.Patch(roomID, userID, fn)
	return err
}

// refreshPresence re-announces the local user in every joined room and marks
// peers not heard from as offline.
func (c *Client) refreshPresence(interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	threshold := presence.StaleThreshold(interval)
	for {
		select {
		case <-c.stopRefresh:
			return
		case <-ticker.C:
			c.refresh(threshold)
		}
	}
}

func (c *Client) refresh(threshold time.Duration) {
	c.mu.Lock()
	var joined []string
	for id, s := range c.sessions {
		if s.state != Joined {
			continue
		}
		joined = append(joined, id)
		if _, err := c.announce(id, api.PresenceUpdate); err != nil {
			c.logger.Warnf("refresh presence of %s: %v", id, err)
		}
	}
	c.mu.Unlock()

	for _, id := range joined {
		expired, err := c.presences.ExpireStale(id, c.user.ID, threshold)
		if err != nil {
			c.logger.Warnf("expire presence of %s: %v", id, err)
			continue
		}
		for _, p := range expired {
			c.events.Publish(types.PresenceUpdate, types.Event{
				Type:   types.PresenceUpdate,
				RoomID: id,
				UserID: p.ID,
				Payload: types.Payload{
					RoomID: id,
					UserID: p.ID,
					User:   p,
					Status: p.Status,
				},
				Timestamp: time.Now().UnixMilli(),
			})
		}
	}
}
