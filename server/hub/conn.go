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

package hub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yorkie-team/coedit/api"
	"github.com/yorkie-team/coedit/internal/logging"
)

// conn is a socket connection of a client. It may be a member of several
// rooms, each as one user.
type conn struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	logger logging.Logger

	mu    sync.Mutex
	rooms map[string]string

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(id string, ws *websocket.Conn, bufferSize int, logger logging.Logger) *conn {
	return &conn{
		id:     id,
		ws:     ws,
		send:   make(chan []byte, bufferSize),
		logger: logger,
		rooms:  make(map[string]string),
		done:   make(chan struct{}),
	}
}

// enqueue buffers data for the write pump. It returns false if the
// connection is closed or its buffer is full.
func (c *conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *conn) enqueueEnvelope(e *api.Envelope) bool {
	encoded, err := e.Encode()
	if err != nil {
		c.logger.Warnf("encode %s: %v", e.Type, err)
		return false
	}
	return c.enqueue(encoded)
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.ws.Close(); err != nil {
			c.logger.Debugf("close %s: %v", c.id, err)
		}
	})
}

// join records the user of the connection in the room. It returns whether
// the connection was not a member.
func (c *conn) join(roomID, userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.rooms[roomID]
	c.rooms[roomID] = userID
	return !ok
}

// leave forgets the room and returns the user the connection joined it as.
func (c *conn) leave(roomID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	userID, ok := c.rooms[roomID]
	delete(c.rooms, roomID)
	return userID, ok
}

func (c *conn) userOf(roomID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	userID, ok := c.rooms[roomID]
	return userID, ok
}

func (c *conn) joined() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	rooms := make(map[string]string, len(c.rooms))
	for roomID, userID := range c.rooms {
		rooms[roomID] = userID
	}
	return rooms
}

// readPump reads envelopes until the connection fails and hands them to
// handle.
func (c *conn) readPump(ctx context.Context, maxBytes int64, handle func(ctx context.Context, e *api.Envelope)) {
	if maxBytes > 0 {
		c.ws.SetReadLimit(maxBytes)
	}

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debugf("read %s: %v", c.id, err)
			}
			return
		}

		e, err := api.DecodeEnvelope(data)
		if err != nil {
			c.enqueueEnvelope(api.NewErrorEnvelope(err))
			continue
		}
		handle(ctx, e)
	}
}

// writePump writes the buffered envelopes until the connection is closed.
func (c *conn) writePump(ctx context.Context, writeTimeout time.Duration) {
	defer c.close()

	for {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
			return
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debugf("write %s: %v", c.id, err)
				return
			}
		}
	}
}
