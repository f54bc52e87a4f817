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

// Package transport provides a reconnecting socket that exchanges envelopes
// with the relay server.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/yorkie-team/coedit/api"
	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/pkg/errors"
	"github.com/yorkie-team/coedit/pkg/pubsub"
)

// State is the connection state of a socket.
type State int

// Below are the states of a socket.
const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrConnect is returned when the first connection attempt fails.
var ErrConnect = errors.Unavailable("failed to connect").WithCode("ErrConnect")

// Socket is a reconnecting duplex channel of envelopes. Envelopes sent while
// not connected are queued and flushed in order, ahead of new sends, once
// the socket is connected again.
type Socket struct {
	url  string
	opts Options

	mu      sync.Mutex
	state   State
	conn    Conn
	gen     uint64
	pending [][]byte
	policy  backoff.BackOff
	timer   Timer
	closed  bool
	stopHB  chan struct{}

	messages *pubsub.Bus[api.MessageType, *api.Envelope]
	states   *pubsub.Bus[struct{}, State]
	logger   logging.Logger
}

// New creates a new instance of Socket for the given url.
func New(url string, opts ...Option) *Socket {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Socket{
		url:      url,
		opts:     options,
		state:    Disconnected,
		policy:   NewReconnectPolicy(options.ReconnectBaseDelay, options.MaxReconnectAttempts),
		messages: pubsub.New[api.MessageType, *api.Envelope]("socket", options.Logger),
		states:   pubsub.New[struct{}, State]("socket-state", options.Logger),
		logger:   options.Logger,
	}
}

// URL returns the url of this socket.
func (s *Socket) URL() string {
	return s.url
}

// State returns the connection state of this socket.
func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Pending returns the number of envelopes waiting to be flushed.
func (s *Socket) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

// On subscribes handler to inbound envelopes of the given type. Wildcard
// receives every envelope. The returned function unsubscribes.
func (s *Socket) On(t api.MessageType, handler func(e *api.Envelope)) func() {
	if t == api.Wildcard {
		return s.messages.SubscribeAll(handler)
	}
	return s.messages.Subscribe(t, handler)
}

// OnStateChange subscribes handler to state transitions.
func (s *Socket) OnStateChange(handler func(state State)) func() {
	return s.states.SubscribeAll(handler)
}

// Connect opens the socket and starts the heartbeat. It returns an error
// only if this first attempt fails; later failures are retried in the
// background.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Connected || s.state == Connecting {
		s.mu.Unlock()
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.closed = false
	s.policy.Reset()
	notify := s.setState(Connecting)
	s.mu.Unlock()
	notify()

	conn, err := s.opts.Dialer.DialContext(ctx, s.url, s.opts.Header)
	if err != nil {
		s.mu.Lock()
		notify := s.setState(Disconnected)
		s.mu.Unlock()
		notify()
		return fmt.Errorf("connect %s: %s: %w", s.url, err.Error(), ErrConnect)
	}

	s.open(conn)
	return nil
}

// Send sends an envelope of the given type. If the socket is not connected,
// or the write fails, the envelope is queued for replay. It only fails if
// data can not be encoded.
func (s *Socket) Send(t api.MessageType, data any) error {
	envelope, err := api.NewEnvelope(t, data)
	if err != nil {
		return err
	}
	encoded, err := envelope.Encode()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Connected || s.conn == nil {
		s.pending = append(s.pending, encoded)
		return nil
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
		s.logger.Warnf("write %s to %s: %v", t, s.url, err)
		s.pending = append(s.pending, encoded)

		// the read loop observes the close and reconnects
		_ = s.conn.Close()
	}
	return nil
}

// Disconnect stops the heartbeat and closes the socket with a normal
// closure. It never triggers reconnection. Queued envelopes are kept.
func (s *Socket) Disconnect() error {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.stopHB != nil {
		close(s.stopHB)
		s.stopHB = nil
	}
	conn := s.conn
	s.conn = nil
	s.gen++
	notify := s.setState(Disconnected)
	s.mu.Unlock()
	notify()

	if conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		s.logger.Debugf("write close to %s: %v", s.url, err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.url, err)
	}
	return nil
}

// open adopts conn, flushes the queue and starts reading.
func (s *Socket) open(conn Conn) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}

	for len(s.pending) > 0 {
		if err := conn.WriteMessage(websocket.TextMessage, s.pending[0]); err != nil {
			s.logger.Warnf("flush to %s: %v", s.url, err)
			_ = conn.Close()
			notify := s.scheduleReconnect()
			s.mu.Unlock()
			notify()
			return
		}
		s.pending = s.pending[1:]
	}
	s.pending = nil

	s.gen++
	gen := s.gen
	s.conn = conn
	s.policy.Reset()
	if s.stopHB == nil && s.opts.HeartbeatInterval > 0 {
		s.stopHB = make(chan struct{})
		go s.heartbeat(s.stopHB)
	}
	notify := s.setState(Connected)
	s.mu.Unlock()
	notify()

	go s.readLoop(conn, gen)
}

func (s *Socket) readLoop(conn Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.onClose(gen, err)
			return
		}

		envelope, err := api.DecodeEnvelope(data)
		if err != nil {
			s.logger.Warnf("drop malformed envelope from %s: %v", s.url, err)
			continue
		}

		if envelope.Type == api.Pong {
			continue
		}
		s.messages.Publish(envelope.Type, envelope)
	}
}

func (s *Socket) onClose(gen uint64, cause error) {
	s.mu.Lock()
	if gen != s.gen || s.conn == nil {
		s.mu.Unlock()
		return
	}

	_ = s.conn.Close()
	s.conn = nil

	if s.closed {
		notify := s.setState(Disconnected)
		s.mu.Unlock()
		notify()
		return
	}

	s.logger.Infof("connection to %s closed: %v", s.url, cause)
	notify := s.scheduleReconnect()
	s.mu.Unlock()
	notify()
}

// scheduleReconnect schedules the next attempt, or gives up once the policy
// is exhausted. It must be called with mu held.
func (s *Socket) scheduleReconnect() func() {
	delay := s.policy.NextBackOff()
	if delay == backoff.Stop {
		s.logger.Warnf("give up reconnecting to %s", s.url)
		return s.setState(Disconnected)
	}

	s.timer = s.opts.AfterFunc(delay, s.reconnect)
	return s.setState(Reconnecting)
}

func (s *Socket) reconnect() {
	s.mu.Lock()
	if s.closed || s.state != Reconnecting {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.DialTimeout)
	defer cancel()

	conn, err := s.opts.Dialer.DialContext(ctx, s.url, s.opts.Header)
	if err != nil {
		s.logger.Debugf("reconnect to %s: %v", s.url, err)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		notify := s.scheduleReconnect()
		s.mu.Unlock()
		notify()
		return
	}

	s.open(conn)
}

func (s *Socket) heartbeat(stop chan struct{}) {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.ping()
		}
	}
}

func (s *Socket) ping() {
	envelope, err := api.NewEnvelope(api.Ping, nil)
	if err != nil {
		return
	}
	encoded, err := envelope.Encode()
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Connected || s.conn == nil {
		return
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
		_ = s.conn.Close()
	}
}

// setState records a transition and returns the function notifying the
// subscribers, to be called after mu is released.
func (s *Socket) setState(state State) func() {
	if s.state == state {
		return func() {}
	}
	s.state = state

	return func() {
		s.states.Publish(struct{}{}, state)
	}
}
