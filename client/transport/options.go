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

package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yorkie-team/coedit/internal/logging"
)

const (
	// DefaultHeartbeatInterval is the default interval between pings.
	DefaultHeartbeatInterval = 30 * time.Second

	// DefaultMaxReconnectAttempts is the default number of reconnect attempts
	// after an unexpected close.
	DefaultMaxReconnectAttempts = 10

	// DefaultReconnectBaseDelay is the default delay of the first reconnect
	// attempt.
	DefaultReconnectBaseDelay = time.Second

	// DefaultDialTimeout is the default timeout of a reconnect attempt.
	DefaultDialTimeout = 10 * time.Second
)

// Conn is a message oriented duplex connection. *websocket.Conn implements it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	DialContext(ctx context.Context, url string, header http.Header) (Conn, error)
}

// Timer is a scheduled call that can be cancelled.
type Timer interface {
	Stop() bool
}

// WebsocketDialer dials websocket connections with gorilla/websocket.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
}

// DialContext dials the given websocket url.
func (d WebsocketDialer) DialContext(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Option configures Options.
type Option func(*Options)

// Options configures how we set up the socket.
type Options struct {
	// Dialer opens the underlying connections.
	Dialer Dialer

	// Header is sent with every handshake.
	Header http.Header

	// HeartbeatInterval is the interval between pings while connected. Zero
	// disables the heartbeat.
	HeartbeatInterval time.Duration

	// MaxReconnectAttempts is the number of reconnect attempts after an
	// unexpected close. Zero disables reconnection.
	MaxReconnectAttempts int

	// ReconnectBaseDelay is the delay of the first reconnect attempt.
	ReconnectBaseDelay time.Duration

	// DialTimeout bounds every reconnect attempt.
	DialTimeout time.Duration

	// AfterFunc schedules reconnect attempts.
	AfterFunc func(d time.Duration, f func()) Timer

	// Logger is the Logger of the socket.
	Logger logging.Logger
}

// WithDialer configures the dialer of the socket.
func WithDialer(dialer Dialer) Option {
	return func(o *Options) { o.Dialer = dialer }
}

// WithHeader configures the handshake header of the socket.
func WithHeader(header http.Header) Option {
	return func(o *Options) { o.Header = header }
}

// WithHeartbeatInterval configures the heartbeat interval of the socket.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(o *Options) { o.HeartbeatInterval = interval }
}

// WithReconnect configures the reconnect policy of the socket.
func WithReconnect(baseDelay time.Duration, maxAttempts int) Option {
	return func(o *Options) {
		o.ReconnectBaseDelay = baseDelay
		o.MaxReconnectAttempts = maxAttempts
	}
}

// WithDialTimeout configures the timeout of reconnect attempts.
func WithDialTimeout(timeout time.Duration) Option {
	return func(o *Options) { o.DialTimeout = timeout }
}

// WithAfterFunc configures how reconnect attempts are scheduled.
func WithAfterFunc(afterFunc func(d time.Duration, f func()) Timer) Option {
	return func(o *Options) { o.AfterFunc = afterFunc }
}

// WithLogger configures the Logger of the socket.
func WithLogger(logger logging.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

func defaultOptions() Options {
	return Options{
		Dialer:               WebsocketDialer{},
		HeartbeatInterval:    DefaultHeartbeatInterval,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		ReconnectBaseDelay:   DefaultReconnectBaseDelay,
		DialTimeout:          DefaultDialTimeout,
		AfterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		Logger: logging.DefaultLogger(),
	}
}
