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

package client

import (
	"net/http"

	"github.com/yorkie-team/coedit/client/transport"
	"github.com/yorkie-team/coedit/internal/logging"
)

// Option configures Options.
type Option func(*Options)

// Options configures how we set up the client.
type Options struct {
	// UserID is the stable id of the local user. A random id is used if it
	// is empty.
	UserID string

	// Name is the display name of the local user.
	Name string

	// Email is the email of the local user.
	Email string

	// Avatar is the avatar url of the local user.
	Avatar string

	// Dialer opens the relay socket.
	Dialer transport.Dialer

	// HTTPClient sends the side channel requests.
	HTTPClient *http.Client

	// Logger is the Logger of the client.
	Logger logging.Logger
}

// WithUser configures the identity of the local user.
func WithUser(id, name, email string) Option {
	return func(o *Options) {
		o.UserID = id
		o.Name = name
		o.Email = email
	}
}

// WithAvatar configures the avatar of the local user.
func WithAvatar(avatar string) Option {
	return func(o *Options) { o.Avatar = avatar }
}

// WithDialer configures the dialer of the relay socket.
func WithDialer(dialer transport.Dialer) Option {
	return func(o *Options) { o.Dialer = dialer }
}

// WithHTTPClient configures the HTTP client of the side channel.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) { o.HTTPClient = client }
}

// WithLogger configures the Logger of the client.
func WithLogger(logger logging.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}
