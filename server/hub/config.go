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
	"errors"
	"fmt"
	"time"
)

// Below are the values of the default values of the hub config.
const (
	DefaultPath            = "/collaboration"
	DefaultWriteTimeout    = 10 * time.Second
	DefaultSendBufferSize  = 256
	DefaultMaxMessageBytes = 1 << 20
)

var (
	// ErrInvalidPath occurs when the path of the hub is not absolute.
	ErrInvalidPath = errors.New("invalid path for hub")

	// ErrInvalidSendBufferSize occurs when the send buffer size is not positive.
	ErrInvalidSendBufferSize = errors.New("invalid send buffer size for hub")
)

// Config is the configuration of the hub.
type Config struct {
	// Path is the path the socket is served on.
	Path string `yaml:"Path"`

	// WriteTimeout is the deadline of a single write to a connection.
	WriteTimeout string `yaml:"WriteTimeout"`

	// SendBufferSize is the number of envelopes buffered per connection. A
	// connection whose buffer is full is dropped.
	SendBufferSize int `yaml:"SendBufferSize"`

	// MaxMessageBytes is the maximum size of an inbound envelope.
	MaxMessageBytes int64 `yaml:"MaxMessageBytes"`

	// AllowedOrigins are the origins allowed to open a socket. Every origin
	// is allowed if it is empty.
	AllowedOrigins []string `yaml:"AllowedOrigins"`
}

// NewConfig returns a Config with the default values.
func NewConfig() *Config {
	return &Config{
		Path:            DefaultPath,
		WriteTimeout:    DefaultWriteTimeout.String(),
		SendBufferSize:  DefaultSendBufferSize,
		MaxMessageBytes: DefaultMaxMessageBytes,
	}
}

// Validate validates this config.
func (c *Config) Validate() error {
	if len(c.Path) == 0 || c.Path[0] != '/' {
		return fmt.Errorf("%q: %w", c.Path, ErrInvalidPath)
	}

	if _, err := time.ParseDuration(c.WriteTimeout); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--hub-write-timeout" flag: %w`,
			c.WriteTimeout,
			err,
		)
	}

	if c.SendBufferSize < 1 {
		return fmt.Errorf("%d: %w", c.SendBufferSize, ErrInvalidSendBufferSize)
	}

	return nil
}

// ParseWriteTimeout returns the write timeout duration.
func (c *Config) ParseWriteTimeout() time.Duration {
	result, err := time.ParseDuration(c.WriteTimeout)
	if err != nil {
		return DefaultWriteTimeout
	}

	return result
}
