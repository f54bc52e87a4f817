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
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yorkie-team/coedit/client/editor"
)

// Below are the values of the default values of the client config.
const (
	DefaultWSURL                   = "ws://localhost:3001/collaboration"
	DefaultAPIURL                  = "http://localhost:3001"
	DefaultMaxReconnectAttempts    = 10
	DefaultReconnectBaseDelay      = time.Second
	DefaultHeartbeatInterval       = 30 * time.Second
	DefaultPresenceRefreshInterval = 30 * time.Second
	DefaultRoomCacheSize           = 128
	DefaultRoomCacheTTL            = 5 * time.Minute
	DefaultRoomRequestMaxRetries   = 3
	DefaultEditorBinding           = editor.KindDiff
)

// Config is the configuration of a collaboration client.
type Config struct {
	// WSURL is the endpoint of the relay socket.
	WSURL string `yaml:"WSURL"`

	// APIURL is the base url of the room side channel.
	APIURL string `yaml:"APIURL"`

	// MaxReconnectAttempts is the number of reconnect attempts after an
	// unexpected close.
	MaxReconnectAttempts int `yaml:"MaxReconnectAttempts"`

	// ReconnectBaseDelay is the delay of the first reconnect attempt. Attempt
	// n waits ReconnectBaseDelay * 2^(n-1).
	ReconnectBaseDelay string `yaml:"ReconnectBaseDelay"`

	// HeartbeatInterval is the interval between pings.
	HeartbeatInterval string `yaml:"HeartbeatInterval"`

	// PresenceRefreshInterval is the interval at which the local presence is
	// re-announced. Peers not heard from for three intervals are offline.
	PresenceRefreshInterval string `yaml:"PresenceRefreshInterval"`

	// RoomCacheSize is the number of fetched rooms kept.
	RoomCacheSize int `yaml:"RoomCacheSize"`

	// RoomCacheTTL is how long a fetched room is kept.
	RoomCacheTTL string `yaml:"RoomCacheTTL"`

	// RoomRequestMaxRetries is the number of retries of a side channel request.
	RoomRequestMaxRetries uint64 `yaml:"RoomRequestMaxRetries"`

	// EditorBinding is the kind of binding used by BindEditor.
	EditorBinding editor.Kind `yaml:"EditorBinding"`
}

// NewConfig returns a Config with the default values.
func NewConfig() *Config {
	conf := &Config{}
	conf.ensureDefaultValue()
	return conf
}

// NewConfigFromFile returns a Config for the given YAML file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	u, err := url.Parse(c.WSURL)
	if err != nil {
		return fmt.Errorf("invalid WSURL %q: %w", c.WSURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid WSURL %q: scheme must be ws or wss", c.WSURL)
	}

	if _, err := url.ParseRequestURI(c.APIURL); err != nil {
		return fmt.Errorf("invalid APIURL %q: %w", c.APIURL, err)
	}

	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("invalid MaxReconnectAttempts %d: must not be negative", c.MaxReconnectAttempts)
	}

	for name, value := range map[string]string{
		"ReconnectBaseDelay":      c.ReconnectBaseDelay,
		"HeartbeatInterval":       c.HeartbeatInterval,
		"PresenceRefreshInterval": c.PresenceRefreshInterval,
		"RoomCacheTTL":            c.RoomCacheTTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf(`invalid argument "%s" for "%s": %w`, value, name, err)
		}
	}

	switch c.EditorBinding {
	case editor.KindNative, editor.KindDiff:
	default:
		return fmt.Errorf("invalid EditorBinding %q", c.EditorBinding)
	}

	return nil
}

// ReconnectBaseDelayDuration returns the parsed ReconnectBaseDelay.
func (c *Config) ReconnectBaseDelayDuration() time.Duration {
	return parseDuration(c.ReconnectBaseDelay, DefaultReconnectBaseDelay)
}

// HeartbeatIntervalDuration returns the parsed HeartbeatInterval.
func (c *Config) HeartbeatIntervalDuration() time.Duration {
	return parseDuration(c.HeartbeatInterval, DefaultHeartbeatInterval)
}

// PresenceRefreshIntervalDuration returns the parsed PresenceRefreshInterval.
func (c *Config) PresenceRefreshIntervalDuration() time.Duration {
	return parseDuration(c.PresenceRefreshInterval, DefaultPresenceRefreshInterval)
}

// RoomCacheTTLDuration returns the parsed RoomCacheTTL.
func (c *Config) RoomCacheTTLDuration() time.Duration {
	return parseDuration(c.RoomCacheTTL, DefaultRoomCacheTTL)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	if c.WSURL == "" {
		c.WSURL = DefaultWSURL
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.ReconnectBaseDelay == "" {
		c.ReconnectBaseDelay = DefaultReconnectBaseDelay.String()
	}
	if c.HeartbeatInterval == "" {
		c.HeartbeatInterval = DefaultHeartbeatInterval.String()
	}
	if c.PresenceRefreshInterval == "" {
		c.PresenceRefreshInterval = DefaultPresenceRefreshInterval.String()
	}
	if c.RoomCacheSize == 0 {
		c.RoomCacheSize = DefaultRoomCacheSize
	}
	if c.RoomCacheTTL == "" {
		c.RoomCacheTTL = DefaultRoomCacheTTL.String()
	}
	if c.RoomRequestMaxRetries == 0 {
		c.RoomRequestMaxRetries = DefaultRoomRequestMaxRetries
	}
	if c.EditorBinding == "" {
		c.EditorBinding = DefaultEditorBinding
	}
}
