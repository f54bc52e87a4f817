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

package mongo

import (
	"fmt"
	"strings"
	"time"
)

// fallbackTimeout is used when a timeout of Config can not be parsed.
const fallbackTimeout = 5 * time.Second

// Config configures the MongoDB store of rooms and room operation logs.
type Config struct {
	// ConnectionTimeout bounds dialing the deployment, e.g. "5s".
	ConnectionTimeout string `yaml:"ConnectionTimeout"`

	// ConnectionURI is a mongodb:// or mongodb+srv:// URI.
	ConnectionURI string `yaml:"ConnectionURI"`

	// Database holds the rooms and operations collections.
	Database string `yaml:"Database"`

	// PingTimeout bounds the ping that checks the primary after dialing.
	PingTimeout string `yaml:"PingTimeout"`
}

// Validate returns an error naming the server flag of the first invalid field.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.ConnectionTimeout); err != nil {
		return invalidFlag("mongo-connection-timeout", c.ConnectionTimeout, err)
	}

	if _, err := time.ParseDuration(c.PingTimeout); err != nil {
		return invalidFlag("mongo-ping-timeout", c.PingTimeout, err)
	}

	if c.ConnectionURI != "" &&
		!strings.HasPrefix(c.ConnectionURI, "mongodb://") &&
		!strings.HasPrefix(c.ConnectionURI, "mongodb+srv://") {
		return invalidFlag("mongo-connection-uri", c.ConnectionURI, fmt.Errorf("unknown scheme"))
	}

	if c.Database == "" {
		return invalidFlag("mongo-database", c.Database, fmt.Errorf("database is required"))
	}

	return nil
}

// ParseConnectionTimeout returns the dial timeout.
func (c *Config) ParseConnectionTimeout() time.Duration {
	return parseTimeout(c.ConnectionTimeout)
}

// ParsePingTimeout returns the ping timeout.
func (c *Config) ParsePingTimeout() time.Duration {
	return parseTimeout(c.PingTimeout)
}

func parseTimeout(value string) time.Duration {
	result, err := time.ParseDuration(value)
	if err != nil {
		return fallbackTimeout
	}
	return result
}

func invalidFlag(flag, value string, err error) error {
	return fmt.Errorf(`invalid argument "%s" for "--%s" flag: %w`, value, flag, err)
}
