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

package broker

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrEmptyAddress is returned when the address is empty.
	ErrEmptyAddress = errors.New("address cannot be empty")

	// ErrEmptyChannelPrefix is returned when the channel prefix is empty.
	ErrEmptyChannelPrefix = errors.New("channel prefix cannot be empty")
)

// Config is the configuration of the Redis broker.
type Config struct {
	Addr          string `yaml:"Addr"`
	Password      string `yaml:"Password"`
	DB            int    `yaml:"DB"`
	ChannelPrefix string `yaml:"ChannelPrefix"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrEmptyAddress
	}

	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf(`parse address "%s": %w`, c.Addr, err)
	}

	if c.ChannelPrefix == "" {
		return ErrEmptyChannelPrefix
	}

	return nil
}
