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

// Package profiling serves the Prometheus metrics of the relay and, when
// enabled, the pprof endpoints on a listener apart from the collaboration
// socket.
package profiling

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProfilingPort occurs when the profiling port is outside
	// 1-65535.
	ErrInvalidProfilingPort = errors.New("invalid port number for profiling server")
)

// Config configures the metrics and pprof listener.
type Config struct {
	Port int `yaml:"Port"`

	// EnablePprof mounts the runtime profiles below /debug/pprof.
	EnablePprof bool `yaml:"EnablePprof"`
}

// Validate returns an error if the port can not be listened on.
func (c *Config) Validate() error {
	if c.Port < 1 || 65535 < c.Port {
		return fmt.Errorf("profiling port must be between 1 and 65535, given %d: %w", c.Port, ErrInvalidProfilingPort)
	}

	return nil
}

// Addr returns the listen address of the profiling server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
