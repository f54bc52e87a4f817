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

package backend

import (
	"fmt"
)

// Below are the kinds of database and broker.
const (
	DatabaseMemory = "memory"
	DatabaseMongo  = "mongo"
	BrokerMemory   = "memory"
	BrokerRedis    = "redis"
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// Database is the kind of database keeping rooms and operation logs:
	// "memory" or "mongo". Default is "memory".
	Database string `yaml:"Database"`

	// Broker is the kind of broker relaying room messages between servers:
	// "memory" or "redis". Default is "memory".
	Broker string `yaml:"Broker"`

	// Hostname is the hostname of this server. It is used by logs.
	Hostname string `yaml:"Hostname"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	switch c.Database {
	case DatabaseMemory, DatabaseMongo:
	default:
		return fmt.Errorf(`invalid argument "%s" for "--backend-database" flag`, c.Database)
	}

	switch c.Broker {
	case BrokerMemory, BrokerRedis:
	default:
		return fmt.Errorf(`invalid argument "%s" for "--backend-broker" flag`, c.Broker)
	}

	return nil
}
