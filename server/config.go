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

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yorkie-team/coedit/server/backend"
	"github.com/yorkie-team/coedit/server/backend/broker"
	"github.com/yorkie-team/coedit/server/backend/database/mongo"
	"github.com/yorkie-team/coedit/server/hub"
	"github.com/yorkie-team/coedit/server/profiling"
	"github.com/yorkie-team/coedit/server/rpc"
)

// Below are the values of the default values of the server config.
const (
	DefaultRPCPort       = 3001
	DefaultProfilingPort = 3002

	DefaultBackendDatabase = backend.DatabaseMemory
	DefaultBackendBroker   = backend.BrokerMemory

	DefaultMongoConnectionURI     = "mongodb://localhost:27017"
	DefaultMongoConnectionTimeout = 5 * time.Second
	DefaultMongoPingTimeout       = 5 * time.Second
	DefaultMongoDatabase          = "coedit"

	DefaultRedisAddr          = "localhost:6379"
	DefaultRedisChannelPrefix = "coedit"

	DefaultHostname = ""
)

// Config is the configuration for creating a Server instance.
type Config struct {
	RPC       *rpc.Config       `yaml:"RPC"`
	Hub       *hub.Config       `yaml:"Hub"`
	Profiling *profiling.Config `yaml:"Profiling"`
	Backend   *backend.Config   `yaml:"Backend"`
	Mongo     *mongo.Config     `yaml:"Mongo"`
	Redis     *broker.Config    `yaml:"Redis"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	return newConfig(DefaultRPCPort, DefaultProfilingPort)
}

// NewConfigFromFile returns a Config struct for the given conf file.
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

// RPCAddr returns the RPC address.
func (c *Config) RPCAddr() string {
	return fmt.Sprintf("localhost:%d", c.RPC.Port)
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.RPC.Validate(); err != nil {
		return err
	}

	if err := c.Hub.Validate(); err != nil {
		return err
	}

	if err := c.Profiling.Validate(); err != nil {
		return err
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Backend.Database == backend.DatabaseMongo && c.Mongo == nil {
		return fmt.Errorf("mongo database: %w", ErrMissingConfig)
	}
	if c.Mongo != nil {
		if err := c.Mongo.Validate(); err != nil {
			return err
		}
	}

	if c.Backend.Broker == backend.BrokerRedis && c.Redis == nil {
		return fmt.Errorf("redis broker: %w", ErrMissingConfig)
	}
	if c.Redis != nil {
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	if c.RPC == nil {
		c.RPC = &rpc.Config{}
	}
	if c.RPC.Port == 0 {
		c.RPC.Port = DefaultRPCPort
	}
	if c.RPC.ReadHeaderTimeout == "" {
		c.RPC.ReadHeaderTimeout = rpc.DefaultReadHeaderTimeout.String()
	}

	if c.Hub == nil {
		c.Hub = hub.NewConfig()
	}
	if c.Hub.Path == "" {
		c.Hub.Path = hub.DefaultPath
	}
	if c.Hub.WriteTimeout == "" {
		c.Hub.WriteTimeout = hub.DefaultWriteTimeout.String()
	}
	if c.Hub.SendBufferSize == 0 {
		c.Hub.SendBufferSize = hub.DefaultSendBufferSize
	}
	if c.Hub.MaxMessageBytes == 0 {
		c.Hub.MaxMessageBytes = hub.DefaultMaxMessageBytes
	}

	if c.Profiling == nil {
		c.Profiling = &profiling.Config{}
	}
	if c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Backend == nil {
		c.Backend = &backend.Config{}
	}
	if c.Backend.Database == "" {
		c.Backend.Database = DefaultBackendDatabase
	}
	if c.Backend.Broker == "" {
		c.Backend.Broker = DefaultBackendBroker
	}

	if c.Mongo != nil {
		if c.Mongo.ConnectionURI == "" {
			c.Mongo.ConnectionURI = DefaultMongoConnectionURI
		}
		if c.Mongo.ConnectionTimeout == "" {
			c.Mongo.ConnectionTimeout = DefaultMongoConnectionTimeout.String()
		}
		if c.Mongo.Database == "" {
			c.Mongo.Database = DefaultMongoDatabase
		}
		if c.Mongo.PingTimeout == "" {
			c.Mongo.PingTimeout = DefaultMongoPingTimeout.String()
		}
	}

	if c.Redis != nil {
		if c.Redis.Addr == "" {
			c.Redis.Addr = DefaultRedisAddr
		}
		if c.Redis.ChannelPrefix == "" {
			c.Redis.ChannelPrefix = DefaultRedisChannelPrefix
		}
	}
}

func newConfig(port int, profilingPort int) *Config {
	return &Config{
		RPC: &rpc.Config{
			Port:              port,
			ReadHeaderTimeout: rpc.DefaultReadHeaderTimeout.String(),
		},
		Hub: hub.NewConfig(),
		Profiling: &profiling.Config{
			Port: profilingPort,
		},
		Backend: &backend.Config{
			Database: DefaultBackendDatabase,
			Broker:   DefaultBackendBroker,
			Hostname: DefaultHostname,
		},
	}
}

// NewMongoConfig returns a mongo config with the default values.
func NewMongoConfig() *mongo.Config {
	return &mongo.Config{
		ConnectionURI:     DefaultMongoConnectionURI,
		ConnectionTimeout: DefaultMongoConnectionTimeout.String(),
		PingTimeout:       DefaultMongoPingTimeout.String(),
		Database:          DefaultMongoDatabase,
	}
}

// NewRedisConfig returns a redis config with the default values.
func NewRedisConfig() *broker.Config {
	return &broker.Config{
		Addr:          DefaultRedisAddr,
		ChannelPrefix: DefaultRedisChannelPrefix,
	}
}
