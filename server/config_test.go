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

package server_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/coedit/server"
	"github.com/yorkie-team/coedit/server/backend"
	"github.com/yorkie-team/coedit/server/hub"
	"github.com/yorkie-team/coedit/server/rpc"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewConfigFromFile(t *testing.T) {
	t.Run("fail read config file test", func(t *testing.T) {
		conf := server.NewConfig()
		assert.Equal(t, conf.RPCAddr(), "localhost:"+strconv.Itoa(server.DefaultRPCPort))
		_, err := server.NewConfigFromFile("nowhere.yml")
		assert.Error(t, err)
		assert.Equal(t, conf.RPC.Port, server.DefaultRPCPort)
		assert.Equal(t, conf.RPC.CertFile, "")
		assert.Equal(t, conf.RPC.KeyFile, "")
		assert.Equal(t, hub.DefaultPath, conf.Hub.Path)
		assert.NoError(t, conf.Validate())
	})

	t.Run("read config file test", func(t *testing.T) {
		conf, err := server.NewConfigFromFile(writeConfig(t, `
RPC:
  Port: 4001
Hub:
  SendBufferSize: 16
  AllowedOrigins:
    - http://localhost:5173
Backend:
  Database: mongo
  Broker: redis
Mongo:
  Database: collab
Redis:
  Addr: redis:6379
`))
		require.NoError(t, err)
		assert.NoError(t, conf.Validate())

		assert.Equal(t, 4001, conf.RPC.Port)
		assert.Equal(t, rpc.DefaultReadHeaderTimeout, conf.RPC.ParseReadHeaderTimeout())
		assert.Equal(t, server.DefaultProfilingPort, conf.Profiling.Port)

		assert.Equal(t, hub.DefaultPath, conf.Hub.Path)
		assert.Equal(t, 16, conf.Hub.SendBufferSize)
		assert.Equal(t, hub.DefaultWriteTimeout, conf.Hub.ParseWriteTimeout())
		assert.Equal(t, []string{"http://localhost:5173"}, conf.Hub.AllowedOrigins)

		assert.Equal(t, backend.DatabaseMongo, conf.Backend.Database)
		assert.Equal(t, "collab", conf.Mongo.Database)
		assert.Equal(t, server.DefaultMongoConnectionURI, conf.Mongo.ConnectionURI)
		assert.Equal(t, server.DefaultMongoPingTimeout, conf.Mongo.ParsePingTimeout())

		assert.Equal(t, backend.BrokerRedis, conf.Backend.Broker)
		assert.Equal(t, "redis:6379", conf.Redis.Addr)
		assert.Equal(t, server.DefaultRedisChannelPrefix, conf.Redis.ChannelPrefix)
	})

	t.Run("empty config file test", func(t *testing.T) {
		conf, err := server.NewConfigFromFile(writeConfig(t, "{}"))
		require.NoError(t, err)
		assert.NoError(t, conf.Validate())
		assert.Equal(t, server.NewConfig(), conf)
	})
}

func TestConfig(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		conf := server.NewConfig()
		assert.NoError(t, conf.Validate())

		conf.RPC.Port = 0
		assert.ErrorIs(t, conf.Validate(), rpc.ErrInvalidRPCPort)

		conf = server.NewConfig()
		conf.Backend.Database = backend.DatabaseMongo
		assert.ErrorIs(t, conf.Validate(), server.ErrMissingConfig)
		conf.Mongo = server.NewMongoConfig()
		assert.NoError(t, conf.Validate())

		conf = server.NewConfig()
		conf.Backend.Broker = backend.BrokerRedis
		assert.ErrorIs(t, conf.Validate(), server.ErrMissingConfig)
		conf.Redis = server.NewRedisConfig()
		assert.NoError(t, conf.Validate())

		conf = server.NewConfig()
		conf.Backend.Broker = "kafka"
		assert.Error(t, conf.Validate())
	})
}
