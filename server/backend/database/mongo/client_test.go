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

package mongo_test

import (
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/coedit/server/backend/database/mongo"
	"github.com/yorkie-team/coedit/server/backend/database/testcases"
)

func setupTestClient(t *testing.T) *mongo.Client {
	if testing.Short() {
		t.Skip("mongo tests need a running MongoDB")
	}

	config := &mongo.Config{
		ConnectionTimeout: "5s",
		ConnectionURI:     "mongodb://localhost:27017",
		Database:          "test-coedit-" + xid.New().String(),
		PingTimeout:       "1s",
	}
	assert.NoError(t, config.Validate())

	cli, err := mongo.Dial(config)
	if err != nil {
		t.Skipf("mongo is not available: %v", err)
	}
	t.Cleanup(func() {
		assert.NoError(t, cli.Close())
	})

	return cli
}

func TestClient(t *testing.T) {
	cli := setupTestClient(t)

	t.Run("RunRoom test", func(t *testing.T) {
		testcases.RunRoomTest(t, cli)
	})

	t.Run("RunOperation test", func(t *testing.T) {
		testcases.RunOperationTest(t, cli)
	})
}

func TestConfig(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		config := &mongo.Config{
			ConnectionTimeout: "5s",
			PingTimeout:       "5s",
			Database:          "coedit",
		}
		assert.NoError(t, config.Validate())

		config.ConnectionTimeout = "5"
		assert.Error(t, config.Validate())

		config.ConnectionTimeout = "5s"
		config.PingTimeout = "5"
		assert.Error(t, config.Validate())

		config.PingTimeout = "5s"
		config.ConnectionURI = "postgres://localhost"
		assert.ErrorContains(t, config.Validate(), "--mongo-connection-uri")

		config.ConnectionURI = "mongodb+srv://cluster.example.com"
		assert.NoError(t, config.Validate())

		config.Database = ""
		assert.ErrorContains(t, config.Validate(), "--mongo-database")
		assert.Equal(t, 5*time.Second, (&mongo.Config{PingTimeout: "soon"}).ParsePingTimeout())
	})
}
