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

package broker_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/server/backend/broker"
)

type collector struct {
	mu   sync.Mutex
	msgs []*broker.Message
}

func (c *collector) handle(msg *broker.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func runBrokerTest(t *testing.T, b broker.Broker) {
	ctx := context.Background()
	roomID := xid.New().String()

	first, second, other := &collector{}, &collector{}, &collector{}
	unsubFirst, err := b.Subscribe(ctx, roomID, first.handle)
	require.NoError(t, err)
	unsubSecond, err := b.Subscribe(ctx, roomID, second.handle)
	require.NoError(t, err)
	unsubOther, err := b.Subscribe(ctx, xid.New().String(), other.handle)
	require.NoError(t, err)
	defer unsubSecond()
	defer unsubOther()

	msg := &broker.Message{Origin: "conn-1", RoomID: roomID, Envelope: json.RawMessage(`{"type":"cursor_move"}`)}
	require.NoError(t, b.Publish(ctx, msg))

	assert.Eventually(t, func() bool {
		return first.len() == 1 && second.len() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, other.len())
	assert.Equal(t, "conn-1", first.msgs[0].Origin)
	assert.JSONEq(t, `{"type":"cursor_move"}`, string(first.msgs[0].Envelope))

	unsubFirst()
	unsubFirst()
	require.NoError(t, b.Publish(ctx, msg))
	assert.Eventually(t, func() bool {
		return second.len() == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, first.len())
}

func TestMemory(t *testing.T) {
	t.Run("publish to room subscribers test", func(t *testing.T) {
		runBrokerTest(t, broker.NewMemory(logging.Nop()))
	})
}

func TestRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("redis tests need a running Redis")
	}

	conf := &broker.Config{Addr: "localhost:6379", ChannelPrefix: "test-coedit"}
	require.NoError(t, conf.Validate())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	b, err := broker.DialRedis(ctx, conf, logging.Nop())
	if err != nil {
		t.Skipf("redis is not available: %v", err)
	}
	defer func() { assert.NoError(t, b.Close()) }()

	t.Run("publish to room subscribers test", func(t *testing.T) {
		runBrokerTest(t, b)
	})
}

func TestConfig(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		conf := &broker.Config{Addr: "localhost:6379", ChannelPrefix: "coedit"}
		assert.NoError(t, conf.Validate())

		conf.ChannelPrefix = ""
		assert.ErrorIs(t, conf.Validate(), broker.ErrEmptyChannelPrefix)

		conf.ChannelPrefix = "coedit"
		conf.Addr = ""
		assert.ErrorIs(t, conf.Validate(), broker.ErrEmptyAddress)

		conf.Addr = "localhost"
		assert.Error(t, conf.Validate())
	})
}
