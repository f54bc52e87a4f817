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
	"context"

	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/pkg/pubsub"
)

// Memory is the broker of a single server. Messages are delivered
// synchronously to the subscribers of the room.
type Memory struct {
	bus *pubsub.Bus[string, *Message]
}

// NewMemory creates an instance of Memory.
func NewMemory(logger logging.Logger) *Memory {
	return &Memory{
		bus: pubsub.New[string, *Message]("broker", logger),
	}
}

// Publish publishes the message to the subscribers of its room.
func (m *Memory) Publish(_ context.Context, msg *Message) error {
	m.bus.Publish(msg.RoomID, msg)
	return nil
}

// Subscribe subscribes handler to the messages of the room.
func (m *Memory) Subscribe(_ context.Context, roomID string, handler func(msg *Message)) (func(), error) {
	return m.bus.Subscribe(roomID, handler), nil
}

// Close closes the broker.
func (m *Memory) Close() error {
	return nil
}
