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

// Package broker provides the fanout of room messages between the relay
// servers sharing a room.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message is a room message published by the connection Origin.
type Message struct {
	// Origin is the id of the connection the message came from. It is not
	// delivered back to it unless Echo is set.
	Origin string `json:"origin"`
	Echo   bool   `json:"echo,omitempty"`

	RoomID   string          `json:"roomId"`
	Envelope json.RawMessage `json:"envelope"`
}

// Marshal marshals the message to JSON.
func (m *Message) Marshal() ([]byte, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	return encoded, nil
}

// Unmarshal decodes a message encoded by Marshal.
func Unmarshal(data []byte) (*Message, error) {
	m := &Message{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return m, nil
}

// Broker is the publisher and subscriber of room messages.
type Broker interface {
	// Publish publishes the message to the subscribers of its room.
	Publish(ctx context.Context, msg *Message) error

	// Subscribe subscribes handler to the messages of the room. The returned
	// function unsubscribes.
	Subscribe(ctx context.Context, roomID string, handler func(msg *Message)) (func(), error)

	// Close closes the broker.
	Close() error
}
