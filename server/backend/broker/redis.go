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
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/yorkie-team/coedit/internal/logging"
)

// Redis is the broker of servers sharing rooms through Redis pub/sub. Each
// room is a channel named by the prefix and the room id.
type Redis struct {
	conf   *Config
	client *redis.Client
	logger logging.Logger
}

// DialRedis creates an instance of Redis and pings the server.
func DialRedis(ctx context.Context, conf *Config, logger logging.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", conf.Addr, err)
	}

	logger.Infof("Redis connected, Addr: %s", conf.Addr)

	return &Redis{
		conf:   conf,
		client: client,
		logger: logger,
	}, nil
}

func (r *Redis) channel(roomID string) string {
	return r.conf.ChannelPrefix + ":" + roomID
}

// Publish publishes the message to the channel of its room.
func (r *Redis) Publish(ctx context.Context, msg *Message) error {
	encoded, err := msg.Marshal()
	if err != nil {
		return err
	}

	if err := r.client.Publish(ctx, r.channel(msg.RoomID), encoded).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.RoomID, err)
	}
	return nil
}

// Subscribe subscribes handler to the channel of the room. It returns once
// the subscription is confirmed by the server.
func (r *Redis) Subscribe(ctx context.Context, roomID string, handler func(msg *Message)) (func(), error) {
	ps := r.client.Subscribe(ctx, r.channel(roomID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", roomID, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for m := range ps.Channel() {
			msg, err := Unmarshal([]byte(m.Payload))
			if err != nil {
				r.logger.Warnf("drop message of %s: %v", roomID, err)
				continue
			}
			handler(msg)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := ps.Close(); err != nil {
				r.logger.Warnf("unsubscribe from %s: %v", roomID, err)
			}
			<-done
		})
	}, nil
}

// Close closes the connection to Redis.
func (r *Redis) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
