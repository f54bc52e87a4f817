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

// Package pubsub provides a synchronous typed publish-subscribe bus.
package pubsub

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/xid"

	"github.com/yorkie-team/coedit/internal/logging"
)

// Handler handles an event published to a bus.
type Handler[E any] func(event E)

type subscription[E any] struct {
	id      string
	seq     uint64
	handler Handler[E]
}

// Bus delivers events of type E to the subscribers of key K. Delivery is
// synchronous and in subscription order. A panicking handler is recovered
// and logged, and does not stop delivery to the others.
type Bus[K comparable, E any] struct {
	mu     sync.RWMutex
	seq    uint64
	keyed  map[K][]*subscription[E]
	all    []*subscription[E]
	name   string
	logger logging.Logger
}

// New creates a new instance of Bus.
func New[K comparable, E any](name string, logger logging.Logger) *Bus[K, E] {
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &Bus[K, E]{
		keyed:  make(map[K][]*subscription[E]),
		name:   name,
		logger: logger,
	}
}

// Subscribe subscribes handler to the events of key. The returned function
// unsubscribes and is safe to call more than once.
func (b *Bus[K, E]) Subscribe(key K, handler Handler[E]) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := b.newSubscription(handler)
	b.keyed[key] = append(b.keyed[key], sub)

	return b.unsubscriber(func() {
		b.keyed[key] = remove(b.keyed[key], sub.id)
		if len(b.keyed[key]) == 0 {
			delete(b.keyed, key)
		}
	})
}

// SubscribeAll subscribes handler to the events of every key.
func (b *Bus[K, E]) SubscribeAll(handler Handler[E]) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := b.newSubscription(handler)
	b.all = append(b.all, sub)

	return b.unsubscriber(func() {
		b.all = remove(b.all, sub.id)
	})
}

func (b *Bus[K, E]) newSubscription(handler Handler[E]) *subscription[E] {
	b.seq++
	return &subscription[E]{id: xid.New().String(), seq: b.seq, handler: handler}
}

func (b *Bus[K, E]) unsubscriber(fn func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			fn()
		})
	}
}

// Publish delivers event to the subscribers of key and to the subscribers
// of every key, and returns the number of handlers that returned normally.
func (b *Bus[K, E]) Publish(key K, event E) int {
	b.mu.RLock()
	subs := make([]*subscription[E], 0, len(b.keyed[key])+len(b.all))
	subs = append(subs, b.keyed[key]...)
	subs = append(subs, b.all...)
	b.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool {
		return subs[i].seq < subs[j].seq
	})

	delivered := 0
	for _, sub := range subs {
		if err := b.deliver(sub, event); err != nil {
			b.logger.Errorf("%s: handler %s of %v: %v", b.name, sub.id, key, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (b *Bus[K, E]) deliver(sub *subscription[E], event E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	sub.handler(event)
	return nil
}

// Len returns the number of subscriptions.
func (b *Bus[K, E]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.all)
	for _, subs := range b.keyed {
		n += len(subs)
	}
	return n
}

func remove[E any](subs []*subscription[E], id string) []*subscription[E] {
	for i, sub := range subs {
		if sub.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}
