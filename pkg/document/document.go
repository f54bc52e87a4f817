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

// Package document provides the shared text of a room. Replicas converge by
// transforming operations into the single order in which the relay sequences
// them.
package document

import (
	"fmt"
	"sync"

	"github.com/yorkie-team/coedit/pkg/document/operation"
)

// Document is the local replica of the text of one room.
//
// Local operations are sent to the relay one at a time. The relay assigns each
// operation a sequence and delivers it to every replica, its author included.
// A replica rewrites each relayed operation against the relayed operations its
// author had not seen, then against its own operations still waiting to be
// relayed.
type Document struct {
	mu sync.Mutex

	roomID string
	text   string
	log    *Log

	// revision is the sequence of the last relayed operation applied.
	revision int64

	// history holds the relayed operations in sequence order, each rewritten
	// to apply to the text of the revision before it.
	history []*operation.Operation

	// early holds relayed operations received ahead of revision+1.
	early map[int64]*operation.Operation

	// waiting holds the local operations not yet relayed back, rewritten to
	// apply after every relayed operation applied so far.
	waiting []*operation.Operation

	// sent is waiting[0] in the form it was handed out for sending.
	sent *operation.Operation
}

// New creates a new instance of Document.
func New(roomID, userID string) *Document {
	return &Document{
		roomID: roomID,
		log:    NewLog(userID),
		early:  make(map[int64]*operation.Operation),
	}
}

// RoomID returns the id of the room of this document.
func (d *Document) RoomID() string {
	return d.roomID
}

// Log returns the operation log of this document.
func (d *Document) Log() *Log {
	return d.log
}

// Text returns the current text of this document.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.text
}

// Revision returns the sequence of the last relayed operation applied.
func (d *Document) Revision() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.revision
}

// Pending returns the number of local operations not yet relayed back.
func (d *Document) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.waiting)
}

// Insert inserts content at position and returns the created operation.
func (d *Document) Insert(position int, content string) (*operation.Operation, error) {
	return d.applyLocal(func(l *Log) *operation.Operation {
		return l.CreateInsertOperation(position, content)
	})
}

// Delete deletes length runes at position and returns the created operation.
func (d *Document) Delete(position, length int) (*operation.Operation, error) {
	return d.applyLocal(func(l *Log) *operation.Operation {
		return l.CreateDeleteOperation(position, length)
	})
}

// Replace replaces length runes at position with content and returns the
// created operation.
func (d *Document) Replace(position, length int, content string) (*operation.Operation, error) {
	return d.applyLocal(func(l *Log) *operation.Operation {
		return l.CreateReplaceOperation(position, length, content)
	})
}

func (d *Document) applyLocal(create func(l *Log) *operation.Operation) (*operation.Operation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	op := create(d.log)
	text, err := operation.Apply(d.text, op)
	if err != nil {
		return nil, fmt.Errorf("apply local %s: %w", op, err)
	}
	d.text = text
	d.waiting = append(d.waiting, op.DeepCopy())

	return op, nil
}

// Outgoing returns the next local operation to send to the relay, or nil if
// there is none or one is already awaiting relay. Each operation is returned
// once. Its Base is the current revision.
func (d *Document) Outgoing() *operation.Operation {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sent != nil || len(d.waiting) == 0 {
		return nil
	}

	d.sent = d.waiting[0].DeepCopy()
	d.sent.Base = d.revision
	d.sent.Seq = 0
	return d.sent.DeepCopy()
}

// Unacknowledged returns the operation handed out by Outgoing that has not
// been relayed back yet, or nil. It is sent again after a reconnect.
func (d *Document) Unacknowledged() *operation.Operation {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.sent.DeepCopy()
}

// ApplySequenced applies an operation delivered by the relay. Operations
// at or below the current revision are ignored and operations ahead of it are
// held until the gap is filled. It returns, in order, the remote operations it
// applied in the form they were applied to the local text. The own operations
// it acknowledges are not returned.
func (d *Document) ApplySequenced(op *operation.Operation) ([]*operation.Operation, error) {
	if err := op.Validate(); err != nil {
		return nil, fmt.Errorf("apply sequenced: %w", err)
	}
	if op.Seq == 0 {
		return nil, fmt.Errorf("apply sequenced %s without seq: %w", op, operation.ErrInvalidOperation)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if op.Seq <= d.revision {
		return nil, nil
	}
	if _, ok := d.early[op.Seq]; !ok {
		d.early[op.Seq] = op.DeepCopy()
	}

	var applied []*operation.Operation
	var firstErr error
	for {
		next, ok := d.early[d.revision+1]
		if !ok {
			break
		}
		delete(d.early, next.Seq)

		result, err := d.integrate(next)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if result != nil {
			applied = append(applied, result)
		}
	}

	return applied, firstErr
}

// integrate applies the relayed operation of sequence revision+1.
func (d *Document) integrate(op *operation.Operation) (*operation.Operation, error) {
	canonical := op.DeepCopy()
	for _, prior := range d.history[op.Base:] {
		canonical, _ = operation.TransformPair(canonical, prior)
	}
	d.history = append(d.history, canonical)
	d.revision = op.Seq

	if d.sent != nil && d.sent.ID == op.ID {
		d.waiting = d.waiting[1:]
		d.sent = nil
		return nil, nil
	}

	if op.Type == operation.Move {
		if _, err := d.log.ApplyOperation(op); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("apply sequenced %s: %w", op, operation.ErrUnsupportedOperation)
	}

	local := canonical
	for i, w := range d.waiting {
		d.waiting[i], local = operation.TransformPair(w, local)
	}

	text, err := operation.Apply(d.text, local)
	if err != nil {
		return nil, fmt.Errorf("apply sequenced %s: %w", op, err)
	}
	if _, err := d.log.ApplyOperation(op); err != nil {
		return nil, err
	}
	d.text = text

	return local, nil
}
