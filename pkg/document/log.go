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

package document

import (
	"fmt"
	"sync"
	gotime "time"

	"github.com/google/uuid"

	"github.com/yorkie-team/coedit/pkg/document/operation"
	"github.com/yorkie-team/coedit/pkg/document/time"
)

// Log is the append-only operation log of one replica. It owns the vector
// clock and the Lamport clock of the replica.
type Log struct {
	mu sync.RWMutex

	userID  string
	clock   time.VectorClock
	lamport time.Lamport
	entries []*operation.Operation
	index   map[string]int
}

// NewLog creates a new instance of Log for the given user.
func NewLog(userID string) *Log {
	return &Log{
		userID: userID,
		clock:  time.NewVectorClock(),
		index:  make(map[string]int),
	}
}

// UserID returns the id of the user owning this log.
func (l *Log) UserID() string {
	return l.userID
}

// CreateInsertOperation creates and records a local insert operation.
func (l *Log) CreateInsertOperation(position int, content string) *operation.Operation {
	return l.create(&operation.Operation{
		Type:     operation.Insert,
		Position: position,
		Content:  content,
	})
}

// CreateDeleteOperation creates and records a local delete operation.
func (l *Log) CreateDeleteOperation(position, length int) *operation.Operation {
	return l.create(&operation.Operation{
		Type:     operation.Delete,
		Position: position,
		Length:   length,
	})
}

// CreateReplaceOperation creates and records a local replace operation.
func (l *Log) CreateReplaceOperation(position, length int, content string) *operation.Operation {
	return l.create(&operation.Operation{
		Type:     operation.Replace,
		Position: position,
		Length:   length,
		Content:  content,
	})
}

func (l *Log) create(op *operation.Operation) *operation.Operation {
	l.mu.Lock()
	defer l.mu.Unlock()

	op.ID = uuid.NewString()
	op.UserID = l.userID
	op.Timestamp = gotime.Now().UnixMilli()
	l.clock.Increment(l.userID)
	op.VectorClock = l.clock.Copy()
	op.LamportTimestamp = l.lamport.Tick()

	l.append(op)
	return op.DeepCopy()
}

// ApplyOperation records a remote operation. It merges the clock of op into
// the local clock and advances the Lamport clock past op. It returns false
// if op was already recorded.
func (l *Log) ApplyOperation(op *operation.Operation) (bool, error) {
	if err := op.Validate(); err != nil {
		return false, fmt.Errorf("record %s: %w", op.ID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[op.ID]; ok {
		return false, nil
	}

	l.clock.Merge(op.VectorClock)
	l.lamport.Witness(op.LamportTimestamp)
	l.append(op.DeepCopy())
	return true, nil
}

func (l *Log) append(op *operation.Operation) {
	l.index[op.ID] = len(l.entries)
	l.entries = append(l.entries, op)
}

// Has returns whether the operation of the given id is recorded.
func (l *Log) Has(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.index[id]
	return ok
}

// Clock returns a copy of the vector clock of this log.
func (l *Log) Clock() time.VectorClock {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.clock.Copy()
}

// Lamport returns the current Lamport timestamp of this log.
func (l *Log) Lamport() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.lamport.Value()
}

// Len returns the number of recorded operations.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

// Operations returns copies of the recorded operations in log order.
func (l *Log) Operations() []*operation.Operation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ops := make([]*operation.Operation, 0, len(l.entries))
	for _, op := range l.entries {
		ops = append(ops, op.DeepCopy())
	}
	return ops
}
