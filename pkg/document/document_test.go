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

package document_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/coedit/pkg/document"
	"github.com/yorkie-team/coedit/pkg/document/operation"
	"github.com/yorkie-team/coedit/pkg/document/time"
)

func TestLog(t *testing.T) {
	t.Run("create stamps clocks test", func(t *testing.T) {
		l := document.NewLog("A")

		first := l.CreateInsertOperation(0, "a")
		second := l.CreateDeleteOperation(0, 1)

		assert.Equal(t, time.VectorClock{"A": 1}, first.VectorClock)
		assert.Equal(t, time.VectorClock{"A": 2}, second.VectorClock)
		assert.Equal(t, int64(1), first.LamportTimestamp)
		assert.Equal(t, int64(2), second.LamportTimestamp)
		assert.Equal(t, "A", second.UserID)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, 2, l.Len())

		// the returned operation does not alias the log
		first.VectorClock["A"] = 99
		assert.Equal(t, int64(1), l.Operations()[0].VectorClock.Get("A"))
	})

	t.Run("apply merges clocks monotonically test", func(t *testing.T) {
		l := document.NewLog("A")
		l.CreateInsertOperation(0, "a")

		remote := []*operation.Operation{
			{ID: "1", Type: operation.Insert, UserID: "B", Content: "b", VectorClock: time.VectorClock{"B": 3, "C": 1}, LamportTimestamp: 7},
			{ID: "2", Type: operation.Insert, UserID: "C", Content: "c", VectorClock: time.VectorClock{"B": 1, "C": 2}, LamportTimestamp: 2},
			{ID: "3", Type: operation.Delete, UserID: "B", Length: 1, VectorClock: time.VectorClock{"A": 1, "B": 4}, LamportTimestamp: 9},
		}

		previous := l.Clock()
		for _, op := range remote {
			applied, err := l.ApplyOperation(op)
			require.NoError(t, err)
			assert.True(t, applied)

			clock := l.Clock()
			for k, v := range op.VectorClock {
				assert.GreaterOrEqual(t, clock.Get(k), v)
			}
			assert.True(t, clock.Dominates(previous))
			previous = clock
		}

		assert.Equal(t, time.VectorClock{"A": 1, "B": 4, "C": 2}, l.Clock())
		assert.Equal(t, int64(10), l.Lamport())
	})

	t.Run("duplicate and invalid operations test", func(t *testing.T) {
		l := document.NewLog("A")
		op := &operation.Operation{ID: "1", Type: operation.Insert, UserID: "B", Content: "b", VectorClock: time.VectorClock{"B": 1}}

		applied, err := l.ApplyOperation(op)
		assert.NoError(t, err)
		assert.True(t, applied)

		applied, err = l.ApplyOperation(op)
		assert.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, 1, l.Len())

		_, err = l.ApplyOperation(&operation.Operation{ID: "2", Type: "swap", UserID: "B"})
		assert.ErrorIs(t, err, operation.ErrInvalidOperation)
	})

	t.Run("has created and applied operations test", func(t *testing.T) {
		l := document.NewLog("A")
		local := l.CreateInsertOperation(0, "a")
		assert.True(t, l.Has(local.ID))
		assert.False(t, l.Has("2"))

		_, err := l.ApplyOperation(&operation.Operation{ID: "2", Type: operation.Insert, UserID: "B", VectorClock: time.VectorClock{"B": 1}})
		require.NoError(t, err)
		assert.True(t, l.Has("2"))
	})
}

// relay sequences operations in the order they are sent and delivers them to
// replicas on demand.
type relay struct {
	t        *testing.T
	replicas []*document.Document
	ops      []*operation.Operation
	next     []int
}

func newRelay(t *testing.T, replicas ...*document.Document) *relay {
	return &relay{t: t, replicas: replicas, next: make([]int, len(replicas))}
}

// send sequences the outgoing operation of the i-th replica, if any.
func (r *relay) send(i int) bool {
	op := r.replicas[i].Outgoing()
	if op == nil {
		return false
	}
	op.Seq = int64(len(r.ops) + 1)
	r.ops = append(r.ops, op)
	return true
}

// deliver hands the i-th replica every sequenced operation it has not seen.
func (r *relay) deliver(i int) {
	for ; r.next[i] < len(r.ops); r.next[i]++ {
		_, err := r.replicas[i].ApplySequenced(r.ops[r.next[i]].DeepCopy())
		require.NoError(r.t, err)
	}
}

// settle sends and delivers until no replica has anything left to send.
func (r *relay) settle() {
	for {
		sent := false
		for i := range r.replicas {
			if r.send(i) {
				sent = true
			}
		}
		for i := range r.replicas {
			r.deliver(i)
		}
		if !sent {
			return
		}
	}
}

func seed(t *testing.T, r *relay, text string) {
	_, err := r.replicas[0].Insert(0, text)
	require.NoError(t, err)
	r.settle()
	for _, replica := range r.replicas {
		require.Equal(t, text, replica.Text())
	}
}

func TestDocument(t *testing.T) {
	t.Run("two replicas converge test", func(t *testing.T) {
		a := document.New("r1", "A")
		b := document.New("r1", "B")
		r := newRelay(t, a, b)

		_, err := a.Insert(0, "hello")
		require.NoError(t, err)
		assert.Equal(t, "hello", a.Text())

		_, err = b.Insert(0, " world")
		require.NoError(t, err)

		r.settle()
		assert.Equal(t, a.Text(), b.Text())
		assert.Equal(t, "hello world", a.Text())
		assert.Equal(t, int64(2), a.Revision())
		assert.Equal(t, int64(2), b.Revision())
	})

	t.Run("several own operations against one concurrent remote converge test", func(t *testing.T) {
		a := document.New("r1", "A")
		b := document.New("r1", "B")
		r := newRelay(t, a, b)
		seed(t, r, "abcdef")

		_, err := a.Insert(0, "XXX")
		require.NoError(t, err)
		_, err = a.Insert(4, "Y")
		require.NoError(t, err)
		_, err = b.Delete(2, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, a.Pending())

		// both inserts of A are sequenced before the delete B made without
		// seeing either of them
		require.True(t, r.send(0))
		r.deliver(0)
		require.True(t, r.send(0))
		require.True(t, r.send(1))
		r.deliver(0)
		r.deliver(1)

		assert.Equal(t, "XXXaYbef", a.Text())
		assert.Equal(t, a.Text(), b.Text())
		assert.Equal(t, 0, a.Pending())
		assert.Equal(t, 0, b.Pending())
	})

	t.Run("interleaved bursts converge in every send order test", func(t *testing.T) {
		for _, first := range []int{0, 1} {
			a := document.New("r1", "A")
			b := document.New("r1", "B")
			r := newRelay(t, a, b)
			seed(t, r, "0123456789")

			_, err := a.Replace(1, 3, "ab")
			require.NoError(t, err)
			_, err = a.Delete(5, 2)
			require.NoError(t, err)
			_, err = b.Insert(2, "Q")
			require.NoError(t, err)
			_, err = b.Insert(9, "Z")
			require.NoError(t, err)

			r.send(first)
			r.settle()
			assert.Equal(t, a.Text(), b.Text(), "first sender %d", first)
		}
	})

	t.Run("replace and concurrent insert converge for both user orders test", func(t *testing.T) {
		for _, c := range []struct {
			replacer, inserter string
			expected           string
		}{
			{"A", "B", "01ABxy6789"},
			{"B", "A", "01xyAB6789"},
		} {
			replacer := document.New("r1", c.replacer)
			inserter := document.New("r1", c.inserter)
			r := newRelay(t, replacer, inserter)
			seed(t, r, "0123456789")

			_, err := replacer.Replace(2, 4, "AB")
			require.NoError(t, err)
			_, err = inserter.Insert(3, "xy")
			require.NoError(t, err)

			r.settle()
			assert.Equal(t, c.expected, replacer.Text())
			assert.Equal(t, c.expected, inserter.Text())
		}
	})

	t.Run("concurrent edits from three replicas in one order test", func(t *testing.T) {
		replicas := []*document.Document{
			document.New("r1", "A"),
			document.New("r1", "B"),
			document.New("r1", "C"),
		}
		r := newRelay(t, replicas...)
		seed(t, r, "0123456789")

		_, err := replicas[0].Delete(2, 3)
		require.NoError(t, err)
		_, err = replicas[1].Insert(7, "xy")
		require.NoError(t, err)

		r.settle()
		assert.Equal(t, "0156xy789", replicas[0].Text())
		assert.Equal(t, replicas[0].Text(), replicas[1].Text())
		assert.Equal(t, replicas[0].Text(), replicas[2].Text())
	})

	t.Run("outgoing hands out one operation at a time test", func(t *testing.T) {
		a := document.New("r1", "A")

		first, err := a.Insert(0, "x")
		require.NoError(t, err)
		_, err = a.Insert(1, "y")
		require.NoError(t, err)
		assert.Nil(t, a.Unacknowledged())

		out := a.Outgoing()
		require.NotNil(t, out)
		assert.Equal(t, first.ID, out.ID)
		assert.Equal(t, int64(0), out.Base)
		assert.Nil(t, a.Outgoing())
		assert.Equal(t, out.ID, a.Unacknowledged().ID)

		out.Seq = 1
		applied, err := a.ApplySequenced(out)
		require.NoError(t, err)
		assert.Empty(t, applied)
		assert.Equal(t, "xy", a.Text())

		next := a.Outgoing()
		require.NotNil(t, next)
		assert.Equal(t, int64(1), next.Base)
		assert.Equal(t, 1, next.Position)
	})

	t.Run("early operations wait for the gap test", func(t *testing.T) {
		b := document.New("r1", "B")
		first := &operation.Operation{ID: "1", Type: operation.Insert, UserID: "A", Position: 0, Content: "ab", VectorClock: time.VectorClock{"A": 1}, Seq: 1}
		second := &operation.Operation{ID: "2", Type: operation.Insert, UserID: "A", Position: 1, Content: "c", VectorClock: time.VectorClock{"A": 2}, Base: 1, Seq: 2}

		applied, err := b.ApplySequenced(second)
		require.NoError(t, err)
		assert.Empty(t, applied)
		assert.Equal(t, "", b.Text())

		applied, err = b.ApplySequenced(first)
		require.NoError(t, err)
		assert.Len(t, applied, 2)
		assert.Equal(t, "acb", b.Text())
		assert.Equal(t, int64(2), b.Revision())
	})

	t.Run("duplicate remote is ignored test", func(t *testing.T) {
		b := document.New("r1", "B")
		op := &operation.Operation{ID: "1", Type: operation.Insert, UserID: "A", Content: "x", VectorClock: time.VectorClock{"A": 1}, Seq: 1}

		applied, err := b.ApplySequenced(op)
		require.NoError(t, err)
		assert.Len(t, applied, 1)

		applied, err = b.ApplySequenced(op)
		assert.NoError(t, err)
		assert.Nil(t, applied)
		assert.Equal(t, "x", b.Text())
		assert.Equal(t, 1, b.Log().Len())
	})

	t.Run("unsequenced remote is rejected test", func(t *testing.T) {
		b := document.New("r1", "B")
		_, err := b.ApplySequenced(&operation.Operation{ID: "1", Type: operation.Insert, UserID: "A", Content: "x"})
		assert.ErrorIs(t, err, operation.ErrInvalidOperation)
		assert.Equal(t, int64(0), b.Revision())
	})

	t.Run("move is rejected without side effects test", func(t *testing.T) {
		b := document.New("r1", "B")
		_, err := b.ApplySequenced(&operation.Operation{ID: "1", Type: operation.Insert, UserID: "A", Content: "abc", Seq: 1})
		require.NoError(t, err)

		_, err = b.ApplySequenced(&operation.Operation{ID: "m", Type: operation.Move, UserID: "A", VectorClock: time.VectorClock{"A": 2}, Base: 1, Seq: 2})
		assert.ErrorIs(t, err, operation.ErrUnsupportedOperation)
		assert.Equal(t, "abc", b.Text())
		assert.Equal(t, int64(2), b.Revision())

		_, err = b.ApplySequenced(&operation.Operation{ID: "3", Type: operation.Insert, UserID: "A", Position: 3, Content: "d", Base: 2, Seq: 3})
		require.NoError(t, err)
		assert.Equal(t, "abcd", b.Text())
	})
}
