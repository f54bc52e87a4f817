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

// Package presence provides the per-room store of participant presence.
// Presence is last-writer-wins and never causally merged.
package presence

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/yorkie-team/coedit/api/types"
)

// StaleFactor is the number of refresh intervals after which a peer that has
// not refreshed its presence is treated as offline.
const StaleFactor = 3

// StaleThreshold returns the age of lastSeen after which a peer is treated as
// offline, given the interval at which peers re-announce their presence.
func StaleThreshold(refreshInterval time.Duration) time.Duration {
	return StaleFactor * refreshInterval
}

const tblPresences = "presences"

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblPresences: {
			Name: tblPresences,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:   "id",
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "RoomID"},
							&memdb.StringFieldIndex{Field: "UserID"},
						},
					},
				},
				"room_id": {
					Name:    "room_id",
					Indexer: &memdb.StringFieldIndex{Field: "RoomID"},
				},
			},
		},
	},
}

type record struct {
	RoomID   string
	UserID   string
	Presence *types.UserPresence
}

// Store is the presence of the participants of every joined room, keyed by
// room and user. Rooms never share entries.
type Store struct {
	db  *memdb.MemDB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp lastSeen.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new instance of Store.
func NewStore(opts ...Option) (*Store, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Upsert replaces the presence of p.ID in the given room. The color is always
// derived from the id and lastSeen is stamped when it is zero.
func (s *Store) Upsert(roomID string, p *types.UserPresence) (*types.UserPresence, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("upsert presence in %s: missing user id", roomID)
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	stored := p.DeepCopy()
	stored.Color = types.ColorForUser(stored.ID)
	if stored.LastSeen.IsZero() {
		stored.LastSeen = s.now()
	}
	if stored.Status == "" {
		stored.Status = types.StatusOnline
	}

	if err := txn.Insert(tblPresences, &record{RoomID: roomID, UserID: stored.ID, Presence: stored}); err != nil {
		return nil, fmt.Errorf("upsert presence of %s in %s: %w", stored.ID, roomID, err)
	}
	txn.Commit()

	return stored.DeepCopy(), nil
}

// Patch applies fn to the presence of the given user and stamps lastSeen. A
// user that has not been seen yet is created first, so partial events that
// arrive before a join are not lost.
func (s *Store) Patch(roomID, userID string, fn func(p *types.UserPresence)) (*types.UserPresence, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblPresences, "id", roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("find presence of %s in %s: %w", userID, roomID, err)
	}

	var p *types.UserPresence
	if raw == nil {
		p = &types.UserPresence{ID: userID, Status: types.StatusOnline}
	} else {
		p = raw.(*record).Presence.DeepCopy()
	}

	fn(p)
	p.ID = userID
	p.Color = types.ColorForUser(userID)
	p.LastSeen = s.now()

	if err := txn.Insert(tblPresences, &record{RoomID: roomID, UserID: userID, Presence: p}); err != nil {
		return nil, fmt.Errorf("patch presence of %s in %s: %w", userID, roomID, err)
	}
	txn.Commit()

	return p.DeepCopy(), nil
}

// Get returns the presence of the given user in the given room.
func (s *Store) Get(roomID, userID string) (*types.UserPresence, bool) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblPresences, "id", roomID, userID)
	if err != nil || raw == nil {
		return nil, false
	}
	return raw.(*record).Presence.DeepCopy(), true
}

// List returns the presences of the given room ordered by user id.
func (s *Store) List(roomID string) []*types.UserPresence {
	txn := s.db.Txn(false)
	defer txn.Abort()

	return s.list(txn, roomID)
}

func (s *Store) list(txn *memdb.Txn, roomID string) []*types.UserPresence {
	iter, err := txn.Get(tblPresences, "room_id", roomID)
	if err != nil {
		return nil
	}

	var presences []*types.UserPresence
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		presences = append(presences, raw.(*record).Presence.DeepCopy())
	}
	sort.Slice(presences, func(i, j int) bool {
		return presences[i].ID < presences[j].ID
	})
	return presences
}

// Remove removes the presence of the given user. It returns false if there
// was none.
func (s *Store) Remove(roomID, userID string) (bool, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblPresences, "id", roomID, userID)
	if err != nil {
		return false, fmt.Errorf("find presence of %s in %s: %w", userID, roomID, err)
	}
	if raw == nil {
		return false, nil
	}

	if err := txn.Delete(tblPresences, raw); err != nil {
		return false, fmt.Errorf("remove presence of %s in %s: %w", userID, roomID, err)
	}
	txn.Commit()

	return true, nil
}

// RemoveRoom removes every presence of the given room and returns how many
// were removed.
func (s *Store) RemoveRoom(roomID string) (int, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	n, err := txn.DeleteAll(tblPresences, "room_id", roomID)
	if err != nil {
		return 0, fmt.Errorf("remove presences of %s: %w", roomID, err)
	}
	txn.Commit()

	return n, nil
}

// Stale returns the presences of the given room whose lastSeen is older than
// threshold, excluding the given user.
func (s *Store) Stale(roomID, exceptUserID string, threshold time.Duration) []*types.UserPresence {
	deadline := s.now().Add(-threshold)

	var stale []*types.UserPresence
	for _, p := range s.List(roomID) {
		if p.ID != exceptUserID && p.LastSeen.Before(deadline) {
			stale = append(stale, p)
		}
	}
	return stale
}

// ExpireStale marks the stale presences of the given room offline and
// returns the ones that changed. lastSeen is kept as it was.
func (s *Store) ExpireStale(roomID, exceptUserID string, threshold time.Duration) ([]*types.UserPresence, error) {
	deadline := s.now().Add(-threshold)

	txn := s.db.Txn(true)
	defer txn.Abort()

	var expired []*types.UserPresence
	for _, p := range s.list(txn, roomID) {
		if p.ID == exceptUserID || p.Status == types.StatusOffline || !p.LastSeen.Before(deadline) {
			continue
		}

		p.Status = types.StatusOffline
		p.Typing = false
		if err := txn.Insert(tblPresences, &record{RoomID: roomID, UserID: p.ID, Presence: p}); err != nil {
			return nil, fmt.Errorf("expire presence of %s in %s: %w", p.ID, roomID, err)
		}
		expired = append(expired, p.DeepCopy())
	}
	txn.Commit()

	return expired, nil
}
