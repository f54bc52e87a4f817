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

// Package mongo implements database interfaces using MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	gotime "time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/pkg/document/operation"
	"github.com/yorkie-team/coedit/server/backend/database"
)

// appendRetries is the number of attempts to append an operation when
// another writer took the same sequence.
const appendRetries = 5

// Client is a client that connects to Mongo DB and reads or saves rooms.
type Client struct {
	config *Config
	client *mongo.Client
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(conf.ConnectionURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, conf.ParsePingTimeout())
	defer cancelPing()

	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if err := ensureIndexes(ctx, client.Database(conf.Database)); err != nil {
		return nil, err
	}

	logging.DefaultLogger().Infof("MongoDB connected, URI: %s, DB: %s", conf.ConnectionURI, conf.Database)

	return &Client{
		config: conf,
		client: client,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("close mongo client: %w", err)
	}

	return nil
}

// CreateRoom creates the given room.
func (c *Client) CreateRoom(ctx context.Context, room *types.Room) (*types.Room, error) {
	if room.ID == "" {
		return nil, fmt.Errorf("create room: empty id")
	}

	created := room.DeepCopy()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = gotime.Now()
	}
	// BSON keeps milliseconds only.
	created.CreatedAt = created.CreatedAt.Truncate(gotime.Millisecond)
	if created.Participants == nil {
		created.Participants = []string{}
	}

	if _, err := c.collection(ColRooms).InsertOne(ctx, created); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", room.ID, database.ErrRoomAlreadyExists)
		}
		return nil, fmt.Errorf("create room: %w", err)
	}

	return created, nil
}

// FindRoomByID returns the room of the given id.
func (c *Client) FindRoomByID(ctx context.Context, id string) (*types.Room, error) {
	result := c.collection(ColRooms).FindOne(ctx, bson.M{
		"_id": id,
	})

	return decodeRoom(id, result)
}

// ListRooms returns the rooms of the given project ordered by creation.
func (c *Client) ListRooms(ctx context.Context, projectID string) ([]*types.Room, error) {
	filter := bson.M{}
	if projectID != "" {
		filter["project_id"] = projectID
	}

	cursor, err := c.collection(ColRooms).Find(ctx, filter, options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	}))
	if err != nil {
		return nil, fmt.Errorf("find rooms of %q: %w", projectID, err)
	}

	rooms := []*types.Room{}
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("fetch rooms of %q: %w", projectID, err)
	}
	for _, room := range rooms {
		normalizeRoom(room)
	}

	return rooms, nil
}

// AddParticipant adds the user to the participants of the room.
func (c *Client) AddParticipant(ctx context.Context, roomID, userID string) (*types.Room, error) {
	room, err := c.FindRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HasParticipant(userID) {
		return room, nil
	}

	filter := bson.M{"_id": roomID}
	if room.MaxParticipants != nil {
		filter["$expr"] = bson.M{
			"$lt": bson.A{bson.M{"$size": "$participants"}, *room.MaxParticipants},
		}
	}

	result := c.collection(ColRooms).FindOneAndUpdate(ctx, filter, bson.M{
		"$addToSet": bson.M{"participants": userID},
	}, options.FindOneAndUpdate().SetReturnDocument(options.After))

	updated, err := decodeRoom(roomID, result)
	if errors.Is(err, database.ErrRoomNotFound) {
		return nil, fmt.Errorf("%s: %w", roomID, database.ErrRoomFull)
	}
	return updated, err
}

// RemoveParticipant removes the user from the participants of the room.
func (c *Client) RemoveParticipant(ctx context.Context, roomID, userID string) (*types.Room, error) {
	result := c.collection(ColRooms).FindOneAndUpdate(ctx, bson.M{
		"_id": roomID,
	}, bson.M{
		"$pull": bson.M{"participants": userID},
	}, options.FindOneAndUpdate().SetReturnDocument(options.After))

	return decodeRoom(roomID, result)
}

// AppendOperation appends op to the log of the room.
func (c *Client) AppendOperation(ctx context.Context, roomID string, op *operation.Operation) (int64, error) {
	if _, err := c.FindRoomByID(ctx, roomID); err != nil {
		return 0, err
	}

	for range appendRetries {
		existing := &database.OperationInfo{}
		err := c.collection(ColOperations).FindOne(ctx, bson.M{
			"room_id": roomID,
			"op_id":   op.ID,
		}).Decode(existing)
		if err == nil {
			return existing.Seq, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return 0, fmt.Errorf("find operation %s: %w", op.ID, err)
		}

		last := &database.OperationInfo{}
		var seq int64
		err = c.collection(ColOperations).FindOne(ctx, bson.M{
			"room_id": roomID,
		}, options.FindOne().SetSort(bson.M{"seq": -1})).Decode(last)
		switch {
		case err == nil:
			seq = last.Seq + 1
		case errors.Is(err, mongo.ErrNoDocuments):
			seq = 1
		default:
			return 0, fmt.Errorf("find last operation of %s: %w", roomID, err)
		}

		if _, err := c.collection(ColOperations).InsertOne(ctx, &database.OperationInfo{
			RoomID:    roomID,
			Seq:       seq,
			OpID:      op.ID,
			Operation: op,
		}); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return 0, fmt.Errorf("insert operation %s: %w", op.ID, err)
		}

		return seq, nil
	}

	return 0, fmt.Errorf("append operation %s to %s: sequence contended", op.ID, roomID)
}

// FindOperationsAfter returns the operations of the room after seq.
func (c *Client) FindOperationsAfter(ctx context.Context, roomID string, seq int64) ([]*database.OperationInfo, error) {
	cursor, err := c.collection(ColOperations).Find(ctx, bson.M{
		"room_id": roomID,
		"seq":     bson.M{"$gt": seq},
	}, options.Find().SetSort(bson.M{"seq": 1}))
	if err != nil {
		return nil, fmt.Errorf("find operations of %s: %w", roomID, err)
	}

	var infos []*database.OperationInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("fetch operations of %s: %w", roomID, err)
	}

	return infos, nil
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.client.Database(c.config.Database).Collection(name)
}

func decodeRoom(id string, result *mongo.SingleResult) (*types.Room, error) {
	room := &types.Room{}
	if err := result.Decode(room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", id, database.ErrRoomNotFound)
		}
		return nil, fmt.Errorf("decode room: %w", err)
	}

	normalizeRoom(room)
	return room, nil
}

// normalizeRoom converts the nested documents of the metadata decoded by the
// driver into plain maps and slices.
func normalizeRoom(room *types.Room) {
	if room.Participants == nil {
		room.Participants = []string{}
	}
	for k, v := range room.Metadata {
		room.Metadata[k] = normalize(v)
	}
}

func normalize(v any) any {
	switch value := v.(type) {
	case bson.D:
		m := make(map[string]any, len(value))
		for _, e := range value {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(value))
		for k, e := range value {
			m[k] = normalize(e)
		}
		return m
	case bson.A:
		s := make([]any, len(value))
		for i, e := range value {
			s[i] = normalize(e)
		}
		return s
	default:
		return v
	}
}
