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

// Package rooms provides the client of the room side channel of the relay
// server: fetching, creating and listing rooms over HTTP.
package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/pkg/errors"
)

const basePath = "/collaboration/rooms"

// ErrorBody is the body of an error response of the side channel.
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Options are the options of the room client.
type Options struct {
	HTTPClient *http.Client

	CacheSize int
	CacheTTL  time.Duration

	MaxRetries      uint64
	RetryInterval   time.Duration
	MaxWaitInterval time.Duration

	Logger logging.Logger
}

// Client fetches and creates rooms. Fetched rooms are cached until they are
// invalidated or expire.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *expirable.LRU[string, *types.Room]
	options Options
	logger  logging.Logger
}

// NewClient creates a new instance of Client for the server at baseURL, e.g.
// "http://localhost:3001".
func NewClient(baseURL string, options Options) *Client {
	if options.HTTPClient == nil {
		options.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if options.CacheSize <= 0 {
		options.CacheSize = 128
	}
	if options.RetryInterval <= 0 {
		options.RetryInterval = 100 * time.Millisecond
	}
	if options.MaxWaitInterval <= 0 {
		options.MaxWaitInterval = 3 * time.Second
	}
	if options.Logger == nil {
		options.Logger = logging.DefaultLogger()
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    options.HTTPClient,
		cache:   expirable.NewLRU[string, *types.Room](options.CacheSize, nil, options.CacheTTL),
		options: options,
		logger:  options.Logger,
	}
}

// GetRoom returns the room of the given id. It returns ErrRoomNotFound if the
// room does not exist.
func (c *Client) GetRoom(ctx context.Context, id string) (*types.Room, error) {
	if room, ok := c.cache.Get(id); ok {
		return room.DeepCopy(), nil
	}

	room := &types.Room{}
	if err := c.do(ctx, http.MethodGet, basePath+"/"+url.PathEscape(id), nil, room); err != nil {
		return nil, fmt.Errorf("get room %s: %w", id, err)
	}

	c.cache.Add(id, room)
	return room.DeepCopy(), nil
}

// CreateRoom creates a room and returns it as persisted.
func (c *Client) CreateRoom(ctx context.Context, req *types.CreateRoomRequest) (*types.Room, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	room := &types.Room{}
	if err := c.do(ctx, http.MethodPost, basePath, req, room); err != nil {
		return nil, fmt.Errorf("create room %s: %w", req.Name, err)
	}

	c.cache.Add(room.ID, room)
	return room.DeepCopy(), nil
}

// ListRooms returns the rooms of the given project, or every room if
// projectID is empty.
func (c *Client) ListRooms(ctx context.Context, projectID string) ([]*types.Room, error) {
	path := basePath
	if projectID != "" {
		path += "?" + url.Values{"projectId": []string{projectID}}.Encode()
	}

	var rooms []*types.Room
	if err := c.do(ctx, http.MethodGet, path, nil, &rooms); err != nil {
		return nil, fmt.Errorf("list rooms of %q: %w", projectID, err)
	}
	return rooms, nil
}

// Invalidate discards the cached room of the given id.
func (c *Client) Invalidate(id string) {
	c.cache.Remove(id)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = encoded
	}

	_, err := withExponentialBackoff(ctx, c.options.MaxRetries, c.options.RetryInterval, c.options.MaxWaitInterval, func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return 0, fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return 0, fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				c.logger.Error(err)
			}
		}()

		if resp.StatusCode >= http.StatusBadRequest {
			return resp.StatusCode, c.decodeError(resp)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
		return resp.StatusCode, nil
	})
	return err
}

func (c *Client) decodeError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		c.logger.Warnf("read error response of status %d: %v", resp.StatusCode, err)
	}

	body := ErrorBody{}
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(data))
	}
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", body.Message, types.ErrRoomNotFound)
	}

	statusErr := errors.New(errors.StatusFromHTTP(resp.StatusCode), body.Message)
	if body.Code != "" {
		return statusErr.WithCode(body.Code)
	}
	return statusErr
}
