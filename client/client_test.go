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

package client_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/coedit/api"
	"github.com/yorkie-team/coedit/api/types"
	"github.com/yorkie-team/coedit/client"
	"github.com/yorkie-team/coedit/client/editor"
	"github.com/yorkie-team/coedit/client/transport"
)

const (
	waitTimeout  = 3 * time.Second
	pollInterval = 10 * time.Millisecond
)

func testConfig() *client.Config {
	conf := client.NewConfig()
	conf.WSURL = "ws" + strings.TrimPrefix(testServer.URL, "http") + "/collaboration"
	conf.APIURL = testServer.URL
	conf.HeartbeatInterval = "0s"
	conf.PresenceRefreshInterval = "0s"
	return conf
}

func newClient(t *testing.T, userID string, opts ...client.Option) *client.Client {
	return newClientWithConfig(t, userID, testConfig(), opts...)
}

func newClientWithConfig(t *testing.T, userID string, conf *client.Config, opts ...client.Option) *client.Client {
	opts = append([]client.Option{client.WithUser(userID, strings.ToUpper(userID), userID+"@example.com")}, opts...)
	cli, err := client.New(conf, opts...)
	require.NoError(t, err)
	require.NoError(t, cli.Connect(context.Background()))
	assert.Equal(t, transport.Connected, cli.ConnectionState())

	t.Cleanup(func() { assert.NoError(t, cli.Close()) })
	return cli
}

func createRoom(t *testing.T, cli *client.Client) *types.Room {
	room, err := cli.CreateRoom(context.Background(), &types.CreateRoomRequest{
		Name: t.Name(),
		Type: types.RoomTypeProject,
	})
	require.NoError(t, err)
	return room
}

func text(t *testing.T, cli *client.Client, roomID string) string {
	doc, err := cli.Document(roomID)
	require.NoError(t, err)
	return doc.Text()
}

func hasPeer(cli *client.Client, roomID, userID string) bool {
	for _, p := range cli.RoomPresence(roomID) {
		if p.ID == userID {
			return true
		}
	}
	return false
}

func pending(t *testing.T, cli *client.Client, roomID string) int {
	doc, err := cli.Document(roomID)
	require.NoError(t, err)
	return doc.Pending()
}

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// memoWidget is a widget keeping its text in memory.
type memoWidget struct {
	mu    sync.Mutex
	value string
}

func (w *memoWidget) GetValue() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

func (w *memoWidget) SetValue(value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.value = value
}

func (w *memoWidget) Cursor() editor.Position { return editor.Position{} }

func (w *memoWidget) Selection() (editor.Position, editor.Position) {
	return editor.Position{}, editor.Position{}
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("join and leave cleanup test", func(t *testing.T) {
		alice := newClient(t, "alice-leave")
		room := createRoom(t, alice)

		joined, err := alice.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, room.ID, joined.ID)
		assert.Equal(t, client.Joined, alice.State(room.ID))
		assert.Equal(t, []string{room.ID}, alice.JoinedRooms())
		assert.True(t, hasPeer(alice, room.ID, alice.UserID()))

		require.NoError(t, alice.LeaveRoom(room.ID))
		assert.Equal(t, client.Left, alice.State(room.ID))
		assert.Empty(t, alice.RoomPresence(room.ID))
		assert.Empty(t, alice.JoinedRooms())

		_, ok := alice.Room(room.ID)
		assert.False(t, ok)
		_, err = alice.Document(room.ID)
		assert.ErrorIs(t, err, client.ErrRoomNotJoined)
		assert.ErrorIs(t, alice.SetTyping(room.ID, true), client.ErrRoomNotJoined)

		// leaving twice is a no-op
		assert.NoError(t, alice.LeaveRoom(room.ID))
	})

	t.Run("concurrent joins share one join test", func(t *testing.T) {
		alice := newClient(t, "alice-concurrent")
		room := createRoom(t, alice)

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				joined, err := alice.JoinRoom(ctx, room.ID)
				assert.NoError(t, err)
				assert.Equal(t, room.ID, joined.ID)
			}()
		}
		wg.Wait()

		assert.Equal(t, client.Joined, alice.State(room.ID))
		assert.Len(t, alice.RoomPresence(room.ID), 1)
	})

	t.Run("leave while the join is pending keeps the room left test", func(t *testing.T) {
		alice := newClient(t, "alice-pending")
		room := createRoom(t, alice)

		started, release := make(chan struct{}), make(chan struct{})
		var once sync.Once
		blocking := roundTripFunc(func(r *http.Request) (*http.Response, error) {
			once.Do(func() { close(started) })
			<-release
			return http.DefaultTransport.RoundTrip(r)
		})
		dave := newClient(t, "dave-pending", client.WithHTTPClient(&http.Client{Transport: blocking}))

		done := make(chan error, 1)
		go func() {
			_, err := dave.JoinRoom(ctx, room.ID)
			done <- err
		}()

		<-started
		assert.Equal(t, client.Joining, dave.State(room.ID))
		require.NoError(t, dave.LeaveRoom(room.ID))
		close(release)

		require.NoError(t, <-done)
		assert.Equal(t, client.Left, dave.State(room.ID))
		assert.Empty(t, dave.JoinedRooms())
		assert.Empty(t, dave.RoomPresence(room.ID))
		_, err := dave.Document(room.ID)
		assert.ErrorIs(t, err, client.ErrRoomNotJoined)
	})

	t.Run("join missing room test", func(t *testing.T) {
		alice := newClient(t, "alice-missing")

		_, err := alice.JoinRoom(ctx, "missing")
		assert.ErrorIs(t, err, types.ErrRoomNotFound)
		assert.Equal(t, client.NotJoined, alice.State("missing"))
		assert.Empty(t, alice.RoomPresence("missing"))
	})

	t.Run("presence of peers test", func(t *testing.T) {
		alice, bob := newClient(t, "alice-presence"), newClient(t, "bob-presence")
		room := createRoom(t, alice)

		_, err := alice.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		_, err = bob.JoinRoom(ctx, room.ID)
		require.NoError(t, err)

		// alice learns bob from his join, bob learns alice from her answer
		assert.Eventually(t, func() bool {
			return hasPeer(alice, room.ID, bob.UserID()) && hasPeer(bob, room.ID, alice.UserID())
		}, waitTimeout, pollInterval)

		var mu sync.Mutex
		var cursors []*types.CursorPosition
		unsubscribe := bob.Subscribe(types.CursorMove, func(event types.Event) {
			mu.Lock()
			defer mu.Unlock()
			cursors = append(cursors, event.Payload.Cursor)
		})
		defer unsubscribe()

		require.NoError(t, alice.SendCursor(room.ID, &types.CursorPosition{X: 7, Y: 9}))
		require.NoError(t, alice.SetTyping(room.ID, true))
		require.NoError(t, alice.OpenFile(room.ID, "main.go"))

		assert.Eventually(t, func() bool {
			for _, p := range bob.RoomPresence(room.ID) {
				if p.ID == alice.UserID() {
					return p.Typing && p.CurrentFile == "main.go" && p.Cursor != nil && p.Cursor.X == 7
				}
			}
			return false
		}, waitTimeout, pollInterval)

		mu.Lock()
		require.Len(t, cursors, 1)
		assert.Equal(t, 9.0, cursors[0].Y)
		mu.Unlock()

		peerOf := func(cli *client.Client, userID string) *types.UserPresence {
			for _, p := range cli.RoomPresence(room.ID) {
				if p.ID == userID {
					return p
				}
			}
			return nil
		}

		assert.ErrorIs(t, alice.UpdateStatus("sleeping"), types.ErrInvalidFields)
		require.NoError(t, alice.UpdateStatus(types.StatusAway))
		require.NoError(t, alice.SendSelection(room.ID, &types.SelectionRange{
			Start: types.CursorPosition{X: 1, Y: 2},
			End:   types.CursorPosition{X: 5, Y: 2},
		}))
		require.NoError(t, alice.CloseFile(room.ID, "main.go"))
		assert.Equal(t, types.StatusAway, peerOf(alice, alice.UserID()).Status)

		assert.Eventually(t, func() bool {
			p := peerOf(bob, alice.UserID())
			return p != nil && p.Status == types.StatusAway && p.CurrentFile == "" &&
				p.Selection != nil && p.Selection.End.X == 5
		}, waitTimeout, pollInterval)

		require.NoError(t, alice.SendSelection(room.ID, nil))
		assert.Eventually(t, func() bool {
			p := peerOf(bob, alice.UserID())
			return p != nil && p.Selection == nil
		}, waitTimeout, pollInterval)

		require.NoError(t, alice.LeaveRoom(room.ID))
		assert.Eventually(t, func() bool {
			return !hasPeer(bob, room.ID, alice.UserID())
		}, waitTimeout, pollInterval)
	})

	t.Run("concurrent edits converge test", func(t *testing.T) {
		alice, bob := newClient(t, "alice-edit"), newClient(t, "bob-edit")
		room := createRoom(t, alice)

		_, err := alice.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		_, err = bob.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			return hasPeer(alice, room.ID, bob.UserID())
		}, waitTimeout, pollInterval)

		_, err = alice.Insert(room.ID, 0, "hello")
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			return text(t, bob, room.ID) == "hello"
		}, waitTimeout, pollInterval)

		// neither side has seen the other's edit yet
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := alice.Insert(room.ID, 5, " world")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := bob.Insert(room.ID, 0, ">> ")
			assert.NoError(t, err)
		}()
		wg.Wait()

		assert.Eventually(t, func() bool {
			return text(t, alice, room.ID) == ">> hello world" && text(t, bob, room.ID) == ">> hello world"
		}, waitTimeout, pollInterval)
	})

	t.Run("late joiner replays the content test", func(t *testing.T) {
		alice, carol := newClient(t, "alice-late"), newClient(t, "carol-late")
		room := createRoom(t, alice)

		_, err := alice.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		_, err = alice.Insert(room.ID, 0, "draft")
		require.NoError(t, err)
		_, err = alice.Replace(room.ID, 0, 1, "D")
		require.NoError(t, err)
		assert.Equal(t, "Draft", text(t, alice, room.ID))

		// both operations are relayed back before the join replays them
		assert.Eventually(t, func() bool {
			return pending(t, alice, room.ID) == 0
		}, waitTimeout, pollInterval)

		_, err = carol.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			return text(t, carol, room.ID) == "Draft"
		}, waitTimeout, pollInterval)
	})

	t.Run("editor binding follows the document test", func(t *testing.T) {
		alice, bob := newClient(t, "alice-editor"), newClient(t, "bob-editor")
		room := createRoom(t, alice)

		_, err := alice.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		_, err = bob.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			return hasPeer(alice, room.ID, bob.UserID())
		}, waitTimeout, pollInterval)

		aliceWidget, bobWidget := &memoWidget{}, &memoWidget{}
		aliceBinding, unbindAlice, err := alice.BindEditor(room.ID, aliceWidget)
		require.NoError(t, err)
		defer unbindAlice()
		_, unbindBob, err := bob.BindEditor(room.ID, bobWidget)
		require.NoError(t, err)
		defer unbindBob()

		// typing in the widget of alice reaches the widget of bob
		aliceWidget.SetValue("package main")
		aliceBinding.Sync()
		assert.Equal(t, "package main", text(t, alice, room.ID))
		assert.Eventually(t, func() bool {
			return bobWidget.GetValue() == "package main"
		}, waitTimeout, pollInterval)

		_, err = bob.Insert(room.ID, 0, "// demo\n")
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			return aliceWidget.GetValue() == "// demo\npackage main"
		}, waitTimeout, pollInterval)
	})

	t.Run("unsynced widget edits survive a remote edit test", func(t *testing.T) {
		alice, bob := newClient(t, "alice-unsynced"), newClient(t, "bob-unsynced")
		room := createRoom(t, alice)

		_, err := alice.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		_, err = bob.JoinRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			return hasPeer(alice, room.ID, bob.UserID())
		}, waitTimeout, pollInterval)

		_, err = alice.Insert(room.ID, 0, "abc")
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			return text(t, bob, room.ID) == "abc" && pending(t, alice, room.ID) == 0
		}, waitTimeout, pollInterval)

		widget := &memoWidget{}
		_, unbind, err := alice.BindEditor(room.ID, widget)
		require.NoError(t, err)
		defer unbind()
		assert.Equal(t, "abc", widget.GetValue())

		// typed into the widget but not synced yet
		widget.SetValue("abcX")
		_, err = bob.Insert(room.ID, 0, "Q")
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			return widget.GetValue() == "QabcX" &&
				text(t, alice, room.ID) == "QabcX" &&
				text(t, bob, room.ID) == "QabcX"
		}, waitTimeout, pollInterval)
	})

	t.Run("presence is refreshed and silent peers expire test", func(t *testing.T) {
		conf := testConfig()
		conf.PresenceRefreshInterval = "50ms"
		bob := newClientWithConfig(t, "bob-refresh", conf)
		room := createRoom(t, bob)
		_, err := bob.JoinRoom(ctx, room.ID)
		require.NoError(t, err)

		const silent = "silent-refresh"
		var mu sync.Mutex
		var statuses []types.Status
		unsubscribe := bob.Subscribe(types.PresenceUpdate, func(event types.Event) {
			if event.UserID != silent {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			statuses = append(statuses, event.Payload.Status)
		})
		defer unsubscribe()

		ws, _, err := websocket.DefaultDialer.Dial(conf.WSURL, nil)
		require.NoError(t, err)
		defer func() { _ = ws.Close() }()

		join, err := api.NewEnvelope(api.JoinRoom, types.Payload{
			RoomID: room.ID,
			UserID: silent,
			User:   &types.UserPresence{ID: silent, Name: silent, Status: types.StatusOnline},
		})
		require.NoError(t, err)
		data, err := join.Encode()
		require.NoError(t, err)
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))

		// the silent peer only listens to the announcements of bob
		var refreshes atomic.Int32
		go func() {
			for {
				_, data, err := ws.ReadMessage()
				if err != nil {
					return
				}
				e, err := api.DecodeEnvelope(data)
				if err != nil || e.Type != api.PresenceUpdate {
					continue
				}
				if payload, err := e.Payload(); err == nil && payload.UserID == bob.UserID() {
					refreshes.Add(1)
				}
			}
		}()

		assert.Eventually(t, func() bool {
			return refreshes.Load() >= 3
		}, waitTimeout, pollInterval)
		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			for _, status := range statuses {
				if status == types.StatusOffline {
					return true
				}
			}
			return false
		}, waitTimeout, pollInterval)

		var status types.Status
		for _, p := range bob.RoomPresence(room.ID) {
			if p.ID == silent {
				status = p.Status
			}
		}
		assert.Equal(t, types.StatusOffline, status)
	})

	t.Run("closed client test", func(t *testing.T) {
		conf := client.NewConfig()
		cli, err := client.New(conf)
		require.NoError(t, err)
		assert.NotEmpty(t, cli.UserID())
		require.NoError(t, cli.Close())

		assert.ErrorIs(t, cli.Connect(ctx), client.ErrClientClosed)
		_, err = cli.JoinRoom(ctx, "room")
		assert.ErrorIs(t, err, client.ErrClientClosed)
	})
}

func TestConfig(t *testing.T) {
	t.Run("default config test", func(t *testing.T) {
		conf := client.NewConfig()
		assert.NoError(t, conf.Validate())
		assert.Equal(t, client.DefaultWSURL, conf.WSURL)
		assert.Equal(t, client.DefaultMaxReconnectAttempts, conf.MaxReconnectAttempts)
		assert.Equal(t, client.DefaultHeartbeatInterval, conf.HeartbeatIntervalDuration())
		assert.Equal(t, client.DefaultPresenceRefreshInterval, conf.PresenceRefreshIntervalDuration())
	})

	t.Run("invalid config test", func(t *testing.T) {
		conf := client.NewConfig()
		conf.WSURL = "http://localhost:3001/collaboration"
		assert.Error(t, conf.Validate())

		conf = client.NewConfig()
		conf.MaxReconnectAttempts = -1
		assert.Error(t, conf.Validate())

		conf = client.NewConfig()
		conf.HeartbeatInterval = "often"
		assert.Error(t, conf.Validate())

		conf = client.NewConfig()
		conf.EditorBinding = "vim"
		assert.Error(t, conf.Validate())
	})

	t.Run("read config file test", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "client.yml")
		require.NoError(t, os.WriteFile(path, []byte(`
WSURL: wss://collab.example.com/collaboration
MaxReconnectAttempts: 3
HeartbeatInterval: 5s
EditorBinding: native
`), 0o600))

		conf, err := client.NewConfigFromFile(path)
		require.NoError(t, err)
		assert.NoError(t, conf.Validate())
		assert.Equal(t, "wss://collab.example.com/collaboration", conf.WSURL)
		assert.Equal(t, 3, conf.MaxReconnectAttempts)
		assert.Equal(t, 5*time.Second, conf.HeartbeatIntervalDuration())
		assert.Equal(t, editor.KindNative, conf.EditorBinding)
		assert.Equal(t, client.DefaultPresenceRefreshInterval, conf.PresenceRefreshIntervalDuration())
	})
}
