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

package rpc_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/coedit/api"
	"github.com/yorkie-team/coedit/server/backend"
	"github.com/yorkie-team/coedit/server/hub"
	"github.com/yorkie-team/coedit/server/profiling/prometheus"
	"github.com/yorkie-team/coedit/server/rooms"
	"github.com/yorkie-team/coedit/server/rpc"
	"github.com/yorkie-team/coedit/server/rpc/httphealth"
)

func newServer(t *testing.T) (*rpc.Server, *prometheus.Metrics, *httptest.Server) {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	be, err := backend.New(&backend.Config{
		Database: backend.DatabaseMemory,
		Broker:   backend.BrokerMemory,
		Hostname: "test",
	}, nil, nil, metrics)
	require.NoError(t, err)

	hubConf := hub.NewConfig()
	h := hub.New(hubConf, be)
	s := rpc.NewServer(&rpc.Config{Port: 3001}, hubConf, be, h)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		h.Close()
		assert.NoError(t, be.Shutdown())
	})
	return s, metrics, srv
}

func TestServer(t *testing.T) {
	t.Run("health check test", func(t *testing.T) {
		s, _, srv := newServer(t)

		resp, err := http.Get(srv.URL + httphealth.Path)
		require.NoError(t, err)
		check := httphealth.CheckResponse{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&check))
		assert.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, httphealth.StatusServing, check.Status)

		s.Shutdown(false)
		resp, err = http.Get(srv.URL + httphealth.Path)
		require.NoError(t, err)
		assert.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("requests are counted by route test", func(t *testing.T) {
		_, metrics, srv := newServer(t)

		for _, id := range []string{"a", "b"} {
			resp, err := http.Get(srv.URL + rooms.BasePath + "/" + id)
			require.NoError(t, err)
			assert.NoError(t, resp.Body.Close())
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		}

		count, err := testutil.GatherAndCount(metrics.Registry(), "coedit_http_server_handled_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("socket upgrades through middlewares test", func(t *testing.T) {
		_, _, srv := newServer(t)

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + hub.DefaultPath
		ws, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer func() { _ = ws.Close() }()

		ping, err := api.NewEnvelope(api.Ping, nil)
		require.NoError(t, err)
		data, err := ping.Encode()
		require.NoError(t, err)
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))

		_, data, err = ws.ReadMessage()
		require.NoError(t, err)
		pong, err := api.DecodeEnvelope(data)
		require.NoError(t, err)
		assert.Equal(t, api.Pong, pong.Type)
	})
}

func TestConfig(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		validConf := rpc.Config{Port: 3001, ReadHeaderTimeout: "5s"}
		assert.NoError(t, validConf.Validate())
		assert.Equal(t, "5s", validConf.ParseReadHeaderTimeout().String())

		conf1 := validConf
		conf1.Port = 0
		assert.ErrorIs(t, conf1.Validate(), rpc.ErrInvalidRPCPort)

		conf2 := validConf
		conf2.CertFile = "noSuchCertFile"
		assert.ErrorIs(t, conf2.Validate(), rpc.ErrInvalidCertFile)

		conf3 := validConf
		conf3.KeyFile = "noSuchKeyFile"
		assert.ErrorIs(t, conf3.Validate(), rpc.ErrInvalidKeyFile)

		conf4 := validConf
		conf4.ReadHeaderTimeout = "ten seconds"
		assert.ErrorIs(t, conf4.Validate(), rpc.ErrInvalidReadHeaderTimeout)
	})
}
