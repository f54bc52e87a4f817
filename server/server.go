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

// Package server provides the relay server of collaboration clients. It
// relays room messages between the connections of a room and serves the
// rooms over HTTP.
package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/server/backend"
	"github.com/yorkie-team/coedit/server/hub"
	"github.com/yorkie-team/coedit/server/profiling"
	"github.com/yorkie-team/coedit/server/profiling/prometheus"
	"github.com/yorkie-team/coedit/server/rpc"
)

// ErrMissingConfig occurs when the backend kind needs a config that is not
// given.
var ErrMissingConfig = errors.New("missing config")

// Server is the relay server.
type Server struct {
	conf            *Config
	lock            sync.Mutex
	rpcServer       *rpc.Server
	profilingServer *profiling.Server
	hub             *hub.Hub
	backend         *backend.Backend

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of Server.
func New(conf *Config) (*Server, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(conf.Backend, conf.Mongo, conf.Redis, metrics)
	if err != nil {
		return nil, err
	}

	h := hub.New(conf.Hub, be)
	rpcServer := rpc.NewServer(conf.RPC, conf.Hub, be, h)

	var profilingServer *profiling.Server
	if conf.Profiling != nil {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
	}

	return &Server{
		conf:            conf,
		rpcServer:       rpcServer,
		profilingServer: profilingServer,
		hub:             h,
		backend:         be,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// Start starts the server by opening the rpc port.
func (s *Server) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.profilingServer != nil {
		if err := s.profilingServer.Start(); err != nil {
			return err
		}
	}

	return s.rpcServer.Start()
}

// Shutdown shuts down this server.
func (s *Server) Shutdown(graceful bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.shutdown {
		return nil
	}

	s.rpcServer.Shutdown(graceful)
	s.hub.Close()

	if s.profilingServer != nil {
		s.profilingServer.Shutdown(graceful)
	}

	if err := s.backend.Shutdown(); err != nil {
		return err
	}

	close(s.shutdownCh)
	s.shutdown = true
	logging.DefaultLogger().Infof("server stopped")
	return nil
}

// ShutdownCh returns the shutdown channel.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// RPCAddr returns the address of the RPC.
func (s *Server) RPCAddr() string {
	if addr := s.rpcServer.Addr(); addr != "" {
		return addr
	}
	return s.conf.RPCAddr()
}

// Handler returns the handler of the RPC routes. It can be served without
// Start, e.g. by httptest.
func (s *Server) Handler() http.Handler {
	return s.rpcServer.Handler()
}
