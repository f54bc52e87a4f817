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

// Package rpc provides the HTTP server of the relay: the socket endpoint of
// the hub, the room handlers and the health check.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/yorkie-team/coedit/internal/logging"
	pkgerrors "github.com/yorkie-team/coedit/pkg/errors"
	"github.com/yorkie-team/coedit/server/backend"
	"github.com/yorkie-team/coedit/server/hub"
	"github.com/yorkie-team/coedit/server/rooms"
	"github.com/yorkie-team/coedit/server/rpc/httphealth"
	"github.com/yorkie-team/coedit/server/rpc/interceptors"
)

// shutdownTimeout is the time given to in-flight requests on a graceful
// shutdown.
const shutdownTimeout = 10 * time.Second

// ErrShuttingDown is reported by the health check once the server shuts down.
var ErrShuttingDown = pkgerrors.Unavailable("server is shutting down").WithCode("ErrShuttingDown")

// Server is a normal server that processes the logic requested by the client.
type Server struct {
	conf       *Config
	httpServer *http.Server
	handler    http.Handler
	stopped    atomic.Bool
	addr       atomic.Value
}

// NewServer creates a new instance of Server.
func NewServer(conf *Config, hubConf *hub.Config, be *backend.Backend, h *hub.Hub) *Server {
	s := &Server{conf: conf}

	loggingInterceptor := interceptors.NewLoggingInterceptor()
	metricsInterceptor := interceptors.NewMetricsInterceptor(be.Metrics)

	r := mux.NewRouter()
	r.Use(loggingInterceptor.Wrap, metricsInterceptor.Wrap)

	path, health := httphealth.NewHandler(s.check)
	r.Handle(path, health)
	rooms.NewHandler(be.DB).Register(r)
	r.Handle(hubConf.Path, h)

	s.handler = r
	s.httpServer = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: conf.ParseReadHeaderTimeout(),
	}
	return s
}

// Handler returns the handler of every route of this server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the address this server listens on once started.
func (s *Server) Addr() string {
	if addr, ok := s.addr.Load().(string); ok {
		return addr
	}
	return ""
}

// Start starts this server by opening the rpc port.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.conf.Port))
	if err != nil {
		logging.DefaultLogger().Error(err)
		return err
	}
	s.addr.Store(lis.Addr().String())

	go func() {
		logging.DefaultLogger().Infof("serving RPC on %d", s.conf.Port)

		var err error
		if s.conf.CertFile != "" && s.conf.KeyFile != "" {
			err = s.httpServer.ServeTLS(lis, s.conf.CertFile, s.conf.KeyFile)
		} else {
			err = s.httpServer.Serve(lis)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.DefaultLogger().Error(err)
		}
	}()

	return nil
}

// Shutdown shuts down this server.
func (s *Server) Shutdown(graceful bool) {
	s.stopped.Store(true)

	if graceful {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logging.DefaultLogger().Errorf("shutdown RPC server: %v", err)
		}
		return
	}

	if err := s.httpServer.Close(); err != nil {
		logging.DefaultLogger().Errorf("close RPC server: %v", err)
	}
}

func (s *Server) check(context.Context) error {
	if s.stopped.Load() {
		return ErrShuttingDown
	}
	return nil
}
