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

package profiling

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/server/profiling/prometheus"
)

const (
	metricsPath = "/metrics"
	pprofPath   = "/debug/pprof"
)

// runtimeProfiles are the named profiles served below pprofPath.
var runtimeProfiles = []string{"heap", "goroutine", "threadcreate", "block", "mutex", "allocs"}

// Server serves the relay metrics and the runtime profiles.
type Server struct {
	conf       *Config
	mux        *http.ServeMux
	httpServer *http.Server
	logger     logging.Logger
}

// NewServer creates an instance of Server. metrics may be nil, in which case
// only the profiles are served.
func NewServer(conf *Config, metrics *prometheus.Metrics) *Server {
	mux := http.NewServeMux()
	if conf.EnablePprof {
		mux.HandleFunc(pprofPath+"/", pprof.Index)
		mux.HandleFunc(pprofPath+"/cmdline", pprof.Cmdline)
		mux.HandleFunc(pprofPath+"/profile", pprof.Profile)
		mux.HandleFunc(pprofPath+"/symbol", pprof.Symbol)
		mux.HandleFunc(pprofPath+"/trace", pprof.Trace)
		for _, name := range runtimeProfiles {
			mux.Handle(pprofPath+"/"+name, pprof.Handler(name))
		}
	}

	if metrics != nil {
		mux.Handle(metricsPath, promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	}

	return &Server{
		conf:       conf,
		mux:        mux,
		httpServer: &http.Server{Addr: conf.Addr(), Handler: mux},
		logger:     logging.New("profiling"),
	}
}

// Handler returns the handler of the metrics and profiles.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts listening in the background.
func (s *Server) Start() error {
	go func() {
		s.logger.Infof("serving profiling on %s", s.conf.Addr())
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("profiling server listen: %v", err)
		}
	}()
	return nil
}

// Shutdown stops the server, waiting for open requests if graceful.
func (s *Server) Shutdown(graceful bool) {
	if graceful {
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("profiling server shutdown: %v", err)
		}
		return
	}

	if err := s.httpServer.Close(); err != nil {
		s.logger.Errorf("profiling server close: %v", err)
	}
}
