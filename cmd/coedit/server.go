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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/server"
	"github.com/yorkie-team/coedit/server/backend"
	"github.com/yorkie-team/coedit/server/hub"
)

var (
	gracefulTimeout = 10 * time.Second
)

var (
	flagConfPath  string
	flagLogLevel  string
	flagLogFormat string

	hubWriteTimeout time.Duration

	mongoConnectionURI     string
	mongoConnectionTimeout time.Duration
	mongoDatabase          string
	mongoPingTimeout       time.Duration

	redisAddr          string
	redisPassword      string
	redisDB            int
	redisChannelPrefix string

	conf = server.NewConfig()
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [options]",
		Short: "Start the relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.Hub.WriteTimeout = hubWriteTimeout.String()

			if conf.Backend.Database == backend.DatabaseMongo || mongoConnectionURI != "" {
				conf.Backend.Database = backend.DatabaseMongo
				mongoConf := server.NewMongoConfig()
				if mongoConnectionURI != "" {
					mongoConf.ConnectionURI = mongoConnectionURI
				}
				mongoConf.ConnectionTimeout = mongoConnectionTimeout.String()
				mongoConf.Database = mongoDatabase
				mongoConf.PingTimeout = mongoPingTimeout.String()
				conf.Mongo = mongoConf
			}

			if conf.Backend.Broker == backend.BrokerRedis || redisAddr != "" {
				conf.Backend.Broker = backend.BrokerRedis
				redisConf := server.NewRedisConfig()
				if redisAddr != "" {
					redisConf.Addr = redisAddr
				}
				redisConf.Password = redisPassword
				redisConf.DB = redisDB
				redisConf.ChannelPrefix = redisChannelPrefix
				conf.Redis = redisConf
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}

			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}
			if err := logging.SetFormat(flagLogFormat); err != nil {
				return err
			}

			s, err := server.New(conf)
			if err != nil {
				return err
			}

			if err := s.Start(); err != nil {
				return err
			}

			if code := handleSignal(s); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

func handleSignal(s *server.Server) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case sig = <-sigCh:
	case <-s.ShutdownCh():
		// the server is already shutdown
		return 0
	}

	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	gracefulCh := make(chan struct{})
	go func() {
		if err := s.Shutdown(graceful); err != nil {
			logging.DefaultLogger().Error(err)
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newServerCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().StringVar(
		&flagLogFormat,
		"log-format",
		string(logging.FormatConsole),
		"Log format: console, json",
	)
	cmd.Flags().IntVar(
		&conf.RPC.Port,
		"rpc-port",
		server.DefaultRPCPort,
		"RPC port",
	)
	cmd.Flags().StringVar(
		&conf.RPC.CertFile,
		"rpc-cert-file",
		"",
		"RPC certification file's path",
	)
	cmd.Flags().StringVar(
		&conf.RPC.KeyFile,
		"rpc-key-file",
		"",
		"RPC key file's path",
	)
	cmd.Flags().StringVar(
		&conf.Hub.Path,
		"hub-path",
		hub.DefaultPath,
		"Path of the socket endpoint",
	)
	cmd.Flags().DurationVar(
		&hubWriteTimeout,
		"hub-write-timeout",
		hub.DefaultWriteTimeout,
		"Deadline of a single write to a socket connection",
	)
	cmd.Flags().IntVar(
		&conf.Hub.SendBufferSize,
		"hub-send-buffer-size",
		hub.DefaultSendBufferSize,
		"Number of envelopes buffered per connection before it is dropped",
	)
	cmd.Flags().StringSliceVar(
		&conf.Hub.AllowedOrigins,
		"hub-allowed-origins",
		nil,
		"Origins allowed to open a socket. Every origin is allowed if empty.",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"profiling-port",
		server.DefaultProfilingPort,
		"Profiling port",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"enable-pprof",
		false,
		"Enable runtime profiling data via HTTP server.",
	)
	cmd.Flags().StringVar(
		&conf.Backend.Database,
		"backend-database",
		server.DefaultBackendDatabase,
		"Database of rooms and operation logs: memory, mongo",
	)
	cmd.Flags().StringVar(
		&conf.Backend.Broker,
		"backend-broker",
		server.DefaultBackendBroker,
		"Broker of room messages between servers: memory, redis",
	)
	cmd.Flags().StringVar(
		&conf.Backend.Hostname,
		"hostname",
		server.DefaultHostname,
		"Hostname of this server used by logs",
	)
	cmd.Flags().StringVar(
		&mongoConnectionURI,
		"mongo-connection-uri",
		"",
		"MongoDB's connection URI",
	)
	cmd.Flags().DurationVar(
		&mongoConnectionTimeout,
		"mongo-connection-timeout",
		server.DefaultMongoConnectionTimeout,
		"Mongo DB's connection timeout",
	)
	cmd.Flags().StringVar(
		&mongoDatabase,
		"mongo-database",
		server.DefaultMongoDatabase,
		"Database name of the rooms in MongoDB",
	)
	cmd.Flags().DurationVar(
		&mongoPingTimeout,
		"mongo-ping-timeout",
		server.DefaultMongoPingTimeout,
		"Mongo DB's ping timeout",
	)
	cmd.Flags().StringVar(
		&redisAddr,
		"redis-addr",
		"",
		"Redis address of the broker, e.g. localhost:6379",
	)
	cmd.Flags().StringVar(
		&redisPassword,
		"redis-password",
		"",
		"Redis password",
	)
	cmd.Flags().IntVar(
		&redisDB,
		"redis-db",
		0,
		"Redis database number",
	)
	cmd.Flags().StringVar(
		&redisChannelPrefix,
		"redis-channel-prefix",
		server.DefaultRedisChannelPrefix,
		"Prefix of the Redis channels of rooms",
	)

	rootCmd.AddCommand(cmd)
}
