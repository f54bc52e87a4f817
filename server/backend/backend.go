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

// Package backend provides the backend of the relay server: the database of
// rooms, the broker of room messages, and background routines.
package backend

import (
	"context"
	"fmt"
	"os"

	"github.com/yorkie-team/coedit/internal/logging"
	"github.com/yorkie-team/coedit/server/backend/background"
	"github.com/yorkie-team/coedit/server/backend/broker"
	"github.com/yorkie-team/coedit/server/backend/database"
	"github.com/yorkie-team/coedit/server/backend/database/memory"
	"github.com/yorkie-team/coedit/server/backend/database/mongo"
	"github.com/yorkie-team/coedit/server/profiling/prometheus"
)

// Backend manages the resources shared by the hub and the room handlers.
type Backend struct {
	Config *Config

	// DB is the database keeping rooms and operation logs.
	DB database.Database

	// Broker relays room messages between servers.
	Broker broker.Broker

	// Background manages the background goroutines.
	Background *background.Background

	// Metrics is the metrics of the server.
	Metrics *prometheus.Metrics
}

// New creates a new instance of Backend.
func New(
	conf *Config,
	mongoConf *mongo.Config,
	redisConf *broker.Config,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	// 01. Resolve the hostname of the current machine if it is not given.
	if conf.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("os.Hostname: %w", err)
		}
		conf.Hostname = hostname
	}
	logger := logging.New("backend", logging.NewField("hostname", conf.Hostname))

	// 02. Create the database instance.
	var db database.Database
	var err error
	dbInfo := DatabaseMemory
	switch conf.Database {
	case DatabaseMongo:
		if mongoConf == nil {
			return nil, fmt.Errorf("mongo database without mongo config")
		}
		db, err = mongo.Dial(mongoConf)
		dbInfo = mongoConf.ConnectionURI
	default:
		db, err = memory.New()
	}
	if err != nil {
		return nil, err
	}

	// 03. Create the broker instance.
	var b broker.Broker
	brokerInfo := BrokerMemory
	switch conf.Broker {
	case BrokerRedis:
		if redisConf == nil {
			_ = db.Close()
			return nil, fmt.Errorf("redis broker without redis config")
		}
		b, err = broker.DialRedis(context.Background(), redisConf, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		brokerInfo = redisConf.Addr
	default:
		b = broker.NewMemory(logger)
	}

	logger.Infof("backend created: db: %s, broker: %s", dbInfo, brokerInfo)

	return &Backend{
		Config:     conf,
		DB:         db,
		Broker:     b,
		Background: background.New(metrics),
		Metrics:    metrics,
	}, nil
}

// Shutdown closes all resources of this backend. It waits for the background
// routines to exit.
func (b *Backend) Shutdown() error {
	b.Background.Close()

	if err := b.Broker.Close(); err != nil {
		return err
	}

	if err := b.DB.Close(); err != nil {
		return err
	}

	logging.DefaultLogger().Infof("backend stopped")
	return nil
}
