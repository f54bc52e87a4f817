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

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yorkie-team/coedit/internal/version"
)

const (
	namespace        = "coedit"
	messageTypeLabel = "message_type"
	reasonLabel      = "reason"
	methodLabel      = "method"
	routeLabel       = "route"
	codeLabel        = "code"
	taskTypeLabel    = "task_type"
)

// Metrics manages the metric information that the relay server measures.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion *prometheus.GaugeVec

	connections      prometheus.Gauge
	rooms            prometheus.Gauge
	receivedMessages *prometheus.CounterVec
	relayedMessages  *prometheus.CounterVec
	droppedMessages  *prometheus.CounterVec
	storedOperations prometheus.Counter

	backgroundGoroutinesTotal *prometheus.GaugeVec

	httpHandledCounter *prometheus.CounterVec
	httpSeconds        *prometheus.HistogramVec
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		connections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "connections",
			Help:      "The number of open socket connections.",
		}),
		rooms: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "rooms",
			Help:      "The number of rooms with at least one local connection.",
		}),
		receivedMessages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "received_messages_total",
			Help:      "The total count of envelopes received from connections.",
		}, []string{messageTypeLabel}),
		relayedMessages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "relayed_messages_total",
			Help:      "The total count of envelopes delivered to room members.",
		}, []string{messageTypeLabel}),
		droppedMessages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "dropped_messages_total",
			Help:      "The total count of envelopes dropped by the hub.",
		}, []string{reasonLabel}),
		storedOperations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "stored_operations_total",
			Help:      "The total count of content operations appended to room logs.",
		}),
		backgroundGoroutinesTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "goroutines_total",
			Help:      "The total number of goroutines attached by a particular background task.",
		}, []string{taskTypeLabel}),
		httpHandledCounter: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "server_handled_total",
			Help:      "Total number of HTTP requests completed on the server, regardless of success or failure.",
		}, []string{methodLabel, routeLabel, codeLabel}),
		httpSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_seconds",
			Help:      "The response time of HTTP requests.",
		}, []string{methodLabel, routeLabel}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// AddConnections adds the number of open connections.
func (m *Metrics) AddConnections(delta int) {
	m.connections.Add(float64(delta))
}

// AddRooms adds the number of rooms with local connections.
func (m *Metrics) AddRooms(delta int) {
	m.rooms.Add(float64(delta))
}

// AddReceivedMessage counts an envelope received from a connection.
func (m *Metrics) AddReceivedMessage(messageType string) {
	m.receivedMessages.With(prometheus.Labels{messageTypeLabel: messageType}).Inc()
}

// AddRelayedMessages counts envelopes delivered to room members.
func (m *Metrics) AddRelayedMessages(messageType string, count int) {
	m.relayedMessages.With(prometheus.Labels{messageTypeLabel: messageType}).Add(float64(count))
}

// AddDroppedMessage counts an envelope dropped for the given reason.
func (m *Metrics) AddDroppedMessage(reason string) {
	m.droppedMessages.With(prometheus.Labels{reasonLabel: reason}).Inc()
}

// AddStoredOperation counts an operation appended to a room log.
func (m *Metrics) AddStoredOperation() {
	m.storedOperations.Inc()
}

// AddBackgroundGoroutines adds the number of goroutines attached by a
// particular background task.
func (m *Metrics) AddBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{taskTypeLabel: taskType}).Inc()
}

// RemoveBackgroundGoroutines removes the number of goroutines attached by a
// particular background task.
func (m *Metrics) RemoveBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{taskTypeLabel: taskType}).Dec()
}

// AddServerHandledCounter counts a completed HTTP request.
func (m *Metrics) AddServerHandledCounter(method, route, code string) {
	m.httpHandledCounter.With(prometheus.Labels{
		methodLabel: method,
		routeLabel:  route,
		codeLabel:   code,
	}).Inc()
}

// ObserveResponseSeconds observes the response time of an HTTP request.
func (m *Metrics) ObserveResponseSeconds(method, route string, seconds float64) {
	m.httpSeconds.With(prometheus.Labels{
		methodLabel: method,
		routeLabel:  route,
	}).Observe(seconds)
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
