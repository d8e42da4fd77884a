// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for pagesmith.
//
// # Description
//
// Metrics cover composition requests and latency, session operations by
// outcome, which interpreter produced each edit, session store failures and
// the number of realtime subscribers. They are exposed at /metrics.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// Every recorder is a no-op on a nil *Metrics, so callers may pass nil when
// metrics are disabled.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const metricsNamespace = "pagesmith"

// Compose request statuses.
const (
	StatusOK         = "ok"
	StatusInfeasible = "infeasible"
	StatusInvalid    = "invalid"
	StatusError      = "error"
)

// Metrics holds all Prometheus metrics of the service.
type Metrics struct {
	// ComposeRequests counts compose calls.
	// Labels: status (ok, infeasible, invalid, error)
	ComposeRequests *prometheus.CounterVec

	// ComposeDuration measures beam search latency.
	ComposeDuration prometheus.Histogram

	// SessionOperations counts session operations.
	// Labels: operation (init, command, ...), status (ok or error code)
	SessionOperations *prometheus.CounterVec

	// InterpreterResults counts interpretations by the source that won.
	// Labels: source (local, llm, merged)
	InterpreterResults *prometheus.CounterVec

	// StoreErrors counts session store backend failures.
	// Labels: backend, operation
	StoreErrors *prometheus.CounterVec

	// RealtimeSubscribers is the number of connected WebSocket subscribers.
	RealtimeSubscribers prometheus.Gauge
}

// NewMetrics creates and registers every metric on reg.
//
// # Inputs
//
//   - reg: Registry to register on. Use prometheus.NewRegistry() in tests.
//
// # Outputs
//
//   - *Metrics: The registered metrics.
//
// # Limitations
//
//   - Panics if called twice with the same registry (duplicate registration).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ComposeRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "compose_requests_total",
				Help:      "Total number of compose requests by status",
			},
			[]string{"status"},
		),
		ComposeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "compose_duration_seconds",
				Help:      "Beam search duration in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
		),
		SessionOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "session_operations_total",
				Help:      "Total number of session operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		InterpreterResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "interpreter_results_total",
				Help:      "Total number of command interpretations by winning source",
			},
			[]string{"source"},
		),
		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "store_errors_total",
				Help:      "Total number of session store failures by backend and operation",
			},
			[]string{"backend", "operation"},
		),
		RealtimeSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "realtime_subscribers",
				Help:      "Number of connected realtime subscribers",
			},
		),
	}
}

// =============================================================================
// Recorders
// =============================================================================

// RecordCompose records one compose call.
func (m *Metrics) RecordCompose(status string, seconds float64) {
	if m == nil {
		return
	}
	m.ComposeRequests.WithLabelValues(status).Inc()
	m.ComposeDuration.Observe(seconds)
}

// RecordSessionOperation records one session operation.
func (m *Metrics) RecordSessionOperation(operation, status string) {
	if m == nil {
		return
	}
	m.SessionOperations.WithLabelValues(operation, status).Inc()
}

// RecordInterpreter records which interpreter produced a result.
func (m *Metrics) RecordInterpreter(source string) {
	if m == nil {
		return
	}
	m.InterpreterResults.WithLabelValues(source).Inc()
}

// RecordStoreError records a backend failure.
func (m *Metrics) RecordStoreError(backend, operation string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(backend, operation).Inc()
}

// SetSubscribers sets the realtime subscriber gauge.
func (m *Metrics) SetSubscribers(total int) {
	if m == nil {
		return
	}
	m.RealtimeSubscribers.Set(float64(total))
}
