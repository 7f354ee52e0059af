/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry holds the Prometheus metrics, metrics middleware
// and OpenTelemetry tracing setup shared by the scheduler service.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EngineRunsTotal counts completed scheduling engine runs by
	// operation and outcome.
	EngineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grimnir_scheduler_engine_runs_total",
		Help: "Scheduling engine runs by operation and outcome.",
	}, []string{"operation", "outcome"})

	// EngineRunDuration observes how long one engine run takes,
	// transaction included.
	EngineRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grimnir_scheduler_engine_run_duration_seconds",
		Help:    "Duration of scheduling engine runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// ScheduleConflictsTotal counts mutations rejected by the optimistic
	// concurrency check.
	ScheduleConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grimnir_scheduler_schedule_conflicts_total",
		Help: "Schedule mutations rejected as stale.",
	})

	// APIRequestsTotal counts HTTP requests by method, endpoint and
	// status code.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grimnir_scheduler_api_requests_total",
		Help: "HTTP API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grimnir_scheduler_api_request_duration_seconds",
		Help:    "HTTP API request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grimnir_scheduler_api_active_connections",
		Help: "In-flight HTTP API requests.",
	})

	// DatabaseQueryDuration observes GORM operation latency by
	// operation and table.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grimnir_scheduler_db_query_duration_seconds",
		Help:    "Database query duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts failed database operations.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grimnir_scheduler_db_errors_total",
		Help: "Database operation errors.",
	}, []string{"operation", "kind"})

	// DatabaseConnectionsActive gauges open database connections.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grimnir_scheduler_db_connections_active",
		Help: "Open database connections.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
