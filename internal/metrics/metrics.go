// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package metrics provides Prometheus metrics for the record gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recordgate"

var (
	// OperationsTotal counts gateway calls by operation and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total gateway operations",
		},
		[]string{"operation", "status"}, // status: ok/invalid_argument/backend_unavailable/backend_rejected
	)

	// RecordOutcomes counts per-record outcomes of executed batches.
	RecordOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_outcomes_total",
			Help:      "Per-record mutation outcomes",
		},
		[]string{"operation", "outcome"}, // outcome: success/failure
	)

	// OperationLatency tracks backend call latency.
	OperationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Gateway operation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// BatchSize tracks the number of records per mutation batch.
	BatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size_records",
			Help:      "Records per mutation batch",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 200, 500, 1000, 5000},
		},
		[]string{"operation"},
	)

	// RowsReturned counts rows returned by get.
	RowsReturned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_returned_total",
			Help:      "Total rows returned by queries",
		},
	)

	// RollbacksTotal counts all-or-none batches rolled back by the engine.
	RollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_rollbacks_total",
			Help:      "All-or-none batches rolled back after a record failure",
		},
		[]string{"operation"},
	)
)

// ObserveOutcomes records per-record success and failure counts.
func ObserveOutcomes(operation string, succeeded, failed int) {
	if succeeded > 0 {
		RecordOutcomes.WithLabelValues(operation, "success").Add(float64(succeeded))
	}
	if failed > 0 {
		RecordOutcomes.WithLabelValues(operation, "failure").Add(float64(failed))
	}
}
