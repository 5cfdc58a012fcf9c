// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

package bind

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for bind evaluation and migration.
var (
	// evaluateDuration tracks the latency of Evaluate() calls, which can
	// include group sync and inventory round-trips.
	evaluateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bind_evaluate_duration_seconds",
		Help:    "Histogram of bind evaluation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// bindEvaluations counts evaluations by bind subtype and outcome.
	bindEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bind_evaluations_total",
		Help: "Total number of bind evaluations",
	}, []string{"subtype", "outcome"})

	// legacyMigrations counts legacy documents converted by shape.
	legacyMigrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bind_legacy_migrations_total",
		Help: "Total number of legacy bind entries migrated",
	}, []string{"shape"})
)

func observeEvaluation(subtype string, matched bool, err error, duration time.Duration) {
	evaluateDuration.Observe(duration.Seconds())
	outcome := "unmatched"
	switch {
	case err != nil:
		outcome = "error"
	case matched:
		outcome = "matched"
	}
	bindEvaluations.WithLabelValues(subtype, outcome).Inc()
}
