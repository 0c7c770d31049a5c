// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeloan_predictions_total",
			Help: "Total number of predictions by verdict",
		},
		[]string{"verdict"},
	)

	PredictionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homeloan_prediction_errors_total",
			Help: "Total number of predictions that failed inside the pipeline",
		},
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "homeloan_prediction_duration_seconds",
			Help:    "Duration of pipeline invocations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
		},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeloan_validation_failures_total",
			Help: "Total number of rejected application fields by error code",
		},
		[]string{"code"},
	)

	FormActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeloan_form_actions_total",
			Help: "Total number of form actions by action and resulting phase",
		},
		[]string{"action", "phase"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homeloan_sessions_active",
			Help: "Number of form sessions held by the in-memory session store",
		},
	)
)
