// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Retraining Controller Metrics
	RetrainRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrainer_runs_total",
			Help: "Total number of retraining runs by outcome",
		},
		[]string{"outcome"}, // "skipped", "promoted", "discarded", "failed"
	)

	RetrainRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retrainer_run_duration_seconds",
			Help:    "Duration of retraining runs in seconds",
			Buckets: []float64{.001, .01, .1, .5, 1, 5, 30, 120},
		},
		[]string{"outcome"},
	)

	RetrainLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retrainer_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last committed (promoted or discarded) run",
		},
	)

	ModelAccuracy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "retrainer_model_accuracy",
			Help: "Accuracy (max(0, r2*100)) of the last evaluated models",
		},
		[]string{"role"}, // "candidate", "production"
	)

	ModelCurrentVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retrainer_model_current_version",
			Help: "Current production model version recorded in the ledger",
		},
	)

	// Ledger and Sample Store Metrics
	LedgerPendingSamples = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retrainer_ledger_pending_samples",
			Help: "Samples accumulated since the last committed run",
		},
	)

	SamplesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrainer_samples_ingested_total",
			Help: "Total number of samples written to the sample store",
		},
		[]string{"backend"},
	)

	SamplesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrainer_samples_skipped_total",
			Help: "Total number of malformed sample records skipped during aggregation",
		},
		[]string{"backend"},
	)

	SamplesCleared = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrainer_samples_cleared_total",
			Help: "Total number of sample records removed after a committed run",
		},
		[]string{"backend"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retrainer_store_operation_duration_seconds",
			Help:    "Duration of sample store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrainer_store_operation_errors_total",
			Help: "Total number of failed sample store operations",
		},
		[]string{"backend", "operation"},
	)

	// Serving Metrics
	ServingReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrainer_serving_reloads_total",
			Help: "Total number of serving model reload attempts",
		},
		[]string{"result"}, // "loaded", "unchanged", "not_ready", "error"
	)

	ServingModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retrainer_serving_model_version",
			Help: "Model version currently loaded by the serving adapter (0 = none)",
		},
	)

	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrainer_predictions_total",
			Help: "Total number of prediction requests",
		},
		[]string{"result"}, // "ok", "not_ready"
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrainer_events_published_total",
			Help: "Total number of promotion events published",
		},
		[]string{"topic", "result"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrainer_events_consumed_total",
			Help: "Total number of promotion events handled",
		},
		[]string{"handler", "result"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// RecordRetrainRun records the outcome and duration of one controller run.
func RecordRetrainRun(outcome string, duration time.Duration) {
	RetrainRunsTotal.WithLabelValues(outcome).Inc()
	RetrainRunDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if outcome == "promoted" || outcome == "discarded" {
		RetrainLastRunTimestamp.Set(float64(time.Now().Unix()))
	}
}

// RecordEvaluation records the accuracy of a candidate or production model.
func RecordEvaluation(role string, accuracy float64) {
	ModelAccuracy.WithLabelValues(role).Set(accuracy)
}

// SetCurrentVersion records the ledger's production version.
func SetCurrentVersion(version int) {
	ModelCurrentVersion.Set(float64(version))
}

// SetLedgerPending records the accumulated sample count.
func SetLedgerPending(count int) {
	LedgerPendingSamples.Set(float64(count))
}

// RecordSamplesIngested counts samples written to a backend.
func RecordSamplesIngested(backend string, n int) {
	SamplesIngested.WithLabelValues(backend).Add(float64(n))
}

// RecordSamplesSkipped counts malformed records skipped by a backend.
func RecordSamplesSkipped(backend string, n int) {
	if n > 0 {
		SamplesSkipped.WithLabelValues(backend).Add(float64(n))
	}
}

// RecordSamplesCleared counts drained records removed by a backend.
func RecordSamplesCleared(backend string, n int) {
	SamplesCleared.WithLabelValues(backend).Add(float64(n))
}

// RecordStoreOperation records a sample store operation.
func RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordServingReload records a reload attempt and, when loaded, the version.
func RecordServingReload(result string, version int) {
	ServingReloads.WithLabelValues(result).Inc()
	if result == "loaded" {
		ServingModelVersion.Set(float64(version))
	}
}

// RecordPrediction records one prediction request.
func RecordPrediction(ready bool) {
	if ready {
		Predictions.WithLabelValues("ok").Inc()
		return
	}
	Predictions.WithLabelValues("not_ready").Inc()
}

// RecordEventPublish records one publish attempt.
func RecordEventPublish(topic string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsPublished.WithLabelValues(topic, result).Inc()
}

// RecordEventConsumed records one handled event.
func RecordEventConsumed(handler string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsConsumed.WithLabelValues(handler, result).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
