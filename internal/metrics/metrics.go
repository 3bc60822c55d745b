// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Breaker state gauge values.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// Layer failure reasons.
const (
	FailureError   = "error"
	FailureTimeout = "timeout"
	FailurePanic   = "panic"
	FailureOpen    = "circuit_open"
)

// Inference degradation modes.
const (
	DegradedRaw   = "raw"
	DegradedEmpty = "empty"
)

// Training outcomes.
const (
	TrainingSuccess          = "success"
	TrainingInsufficientData = "insufficient_data"
	TrainingError            = "error"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentrank_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentrank_duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Recommendation serving
	RecommendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentrank_recommend_requests_total",
			Help: "Recommendation requests by the layer that served them (none when empty)",
		},
		[]string{"layer"},
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contentrank_recommend_duration_seconds",
			Help:    "End-to-end duration of GetRecommendations",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	RecommendItemsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contentrank_recommend_items_returned",
			Help:    "Number of items returned per request",
			Buckets: []float64{0, 1, 5, 10, 12, 20, 50, 100},
		},
	)

	LayerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentrank_recommend_layer_duration_seconds",
			Help:    "Duration of individual fallback layer calls",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"layer"},
	)

	LayerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentrank_recommend_layer_failures_total",
			Help: "Fallback layer failures by reason (error, timeout, panic, circuit_open)",
		},
		[]string{"layer", "reason"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contentrank_circuit_breaker_state",
			Help: "Circuit breaker state per layer (0=closed, 1=half-open, 2=open)",
		},
		[]string{"layer"},
	)

	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentrank_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"layer", "from", "to"},
	)

	RecommendCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentrank_recommend_cache_lookups_total",
			Help: "Result cache lookups by outcome (hit, miss, error)",
		},
		[]string{"result"},
	)

	// Inference
	InferenceDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentrank_inference_degraded_total",
			Help: "Inference calls that fell back to raw top-N or to an empty result",
		},
		[]string{"mode"},
	)

	ArtifactReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentrank_artifact_reloads_total",
			Help: "Artifact loads by outcome",
		},
		[]string{"outcome"},
	)

	ArtifactTrainedAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contentrank_artifact_trained_timestamp_seconds",
			Help: "Training time of the currently loaded artifact",
		},
	)

	// Training
	TrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentrank_training_runs_total",
			Help: "Training runs by outcome",
		},
		[]string{"outcome"},
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contentrank_training_duration_seconds",
			Help:    "Duration of training runs",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900, 3600},
		},
	)

	TrainingDatasetSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contentrank_training_dataset_size",
			Help: "Size of the last successful training dataset (users, items, triples)",
		},
		[]string{"kind"},
	)

	TrainingFinalLoss = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contentrank_training_final_loss",
			Help: "Mean weighted margin loss of the final epoch",
		},
	)

	TrainingLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contentrank_training_last_success_timestamp_seconds",
			Help: "Unix time of the last successful training run",
		},
	)

	// Batch recompute
	RecomputeRowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contentrank_recompute_rows_written_total",
			Help: "Precomputed recommendation rows written",
		},
	)

	RecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contentrank_recompute_duration_seconds",
			Help:    "Duration of precomputed table rebuilds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300},
		},
	)

	RecomputeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contentrank_recompute_errors_total",
			Help: "Failed precomputed table rebuilds",
		},
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentrank_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentrank_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordRecommendation records one completed GetRecommendations call.
// layer is empty when nothing was returned.
func RecordRecommendation(layer string, duration time.Duration, items int) {
	if layer == "" {
		layer = "none"
	}
	RecommendRequestsTotal.WithLabelValues(layer).Inc()
	RecommendDuration.Observe(duration.Seconds())
	RecommendItemsReturned.Observe(float64(items))
}

// RecordLayerCall records the duration of one layer invocation.
func RecordLayerCall(layer string, duration time.Duration) {
	LayerDuration.WithLabelValues(layer).Observe(duration.Seconds())
}

// RecordLayerFailure counts a failed or skipped layer call.
func RecordLayerFailure(layer, reason string) {
	LayerFailuresTotal.WithLabelValues(layer, reason).Inc()
}

// RecordBreakerTransition updates the state gauge and counts the transition.
func RecordBreakerTransition(layer, from, to string) {
	BreakerTransitions.WithLabelValues(layer, from, to).Inc()
	BreakerState.WithLabelValues(layer).Set(float64(breakerStateValue(to)))
}

func breakerStateValue(state string) int {
	switch state {
	case "open":
		return BreakerOpen
	case "half-open":
		return BreakerHalfOpen
	default:
		return BreakerClosed
	}
}

// RecordCacheLookup counts a result-cache lookup ("hit", "miss" or "error").
func RecordCacheLookup(result string) {
	RecommendCacheLookups.WithLabelValues(result).Inc()
}

// RecordInferenceDegraded counts a degraded inference call ("raw" or "empty").
func RecordInferenceDegraded(mode string) {
	InferenceDegradedTotal.WithLabelValues(mode).Inc()
}

// RecordArtifactReload records an artifact load attempt.
func RecordArtifactReload(trainedAt time.Time, err error) {
	if err != nil {
		ArtifactReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	ArtifactReloadsTotal.WithLabelValues("success").Inc()
	if !trainedAt.IsZero() {
		ArtifactTrainedAt.Set(float64(trainedAt.Unix()))
	}
}

// TrainingResult summarises a training run for RecordTraining.
type TrainingResult struct {
	Outcome   string
	Duration  time.Duration
	Users     int
	Items     int
	Triples   int
	FinalLoss float64
}

// RecordTraining records a finished training run.
func RecordTraining(r TrainingResult) {
	TrainingRunsTotal.WithLabelValues(r.Outcome).Inc()
	TrainingDuration.Observe(r.Duration.Seconds())
	if r.Outcome != TrainingSuccess {
		return
	}
	TrainingDatasetSize.WithLabelValues("users").Set(float64(r.Users))
	TrainingDatasetSize.WithLabelValues("items").Set(float64(r.Items))
	TrainingDatasetSize.WithLabelValues("triples").Set(float64(r.Triples))
	TrainingFinalLoss.Set(r.FinalLoss)
	TrainingLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordRecompute records a precomputed table rebuild.
func RecordRecompute(rows int, duration time.Duration, err error) {
	RecomputeDuration.Observe(duration.Seconds())
	if err != nil {
		RecomputeErrors.Inc()
		return
	}
	RecomputeRowsWritten.Add(float64(rows))
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
