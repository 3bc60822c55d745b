// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

/*
Package metrics defines the Prometheus instrumentation for contentrank.

All collectors are registered on the default registry through promauto and
are exposed by the HTTP surface at GET /metrics. Callers use the Record*
helpers rather than touching collectors directly.

# Metric Families

Serving:
  - contentrank_recommend_requests_total{layer}
  - contentrank_recommend_duration_seconds
  - contentrank_recommend_layer_duration_seconds{layer}
  - contentrank_recommend_layer_failures_total{layer,reason}
  - contentrank_circuit_breaker_state{layer}
  - contentrank_circuit_breaker_transitions_total{layer,from,to}
  - contentrank_recommend_cache_lookups_total{result}

Model lifecycle:
  - contentrank_training_runs_total{outcome}
  - contentrank_training_duration_seconds
  - contentrank_training_dataset_size{kind}
  - contentrank_training_final_loss
  - contentrank_inference_degraded_total{mode}
  - contentrank_artifact_reloads_total{outcome}
  - contentrank_recompute_rows_written_total

Storage and HTTP:
  - contentrank_duckdb_query_duration_seconds{operation,table}
  - contentrank_http_requests_total{method,endpoint,status}

# Example PromQL

Share of requests served by a fallback layer:

	sum(rate(contentrank_recommend_requests_total{layer!="ai"}[5m]))
	  / sum(rate(contentrank_recommend_requests_total[5m]))

Layers with an open breaker:

	contentrank_circuit_breaker_state == 2
*/
package metrics
