// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

/*
Package metrics defines the Prometheus metrics exported at /metrics.

All collectors are registered on the default registry through promauto.

Retraining:
  - retrainer_runs_total{outcome}: skipped, promoted, discarded, failed
  - retrainer_run_duration_seconds{outcome}
  - retrainer_last_run_timestamp_seconds
  - retrainer_model_accuracy{role}: candidate, production
  - retrainer_model_current_version

Samples:
  - retrainer_ledger_pending_samples
  - retrainer_samples_{ingested,skipped,cleared}_total{backend}
  - retrainer_store_operation_duration_seconds{backend,operation}

Serving and events:
  - retrainer_serving_reloads_total{result}
  - retrainer_serving_model_version
  - retrainer_predictions_total{result}
  - retrainer_events_published_total{topic,result}
  - circuit_breaker_state{name}: 0=closed, 1=half-open, 2=open

HTTP:
  - http_requests_total{method,endpoint,status}
  - http_request_duration_seconds{method,endpoint}
  - http_requests_in_flight

Example alert:

	- alert: RetrainerRunsFailing
	  expr: increase(retrainer_runs_total{outcome="failed"}[1h]) > 0
*/
package metrics
