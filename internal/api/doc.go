// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

/*
Package api provides the HTTP interface of the retrainer service, routed with
chi.

Endpoints:

	GET  /                          liveness message
	GET  /api/v1/health/live        process is up
	GET  /api/v1/health/ready       a model is loaded
	GET  /api/v1/status             ledger progress, controller and serving state
	POST /api/v1/predict            {"hours_studied": 5} -> predicted score
	POST /api/v1/samples            {"hours_studied": 5, "score": 52}
	POST /api/v1/samples/simulate   {"count": 50}
	POST /api/v1/retrain            start a run (?wait=true blocks for the decision)
	GET  /api/v1/models             stored versions and the metadata log
	GET  /metrics                   Prometheus metrics

Predictions answer 503 with code MODEL_NOT_READY until a model exists. The
serving endpoint is unauthenticated. POST /api/v1/retrain is throttled to one
run per retrain_min_interval on top of the per-IP httprate limit.
*/
package api
