// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package models

import (
	"time"

	"github.com/tomtom215/retrainer/internal/ingest"
	"github.com/tomtom215/retrainer/internal/registry"
	"github.com/tomtom215/retrainer/internal/retrain"
)

// APIResponse wraps every API response.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes the response itself.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the machine-readable failure.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PredictRequest is the body of POST /api/v1/predict.
type PredictRequest struct {
	HoursStudied *float64 `json:"hours_studied" validate:"required,finite"`
}

// SampleRequest is the body of POST /api/v1/samples.
type SampleRequest struct {
	HoursStudied *float64 `json:"hours_studied" validate:"required,finite"`
	Score        *float64 `json:"score" validate:"required,finite"`
}

// SimulateRequest is the body of POST /api/v1/samples/simulate.
type SimulateRequest struct {
	Count int `json:"count" validate:"required,min=1,max=10000"`
}

// SampleResponse reports the ledger after an ingest.
type SampleResponse struct {
	Added     int  `json:"added"`
	Count     int  `json:"count"`
	Threshold int  `json:"threshold"`
	Ready     bool `json:"ready"`
}

// ServingStatus describes the loaded model.
type ServingStatus struct {
	Ready    bool       `json:"ready"`
	Version  int        `json:"version,omitempty"`
	Model    string     `json:"model,omitempty"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Ledger     ingest.Report  `json:"ledger"`
	Controller retrain.Status `json:"controller"`
	Serving    ServingStatus  `json:"serving"`
}

// ModelsResponse is the body of GET /api/v1/models.
type ModelsResponse struct {
	CurrentVersion int               `json:"current_version"`
	Versions       []int             `json:"versions"`
	Records        []registry.Record `json:"records"`
}

// RetrainResponse is the body of POST /api/v1/retrain.
type RetrainResponse struct {
	Accepted bool              `json:"accepted"`
	Message  string            `json:"message,omitempty"`
	Decision *retrain.Decision `json:"decision,omitempty"`
}
