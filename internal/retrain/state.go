// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package retrain

import (
	"errors"
	"time"

	"github.com/tomtom215/retrainer/internal/regression"
)

var (
	// ErrRunInProgress means another run holds the controller or ledger lock.
	ErrRunInProgress = errors.New("retrain: a run is already in progress")

	// ErrNoSamples means the gate passed but the store yielded no samples.
	ErrNoSamples = errors.New("retrain: threshold reached but no samples found")

	// ErrFitTimeout means fitting exceeded the configured wall-clock limit.
	ErrFitTimeout = errors.New("retrain: model fit timed out")
)

// State is a controller phase.
type State int32

const (
	StateIdle State = iota
	StateGated
	StateLoading
	StateTraining
	StateEvaluating
	StatePromoting
	StateDiscarding
	StateFailed
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateGated:      "gated",
	StateLoading:    "loading",
	StateTraining:   "training",
	StateEvaluating: "evaluating",
	StatePromoting:  "promoting",
	StateDiscarding: "discarding",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result of a completed run.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomePromoted  Outcome = "promoted"
	OutcomeDiscarded Outcome = "discarded"
	OutcomeFailed    Outcome = "failed"
)

// Decision reports what a run did.
type Decision struct {
	RunID     string  `json:"run_id"`
	Outcome   Outcome `json:"outcome"`
	Promoted  bool    `json:"promoted"`
	Bootstrap bool    `json:"bootstrap"`

	// Gate inputs from the ledger snapshot.
	Count     int `json:"count"`
	Threshold int `json:"threshold"`

	// OldVersion is the ledger's version at the start of the run, or 0 when
	// it had no artifact. BaseVersion is the ledger's version at the start
	// of the run either way. NewVersion is set only on promotion.
	OldVersion  int     `json:"old_version"`
	BaseVersion int     `json:"base_version"`
	NewVersion  int     `json:"new_version,omitempty"`
	OldAccuracy float64 `json:"old_accuracy"`
	NewAccuracy float64 `json:"new_accuracy"`

	Candidate  *regression.Evaluation `json:"candidate,omitempty"`
	Production *regression.Evaluation `json:"production,omitempty"`

	DataPoints     int  `json:"data_points"`
	TrainSamples   int  `json:"train_samples"`
	TestSamples    int  `json:"test_samples"`
	HeldOut        bool `json:"held_out"`
	SkippedRecords int  `json:"skipped_records"`
	Cleared        int  `json:"cleared"`

	// ModelFile is the promoted artifact's file name, e.g. "v3.gob.gz".
	ModelFile string `json:"model_file,omitempty"`

	// ClearError is set when the drained samples could not be removed after
	// the ledger commit. The run itself is committed.
	ClearError string `json:"clear_error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Status is a point-in-time view of the controller.
type Status struct {
	State        State      `json:"state"`
	Running      bool       `json:"running"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	LastOutcome  Outcome    `json:"last_outcome,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	LastDecision *Decision  `json:"last_decision,omitempty"`
}
