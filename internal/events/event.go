// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/retrainer/internal/retrain"
)

// PromotionEvent is the payload published after every committed run.
type PromotionEvent struct {
	EventID     string    `json:"event_id"`
	RunID       string    `json:"run_id"`
	Outcome     string    `json:"outcome"`
	Promoted    bool      `json:"promoted"`
	OldVersion  int       `json:"old_version"`
	NewVersion  int       `json:"new_version,omitempty"`
	OldAccuracy float64   `json:"old_accuracy"`
	NewAccuracy float64   `json:"new_accuracy"`
	ModelFile   string    `json:"model_file,omitempty"`
	DataPoints  int       `json:"data_points"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewPromotionEvent builds the event for d.
func NewPromotionEvent(d *retrain.Decision) *PromotionEvent {
	occurred := d.FinishedAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return &PromotionEvent{
		EventID:     uuid.NewString(),
		RunID:       d.RunID,
		Outcome:     string(d.Outcome),
		Promoted:    d.Promoted,
		OldVersion:  d.OldVersion,
		NewVersion:  d.NewVersion,
		OldAccuracy: d.OldAccuracy,
		NewAccuracy: d.NewAccuracy,
		ModelFile:   d.ModelFile,
		DataPoints:  d.DataPoints,
		OccurredAt:  occurred,
	}
}

// Encode serializes the event.
func (e *PromotionEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodePromotionEvent parses an encoded event.
func DecodePromotionEvent(data []byte) (*PromotionEvent, error) {
	var e PromotionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode promotion event: %w", err)
	}
	if e.EventID == "" {
		return nil, fmt.Errorf("decode promotion event: missing event_id")
	}
	return &e, nil
}
