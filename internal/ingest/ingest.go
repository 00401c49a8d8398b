// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

// Package ingest is the producer side of the pipeline: it stores samples and
// counts them in the ledger.
//
// Every sample is stored before the ledger is incremented, so the ledger
// never counts a sample the store does not hold.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/ledger"
	"github.com/tomtom215/retrainer/internal/samples"
)

// ErrInvalidCount means a simulation was asked for fewer than one sample.
var ErrInvalidCount = errors.New("ingest: sample count must be positive")

// Ingestor adds samples to the store and the ledger.
type Ingestor struct {
	store     samples.Store
	ledger    *ledger.Ledger
	threshold int
	logger    zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New returns an Ingestor. threshold is used only for status reports.
func New(store samples.Store, l *ledger.Ledger, threshold int, logger zerolog.Logger) *Ingestor {
	seed := uint64(time.Now().UnixNano())
	return &Ingestor{
		store:     store,
		ledger:    l,
		threshold: threshold,
		logger:    logger.With().Str("component", "ingest").Logger(),
		rng:       rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// WithSeed makes Simulate reproducible.
func (i *Ingestor) WithSeed(seed uint64) *Ingestor {
	i.rngMu.Lock()
	i.rng = rand.New(rand.NewPCG(seed, seed))
	i.rngMu.Unlock()
	return i
}

// Add stores one sample and returns the new ledger count.
func (i *Ingestor) Add(ctx context.Context, s samples.Sample) (int, error) {
	if _, err := i.store.Add(ctx, s); err != nil {
		return 0, fmt.Errorf("store sample: %w", err)
	}
	count, err := i.ledger.IncrementCount(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("count sample: %w", err)
	}
	i.logger.Info().
		Float64("hours_studied", s.Feature).
		Float64("score", s.Target).
		Int("count", count).
		Int("threshold", i.threshold).
		Msg("Added new sample")
	return count, nil
}

// Simulate adds n synthetic samples where score is about ten times the hours
// studied plus Gaussian noise. The ledger is incremented once for the batch.
func (i *Ingestor) Simulate(ctx context.Context, n int) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidCount, n)
	}

	stored := 0
	var addErr error
	for range n {
		hours, score := i.draw()
		if _, err := i.store.Add(ctx, samples.Sample{Feature: hours, Target: score}); err != nil {
			addErr = err
			break
		}
		stored++
	}

	// Count what was stored even when the batch stopped early.
	count := 0
	if stored > 0 {
		var err error
		count, err = i.ledger.IncrementCount(ctx, stored)
		if err != nil {
			return 0, fmt.Errorf("count %d samples: %w", stored, err)
		}
	}
	if addErr != nil {
		return count, fmt.Errorf("store sample %d of %d: %w", stored+1, n, addErr)
	}

	i.logger.Info().Int("added", stored).Int("count", count).Int("threshold", i.threshold).Msg("Added simulated samples")
	return count, nil
}

func (i *Ingestor) draw() (hours, score float64) {
	i.rngMu.Lock()
	defer i.rngMu.Unlock()
	hours = 1 + 9*i.rng.Float64()
	score = 10*hours + 5*i.rng.NormFloat64()
	return hours, score
}

// Report summarizes progress toward the next retraining run.
type Report struct {
	Count          int        `json:"count"`
	Threshold      int        `json:"threshold"`
	Progress       float64    `json:"progress_percent"`
	Remaining      int        `json:"remaining"`
	Ready          bool       `json:"ready"`
	CurrentVersion int        `json:"current_version"`
	LastTrainedAt  *time.Time `json:"last_trained,omitempty"`
	StoredSamples  int        `json:"stored_samples"`
}

// Status reads the ledger and the store.
func (i *Ingestor) Status(ctx context.Context) (Report, error) {
	st, _, err := i.ledger.Load(ctx)
	if err != nil {
		return Report{}, err
	}
	stored, err := i.store.Count(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("count stored samples: %w", err)
	}
	return NewReport(st, i.threshold, stored), nil
}

// NewReport computes a Report from a ledger state.
func NewReport(st ledger.State, threshold, stored int) Report {
	r := Report{
		Count:          st.Count,
		Threshold:      threshold,
		Ready:          st.Count >= threshold,
		Remaining:      max(threshold-st.Count, 0),
		CurrentVersion: st.CurrentVersion,
		LastTrainedAt:  st.LastTrainedAt,
		StoredSamples:  stored,
	}
	if threshold > 0 {
		r.Progress = float64(st.Count) / float64(threshold) * 100
	}
	return r
}
