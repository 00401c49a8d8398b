// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

// Package serving answers point predictions with the model version the
// ledger currently points at. It reads the registry and never writes it.
package serving

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/metrics"
	"github.com/tomtom215/retrainer/internal/registry"
	"github.com/tomtom215/retrainer/internal/regression"
)

var (
	// ErrNotReady means no artifact exists for the current version yet.
	ErrNotReady = errors.New("serving: model is not trained yet")

	// ErrInvalidInput means the feature value is not a finite number.
	ErrInvalidInput = errors.New("serving: feature must be a finite number")
)

// VersionSource reports the live model version.
type VersionSource interface {
	GetCurrentVersion(ctx context.Context) (int, error)
}

// ArtifactSource loads stored artifacts.
type ArtifactSource interface {
	LoadArtifact(ctx context.Context, version int) (*registry.Artifact, bool, error)
}

// Loaded is the model currently answering predictions.
type Loaded struct {
	Version  int
	Model    *regression.Model
	LoadedAt time.Time
}

// Prediction is the answer to one request.
type Prediction struct {
	Hours          float64 `json:"hours"`
	PredictedScore float64 `json:"predicted_score"`
	ModelVersion   int     `json:"model_version"`
}

// ReloadResult describes what Reload did.
type ReloadResult string

const (
	ReloadLoaded    ReloadResult = "loaded"
	ReloadUnchanged ReloadResult = "unchanged"
	ReloadMissing   ReloadResult = "missing"
	ReloadFailed    ReloadResult = "failed"
)

// Adapter holds the live model and swaps it atomically on reload.
type Adapter struct {
	versions  VersionSource
	artifacts ArtifactSource
	logger    zerolog.Logger

	current  atomic.Pointer[Loaded]
	reloadMu sync.Mutex
}

// New returns an adapter with no model loaded. Call Reload before serving.
func New(versions VersionSource, artifacts ArtifactSource, logger zerolog.Logger) *Adapter {
	return &Adapter{
		versions:  versions,
		artifacts: artifacts,
		logger:    logger.With().Str("component", "serving").Logger(),
	}
}

// Current returns the loaded model, or nil.
func (a *Adapter) Current() *Loaded {
	return a.current.Load()
}

// Ready reports whether a model is loaded.
func (a *Adapter) Ready() bool {
	return a.current.Load() != nil
}

// Reload loads the artifact at the ledger's current version if it differs
// from the loaded one. On any failure the previous model keeps serving.
func (a *Adapter) Reload(ctx context.Context) (ReloadResult, error) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	version, err := a.versions.GetCurrentVersion(ctx)
	if err != nil {
		metrics.RecordServingReload(string(ReloadFailed), 0)
		return ReloadFailed, fmt.Errorf("read current version: %w", err)
	}
	if cur := a.current.Load(); cur != nil && cur.Version == version {
		return ReloadUnchanged, nil
	}

	art, found, err := a.artifacts.LoadArtifact(ctx, version)
	if err != nil {
		metrics.RecordServingReload(string(ReloadFailed), 0)
		a.logger.Error().Err(err).Int("version", version).Msg("Failed to load model, keeping previous")
		return ReloadFailed, err
	}
	if !found {
		metrics.RecordServingReload(string(ReloadMissing), 0)
		a.logger.Warn().Int("version", version).Msg("Model not found. Run training first")
		return ReloadMissing, nil
	}

	prev := a.current.Swap(&Loaded{Version: version, Model: art.Model, LoadedAt: time.Now().UTC()})
	metrics.RecordServingReload(string(ReloadLoaded), version)

	ev := a.logger.Info().Int("version", version).Str("model", art.Model.String())
	if prev != nil {
		ev = ev.Int("previous_version", prev.Version)
	}
	ev.Msg("Model loaded")
	return ReloadLoaded, nil
}

// Predict returns the score predicted for hours studied.
func (a *Adapter) Predict(hours float64) (Prediction, error) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return Prediction{}, ErrInvalidInput
	}
	cur := a.current.Load()
	metrics.RecordPrediction(cur != nil)
	if cur == nil {
		return Prediction{}, ErrNotReady
	}
	return Prediction{
		Hours:          hours,
		PredictedScore: cur.Model.Predict(hours),
		ModelVersion:   cur.Version,
	}, nil
}

// Run reloads every interval until ctx is done.
func (a *Adapter) Run(ctx context.Context, interval time.Duration) error {
	if _, err := a.Reload(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Initial model load failed")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.Reload(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn().Err(err).Msg("Periodic model reload failed")
			}
		}
	}
}
