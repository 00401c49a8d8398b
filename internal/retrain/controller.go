// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package retrain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/config"
	"github.com/tomtom215/retrainer/internal/ledger"
	"github.com/tomtom215/retrainer/internal/logging"
	"github.com/tomtom215/retrainer/internal/metrics"
	"github.com/tomtom215/retrainer/internal/registry"
	"github.com/tomtom215/retrainer/internal/regression"
	"github.com/tomtom215/retrainer/internal/samples"
)

// ModelRegistry is the part of the registry the controller uses.
type ModelRegistry interface {
	LoadArtifact(ctx context.Context, version int) (*registry.Artifact, bool, error)
	SaveArtifact(ctx context.Context, version int, m *regression.Model) (*registry.Artifact, error)
	AppendMetadata(ctx context.Context, rec registry.Record) error
	LatestVersion(ctx context.Context) (int, bool, error)
	CheckMetadata(ctx context.Context, version int) error
	RemoveArtifact(ctx context.Context, version int) error
	Prune(ctx context.Context, keep int, protect ...int) ([]int, error)
}

// Notifier is told about every committed run. Errors are logged and do not
// affect the run.
type Notifier interface {
	Notify(ctx context.Context, d *Decision) error
}

// Options configures a Controller.
type Options struct {
	Training config.TrainingConfig

	// PruneKeep keeps only the newest artifacts after a promotion. The new and
	// previous production versions always survive. 0 disables.
	PruneKeep int
}

// Controller runs the retraining pipeline.
type Controller struct {
	opts     Options
	ledger   *ledger.Ledger
	store    samples.Store
	registry ModelRegistry
	logger   zerolog.Logger
	now      func() time.Time

	notifiers []Notifier

	// runMu rejects overlapping runs in this process before touching the
	// ledger lock.
	runMu sync.Mutex
	state atomic.Int32

	statusMu sync.RWMutex
	status   Status
}

// NewController wires a controller.
func NewController(opts Options, l *ledger.Ledger, store samples.Store, reg ModelRegistry, logger zerolog.Logger) *Controller {
	return &Controller{
		opts:     opts,
		ledger:   l,
		store:    store,
		registry: reg,
		logger:   logger.With().Str("component", "retrain").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddNotifier registers n. It must be called before the first Run.
func (c *Controller) AddNotifier(n Notifier) {
	c.notifiers = append(c.notifiers, n)
}

// State returns the current phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Status returns the current phase and the result of the last run.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	st := c.status
	c.statusMu.RUnlock()
	st.State = c.State()
	st.Running = st.State != StateIdle && st.State != StateFailed
	return st
}

// Run executes one retraining run. A run below the threshold returns an
// OutcomeSkipped decision and changes nothing.
func (c *Controller) Run(ctx context.Context) (*Decision, error) {
	if !c.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer c.runMu.Unlock()

	runID := uuid.NewString()
	ctx = logging.ContextWithCorrelationID(ctx, runID[:8])
	logger := c.logger.With().Str("run_id", runID).Logger()
	start := c.now()

	d, err := c.run(ctx, logger, &Decision{RunID: runID, StartedAt: start, Threshold: c.opts.Training.Threshold})

	outcome := OutcomeFailed
	if err == nil {
		outcome = d.Outcome
		c.setState(StateIdle)
	} else {
		c.setState(StateFailed)
		logger.Error().Err(err).Msg("Retraining run failed")
	}
	metrics.RecordRetrainRun(string(outcome), time.Since(start))
	c.recordStatus(d, err)

	if err != nil {
		return nil, err
	}
	if d.Outcome != OutcomeSkipped {
		c.notify(ctx, logger, d)
	}
	return d, nil
}

func (c *Controller) run(ctx context.Context, logger zerolog.Logger, d *Decision) (*Decision, error) {
	c.setState(StateGated)
	txn, err := c.ledger.Begin(ctx)
	if err != nil {
		if errors.Is(err, ledger.ErrLocked) {
			return nil, ErrRunInProgress
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	defer txn.Release()

	snap := txn.Snapshot()
	d.Count = snap.Count
	d.OldVersion = snap.CurrentVersion
	d.BaseVersion = snap.CurrentVersion
	metrics.SetLedgerPending(snap.Count)

	if snap.Count < c.opts.Training.Threshold {
		d.Outcome = OutcomeSkipped
		d.FinishedAt = c.now()
		logger.Info().
			Int("count", snap.Count).
			Int("threshold", c.opts.Training.Threshold).
			Msg("Not enough new samples, skipping training")
		return d, nil
	}

	c.setState(StateLoading)
	batch, err := c.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}
	if batch.Len() == 0 {
		return nil, fmt.Errorf("%w: ledger count %d", ErrNoSamples, snap.Count)
	}
	d.DataPoints = batch.Len()
	d.SkippedRecords = batch.Skipped
	logger.Info().
		Int("samples", batch.Len()).
		Int("skipped", batch.Skipped).
		Bool("fallback", batch.Fallback).
		Msg("Loaded training samples")

	production, found, err := c.registry.LoadArtifact(ctx, snap.CurrentVersion)
	if err != nil {
		return nil, fmt.Errorf("load production model v%d: %w", snap.CurrentVersion, err)
	}
	if !found {
		d.Bootstrap = true
		d.OldVersion = 0
	}

	c.setState(StateTraining)
	split := regression.NewSplit(batch.Len(), c.opts.Training.TestSize, c.opts.Training.Seed, c.opts.Training.MinSplitSamples)
	d.HeldOut = split.HeldOut
	d.TrainSamples = len(split.Train)
	d.TestSamples = len(split.Test)

	trainX, trainY := regression.Take(batch.Features, split.Train), regression.Take(batch.Targets, split.Train)
	testX, testY := regression.Take(batch.Features, split.Test), regression.Take(batch.Targets, split.Test)

	candidate, err := c.fit(ctx, trainX, trainY)
	if err != nil {
		return nil, fmt.Errorf("train candidate: %w", err)
	}

	c.setState(StateEvaluating)
	candEval, err := regression.Evaluate(candidate, testX, testY)
	if err != nil {
		return nil, fmt.Errorf("evaluate candidate: %w", err)
	}
	d.Candidate = &candEval
	d.NewAccuracy = candEval.Accuracy
	metrics.RecordEvaluation("candidate", candEval.Accuracy)

	if found {
		prodEval, err := regression.Evaluate(production.Model, testX, testY)
		if err != nil {
			return nil, fmt.Errorf("evaluate production model v%d: %w", snap.CurrentVersion, err)
		}
		d.Production = &prodEval
		d.OldAccuracy = prodEval.Accuracy
		metrics.RecordEvaluation("production", prodEval.Accuracy)
	}

	logger.Info().
		Float64("candidate_accuracy", d.NewAccuracy).
		Float64("production_accuracy", d.OldAccuracy).
		Bool("bootstrap", d.Bootstrap).
		Bool("held_out", d.HeldOut).
		Msg("Models evaluated")

	if d.Bootstrap || d.NewAccuracy > d.OldAccuracy {
		err = c.promote(ctx, logger, txn, snap, candidate, batch, d)
	} else {
		err = c.discard(ctx, logger, txn, snap, batch, d)
	}
	if err != nil {
		return nil, err
	}
	d.FinishedAt = c.now()
	return d, nil
}

// fit runs regression.Fit under the configured wall-clock limit.
func (c *Controller) fit(ctx context.Context, x, y []float64) (*regression.Model, error) {
	if c.opts.Training.FitTimeout <= 0 {
		return regression.Fit(ctx, x, y)
	}
	fitCtx, cancel := context.WithTimeout(ctx, c.opts.Training.FitTimeout)
	defer cancel()

	type result struct {
		m   *regression.Model
		err error
	}
	done := make(chan result, 1)
	go func() {
		m, err := regression.Fit(fitCtx, x, y)
		done <- result{m, err}
	}()

	select {
	case r := <-done:
		return r.m, r.err
	case <-fitCtx.Done():
		if errors.Is(fitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrFitTimeout, c.opts.Training.FitTimeout)
		}
		return nil, fitCtx.Err()
	}
}

func (c *Controller) promote(ctx context.Context, logger zerolog.Logger, txn *ledger.Txn, snap ledger.State,
	candidate *regression.Model, batch *samples.Batch, d *Decision) error {
	c.setState(StatePromoting)

	latest, _, err := c.registry.LatestVersion(ctx)
	if err != nil {
		return fmt.Errorf("scan registry: %w", err)
	}
	newVersion := max(snap.CurrentVersion, latest) + 1

	// The metadata log must accept the record before the artifact exists.
	if err := c.registry.CheckMetadata(ctx, newVersion); err != nil {
		return fmt.Errorf("check metadata v%d: %w", newVersion, err)
	}

	artifact, err := c.registry.SaveArtifact(ctx, newVersion, candidate)
	if err != nil {
		return fmt.Errorf("save model v%d: %w", newVersion, err)
	}

	err = c.registry.AppendMetadata(ctx, registry.Record{
		Version:       newVersion,
		AccuracyScore: d.Candidate.Accuracy,
		R2Score:       d.Candidate.R2,
		MSE:           d.Candidate.MSE,
		TrainedAt:     candidate.TrainedAt,
		DataPoints:    batch.Len(),
	})
	if err != nil {
		if rmErr := c.registry.RemoveArtifact(ctx, newVersion); rmErr != nil {
			logger.Error().Err(rmErr).Int("version", newVersion).Msg("Failed to remove unrecorded model artifact")
		}
		return fmt.Errorf("record metadata v%d: %w", newVersion, err)
	}

	now := c.now()
	if err := txn.Commit(ledger.State{Count: 0, LastTrainedAt: &now, CurrentVersion: newVersion}); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}

	d.Outcome = OutcomePromoted
	d.Promoted = true
	d.NewVersion = newVersion
	d.ModelFile = registry.FileName(newVersion)
	logger.Info().
		Int("old_version", d.OldVersion).
		Int("new_version", newVersion).
		Float64("accuracy_change", d.NewAccuracy-d.OldAccuracy).
		Str("model_file", artifact.Path).
		Msg("Candidate promoted")

	c.clear(ctx, logger, batch, d)

	if c.opts.PruneKeep > 0 {
		if _, err := c.registry.Prune(ctx, c.opts.PruneKeep, newVersion, snap.CurrentVersion); err != nil {
			logger.Warn().Err(err).Msg("Failed to prune old model artifacts")
		}
	}
	return nil
}

func (c *Controller) discard(ctx context.Context, logger zerolog.Logger, txn *ledger.Txn, snap ledger.State,
	batch *samples.Batch, d *Decision) error {
	c.setState(StateDiscarding)

	now := c.now()
	if err := txn.Commit(ledger.State{Count: 0, LastTrainedAt: &now, CurrentVersion: snap.CurrentVersion}); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}
	d.Outcome = OutcomeDiscarded
	logger.Info().
		Float64("candidate_accuracy", d.NewAccuracy).
		Float64("production_accuracy", d.OldAccuracy).
		Msg("Candidate did not improve on production, discarded")

	c.clear(ctx, logger, batch, d)
	return nil
}

// clear removes the drained samples. The run is already committed, so a
// failure is reported on the decision instead of failing the run.
func (c *Controller) clear(ctx context.Context, logger zerolog.Logger, batch *samples.Batch, d *Decision) {
	removed, err := c.store.Clear(ctx, batch)
	d.Cleared = removed
	if err != nil {
		d.ClearError = err.Error()
		logger.Error().Err(err).Int("removed", removed).Msg("Failed to clear drained samples")
	}
}

func (c *Controller) notify(ctx context.Context, logger zerolog.Logger, d *Decision) {
	for _, n := range c.notifiers {
		if err := n.Notify(ctx, d); err != nil {
			logger.Warn().Err(err).Str("notifier", fmt.Sprintf("%T", n)).Msg("Notifier failed")
		}
	}
}

func (c *Controller) recordStatus(d *Decision, err error) {
	now := c.now()
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.status.LastRunAt = &now
	if err != nil {
		c.status.LastOutcome = OutcomeFailed
		c.status.LastError = err.Error()
		return
	}
	c.status.LastOutcome = d.Outcome
	c.status.LastError = ""
	c.status.LastDecision = d
}
