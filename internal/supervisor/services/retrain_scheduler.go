// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/retrain"
)

// defaultRunTimeout bounds one scheduled run.
const defaultRunTimeout = 30 * time.Minute

// Trainer runs one retraining pass.
type Trainer interface {
	Run(ctx context.Context) (*retrain.Decision, error)
}

// RetrainSchedulerConfig configures the scheduler.
type RetrainSchedulerConfig struct {
	// TrainOnStartup runs once as soon as the service starts.
	TrainOnStartup bool

	// Interval between runs. Defaults to one hour.
	Interval time.Duration

	// RunTimeout bounds each run. Defaults to 30 minutes.
	RunTimeout time.Duration
}

// RetrainScheduler triggers the controller on a fixed interval. A run below
// the threshold is a cheap no-op, so ticking often is fine.
type RetrainScheduler struct {
	trainer Trainer
	config  RetrainSchedulerConfig
	logger  zerolog.Logger
	name    string
}

// NewRetrainScheduler creates the scheduler.
func NewRetrainScheduler(trainer Trainer, cfg RetrainSchedulerConfig, logger zerolog.Logger) *RetrainScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	return &RetrainScheduler{
		trainer: trainer,
		config:  cfg,
		logger:  logger.With().Str("service", "retrain-scheduler").Logger(),
		name:    "retrain-scheduler",
	}
}

// Serve implements suture.Service. Failed runs are logged and retried on
// the next tick rather than restarting the service.
func (s *RetrainScheduler) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("interval", s.config.Interval).
		Msg("Retrain scheduler starting")

	if s.config.TrainOnStartup {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Retrain scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *RetrainScheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	d, err := s.trainer.Run(runCtx)
	switch {
	case errors.Is(err, retrain.ErrRunInProgress):
		s.logger.Warn().Msg("Scheduled run skipped, another run holds the ledger")
	case err != nil:
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("Scheduled retraining run failed")
		}
	default:
		s.logger.Debug().Str("outcome", string(d.Outcome)).Msg("Scheduled retraining run finished")
	}
}

func (s *RetrainScheduler) String() string {
	return s.name
}
