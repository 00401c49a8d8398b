// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/cisignal"
	"github.com/tomtom215/retrainer/internal/config"
	"github.com/tomtom215/retrainer/internal/ingest"
	"github.com/tomtom215/retrainer/internal/ledger"
	"github.com/tomtom215/retrainer/internal/logging"
	"github.com/tomtom215/retrainer/internal/registry"
	"github.com/tomtom215/retrainer/internal/retrain"
	"github.com/tomtom215/retrainer/internal/samples"
)

// app holds the components shared by every command.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	store      samples.Store
	ledger     *ledger.Ledger
	registry   *registry.Registry
	controller *retrain.Controller
	ingestor   *ingest.Ingestor
}

func newApp(cfg *config.Config) (*app, error) {
	logger := logging.Logger()

	for _, dir := range []string{cfg.Data.Dir, cfg.Registry.Dir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	store, err := samples.Open(cfg.Samples, logger)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(cfg.Registry.Dir, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	l := ledger.New(cfg.Data.LedgerPath, logger)

	ctrl := retrain.NewController(retrain.Options{
		Training:  cfg.Training,
		PruneKeep: cfg.Registry.Keep,
	}, l, store, reg, logger)
	ctrl.AddNotifier(cisignal.New(cfg.Signal.EnvVar, logger))

	return &app{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		ledger:     l,
		registry:   reg,
		controller: ctrl,
		ingestor:   ingest.New(store, l, cfg.Training.Threshold, logger),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Error closing sample store")
	}
}
