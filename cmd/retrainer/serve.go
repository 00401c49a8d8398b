// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/spf13/cobra"

	"github.com/tomtom215/retrainer/internal/api"
	"github.com/tomtom215/retrainer/internal/config"
	"github.com/tomtom215/retrainer/internal/events"
	"github.com/tomtom215/retrainer/internal/logging"
	"github.com/tomtom215/retrainer/internal/serving"
	"github.com/tomtom215/retrainer/internal/supervisor"
	"github.com/tomtom215/retrainer/internal/supervisor/services"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, serving reloads and the retraining scheduler",
		Long: `serve starts the supervised service tree: the HTTP API, the serving
adapter that follows promotions, and the optional retraining scheduler.
It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts.cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	bus, err := events.Open(cfg.Events, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	a.controller.AddNotifier(bus)

	adapter := serving.New(a.ledger, a.registry, a.logger)

	handler := api.NewHandler(a.controller, adapter, a.ingestor, a.registry, api.HandlerConfig{
		Threshold:          cfg.Training.Threshold,
		RetrainMinInterval: cfg.Server.RetrainMinInterval,
	}, a.logger)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Server)))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(a.logger), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	if cfg.Schedule.Enabled {
		tree.AddTrainingService(services.NewRetrainScheduler(a.controller, services.RetrainSchedulerConfig{
			TrainOnStartup: cfg.Schedule.TrainOnStartup,
			Interval:       cfg.Schedule.Interval,
		}, a.logger))
	}
	tree.AddServingService(services.NewServingReloadService(adapter, cfg.Serving.ReloadInterval))
	onPromotion := events.Deduplicate(func(ctx context.Context, _ *events.PromotionEvent) error {
		_, err := adapter.Reload(ctx)
		return err
	}, 1024, time.Hour, a.logger)
	tree.AddServingService(services.NewEventRouterService("promotion-events", func() (*message.Router, error) {
		return bus.NewRouter("serving-reload", onPromotion)
	}))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	a.logger.Info().
		Str("addr", server.Addr).
		Str("samples_backend", a.store.Backend()).
		Str("events_backend", cfg.Events.Backend).
		Int("threshold", cfg.Training.Threshold).
		Msg("Starting retrainer service")

	err = tree.Serve(ctx)
	handler.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info().Msg("Retrainer service stopped")
	return nil
}
