// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

// Package logging provides the zerolog-based structured logger used by every
// Retrainer component.
//
// The package owns one global logger, configured once from main, plus the
// helpers that carry run and request identity through a context.Context.
// Components do not reach for the global directly: constructors take a
// zerolog.Logger, usually derived with WithComponent, so tests can pass
// zerolog.Nop() or a buffer-backed logger.
//
// # Overview
//
// The package provides:
//   - A global zerolog logger with JSON or console output
//   - Component loggers tagged with a "component" field
//   - Correlation and request IDs stored in a context and added to log lines
//   - An slog.Handler backed by zerolog for libraries that only speak slog
//
// # Quick Start
//
//	import "github.com/tomtom215/retrainer/internal/logging"
//
//	// In main, after the configuration is loaded
//	logging.Init(logging.Config{
//	    Level:     cfg.Logging.Level,
//	    Format:    cfg.Logging.Format,
//	    Caller:    cfg.Logging.Caller,
//	    Timestamp: true,
//	})
//
//	// Hand a tagged logger to a component
//	ctrl := retrain.NewController(opts, l, store, reg, logging.WithComponent("retrain"))
//
//	// Log with structured fields
//	logging.Info().Int("threshold", 200).Msg("Starting retrainer service")
//
// # Configuration
//
// The retrainer's configuration maps these environment variables onto
// Config through internal/config:
//
//	LOG_LEVEL   - trace, debug, info, warn, error, fatal, panic, disabled (default: info)
//	LOG_FORMAT  - json or console (default: json)
//	LOG_CALLER  - add the caller's file:line to each line (default: false)
//
// An unknown level falls back to info rather than failing startup.
//
// # Output Formats
//
// JSON, for log shippers:
//
//	{"level":"info","component":"retrain","new_version":3,"time":"2026-03-01T12:00:00Z","message":"Candidate promoted"}
//
// Console, for a terminal:
//
//	12:00:00 INF Candidate promoted component=retrain new_version=3
//
// # Correlation
//
// Each retraining run and each HTTP request gets a correlation ID; requests
// also get a request ID. Both live in the context. Ctx(ctx) returns the
// context's logger with the IDs attached and Decorate adds them to an
// existing component logger:
//
//	ctx = logging.ContextWithCorrelationID(ctx, runID[:8])
//	logger := logging.Decorate(ctx, c.logger)
//	logger.Info().Msg("Gate passed")
//
// Every line of one run can then be found by its correlation_id.
//
// # slog Adapter
//
// NewSlogLogger wraps a zerolog.Logger in an *slog.Logger. The supervisor
// tree hands it to sutureslog so service restarts and failures land in the
// same stream as everything else:
//
//	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(logger), cfg)
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. Init and SetLogger
// take a write lock; the level helpers take a read lock.
//
// # Testing
//
// NewTestLogger writes JSON lines to any io.Writer:
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
//	svc := services.NewRetrainScheduler(ctrl, cfg, logger)
//	// ... assert on buf.String()
package logging
