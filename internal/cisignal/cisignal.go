// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

// Package cisignal reports retraining outcomes to a CI runner by appending
// KEY=value lines to the file named by an environment variable, the way
// GitHub Actions consumes $GITHUB_ENV.
package cisignal

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/retrain"
)

// DefaultEnvVar is the variable GitHub Actions sets.
const DefaultEnvVar = "GITHUB_ENV"

// Writer appends outcome variables to the CI environment file.
type Writer struct {
	envVar string
	lookup func(string) (string, bool)
	logger zerolog.Logger
}

// New returns a Writer reading the file path from envVar.
func New(envVar string, logger zerolog.Logger) *Writer {
	if envVar == "" {
		envVar = DefaultEnvVar
	}
	return &Writer{
		envVar: envVar,
		lookup: os.LookupEnv,
		logger: logger.With().Str("component", "cisignal").Logger(),
	}
}

// Lines returns the variables for d, or nil when the run changed nothing.
func Lines(d *retrain.Decision) []string {
	switch d.Outcome {
	case retrain.OutcomePromoted:
		return []string{
			"MODEL_IMPROVED=true",
			fmt.Sprintf("NEW_VERSION=%d", d.NewVersion),
			fmt.Sprintf("NEW_ACCURACY=%.2f", d.NewAccuracy),
			fmt.Sprintf("OLD_ACCURACY=%.2f", d.OldAccuracy),
			fmt.Sprintf("OLD_VERSION=%d", d.OldVersion),
			"MODEL_FILE=" + d.ModelFile,
		}
	case retrain.OutcomeDiscarded:
		return []string{"MODEL_IMPROVED=false"}
	default:
		return nil
	}
}

// Notify implements retrain.Notifier. It does nothing when the variable is
// unset or empty.
func (w *Writer) Notify(_ context.Context, d *retrain.Decision) error {
	lines := Lines(d)
	if len(lines) == 0 {
		return nil
	}
	path, ok := w.lookup(w.envVar)
	if !ok || path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // path comes from the CI runner
	if err != nil {
		return fmt.Errorf("open %s file: %w", w.envVar, err)
	}
	if _, err := f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		_ = f.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write %s file: %w", w.envVar, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s file: %w", w.envVar, err)
	}

	w.logger.Info().Str("outcome", string(d.Outcome)).Str("env_var", w.envVar).Msg("Set CI environment variables")
	return nil
}
