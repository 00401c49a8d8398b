// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/retrainer/internal/config"
	"github.com/tomtom215/retrainer/internal/logging"
)

const version = "1.0.0"

// rootOptions carries the global flags and the configuration they load.
type rootOptions struct {
	configPath string
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.Error().Err(err).Msg("retrainer failed")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "retrainer",
		Short: "Retrainer - continuous model retraining controller",
		Long: `retrainer accumulates labeled samples and retrains a linear model once
enough new data has arrived. A candidate replaces the deployed model only
when it scores strictly better on held-out data.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			logging.Init(logging.Config{
				Level:     cfg.Logging.Level,
				Format:    cfg.Logging.Format,
				Caller:    cfg.Logging.Caller,
				Timestamp: true,
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errors.New("a command is required")
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"path to a YAML config file (default $"+config.ConfigPathEnvVar+")")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newTrainCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	return cmd
}
