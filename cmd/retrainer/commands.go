// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/retrainer/internal/retrain"
	"github.com/tomtom215/retrainer/internal/samples"
)

const defaultSimulateCount = 5

// --- train ---

func newTrainCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Run one retraining pass and exit",
		Long: `train retrains when the ledger count has reached the threshold and
promotes the candidate only if it beats the deployed model. When GITHUB_ENV
names a file, the outcome is appended to it for later CI steps.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.close()
			return train(cmd.Context(), a, cmd.OutOrStdout())
		},
	}
}

func train(ctx context.Context, a *app, out io.Writer) error {
	d, err := a.controller.Run(ctx)
	if err != nil {
		return err
	}
	switch d.Outcome {
	case retrain.OutcomeSkipped:
		fmt.Fprintf(out, "Not enough new data (%d/%d), skipping retraining.\n", d.Count, d.Threshold)
	case retrain.OutcomePromoted:
		fmt.Fprintf(out, "New model v%d promoted: accuracy %.2f vs %.2f (v%d).\n",
			d.NewVersion, d.NewAccuracy, d.OldAccuracy, d.OldVersion)
	case retrain.OutcomeDiscarded:
		fmt.Fprintf(out, "Candidate discarded: accuracy %.2f does not beat %.2f (v%d).\n",
			d.NewAccuracy, d.OldAccuracy, d.OldVersion)
	}
	if d.ClearError != "" {
		fmt.Fprintf(out, "Warning: consumed samples were not removed: %s\n", d.ClearError)
	}
	return nil
}

// --- add ---

func newAddCommand(opts *rootOptions) *cobra.Command {
	var hours, score float64
	cmd := &cobra.Command{
		Use:   "add [count]",
		Short: "Store labeled samples and count them toward retraining",
		Example: `  retrainer add
  retrainer add 25
  retrainer add --hours 3 --score 35`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			single := cmd.Flags().Changed("hours") || cmd.Flags().Changed("score")
			if single && (!cmd.Flags().Changed("hours") || !cmd.Flags().Changed("score")) {
				return errors.New("add: --hours and --score must be given together")
			}
			if single && len(args) > 0 {
				return errors.New("add: a count cannot be combined with --hours and --score")
			}
			n := defaultSimulateCount
			if len(args) > 0 {
				var err error
				if n, err = strconv.Atoi(args[0]); err != nil {
					return fmt.Errorf("add: invalid count %q", args[0])
				}
			}

			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			var added, count int
			if single {
				count, err = a.ingestor.Add(ctx, samples.Sample{Feature: hours, Target: score})
				added = 1
			} else {
				count, err = a.ingestor.Simulate(ctx, n)
				added = n
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d sample(s). Ledger count: %d/%d\n",
				added, count, opts.cfg.Training.Threshold)
			return nil
		},
	}
	cmd.Flags().Float64Var(&hours, "hours", 0, "Hours studied of a single sample")
	cmd.Flags().Float64Var(&score, "score", 0, "Score of a single sample")
	return cmd
}

// --- status ---

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show progress toward the next retraining run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.close()
			return status(cmd.Context(), a, cmd.OutOrStdout())
		},
	}
}

func status(ctx context.Context, a *app, out io.Writer) error {
	report, err := a.ingestor.Status(ctx)
	if err != nil {
		return err
	}
	versions, err := a.registry.Versions(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "New data count:  %d\n", report.Count)
	fmt.Fprintf(out, "Threshold:       %d\n", report.Threshold)
	fmt.Fprintf(out, "Progress:        %.1f%%\n", report.Progress)
	if report.Ready {
		fmt.Fprintln(out, "Ready to retrain.")
	} else {
		fmt.Fprintf(out, "Need %d more samples.\n", report.Remaining)
	}
	fmt.Fprintf(out, "Current version: v%d\n", report.CurrentVersion)
	fmt.Fprintf(out, "Stored samples:  %d\n", report.StoredSamples)

	list, err := json.Marshal(versions)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Artifacts:       %s\n", list)
	return nil
}
