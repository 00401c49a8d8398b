// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`data:
  dir: %[1]s/data
  ledger_path: %[1]s/data/counter.json
samples:
  backend: csv
  dir: %[1]s/data/new_data
registry:
  dir: %[1]s/model
training:
  threshold: 20
logging:
  level: error
`, dir)
	path := filepath.Join(dir, "retrainer.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

func execute(args ...string) (string, error) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(args...)
	if err != nil {
		t.Fatalf("execute(%v) error = %v", args, err)
	}
	return out
}

func TestCLI_AddStatusTrain(t *testing.T) {
	path, dir := writeConfig(t)
	envFile := filepath.Join(dir, "github_env")
	t.Setenv("GITHUB_ENV", envFile)

	if out := runCLI(t, "--config", path, "train"); !strings.Contains(out, "Not enough new data (0/20)") {
		t.Errorf("train before data: %q", out)
	}
	if _, err := os.Stat(envFile); !os.IsNotExist(err) {
		t.Errorf("skipped run wrote CI variables")
	}

	if out := runCLI(t, "--config", path, "add", "25"); !strings.Contains(out, "Ledger count: 25/20") {
		t.Errorf("add: %q", out)
	}
	if out := runCLI(t, "--config", path, "add", "--hours", "3", "--score", "35"); !strings.Contains(out, "Ledger count: 26/20") {
		t.Errorf("add single: %q", out)
	}
	if out := runCLI(t, "--config", path, "status"); !strings.Contains(out, "Ready to retrain.") || !strings.Contains(out, "Stored samples:  26") {
		t.Errorf("status: %q", out)
	}

	if out := runCLI(t, "--config", path, "train"); !strings.Contains(out, "New model v2 promoted") {
		t.Errorf("train: %q", out)
	}
	env, err := os.ReadFile(envFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(env), "MODEL_IMPROVED=true\n") || !strings.Contains(string(env), "NEW_VERSION=2\n") {
		t.Errorf("CI variables = %q", env)
	}

	out := runCLI(t, "--config", path, "status")
	if !strings.Contains(out, "New data count:  0") || !strings.Contains(out, "Current version: v2") || !strings.Contains(out, "Artifacts:       [2]") {
		t.Errorf("status after train: %q", out)
	}
}

func TestCLI_Errors(t *testing.T) {
	path, _ := writeConfig(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no command", []string{"--config", path}},
		{"unknown command", []string{"--config", path, "deploy"}},
		{"bad count", []string{"--config", path, "add", "many"}},
		{"hours without score", []string{"--config", path, "add", "--hours", "2"}},
		{"count with single sample", []string{"--config", path, "add", "3", "--hours", "2", "--score", "30"}},
		{"too many args", []string{"--config", path, "add", "3", "4"}},
		{"unknown flag", []string{"--config", path, "status", "--verbose"}},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(tt.args...); err == nil {
				t.Errorf("execute(%v) succeeded, want error", tt.args)
			}
		})
	}
}

func TestCLI_CommandTree(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "train", "add", "status"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("root command lacks the persistent --config flag")
	}
	add, _, _ := root.Find([]string{"add"})
	for _, flag := range []string{"hours", "score"} {
		if add.Flags().Lookup(flag) == nil {
			t.Errorf("add lacks --%s", flag)
		}
	}
}

func TestCLI_ShortConfigFlagAndDefaultCount(t *testing.T) {
	path, _ := writeConfig(t)
	if out := runCLI(t, "-c", path, "add"); !strings.Contains(out, "Added 5 sample(s). Ledger count: 5/20") {
		t.Errorf("add with default count: %q", out)
	}
	if out := runCLI(t, "status", "--config", path); !strings.Contains(out, "Need 15 more samples.") {
		t.Errorf("status: %q", out)
	}
}

func TestCLI_Help(t *testing.T) {
	out, err := execute("--help")
	if err != nil {
		t.Fatalf("execute(--help) error = %v", err)
	}
	for _, name := range []string{"serve", "train", "add", "status", "--config"} {
		if !strings.Contains(out, name) {
			t.Errorf("help output lacks %q:\n%s", name, out)
		}
	}
}
