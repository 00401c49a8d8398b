// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"retrainer.yaml",
	"retrainer.yml",
	"/etc/retrainer/retrainer.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. The directory layout matches
// the layout the CI workflow expects: data/new_data for samples, model/ for
// artifacts.
func defaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir:        "data",
			LedgerPath: "data/new_data_counter.json",
		},
		Samples: SamplesConfig{
			Backend:    "csv",
			Dir:        "data/new_data",
			BadgerPath: "data/samples.badger",
			DuckDBPath: "data/samples.duckdb",
		},
		Registry: RegistryConfig{
			Dir: "model",
		},
		Training: TrainingConfig{
			Threshold:       200,
			TestSize:        0.2,
			Seed:            42,
			MinSplitSamples: 10,
			FitTimeout:      time.Minute,
		},
		Signal: SignalConfig{
			EnvVar: "GITHUB_ENV",
		},
		Events: EventsConfig{
			Backend:      "gochannel",
			Topic:        "retrainer.model.promoted",
			NATSURL:      "nats://127.0.0.1:4222",
			NATSStoreDir: "data/nats",
			MaxFailures:  5,
			BreakerReset: 30 * time.Second,
		},
		Serving: ServingConfig{
			ReloadInterval: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8000,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       2 * time.Minute,
			ShutdownTimeout:    10 * time.Second,
			CORSOrigins:        []string{"*"},
			RateLimitRequests:  100,
			RateLimitWindow:    time.Minute,
			RetrainMinInterval: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Schedule: ScheduleConfig{
			Interval: time.Hour,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in increasing priority. An empty path falls back to
// CONFIG_PATH and then DefaultConfigPaths.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"data_dir":    "data.dir",
	"ledger_path": "data.ledger_path",

	"samples_backend":      "samples.backend",
	"samples_dir":          "samples.dir",
	"samples_fallback_dir": "samples.fallback_dir",
	"badger_path":          "samples.badger_path",
	"duckdb_path":          "samples.duckdb_path",

	"model_dir":  "registry.dir",
	"model_keep": "registry.keep",

	"retrain_threshold": "training.threshold",
	"test_size":         "training.test_size",
	"random_seed":       "training.seed",
	"min_split_samples": "training.min_split_samples",
	"fit_timeout":       "training.fit_timeout",

	"ci_signal_env": "signal.env_var",

	"events_backend":        "events.backend",
	"events_topic":          "events.topic",
	"nats_url":              "events.nats_url",
	"nats_embedded":         "events.embedded_nats",
	"nats_store_dir":        "events.nats_store_dir",
	"events_max_failures":   "events.max_failures",
	"events_breaker_reset":  "events.breaker_reset",
	"serving_reload_period": "serving.reload_interval",

	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"retrain_min_interval":  "server.retrain_min_interval",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"schedule_enabled":  "schedule.enabled",
	"schedule_interval": "schedule.interval",
	"train_on_startup":  "schedule.train_on_startup",
}

// envTransformFunc maps known environment variables to koanf paths and
// drops everything else, e.g. RETRAIN_THRESHOLD -> training.threshold.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
