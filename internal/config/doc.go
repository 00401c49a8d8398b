// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

/*
Package config loads retrainer configuration with koanf.

Sources, lowest priority first:
  - built-in defaults (defaultConfig)
  - an optional YAML file: the path given to Load, CONFIG_PATH, or
    retrainer.yaml in the working directory
  - environment variables listed in envMappings

Selected environment variables:
  - RETRAIN_THRESHOLD: samples required before a run trains (default: 200)
  - TEST_SIZE: held-out fraction (default: 0.2)
  - RANDOM_SEED: shuffle seed (default: 42)
  - SAMPLES_BACKEND: csv, badger or duckdb (default: csv)
  - SAMPLES_DIR, SAMPLES_FALLBACK_DIR, MODEL_DIR, LEDGER_PATH
  - EVENTS_BACKEND: gochannel or nats (nats requires the nats build tag)
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:8000)
  - LOG_LEVEL, LOG_FORMAT
  - SCHEDULE_ENABLED, SCHEDULE_INTERVAL, TRAIN_ON_STARTUP

Example YAML:

	training:
	  threshold: 50
	  fit_timeout: 30s
	samples:
	  backend: badger
	  badger_path: /var/lib/retrainer/samples
	server:
	  port: 9000
	  cors_origins: ["https://example.com"]
*/
package config
