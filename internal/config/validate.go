// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package config

import (
	"errors"
	"fmt"

	"github.com/tomtom215/retrainer/internal/validation"
)

// Validate checks field rules and the cross-field constraints the struct
// tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	var errs []error
	switch c.Samples.Backend {
	case "csv":
		if c.Samples.Dir == "" {
			errs = append(errs, errors.New("samples.dir is required for the csv backend"))
		}
		if c.Samples.FallbackDir != "" && c.Samples.FallbackDir == c.Samples.Dir {
			errs = append(errs, errors.New("samples.fallback_dir must differ from samples.dir"))
		}
	case "badger":
		if c.Samples.BadgerPath == "" {
			errs = append(errs, errors.New("samples.badger_path is required for the badger backend"))
		}
	case "duckdb":
		if c.Samples.DuckDBPath == "" {
			errs = append(errs, errors.New("samples.duckdb_path is required for the duckdb backend"))
		}
	}

	if c.Events.Backend == "nats" && c.Events.NATSURL == "" && !c.Events.EmbeddedNATS {
		errs = append(errs, errors.New("events.nats_url is required unless events.embedded_nats is set"))
	}

	if c.Registry.Keep > 0 && c.Registry.Keep < 2 {
		errs = append(errs, fmt.Errorf("registry.keep must be 0 or at least 2, got %d", c.Registry.Keep))
	}

	return errors.Join(errs...)
}
