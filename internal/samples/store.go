// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package samples

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/config"
	"github.com/tomtom215/retrainer/internal/metrics"
)

var (
	// ErrInvalidSample means a feature or target is NaN or infinite.
	ErrInvalidSample = errors.New("samples: feature and target must be finite")

	// ErrClosed means the store was used after Close.
	ErrClosed = errors.New("samples: store is closed")
)

// Sample is one labeled observation.
type Sample struct {
	Feature float64 `json:"feature"`
	Target  float64 `json:"target"`
}

// Validate rejects non-finite values.
func (s Sample) Validate() error {
	if math.IsNaN(s.Feature) || math.IsInf(s.Feature, 0) ||
		math.IsNaN(s.Target) || math.IsInf(s.Target, 0) {
		return fmt.Errorf("%w: feature=%v target=%v", ErrInvalidSample, s.Feature, s.Target)
	}
	return nil
}

// Batch is the aggregate of every stored record at one point in time.
type Batch struct {
	Features []float64
	Targets  []float64

	// IDs lists every drained record, including skipped ones. Records read
	// from a fallback source are not listed and are never cleared.
	IDs []string

	Skipped  int
	Fallback bool
}

// Len returns the number of samples.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Features)
}

// Store persists samples between retraining runs.
type Store interface {
	// Add persists one sample and returns its record ID.
	Add(ctx context.Context, s Sample) (string, error)

	// LoadAll aggregates every record. It returns nil, nil when there are
	// no usable samples.
	LoadAll(ctx context.Context) (*Batch, error)

	// Clear deletes the records drained into b and returns how many were
	// removed. Records already gone are ignored.
	Clear(ctx context.Context, b *Batch) (int, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Backend names the implementation for logs and metrics.
	Backend() string

	Close() error
}

// Open returns the backend selected by cfg.Backend.
func Open(cfg config.SamplesConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "csv":
		return NewCSVStore(cfg.Dir, cfg.FallbackDir, logger)
	case "badger":
		return OpenBadgerStore(cfg.BadgerPath, logger)
	case "duckdb":
		return OpenDuckDBStore(cfg.DuckDBPath, logger)
	default:
		return nil, fmt.Errorf("samples: unknown backend %q", cfg.Backend)
	}
}

// newRecordID returns a time-ordered ID so lexical order is insertion order.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func observe(backend, op string, start time.Time, err error) {
	metrics.RecordStoreOperation(backend, op, time.Since(start), err)
}
