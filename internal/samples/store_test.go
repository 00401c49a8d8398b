// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package samples

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/config"
)

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func backends() []storeFactory {
	return []storeFactory{
		{"csv", func(t *testing.T) Store {
			s, err := NewCSVStore(filepath.Join(t.TempDir(), "new_data"), "", zerolog.Nop())
			if err != nil {
				t.Fatal(err)
			}
			return s
		}},
		{"badger", func(t *testing.T) Store {
			s, err := OpenInMemoryBadgerStore(zerolog.Nop())
			if err != nil {
				t.Fatal(err)
			}
			return s
		}},
		{"duckdb", func(t *testing.T) Store {
			if testing.Short() {
				t.Skip("duckdb backend skipped in short mode")
			}
			s, err := OpenDuckDBStore(filepath.Join(t.TempDir(), "samples.duckdb"), zerolog.Nop())
			if err != nil {
				t.Fatal(err)
			}
			return s
		}},
	}
}

func TestStore_Lifecycle(t *testing.T) {
	t.Parallel()

	for _, f := range backends() {
		t.Run(f.name, func(t *testing.T) {
			t.Parallel()
			s := f.open(t)
			defer s.Close()
			ctx := context.Background()

			b, err := s.LoadAll(ctx)
			if err != nil || b != nil {
				t.Fatalf("LoadAll() on empty store = %v, %v; want nil, nil", b, err)
			}

			in := []Sample{{1, 12}, {2, 21.5}, {3, 33}}
			for _, smp := range in {
				if _, err := s.Add(ctx, smp); err != nil {
					t.Fatalf("Add(%v) error = %v", smp, err)
				}
			}
			if n, err := s.Count(ctx); err != nil || n != 3 {
				t.Errorf("Count() = %d, %v; want 3", n, err)
			}

			b, err = s.LoadAll(ctx)
			if err != nil {
				t.Fatalf("LoadAll() error = %v", err)
			}
			if !slices.Equal(b.Features, []float64{1, 2, 3}) || !slices.Equal(b.Targets, []float64{12, 21.5, 33}) {
				t.Errorf("batch = %v / %v, want insertion order", b.Features, b.Targets)
			}
			if len(b.IDs) != 3 || b.Skipped != 0 {
				t.Errorf("IDs = %v skipped = %d", b.IDs, b.Skipped)
			}

			// A sample arriving after the drain must survive Clear.
			if _, err := s.Add(ctx, Sample{4, 41}); err != nil {
				t.Fatal(err)
			}
			removed, err := s.Clear(ctx, b)
			if err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			if removed != 3 {
				t.Errorf("Clear() removed %d, want 3", removed)
			}

			rest, err := s.LoadAll(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if rest.Len() != 1 || rest.Features[0] != 4 {
				t.Errorf("after Clear: %+v, want only the late sample", rest)
			}

			// Idempotent.
			if removed, err := s.Clear(ctx, b); err != nil || removed != 0 {
				t.Errorf("second Clear() = %d, %v; want 0, nil", removed, err)
			}
		})
	}
}

func TestStore_RejectsNonFinite(t *testing.T) {
	t.Parallel()

	for _, f := range backends() {
		t.Run(f.name, func(t *testing.T) {
			t.Parallel()
			s := f.open(t)
			defer s.Close()

			_, err := s.Add(context.Background(), Sample{Feature: math.NaN(), Target: 1})
			if !errors.Is(err, ErrInvalidSample) {
				t.Errorf("Add(NaN) error = %v, want ErrInvalidSample", err)
			}
			if n, _ := s.Count(context.Background()); n != 0 {
				t.Errorf("Count() = %d after rejected add", n)
			}
		})
	}
}

func TestStore_ClosedStore(t *testing.T) {
	t.Parallel()

	s, err := OpenInMemoryBadgerStore(zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(context.Background(), Sample{1, 1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Add() after Close = %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestOpen_SelectsBackend(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(config.SamplesConfig{Backend: "csv", Dir: filepath.Join(dir, "csv")}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if s.Backend() != "csv" {
		t.Errorf("Backend() = %q", s.Backend())
	}

	b, err := Open(config.SamplesConfig{Backend: "badger", BadgerPath: filepath.Join(dir, "badger")}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if b.Backend() != "badger" {
		t.Errorf("Backend() = %q", b.Backend())
	}

	if _, err := Open(config.SamplesConfig{Backend: "redis"}, zerolog.Nop()); err == nil {
		t.Error("Open() with unknown backend should fail")
	}
}
