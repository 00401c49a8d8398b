// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package samples

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/fsutil"
	"github.com/tomtom215/retrainer/internal/metrics"
	"github.com/tomtom215/retrainer/internal/regression"
)

const csvBackend = "csv"

// CSVStore keeps one CSV file per sample in a directory.
type CSVStore struct {
	dir         string
	fallbackDir string
	logger      zerolog.Logger
	now         func() time.Time

	// mu keeps file timestamps strictly increasing within this process so
	// lexical order is insertion order.
	mu   sync.Mutex
	last time.Time
}

// NewCSVStore creates dir if needed. fallbackDir may be empty.
func NewCSVStore(dir, fallbackDir string, logger zerolog.Logger) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create sample directory: %w", err)
	}
	return &CSVStore{
		dir:         dir,
		fallbackDir: fallbackDir,
		logger:      logger.With().Str("component", "samples").Str("backend", csvBackend).Logger(),
		now:         time.Now,
	}, nil
}

// Backend implements Store.
func (s *CSVStore) Backend() string { return csvBackend }

// Dir returns the primary sample directory.
func (s *CSVStore) Dir() string { return s.dir }

// Add writes a single-row CSV file named user_data_<timestamp>_<id8>.csv.
func (s *CSVStore) Add(ctx context.Context, smp Sample) (id string, err error) {
	start := time.Now()
	defer func() { observe(csvBackend, "add", start, err) }()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := smp.Validate(); err != nil {
		return "", err
	}

	now := s.stamp()
	id = newRecordID()
	name := fmt.Sprintf("user_data_%s_%06d_%s.csv",
		now.Format("20060102_150405"), now.Nanosecond()/1000, id[len(id)-8:])

	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write([]string{regression.DefaultFeatureName, regression.DefaultTargetName}) //nolint:errcheck // strings.Builder never fails
	_ = w.Write([]string{formatFloat(smp.Feature), formatFloat(smp.Target)})           //nolint:errcheck // strings.Builder never fails
	w.Flush()

	if err := fsutil.WriteFileExclusive(filepath.Join(s.dir, name), []byte(b.String()), 0o644); err != nil { //nolint:gosec // sample data is not secret
		return "", fmt.Errorf("write sample file: %w", err)
	}
	metrics.RecordSamplesIngested(csvBackend, 1)
	return name, nil
}

// stamp returns the current time truncated to microseconds, bumped past the
// previous stamp when the clock has not advanced.
func (s *CSVStore) stamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().Truncate(time.Microsecond)
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

// LoadAll reads every CSV file in the primary directory, or in the fallback
// directory when the primary one has none.
func (s *CSVStore) LoadAll(ctx context.Context) (batch *Batch, err error) {
	start := time.Now()
	defer func() { observe(csvBackend, "load", start, err) }()

	files, err := listCSV(s.dir)
	if err != nil {
		return nil, err
	}
	fallback := false
	if len(files) == 0 && s.fallbackDir != "" {
		files, err = listCSV(s.fallbackDir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if len(files) > 0 {
			fallback = true
			s.logger.Info().Str("dir", s.fallbackDir).Int("files", len(files)).Msg("Using fallback sample data")
		}
	}
	if len(files) == 0 {
		return nil, nil
	}

	b := &Batch{Fallback: fallback}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Base(path)
		if !fallback {
			b.IDs = append(b.IDs, name)
		}

		xs, ys, perr := readCSVFile(path)
		if perr != nil {
			b.Skipped++
			s.logger.Warn().Err(perr).Str("file", name).Msg("Skipping malformed sample file")
			continue
		}
		b.Features = append(b.Features, xs...)
		b.Targets = append(b.Targets, ys...)
	}

	metrics.RecordSamplesSkipped(csvBackend, b.Skipped)
	if b.Len() == 0 {
		return nil, nil
	}
	s.logger.Debug().Int("files", len(files)).Int("samples", b.Len()).Msg("Loaded samples")
	return b, nil
}

// Clear removes the drained files from the primary directory.
func (s *CSVStore) Clear(ctx context.Context, b *Batch) (removed int, err error) {
	start := time.Now()
	defer func() { observe(csvBackend, "clear", start, err) }()

	if b == nil {
		return 0, nil
	}
	for _, id := range b.IDs {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		// IDs are base names produced by LoadAll; reject anything else.
		if id != filepath.Base(id) || !strings.HasSuffix(id, ".csv") {
			return removed, fmt.Errorf("samples: invalid record id %q", id)
		}
		err := os.Remove(filepath.Join(s.dir, id))
		switch {
		case err == nil:
			removed++
		case errors.Is(err, os.ErrNotExist):
		default:
			return removed, fmt.Errorf("remove %s: %w", id, err)
		}
	}
	metrics.RecordSamplesCleared(csvBackend, removed)
	s.logger.Info().Int("removed", removed).Msg("Cleared sample files")
	return removed, nil
}

// Count returns the number of CSV files in the primary directory.
func (s *CSVStore) Count(ctx context.Context) (int, error) {
	files, err := listCSV(s.dir)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// Close implements Store.
func (s *CSVStore) Close() error { return nil }

// listCSV returns the sorted *.csv paths in dir.
func listCSV(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read sample directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// readCSVFile parses a file with a header naming hours_studied and score.
// Any bad row rejects the whole file.
func readCSVFile(path string) ([]float64, []float64, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from listing the sample directory
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	featureCol, targetCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case regression.DefaultFeatureName:
			featureCol = i
		case regression.DefaultTargetName:
			targetCol = i
		}
	}
	if featureCol < 0 || targetCol < 0 {
		return nil, nil, fmt.Errorf("header %v lacks %s or %s", header, regression.DefaultFeatureName, regression.DefaultTargetName)
	}

	var xs, ys []float64
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		smp, err := parseRow(rec[featureCol], rec[targetCol])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		xs = append(xs, smp.Feature)
		ys = append(ys, smp.Target)
	}
	if len(xs) == 0 {
		return nil, nil, errors.New("no data rows")
	}
	return xs, ys, nil
}

func parseRow(feature, target string) (Sample, error) {
	x, err := strconv.ParseFloat(strings.TrimSpace(feature), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("parse %s: %w", regression.DefaultFeatureName, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(target), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("parse %s: %w", regression.DefaultTargetName, err)
	}
	smp := Sample{Feature: x, Target: y}
	return smp, smp.Validate()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
