// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package registry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/retrainer/internal/fsutil"
	"github.com/tomtom215/retrainer/internal/isotime"
)

// MetadataFile is the metadata log file name inside the registry directory.
const MetadataFile = "model_metadata.json"

var (
	// ErrCorruptMetadata means the metadata log cannot be parsed.
	ErrCorruptMetadata = errors.New("registry: corrupt metadata log")

	// ErrDuplicateRecord means the log already holds a record for the version.
	ErrDuplicateRecord = errors.New("registry: metadata record already exists")

	// ErrOrphanRecord means a metadata record has no artifact.
	ErrOrphanRecord = errors.New("registry: metadata record without artifact")
)

// Record is one entry of the metadata log.
type Record struct {
	Version       int       `json:"version"`
	AccuracyScore float64   `json:"accuracy_score"`
	R2Score       float64   `json:"r2_score"`
	MSE           float64   `json:"mse"`
	TrainedAt     time.Time `json:"trained_at"`
	DataPoints    int       `json:"data_points"`
}

// UnmarshalJSON accepts trained_at with or without a zone offset.
func (rec *Record) UnmarshalJSON(data []byte) error {
	var aux struct {
		Version       int          `json:"version"`
		AccuracyScore float64      `json:"accuracy_score"`
		R2Score       float64      `json:"r2_score"`
		MSE           float64      `json:"mse"`
		TrainedAt     isotime.Time `json:"trained_at"`
		DataPoints    int          `json:"data_points"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*rec = Record{
		Version:       aux.Version,
		AccuracyScore: aux.AccuracyScore,
		R2Score:       aux.R2Score,
		MSE:           aux.MSE,
		TrainedAt:     aux.TrainedAt.UTC(),
		DataPoints:    aux.DataPoints,
	}
	return nil
}

type metadataLog struct {
	Models []Record `json:"models"`
}

func (r *Registry) metadataPath() string {
	return filepath.Join(r.dir, MetadataFile)
}

// Records returns the metadata log in append order. An absent log is empty.
func (r *Registry) Records(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log, err := r.readLog()
	if err != nil {
		return nil, err
	}
	return log.Models, nil
}

// Record returns the log entry for version.
func (r *Registry) Record(ctx context.Context, version int) (Record, bool, error) {
	recs, err := r.Records(ctx)
	if err != nil {
		return Record{}, false, err
	}
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Version == version {
			return recs[i], true, nil
		}
	}
	return Record{}, false, nil
}

// CheckMetadata reports whether a record for version could be appended: the
// log must parse and must not already hold the version. Callers run it before
// writing an artifact so a broken log cannot strand one.
func (r *Registry) CheckMetadata(ctx context.Context, version int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if version < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	log, err := r.readLog()
	if err != nil {
		return err
	}
	return checkDuplicate(log, version)
}

// AppendMetadata appends rec, rounding scores to four decimals. The log is
// created when absent.
func (r *Registry) AppendMetadata(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.Version < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, rec.Version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	log, err := r.readLog()
	if err != nil {
		return err
	}
	if err := checkDuplicate(log, rec.Version); err != nil {
		return err
	}

	rec.AccuracyScore = round4(rec.AccuracyScore)
	rec.R2Score = round4(rec.R2Score)
	rec.MSE = round4(rec.MSE)
	log.Models = append(log.Models, rec)

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata log: %w", err)
	}
	if err := fsutil.WriteFileAtomic(r.metadataPath(), data, 0o644); err != nil { //nolint:gosec // metadata is not secret
		return fmt.Errorf("write metadata log: %w", err)
	}

	r.logger.Info().
		Int("version", rec.Version).
		Float64("accuracy", rec.AccuracyScore).
		Int("data_points", rec.DataPoints).
		Msg("Model metadata recorded")
	return nil
}

// Verify checks that every logged version still has its artifact. Versions
// below the oldest stored artifact are treated as pruned.
func (r *Registry) Verify(ctx context.Context) error {
	recs, err := r.Records(ctx)
	if err != nil {
		return err
	}
	versions, err := r.Versions(ctx)
	if err != nil {
		return err
	}
	stored := make(map[int]bool, len(versions))
	for _, v := range versions {
		stored[v] = true
	}
	oldest := 0
	if len(versions) > 0 {
		oldest = versions[0]
	}

	var errs []error
	for _, rec := range recs {
		if rec.Version < oldest || stored[rec.Version] {
			continue
		}
		errs = append(errs, fmt.Errorf("%w: v%d", ErrOrphanRecord, rec.Version))
	}
	return errors.Join(errs...)
}

func (r *Registry) readLog() (metadataLog, error) {
	data, err := os.ReadFile(r.metadataPath())
	if errors.Is(err, os.ErrNotExist) {
		return metadataLog{Models: []Record{}}, nil
	}
	if err != nil {
		return metadataLog{}, fmt.Errorf("read metadata log: %w", err)
	}
	var log metadataLog
	if err := json.Unmarshal(data, &log); err != nil {
		return metadataLog{}, fmt.Errorf("%w: %v", ErrCorruptMetadata, err)
	}
	if log.Models == nil {
		log.Models = []Record{}
	}
	return log, nil
}

func checkDuplicate(log metadataLog, version int) error {
	for _, existing := range log.Models {
		if existing.Version == version {
			return fmt.Errorf("%w: v%d", ErrDuplicateRecord, version)
		}
	}
	return nil
}

func round4(f float64) float64 {
	return math.Round(f*1e4) / 1e4
}
