// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package samples

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/metrics"
)

const (
	duckdbBackend = "duckdb"

	// duckdbDeleteChunk bounds the number of placeholders per DELETE.
	duckdbDeleteChunk = 500
)

const createSamplesTable = `
CREATE TABLE IF NOT EXISTS samples (
	id         VARCHAR PRIMARY KEY,
	feature    DOUBLE NOT NULL,
	target     DOUBLE NOT NULL,
	created_at TIMESTAMP NOT NULL
)`

// DuckDBStore keeps samples in a DuckDB table.
type DuckDBStore struct {
	conn   *sql.DB
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// OpenDuckDBStore opens or creates the database file at path. An empty path
// or ":memory:" opens an in-memory database.
func OpenDuckDBStore(path string, logger zerolog.Logger) (*DuckDBStore, error) {
	dsn := ":memory:"
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = path
	}
	// Extensions are not needed; disabling autoload avoids network access.
	dsn += "?autoinstall_known_extensions=false&autoload_known_extensions=false"

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps an in-memory database shared by every query.
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := conn.ExecContext(ctx, createSamplesTable); err != nil {
		_ = conn.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to create samples table: %w", err)
	}

	s := &DuckDBStore{
		conn:   conn,
		logger: logger.With().Str("component", "samples").Str("backend", duckdbBackend).Logger(),
	}
	s.logger.Info().Str("path", path).Msg("Sample store opened")
	return s, nil
}

// Backend implements Store.
func (s *DuckDBStore) Backend() string { return duckdbBackend }

func (s *DuckDBStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Add implements Store.
func (s *DuckDBStore) Add(ctx context.Context, smp Sample) (id string, err error) {
	start := time.Now()
	defer func() { observe(duckdbBackend, "add", start, err) }()

	if err := s.checkOpen(); err != nil {
		return "", err
	}
	if err := smp.Validate(); err != nil {
		return "", err
	}

	id = newRecordID()
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO samples (id, feature, target, created_at) VALUES (?, ?, ?, ?)`,
		id, smp.Feature, smp.Target, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert sample: %w", err)
	}
	metrics.RecordSamplesIngested(duckdbBackend, 1)
	return id, nil
}

// LoadAll implements Store. Column types are enforced by the schema, so
// rows with NaN or infinite values are the only malformed case.
func (s *DuckDBStore) LoadAll(ctx context.Context) (batch *Batch, err error) {
	start := time.Now()
	defer func() { observe(duckdbBackend, "load", start, err) }()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, `SELECT id, feature, target FROM samples ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // read-only cursor

	b := &Batch{}
	for rows.Next() {
		var (
			id  string
			smp Sample
		)
		if err := rows.Scan(&id, &smp.Feature, &smp.Target); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		b.IDs = append(b.IDs, id)
		if err := smp.Validate(); err != nil {
			b.Skipped++
			s.logger.Warn().Err(err).Str("id", id).Msg("Skipping malformed sample")
			continue
		}
		b.Features = append(b.Features, smp.Feature)
		b.Targets = append(b.Targets, smp.Target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}

	metrics.RecordSamplesSkipped(duckdbBackend, b.Skipped)
	if b.Len() == 0 {
		return nil, nil
	}
	return b, nil
}

// Clear implements Store.
func (s *DuckDBStore) Clear(ctx context.Context, b *Batch) (removed int, err error) {
	start := time.Now()
	defer func() { observe(duckdbBackend, "clear", start, err) }()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if b == nil || len(b.IDs) == 0 {
		return 0, nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	for lo := 0; lo < len(b.IDs); lo += duckdbDeleteChunk {
		hi := min(lo+duckdbDeleteChunk, len(b.IDs))
		chunk := b.IDs[lo:hi]
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		res, err := tx.ExecContext(ctx, "DELETE FROM samples WHERE id IN ("+placeholders+")", args...) //nolint:gosec // placeholders only
		if err != nil {
			return 0, fmt.Errorf("delete samples: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		removed += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}

	metrics.RecordSamplesCleared(duckdbBackend, removed)
	s.logger.Info().Int("removed", removed).Msg("Cleared samples")
	return removed, nil
}

// Count implements Store.
func (s *DuckDBStore) Count(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *DuckDBStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}
