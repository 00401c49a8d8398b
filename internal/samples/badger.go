// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package samples

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/metrics"
)

const (
	badgerBackend = "badger"
	prefixSample  = "sample:"

	// badgerDeleteChunk bounds the size of one delete transaction.
	badgerDeleteChunk = 1000
)

// BadgerStore keeps samples in BadgerDB under "sample:<id>".
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// OpenBadgerStore opens or creates a BadgerDB database at path.
func OpenBadgerStore(path string, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true
	opts.Logger = nil
	return openBadger(opts, logger)
}

// OpenInMemoryBadgerStore returns a store that is never written to disk.
func OpenInMemoryBadgerStore(logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts, logger)
}

func openBadger(opts badger.Options, logger zerolog.Logger) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	s := &BadgerStore{
		db:     db,
		logger: logger.With().Str("component", "samples").Str("backend", badgerBackend).Logger(),
	}
	s.logger.Info().Str("path", opts.Dir).Bool("in_memory", opts.InMemory).Msg("Sample store opened")
	return s, nil
}

// Backend implements Store.
func (s *BadgerStore) Backend() string { return badgerBackend }

func (s *BadgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Add implements Store.
func (s *BadgerStore) Add(ctx context.Context, smp Sample) (id string, err error) {
	start := time.Now()
	defer func() { observe(badgerBackend, "add", start, err) }()

	if err := s.checkOpen(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := smp.Validate(); err != nil {
		return "", err
	}

	data, err := json.Marshal(smp)
	if err != nil {
		return "", fmt.Errorf("marshal sample: %w", err)
	}
	id = newRecordID()
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixSample+id), data)
	})
	if err != nil {
		return "", fmt.Errorf("write to BadgerDB: %w", err)
	}
	metrics.RecordSamplesIngested(badgerBackend, 1)
	return id, nil
}

// LoadAll iterates the sample prefix from one consistent snapshot.
func (s *BadgerStore) LoadAll(ctx context.Context) (batch *Batch, err error) {
	start := time.Now()
	defer func() { observe(badgerBackend, "load", start, err) }()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	b := &Batch{}
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixSample)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			id := string(item.Key()[len(prefix):])
			b.IDs = append(b.IDs, id)

			var smp Sample
			verr := item.Value(func(val []byte) error {
				if err := json.Unmarshal(val, &smp); err != nil {
					return err
				}
				return smp.Validate()
			})
			if verr != nil {
				b.Skipped++
				s.logger.Warn().Err(verr).Str("id", id).Msg("Skipping malformed sample")
				continue
			}
			b.Features = append(b.Features, smp.Feature)
			b.Targets = append(b.Targets, smp.Target)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}

	metrics.RecordSamplesSkipped(badgerBackend, b.Skipped)
	if b.Len() == 0 {
		return nil, nil
	}
	return b, nil
}

// Clear deletes the drained keys in bounded transactions.
func (s *BadgerStore) Clear(ctx context.Context, b *Batch) (removed int, err error) {
	start := time.Now()
	defer func() { observe(badgerBackend, "clear", start, err) }()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if b == nil {
		return 0, nil
	}

	for lo := 0; lo < len(b.IDs); lo += badgerDeleteChunk {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		hi := min(lo+badgerDeleteChunk, len(b.IDs))
		n := 0
		err := s.db.Update(func(txn *badger.Txn) error {
			n = 0
			for _, id := range b.IDs[lo:hi] {
				key := []byte(prefixSample + id)
				if _, err := txn.Get(key); err != nil {
					if errors.Is(err, badger.ErrKeyNotFound) {
						continue
					}
					return err
				}
				if err := txn.Delete(key); err != nil {
					return err
				}
				n++
			}
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("delete samples: %w", err)
		}
		removed += n
	}

	metrics.RecordSamplesCleared(badgerBackend, removed)
	s.logger.Info().Int("removed", removed).Msg("Cleared samples")
	return removed, nil
}

// Count implements Store using a key-only iteration.
func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(prefixSample)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

// RunGC reclaims value log space after large clears.
func (s *BadgerStore) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	return nil
}
