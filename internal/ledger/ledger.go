// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/fsutil"
	"github.com/tomtom215/retrainer/internal/isotime"
	"github.com/tomtom215/retrainer/internal/metrics"
)

var (
	// ErrCorrupt means the ledger file exists but is not a valid record.
	ErrCorrupt = errors.New("ledger: corrupt ledger file")

	// ErrLocked means another run holds the ledger lock.
	ErrLocked = errors.New("ledger: locked by another run")

	// ErrVersionRegression means a commit tried to lower current_version.
	ErrVersionRegression = errors.New("ledger: current version cannot decrease")

	// ErrTxnDone means Commit was called on a committed or released txn.
	ErrTxnDone = errors.New("ledger: transaction already finished")
)

// DefaultVersion is the current version reported before any promotion.
const DefaultVersion = 1

const lockPollInterval = 25 * time.Millisecond

// State is the persisted ledger record.
type State struct {
	Count          int        `json:"count"`
	LastTrainedAt  *time.Time `json:"last_trained"`
	CurrentVersion int        `json:"current_version"`
}

// DefaultState is the state of an absent ledger.
func DefaultState() State {
	return State{CurrentVersion: DefaultVersion}
}

// fileState tolerates records written without every key and timestamps
// written without a zone offset.
type fileState struct {
	Count          *int          `json:"count"`
	LastTrainedAt  *isotime.Time `json:"last_trained"`
	CurrentVersion *int          `json:"current_version"`
}

// Ledger reads and writes the ledger file.
type Ledger struct {
	path     string
	lockPath string
	logger   zerolog.Logger
	now      func() time.Time
}

// New returns a ledger stored at path.
func New(path string, logger zerolog.Logger) *Ledger {
	return &Ledger{
		path:     path,
		lockPath: path + ".lock",
		logger:   logger.With().Str("component", "ledger").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Load reads the ledger. found is false when the file does not exist, in
// which case the returned state is DefaultState.
func (l *Ledger) Load(ctx context.Context) (State, bool, error) {
	if err := ctx.Err(); err != nil {
		return State{}, false, err
	}
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultState(), false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("read ledger: %w", err)
	}

	var fs fileState
	if err := json.Unmarshal(data, &fs); err != nil {
		return State{}, true, fmt.Errorf("%w: %s: %v", ErrCorrupt, l.path, err)
	}

	st := DefaultState()
	if fs.Count != nil {
		st.Count = *fs.Count
	}
	if fs.CurrentVersion != nil {
		st.CurrentVersion = *fs.CurrentVersion
	}
	if fs.LastTrainedAt != nil && !fs.LastTrainedAt.IsZero() {
		at := fs.LastTrainedAt.UTC()
		st.LastTrainedAt = &at
	}

	if st.Count < 0 || st.CurrentVersion < 1 {
		return State{}, true, fmt.Errorf("%w: %s: count=%d current_version=%d",
			ErrCorrupt, l.path, st.Count, st.CurrentVersion)
	}
	return st, true, nil
}

// GetCount returns the accumulated sample count.
func (l *Ledger) GetCount(ctx context.Context) (int, error) {
	st, _, err := l.Load(ctx)
	if err != nil {
		return 0, err
	}
	return st.Count, nil
}

// GetCurrentVersion returns the live model version.
func (l *Ledger) GetCurrentVersion(ctx context.Context) (int, error) {
	st, _, err := l.Load(ctx)
	if err != nil {
		return 0, err
	}
	return st.CurrentVersion, nil
}

// IncrementCount adds delta to the count and returns the new total. It
// waits for the ledger lock while a run holds it.
func (l *Ledger) IncrementCount(ctx context.Context, delta int) (int, error) {
	if delta < 1 {
		return 0, fmt.Errorf("ledger: increment must be positive, got %d", delta)
	}
	var total int
	err := l.update(ctx, func(st *State) {
		st.Count += delta
		total = st.Count
	})
	if err != nil {
		return 0, err
	}
	metrics.SetLedgerPending(total)
	l.logger.Debug().Int("delta", delta).Int("count", total).Msg("Ledger count incremented")
	return total, nil
}

// ResetCount zeroes the count and stamps LastTrainedAt. The version is kept.
func (l *Ledger) ResetCount(ctx context.Context) error {
	now := l.now()
	err := l.update(ctx, func(st *State) {
		st.Count = 0
		st.LastTrainedAt = &now
	})
	if err != nil {
		return err
	}
	metrics.SetLedgerPending(0)
	l.logger.Info().Msg("Ledger count reset")
	return nil
}

// IncrementVersion advances the current version by one and returns it.
func (l *Ledger) IncrementVersion(ctx context.Context) (int, error) {
	var version int
	err := l.update(ctx, func(st *State) {
		st.CurrentVersion++
		version = st.CurrentVersion
	})
	if err != nil {
		return 0, err
	}
	metrics.SetCurrentVersion(version)
	return version, nil
}

// update runs a read-modify-write under the lock.
func (l *Ledger) update(ctx context.Context, mutate func(*State)) error {
	lock, err := l.lockWait(ctx)
	if err != nil {
		return err
	}
	defer l.unlock(lock)

	st, _, err := l.Load(ctx)
	if err != nil {
		return err
	}
	mutate(&st)
	return l.write(st)
}

// lockWait polls the lock until it is acquired or ctx is done.
func (l *Ledger) lockWait(ctx context.Context) (*fsutil.FileLock, error) {
	lock := fsutil.NewFileLock(l.lockPath)
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		err := lock.TryLock()
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, fsutil.ErrLocked) {
			return nil, fmt.Errorf("acquire ledger lock: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for ledger lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Ledger) unlock(lock *fsutil.FileLock) {
	if err := lock.Unlock(); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to release ledger lock")
	}
}

func (l *Ledger) write(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := fsutil.WriteFileAtomic(l.path, data, 0o644); err != nil { //nolint:gosec // ledger is not secret
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
