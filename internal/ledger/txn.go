// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/retrainer/internal/fsutil"
	"github.com/tomtom215/retrainer/internal/metrics"
)

// Txn is an exclusive hold on the ledger for one retraining run.
// It is not safe for concurrent use.
type Txn struct {
	l        *Ledger
	lock     *fsutil.FileLock
	snapshot State
	found    bool
	done     bool
}

// Begin acquires the ledger lock without waiting and reads one snapshot.
// It returns ErrLocked when another run holds the lock.
func (l *Ledger) Begin(ctx context.Context) (*Txn, error) {
	lock := fsutil.NewFileLock(l.lockPath)
	if err := lock.TryLock(); err != nil {
		if errors.Is(err, fsutil.ErrLocked) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("acquire ledger lock: %w", err)
	}

	st, found, err := l.Load(ctx)
	if err != nil {
		l.unlock(lock)
		return nil, err
	}
	return &Txn{l: l, lock: lock, snapshot: st, found: found}, nil
}

// Snapshot returns the state read by Begin.
func (t *Txn) Snapshot() State {
	return t.snapshot
}

// Found reports whether the ledger file existed at Begin.
func (t *Txn) Found() bool {
	return t.found
}

// Commit writes st as the full ledger record in one atomic replacement.
// The txn stays locked until Release.
func (t *Txn) Commit(st State) error {
	if t.done {
		return ErrTxnDone
	}
	if st.CurrentVersion < t.snapshot.CurrentVersion {
		return fmt.Errorf("%w: %d -> %d", ErrVersionRegression, t.snapshot.CurrentVersion, st.CurrentVersion)
	}
	if st.Count < 0 {
		return fmt.Errorf("ledger: negative count %d", st.Count)
	}
	if err := t.l.write(st); err != nil {
		return err
	}
	t.done = true
	t.snapshot = st

	metrics.SetLedgerPending(st.Count)
	metrics.SetCurrentVersion(st.CurrentVersion)
	t.l.logger.Info().
		Int("count", st.Count).
		Int("current_version", st.CurrentVersion).
		Msg("Ledger committed")
	return nil
}

// Release unlocks the ledger. It is safe to call more than once.
func (t *Txn) Release() {
	t.done = true
	if t.lock != nil {
		t.l.unlock(t.lock)
		t.lock = nil
	}
}
