// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package fsutil

import "errors"

// ErrLocked is returned by TryLock when another holder owns the lock.
var ErrLocked = errors.New("fsutil: lock is held")

// FileLock is an exclusive advisory lock on a lock file. It is shared across
// processes and across independent FileLock values within one process.
type FileLock struct {
	path string
	held lockHandle
}

// NewFileLock returns an unlocked lock backed by path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// TryLock acquires the lock without blocking.
func (l *FileLock) TryLock() error {
	if l.held != nil {
		return ErrLocked
	}
	h, err := acquire(l.path)
	if err != nil {
		return err
	}
	l.held = h
	return nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if l.held == nil {
		return nil
	}
	h := l.held
	l.held = nil
	return h.release()
}

type lockHandle interface {
	release() error
}
