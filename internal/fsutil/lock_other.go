// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

//go:build !unix

package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// exclHandle owns a lock file created with O_EXCL. A crashed holder leaves
// the file behind and it must be removed by hand.
type exclHandle struct {
	path string
}

func acquire(path string) (lockHandle, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // lock path derived from config
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	_ = f.Close() //nolint:errcheck // existence is the lock
	return &exclHandle{path: path}, nil
}

func (h *exclHandle) release() error {
	return os.Remove(h.path)
}
