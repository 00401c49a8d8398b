// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

// Package fsutil holds the file primitives shared by the ledger and the
// model registry: atomic replacement and advisory locking.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrExists is returned by WriteFileExclusive when the target already exists.
var ErrExists = errors.New("fsutil: file already exists")

// WriteFileAtomic replaces path with data. The data is written to a temp
// file in the same directory, synced, then renamed over path, so readers see
// either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return syncDir(filepath.Dir(path))
}

// WriteFileExclusive writes data to path only if path does not exist yet.
// The content becomes visible all at once via a hard link of a synced temp
// file, which also fails atomically when path already exists.
func WriteFileExclusive(path string, data []byte, perm os.FileMode) error {
	tmpPath, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpPath) }() //nolint:errcheck // temp name is unlinked either way

	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("link %s: %w", filepath.Base(path), err)
	}
	return syncDir(filepath.Dir(path))
}

func writeTemp(path string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()          //nolint:errcheck // best effort cleanup on error
		_ = os.Remove(tmpPath) //nolint:errcheck // best effort cleanup on error
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()          //nolint:errcheck // best effort cleanup on error
		_ = os.Remove(tmpPath) //nolint:errcheck // best effort cleanup on error
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // best effort cleanup on error
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // best effort cleanup on error
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	return tmpPath, nil
}

// syncDir flushes a directory entry change. Platforms that cannot open a
// directory for sync are ignored.
func syncDir(dir string) error {
	d, err := os.Open(dir) //nolint:gosec // dir is derived from a configured path
	if err != nil {
		return nil //nolint:nilerr // directory sync is best effort
	}
	defer func() { _ = d.Close() }() //nolint:errcheck // read-only handle
	_ = d.Sync()                     //nolint:errcheck // unsupported on some filesystems
	return nil
}
