// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "state.json")
	if err := WriteFileAtomic(path, []byte(`{"a":1}`), 0o600); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte(`{"a":2}`), 0o600); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":2}` {
		t.Errorf("content = %s", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the target", len(entries))
	}
}

func TestWriteFileExclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "v2.gob.gz")
	if err := WriteFileExclusive(path, []byte("first"), 0o600); err != nil {
		t.Fatalf("first write: %v", err)
	}
	err := WriteFileExclusive(path, []byte("second"), 0o600)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("second write error = %v, want ErrExists", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first" {
		t.Errorf("content = %q, existing file was modified", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, temp file leaked", len(entries))
	}
}

func TestFileLock(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.lock")
	a := NewFileLock(path)
	b := NewFileLock(path)

	if err := a.TryLock(); err != nil {
		t.Fatalf("a.TryLock() = %v", err)
	}
	if err := b.TryLock(); !errors.Is(err, ErrLocked) {
		t.Fatalf("b.TryLock() = %v, want ErrLocked", err)
	}
	if err := a.TryLock(); !errors.Is(err, ErrLocked) {
		t.Errorf("relock by holder = %v, want ErrLocked", err)
	}
	if err := a.Unlock(); err != nil {
		t.Fatalf("a.Unlock() = %v", err)
	}
	if err := b.TryLock(); err != nil {
		t.Fatalf("b.TryLock() after release = %v", err)
	}
	if err := b.Unlock(); err != nil {
		t.Fatal(err)
	}
	if err := b.Unlock(); err != nil {
		t.Errorf("double Unlock() = %v, want nil", err)
	}
}
