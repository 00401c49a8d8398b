// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "new_data_counter.json"), zerolog.Nop())
}

func TestLoad_AbsentUsesDefaults(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	st, found, err := l.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if found {
		t.Error("found = true for absent ledger")
	}
	if st.Count != 0 || st.CurrentVersion != 1 || st.LastTrainedAt != nil {
		t.Errorf("state = %+v, want zero state with version 1", st)
	}

	if n, _ := l.GetCount(ctx); n != 0 {
		t.Errorf("GetCount() = %d, want 0", n)
	}
	if v, _ := l.GetCurrentVersion(ctx); v != 1 {
		t.Errorf("GetCurrentVersion() = %d, want 1", v)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Error("reads must not create the ledger file")
	}
}

func TestIncrementCount(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	if n, err := l.IncrementCount(ctx, 5); err != nil || n != 5 {
		t.Fatalf("IncrementCount(5) = %d, %v", n, err)
	}
	if n, err := l.IncrementCount(ctx, 1); err != nil || n != 6 {
		t.Fatalf("IncrementCount(1) = %d, %v", n, err)
	}

	st, found, err := l.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load() = %v, found=%v", err, found)
	}
	if st.Count != 6 || st.CurrentVersion != 1 || st.LastTrainedAt != nil {
		t.Errorf("state = %+v", st)
	}

	if _, err := l.IncrementCount(ctx, 0); err == nil {
		t.Error("IncrementCount(0) should fail")
	}
}

func TestResetCount_KeepsVersion(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.IncrementVersion(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := l.IncrementCount(ctx, 250); err != nil {
		t.Fatal(err)
	}
	if err := l.ResetCount(ctx); err != nil {
		t.Fatalf("ResetCount() error = %v", err)
	}

	st, _, err := l.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 0 {
		t.Errorf("Count = %d, want 0", st.Count)
	}
	if st.CurrentVersion != 2 {
		t.Errorf("CurrentVersion = %d, want 2", st.CurrentVersion)
	}
	if st.LastTrainedAt == nil {
		t.Error("LastTrainedAt not set")
	}
}

func TestIncrementVersion(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	for want := 2; want <= 4; want++ {
		v, err := l.IncrementVersion(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if v != want {
			t.Errorf("IncrementVersion() = %d, want %d", v, want)
		}
	}
}

func TestLoad_Corrupt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{count: 3"},
		{"wrong type", `{"count":"three","current_version":1}`},
		{"negative count", `{"count":-1,"current_version":1}`},
		{"zero version", `{"count":1,"current_version":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := newTestLedger(t)
			if err := os.WriteFile(l.Path(), []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}

			if _, _, err := l.Load(context.Background()); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Load() error = %v, want ErrCorrupt", err)
			}
			if _, err := l.IncrementCount(context.Background(), 1); !errors.Is(err, ErrCorrupt) {
				t.Errorf("IncrementCount() error = %v, want ErrCorrupt", err)
			}

			got, _ := os.ReadFile(l.Path())
			if string(got) != tt.content {
				t.Error("corrupt ledger was overwritten")
			}
		})
	}
}

func TestLoad_MissingKeysDefault(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	if err := os.WriteFile(l.Path(), []byte(`{"count": 12}`), 0o600); err != nil {
		t.Fatal(err)
	}
	st, found, err := l.Load(context.Background())
	if err != nil || !found {
		t.Fatalf("Load() = %v, found=%v", err, found)
	}
	if st.Count != 12 || st.CurrentVersion != 1 {
		t.Errorf("state = %+v, want count 12 version 1", st)
	}
}

func TestLoad_NaiveTimestamp(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	raw := `{"count":250,"last_trained":"2024-05-01T12:30:45.123456","current_version":3}`
	if err := os.WriteFile(l.Path(), []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	n, err := l.GetCount(ctx)
	if err != nil {
		t.Fatalf("GetCount() error = %v", err)
	}
	if n != 250 {
		t.Errorf("GetCount() = %d, want 250", n)
	}
	st, _, err := l.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 5, 1, 12, 30, 45, 123456000, time.UTC)
	if st.LastTrainedAt == nil || !st.LastTrainedAt.Equal(want) {
		t.Errorf("LastTrainedAt = %v, want %v", st.LastTrainedAt, want)
	}
	if st.CurrentVersion != 3 {
		t.Errorf("CurrentVersion = %d, want 3", st.CurrentVersion)
	}

	// The next write normalizes the timestamp and keeps the rest.
	if _, err := l.IncrementCount(ctx, 1); err != nil {
		t.Fatalf("IncrementCount() error = %v", err)
	}
	st, _, err = l.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 251 || st.LastTrainedAt == nil || !st.LastTrainedAt.Equal(want) {
		t.Errorf("state after increment = %+v", st)
	}
}

func TestPersistedFormat(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	if _, err := l.IncrementCount(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"count": 3`, `"last_trained": null`, `"current_version": 1`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("ledger file %s missing %s", data, key)
		}
	}
}

func TestBegin_ExclusiveAndCommit(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()
	if _, err := l.IncrementCount(ctx, 200); err != nil {
		t.Fatal(err)
	}

	txn, err := l.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer txn.Release()

	if got := txn.Snapshot(); got.Count != 200 || !txn.Found() {
		t.Errorf("Snapshot() = %+v found=%v", got, txn.Found())
	}

	if _, err := l.Begin(ctx); !errors.Is(err, ErrLocked) {
		t.Errorf("second Begin() error = %v, want ErrLocked", err)
	}

	now := time.Now().UTC()
	if err := txn.Commit(State{Count: 0, LastTrainedAt: &now, CurrentVersion: 2}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := txn.Commit(State{CurrentVersion: 3}); !errors.Is(err, ErrTxnDone) {
		t.Errorf("second Commit() error = %v, want ErrTxnDone", err)
	}
	txn.Release()
	txn.Release()

	st, _, err := l.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 0 || st.CurrentVersion != 2 || st.LastTrainedAt == nil {
		t.Errorf("state after commit = %+v", st)
	}
}

func TestCommit_RejectsVersionRegression(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()
	if _, err := l.IncrementVersion(ctx); err != nil {
		t.Fatal(err)
	}

	txn, err := l.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer txn.Release()

	if err := txn.Commit(State{CurrentVersion: 1}); !errors.Is(err, ErrVersionRegression) {
		t.Errorf("Commit() error = %v, want ErrVersionRegression", err)
	}
}

func TestIncrementCount_WaitsForRun(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	txn, err := l.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan int, 1)
	go func() {
		n, err := l.IncrementCount(ctx, 1)
		if err != nil {
			t.Errorf("IncrementCount() error = %v", err)
		}
		done <- n
	}()

	select {
	case <-done:
		t.Fatal("IncrementCount returned while the run held the lock")
	case <-time.After(100 * time.Millisecond):
	}

	if err := txn.Commit(State{Count: 0, CurrentVersion: 1}); err != nil {
		t.Fatal(err)
	}
	txn.Release()

	select {
	case n := <-done:
		if n != 1 {
			t.Errorf("count after run = %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("IncrementCount did not proceed after Release")
	}
}

func TestIncrementCount_ContextCanceledWhileLocked(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	txn, err := l.Begin(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer txn.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if _, err := l.IncrementCount(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("IncrementCount() error = %v, want DeadlineExceeded", err)
	}
}
