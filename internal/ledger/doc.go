// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

/*
Package ledger persists the accumulation counter and the live model version.

The ledger is a single JSON record:

	{"count": 37, "last_trained": "2026-03-01T10:00:00Z", "current_version": 4}

Every mutation is a read-modify-write of the whole record under an
exclusive advisory lock on "<path>.lock", and every write replaces the
file atomically. A missing file means the zero state
(count 0, never trained, version 1). A file that cannot be parsed is
reported as ErrCorrupt and is never replaced with defaults.

A retraining run takes one snapshot with Begin and holds the lock until
Release, so producers block in IncrementCount while the run drains the
sample store:

	txn, err := l.Begin(ctx)
	if err != nil { ... }
	defer txn.Release()
	state := txn.Snapshot()
	...
	err = txn.Commit(ledger.State{Count: 0, LastTrainedAt: &now, CurrentVersion: v})
*/
package ledger
