// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

/*
Package samples stores labeled training samples until a retraining run
drains them.

Three backends implement Store:

  - CSVStore: one CSV file per Add in a directory, header
    "hours_studied,score". Files written by other tools may hold several
    rows. An optional read-only fallback directory is aggregated only when
    the primary directory has no files.
  - BadgerStore: one JSON value per sample under the "sample:" key prefix.
  - DuckDBStore: a samples table in a DuckDB database file.

LoadAll returns the records in ID order together with the IDs it drained.
Clear removes exactly those IDs, so samples added while a run is in
progress survive the run. A record that cannot be parsed is logged,
counted in Batch.Skipped, and left out of the features.
*/
package samples
