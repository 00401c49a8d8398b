// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

// Package registry stores versioned model artifacts and the append-only
// metadata log of promoted models.
//
// # Storage Format
//
// Each version is one file, v{version}.gob.gz, holding a gob-encoded
// storedFile: the artifact metadata (including the SHA-256 of the
// uncompressed model bytes) and the gzip-compressed gob encoding of the
// regression.Model. Artifacts are write-once; SaveArtifact refuses to
// replace an existing version and the file becomes visible in a single
// link, so a reader never sees a partial artifact.
//
// The metadata log is model_metadata.json:
//
//	{"models": [{"version": 2, "accuracy_score": 97.1234, "r2_score": 0.9712,
//	             "mse": 24.5, "trained_at": "...", "data_points": 200}]}
//
// It is rewritten atomically on every append. trained_at is read with or
// without a zone offset and written as RFC 3339.
//
// # Promotion Order
//
// A promotion calls CheckMetadata, then SaveArtifact, then AppendMetadata.
// A log that does not parse stops the promotion before any file is written.
// If the append fails after the save, RemoveArtifact takes the artifact back
// so the version can be reused.
//
// Prune removes the oldest artifacts beyond a keep count but never a
// protected version; the controller protects the new model and the one it
// replaced.
package registry
