// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

// Package regression implements the single-feature ordinary least squares
// model the retrainer trains, its evaluation metrics and the train/test
// split.
//
// Accuracy is max(0, R²·100). R² follows the finite convention: when the
// targets have zero variance it is 1 for a perfect prediction and 0
// otherwise, never NaN.
package regression
