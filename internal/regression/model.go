// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package regression

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Default column names of the training data.
const (
	DefaultFeatureName = "hours_studied"
	DefaultTargetName  = "score"
)

var (
	// ErrInsufficientData means fewer than two training points.
	ErrInsufficientData = errors.New("regression: at least two samples are required")

	// ErrDegenerateFeature means the feature has zero variance.
	ErrDegenerateFeature = errors.New("regression: feature has zero variance")

	// ErrUndefinedMetric means R² cannot be computed for the given set.
	ErrUndefinedMetric = errors.New("regression: metric undefined for fewer than two samples")

	// ErrLengthMismatch means features and targets differ in length.
	ErrLengthMismatch = errors.New("regression: features and targets differ in length")
)

// Model is a fitted y = Slope·x + Intercept line. The struct is gob-encoded
// by the registry, so fields are only ever appended.
type Model struct {
	Slope           float64
	Intercept       float64
	FeatureName     string
	TargetName      string
	TrainedAt       time.Time
	TrainingSamples int
}

// Predict returns the model output for x.
func (m *Model) Predict(x float64) float64 {
	return m.Slope*x + m.Intercept
}

// PredictAll returns the model output for every x.
func (m *Model) PredictAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = m.Predict(x)
	}
	return out
}

// String implements fmt.Stringer.
func (m *Model) String() string {
	return fmt.Sprintf("%s = %.4f*%s %+.4f", m.TargetName, m.Slope, m.FeatureName, m.Intercept)
}

// Fit trains an ordinary least squares model on x and y.
func Fit(ctx context.Context, x, y []float64) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d features, %d targets", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientData, len(x))
	}
	if v := stat.Variance(x, nil); v == 0 || math.IsNaN(v) {
		return nil, ErrDegenerateFeature
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) || math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return nil, fmt.Errorf("regression: fit produced non-finite coefficients (slope=%v intercept=%v)", slope, intercept)
	}

	return &Model{
		Slope:           slope,
		Intercept:       intercept,
		FeatureName:     DefaultFeatureName,
		TargetName:      DefaultTargetName,
		TrainedAt:       time.Now().UTC(),
		TrainingSamples: len(x),
	}, nil
}
