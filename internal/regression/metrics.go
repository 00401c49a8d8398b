// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Evaluation holds the scores of a model on one data set.
type Evaluation struct {
	Accuracy float64 `json:"accuracy"`
	R2       float64 `json:"r2"`
	MSE      float64 `json:"mse"`
	Samples  int     `json:"samples"`
}

// Evaluate scores m on x and y.
func Evaluate(m *Model, x, y []float64) (Evaluation, error) {
	if len(x) != len(y) {
		return Evaluation{}, fmt.Errorf("%w: %d features, %d targets", ErrLengthMismatch, len(x), len(y))
	}
	if len(y) < 2 {
		return Evaluation{}, fmt.Errorf("%w: got %d", ErrUndefinedMetric, len(y))
	}

	pred := m.PredictAll(x)
	r2 := R2(y, pred)
	return Evaluation{
		Accuracy: Accuracy(r2),
		R2:       r2,
		MSE:      MSE(y, pred),
		Samples:  len(y),
	}, nil
}

// R2 returns the coefficient of determination. Constant targets yield 1 for
// an exact prediction and 0 otherwise.
func R2(yTrue, yPred []float64) float64 {
	if stat.Variance(yTrue, nil) == 0 {
		for i := range yTrue {
			if yTrue[i] != yPred[i] {
				return 0
			}
		}
		return 1
	}
	return stat.RSquaredFrom(yPred, yTrue, nil)
}

// MSE returns the mean squared error.
func MSE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	var sum float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sum += d * d
	}
	return sum / float64(len(yTrue))
}

// Accuracy converts R² to a 0-100 score clamped at zero.
func Accuracy(r2 float64) float64 {
	return math.Max(0, r2*100)
}
