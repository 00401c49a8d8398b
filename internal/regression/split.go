// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package regression

import (
	"math"
	"math/rand/v2"
)

// Split is a partition of sample indices.
type Split struct {
	Train []int
	Test  []int

	// HeldOut is false when the set was too small to partition and Train and
	// Test both cover every sample.
	HeldOut bool
}

// NewSplit partitions n samples. When n > minSamples the indices are
// shuffled with seed and ceil(testSize·n) go to Test. Otherwise both
// partitions are the full set, so evaluation is on the training data.
func NewSplit(n int, testSize float64, seed int64, minSamples int) Split {
	if n <= minSamples {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return Split{Train: all, Test: all}
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>32|1)) //nolint:gosec // reproducible split, not security
	perm := rng.Perm(n)
	return Split{
		Test:    perm[:nTest],
		Train:   perm[nTest:],
		HeldOut: true,
	}
}

// Take returns values[idx[0]], values[idx[1]], ...
func Take(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
