package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/plantops/forgeml/pkg/errors"
)

// Stump is a depth-1 regression tree: one feature, one threshold, two leaves.
// Feature -1 marks a constant stump that returns LeftValue everywhere.
type Stump struct {
	Feature    int     `json:"feature"`
	Threshold  float64 `json:"threshold"`
	LeftValue  float64 `json:"left_value"`
	RightValue float64 `json:"right_value"`
}

// FitStump finds the single split of X that minimizes the summed squared
// error of the targets r on both sides.
//
// For each feature the rows are stably sorted by value and every boundary
// between two distinct adjacent values is scored with running sums:
// SSE = Σ_side (Σr² − (Σr)²/n). The threshold is the midpoint of the two
// values and rows with x <= threshold go left. Ties keep the first split
// found (lowest feature, then lowest threshold). When no feature has two
// distinct values the constant stump at mean(r) is returned.
func FitStump(X mat.Matrix, r []float64) Stump {
	n, p := X.Dims()
	if n == 0 {
		return Stump{Feature: -1}
	}

	total, totalSq := 0.0, 0.0
	for _, v := range r {
		total += v
		totalSq += v * v
	}
	mean := total / float64(n)

	best := Stump{Feature: -1, LeftValue: mean, RightValue: mean}
	bestSSE := math.Inf(1)

	idx := make([]int, n)
	vals := make([]float64, n)
	for f := 0; f < p; f++ {
		for i := range idx {
			idx[i] = i
		}
		mat.Col(vals, f, X)
		sort.SliceStable(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })

		sumL, sqL := 0.0, 0.0
		for k := 1; k < n; k++ {
			v := r[idx[k-1]]
			sumL += v
			sqL += v * v

			lo, hi := vals[idx[k-1]], vals[idx[k]]
			if !(lo < hi) {
				continue
			}
			nl, nr := float64(k), float64(n-k)
			sumR, sqR := total-sumL, totalSq-sqL
			sse := (sqL - sumL*sumL/nl) + (sqR - sumR*sumR/nr)
			if sse < bestSSE {
				bestSSE = sse
				best = Stump{
					Feature:    f,
					Threshold:  (lo + hi) / 2,
					LeftValue:  sumL / nl,
					RightValue: sumR / nr,
				}
			}
		}
	}
	return best
}

// PredictRow returns the leaf value for one feature vector.
func (s Stump) PredictRow(x []float64) float64 {
	if s.Feature < 0 {
		return s.LeftValue
	}
	if x[s.Feature] <= s.Threshold {
		return s.LeftValue
	}
	return s.RightValue
}

// Validate checks a decoded stump against the number of model features.
func (s Stump) Validate(nFeatures int) error {
	if s.Feature >= nFeatures || s.Feature < -1 {
		return errors.NewValidationError("stump.feature", "out of range", s.Feature)
	}
	for _, v := range []float64{s.Threshold, s.LeftValue, s.RightValue} {
		if !errors.IsFinite(v) {
			return errors.NewValidationError("stump", "non-finite parameter", v)
		}
	}
	return nil
}
