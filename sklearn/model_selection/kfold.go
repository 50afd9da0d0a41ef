// Package model_selection provides the k-fold splitter and cross-validation.
package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/plantops/forgeml/pkg/errors"
)

// DefaultNSplits is the fixed number of cross-validation folds.
const DefaultNSplits = 5

// Fold represents a single fold in cross-validation
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits rows into NSplits contiguous blocks without reshuffling.
// Every block has ⌊n/NSplits⌋ rows except the last, which absorbs the
// remainder. Training indices are the other blocks concatenated in order.
type KFold struct {
	NSplits int
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int) *KFold {
	if nSplits < 2 {
		nSplits = DefaultNSplits
	}
	return &KFold{NSplits: nSplits}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold
func (kf *KFold) Split(X mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	return kf.SplitN(nSamples)
}

// SplitN generates the folds for nSamples rows.
func (kf *KFold) SplitN(nSamples int) ([]Fold, error) {
	foldSize := nSamples / kf.NSplits
	if foldSize < 1 {
		return nil, errors.NewInsufficientDataError(nSamples, kf.NSplits)
	}

	folds := make([]Fold, kf.NSplits)
	for i := 0; i < kf.NSplits; i++ {
		start := i * foldSize
		end := start + foldSize
		if i == kf.NSplits-1 {
			end = nSamples
		}

		test := make([]int, 0, end-start)
		train := make([]int, 0, nSamples-(end-start))
		for j := 0; j < nSamples; j++ {
			if j >= start && j < end {
				test = append(test, j)
			} else {
				train = append(train, j)
			}
		}
		folds[i] = Fold{TrainIndices: train, TestIndices: test}
	}
	return folds, nil
}
