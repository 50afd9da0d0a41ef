// Package inspection explains fitted models.
package inspection

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/plantops/forgeml/core/model"
	"github.com/plantops/forgeml/core/parallel"
	"github.com/plantops/forgeml/core/random"
	"github.com/plantops/forgeml/metrics"
	"github.com/plantops/forgeml/pkg/errors"
)

// permutationSeedStride は特徴量ごとのシードの間隔
const permutationSeedStride uint32 = 1234567

// FeatureImportance is the normalized importance of one feature.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// PermutationOptions configures PermutationImportance.
type PermutationOptions struct {
	// BaselineRMSE is the model's RMSE on (X, y). Its square is the
	// reference MSE every shuffled score is compared against.
	BaselineRMSE float64

	// Seed is the base of the per-feature seeds (Seed + f·1234567).
	Seed uint32

	// Checkpoint yields before each feature.
	Checkpoint parallel.Checkpoint
}

// PermutationImportance measures how much the prediction error of p grows
// when the values of one column of X are shuffled.
//
// For each feature f a copy of X has only column f permuted with a
// Fisher–Yates shuffle seeded by Seed + f·1234567. The raw importance is
// max(0, shuffledMSE − BaselineRMSE²). Raw importances are normalized to sum
// to 1, or set to 1/p each when they are all zero, then sorted descending
// with ties kept in feature order.
func PermutationImportance(p model.Predictor, X *mat.Dense, y *mat.VecDense, names []string, opts PermutationOptions) ([]FeatureImportance, error) {
	r, c := X.Dims()
	if len(names) != c {
		return nil, errors.NewDimensionError("PermutationImportance", c, len(names), 1)
	}
	if y.Len() != r {
		return nil, errors.NewDimensionError("PermutationImportance", r, y.Len(), 0)
	}

	baseline := opts.BaselineRMSE * opts.BaselineRMSE
	raw := make([]float64, c)
	shuffled := mat.NewDense(r, c, nil)
	for f := 0; f < c; f++ {
		opts.Checkpoint.Yield(f, c)

		shuffled.Copy(X)
		rng := random.NewLCG(random.DeriveSeed(opts.Seed, f, permutationSeedStride))
		rng.Shuffle(r, func(i, j int) {
			vi, vj := shuffled.At(i, f), shuffled.At(j, f)
			shuffled.Set(i, f, vj)
			shuffled.Set(j, f, vi)
		})

		pred, err := model.PredictVec(p, shuffled)
		if err != nil {
			return nil, err
		}
		mse, err := metrics.MSE(y, pred)
		if err != nil {
			return nil, err
		}
		raw[f] = errors.Sanitize(math.Max(0, mse-baseline))
	}

	return normalize(raw, names), nil
}

func normalize(raw []float64, names []string) []FeatureImportance {
	total := 0.0
	for _, v := range raw {
		total += v
	}

	out := make([]FeatureImportance, len(raw))
	for f, v := range raw {
		imp := 1 / float64(len(raw))
		if total > 0 {
			imp = v / total
		}
		out[f] = FeatureImportance{Feature: names[f], Importance: imp}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}
