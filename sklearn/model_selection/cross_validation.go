package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/plantops/forgeml/core/model"
	"github.com/plantops/forgeml/core/parallel"
	"github.com/plantops/forgeml/metrics"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/pkg/log"
)

// CVOptions configures CrossValidate.
type CVOptions struct {
	// NSplits defaults to DefaultNSplits.
	NSplits int

	// Checkpoint yields before each fold.
	Checkpoint parallel.Checkpoint

	Logger log.Logger
}

// CrossValidate refits a fresh model from factory on each fold's training
// rows, evaluates it on the held-out block and returns the mean and
// population standard deviation of the fold metrics.
//
// X and y must already be shuffled; the folds are contiguous blocks.
func CrossValidate(X *mat.Dense, y *mat.VecDense, factory model.RegressorFactory, opts CVOptions) (metrics.CVMetrics, error) {
	n, _ := X.Dims()
	if y.Len() != n {
		return metrics.CVMetrics{}, errors.NewDimensionError("CrossValidate", n, y.Len(), 0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("model_selection")
	}

	kf := NewKFold(opts.NSplits)
	folds, err := kf.SplitN(n)
	if err != nil {
		return metrics.CVMetrics{}, err
	}

	scores := make([]metrics.ModelMetrics, 0, len(folds))
	for i, fold := range folds {
		opts.Checkpoint.Yield(i, len(folds))

		var score metrics.ModelMetrics
		err := errors.SafeExecute("CrossValidate", func() error {
			var err error
			score, err = evaluateFold(X, y, fold, factory)
			return err
		})
		if err != nil {
			return metrics.CVMetrics{}, errors.Wrapf(err, "fold %d", i)
		}
		logger.Debug("fold evaluated", log.FoldKey, i, log.LossKey, score.RMSE, log.R2ScoreKey, score.R2)
		scores = append(scores, score)
	}
	return metrics.Summarize(scores)
}

// evaluateFold fits a fresh model on the fold's training rows and scores it
// on the held-out block.
func evaluateFold(X *mat.Dense, y *mat.VecDense, fold Fold, factory model.RegressorFactory) (metrics.ModelMetrics, error) {
	XTrain, yTrain := takeRows(X, y, fold.TrainIndices)
	XTest, yTest := takeRows(X, y, fold.TestIndices)

	m, err := factory()
	if err != nil {
		return metrics.ModelMetrics{}, err
	}
	if err := m.Fit(XTrain, yTrain); err != nil {
		return metrics.ModelMetrics{}, err
	}
	pred, err := model.PredictVec(m, XTest)
	if err != nil {
		return metrics.ModelMetrics{}, err
	}
	return metrics.Evaluate(yTest, pred)
}

// takeRows copies the listed rows of X and y, preserving order.
func takeRows(X *mat.Dense, y *mat.VecDense, idx []int) (*mat.Dense, *mat.VecDense) {
	_, p := X.Dims()
	Xs := mat.NewDense(len(idx), p, nil)
	ys := mat.NewVecDense(len(idx), nil)
	for k, i := range idx {
		Xs.SetRow(k, X.RawRowView(i))
		ys.SetVec(k, y.AtVec(i))
	}
	return Xs, ys
}
