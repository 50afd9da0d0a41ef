package trainer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/plantops/forgeml/core/model"
	"github.com/plantops/forgeml/core/parallel"
	"github.com/plantops/forgeml/linear"
	"github.com/plantops/forgeml/metrics"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/pkg/log"
	"github.com/plantops/forgeml/preprocessing"
	"github.com/plantops/forgeml/sklearn/ensemble"
	"github.com/plantops/forgeml/sklearn/inspection"
	"github.com/plantops/forgeml/sklearn/model_selection"
)

type options struct {
	progress ProgressFunc
	logger   log.Logger
	params   Params
}

// Option configures Train.
type Option func(*options)

// WithProgress registers fn to receive progress events.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

// WithLogger replaces the "trainer" component logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithParams overrides the hyper-parameters.
func WithParams(p Params) Option {
	return func(o *options) { o.params = p }
}

// progressReporter is implemented by models that report from inside Fit.
type progressReporter interface {
	OnProgress(hook func(done, total int))
}

// Train runs one complete training session over rows.
//
// Rows are cleaned, shuffled and split once. Each requested kind is then
// fitted on the training partition, scored on the test partition, explained
// with permutation importance and cross-validated on the full shuffled set.
// The first failure aborts the run and no artifacts are returned.
//
// Train runs on the calling goroutine. Progress callbacks are invoked
// synchronously from it.
func Train(rows []preprocessing.Row, cfg Config, opts ...Option) ([]*TrainedModel, error) {
	o := options{params: DefaultParams()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("trainer")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := o.params.Validate(); err != nil {
		return nil, err
	}
	kinds, err := cfg.Kinds()
	if err != nil {
		return nil, err
	}

	logger := o.logger.With(log.TargetKey, cfg.Target)
	t := newTracker(o.progress)

	t.report("Preparing data", 0)
	ds, err := preprocessing.Prepare(rows, cfg.columns(), cfg.TestSplit)
	if err != nil {
		logger.Warn("data preparation failed", log.PhaseKey, log.PhasePreparation, log.SamplesKey, len(rows))
		return nil, err
	}
	logger.Info("data prepared",
		log.SamplesKey, ds.Rows(),
		log.FeaturesKey, len(cfg.Features),
		log.DroppedKey, ds.Dropped,
	)
	logger.Debug("training started",
		log.LearningRateKey, o.params.LearningRate,
		log.RandomSeedKey, o.params.Seed,
	)
	t.report("Data prepared", prepareEnd)

	models := make([]*TrainedModel, 0, len(kinds))
	for i, kind := range kinds {
		m, err := trainKind(kind, ds, cfg, o.params, t, modelSpan(i, len(kinds)),
			logger.With(log.ModelNameKey, string(kind)))
		if err != nil {
			return nil, errors.Wrapf(err, "train %s", kind)
		}
		models = append(models, m)
	}

	t.report(DoneLabel, 100)
	return models, nil
}

func trainKind(kind ModelKind, ds *preprocessing.Dataset, cfg Config, p Params, t *tracker, s span, logger log.Logger) (*TrainedModel, error) {
	start := time.Now()
	name := kind.DisplayName()
	enter := func(phase, label string, frac float64) {
		t.report(label, s.at(frac))
		logger.Debug("phase started", log.PhaseKey, phase, log.ProgressKey, t.last)
	}

	fitLabel := "Training " + name
	enter(log.PhaseTraining, fitLabel, 0)
	reg, err := newRegressor(kind, p, false)
	if err != nil {
		return nil, err
	}
	if pr, ok := reg.(progressReporter); ok {
		pr.OnProgress(func(done, total int) {
			t.report(fitLabel, s.at(fitEnd*fraction(done, total)))
		})
	}
	if err := reg.Fit(ds.XTrain, ds.YTrain); err != nil {
		return nil, err
	}

	enter(log.PhaseValidation, "Evaluating "+name, fitEnd)
	pred, err := model.PredictVec(reg, ds.XTest)
	if err != nil {
		return nil, err
	}
	score, err := metrics.Evaluate(ds.YTest, pred)
	if err != nil {
		return nil, err
	}
	logger.Debug("test partition scored", log.OperationKey, log.OperationScore, log.LossKey, score.RMSE)

	importanceLabel := "Computing feature importance for " + name
	enter(log.PhaseImportance, importanceLabel, evaluateEnd)
	importances, err := inspection.PermutationImportance(reg, ds.XTest, ds.YTest, cfg.Features, inspection.PermutationOptions{
		BaselineRMSE: score.RMSE,
		Seed:         p.Seed,
		Checkpoint: parallel.Checkpoint{Hook: func(done, total int) {
			t.report(importanceLabel, s.at(evaluateEnd+(importanceTo-evaluateEnd)*fraction(done, total)))
		}},
	})
	if err != nil {
		return nil, err
	}

	cvLabel := "Cross-validating " + name
	enter(log.PhaseValidation, cvLabel, importanceTo)
	cv, err := model_selection.CrossValidate(ds.XAll, ds.YAll, func() (model.Regressor, error) {
		return newRegressor(kind, p, true)
	}, model_selection.CVOptions{
		NSplits: model_selection.DefaultNSplits,
		Checkpoint: parallel.Checkpoint{Hook: func(done, total int) {
			t.report(fmt.Sprintf("%s (fold %d/%d)", cvLabel, done+1, total),
				s.at(importanceTo+(1-importanceTo)*fraction(done, total)))
		}},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	raw, scaler, err := encode(reg)
	if err != nil {
		return nil, err
	}
	id, err := modelID(kind, cfg, ds.Rows(), raw, scaler)
	if err != nil {
		return nil, err
	}
	tm := &TrainedModel{
		ID:          id,
		Type:        kind,
		Target:      cfg.Target,
		Features:    append([]string(nil), cfg.Features...),
		Metrics:     score,
		CVMetrics:   &cv,
		Importances: importances,
		Params:      raw,
		Scaler:      scaler,
		Config:      cfg.clone(),
		TrainRows:   ds.YTrain.Len(),
		TestRows:    ds.YTest.Len(),
	}
	logger.Info("model trained",
		log.DurationMsKey, time.Since(start).Milliseconds(),
		log.R2ScoreKey, score.R2,
		log.LossKey, score.RMSE,
		log.AccuracyKey, score.Accuracy,
	)
	return tm, nil
}

func fraction(done, total int) float64 {
	if total <= 0 {
		return 1
	}
	return float64(done) / float64(total)
}

// newRegressor builds an unfitted model of kind, with the lighter
// cross-validation settings when cv is set.
func newRegressor(kind ModelKind, p Params, cv bool) (model.Regressor, error) {
	switch kind {
	case KindLinear:
		return linear.NewLinearRegression(), nil
	case KindRandomForest:
		return ensemble.NewExtraTreesRegressor(p.extraTrees(cv)), nil
	case KindGradientBoosting:
		return ensemble.NewGradientBoostingRegressor(p.gradientBoosting(cv)), nil
	default:
		return nil, errors.NewValidationError("models", "unknown model kind", string(kind))
	}
}

// encode extracts the structural representation of a fitted model.
func encode(reg model.Regressor) (json.RawMessage, *preprocessing.ScalerState, error) {
	var (
		v      any
		scaler *preprocessing.ScalerState
	)
	switch m := reg.(type) {
	case *linear.LinearRegression:
		v = m.Params()
		st := m.Scaler().State()
		scaler = &st
	case *ensemble.ExtraTreesRegressor:
		v = m.State()
	case *ensemble.GradientBoostingRegressor:
		v = m.State()
	default:
		return nil, nil, errors.Newf("trainer: cannot serialize %T", reg)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, nil, errors.Wrap(err, "encode model parameters")
	}
	return raw, scaler, nil
}
