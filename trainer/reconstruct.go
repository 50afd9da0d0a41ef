package trainer

import (
	"bytes"
	"encoding/json"

	"gonum.org/v1/gonum/mat"

	"github.com/plantops/forgeml/core/model"
	"github.com/plantops/forgeml/linear"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/preprocessing"
	"github.com/plantops/forgeml/sklearn/ensemble"
)

// Predictor is a live model rebuilt from a TrainedModel without retraining.
// It is safe for concurrent use.
type Predictor struct {
	artifact *TrainedModel
	model    model.Predictor
}

// Reconstruct decodes a serialized TrainedModel and rebuilds its predictor.
// Any decoding or structural problem is reported as ErrInvalidArtifact.
func Reconstruct(data []byte) (*Predictor, error) {
	var tm TrainedModel
	if err := Decode(data, &tm); err != nil {
		return nil, err
	}
	return NewPredictor(&tm)
}

// NewPredictor rebuilds the live model described by tm.
func NewPredictor(tm *TrainedModel) (p *Predictor, err error) {
	defer errors.RecoverAs(&err, "trainer.NewPredictor", errors.ErrInvalidArtifact)

	if tm == nil {
		return nil, errors.Mark(errors.New("nil artifact"), errors.ErrInvalidArtifact)
	}
	m, err := decodeModel(tm)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "artifact %s", tm.ID), errors.ErrInvalidArtifact)
	}
	return &Predictor{artifact: tm, model: m}, nil
}

func decodeModel(tm *TrainedModel) (model.Predictor, error) {
	p := len(tm.Features)
	if p == 0 {
		return nil, errors.New("artifact has no features")
	}
	if len(bytes.TrimSpace(tm.Params)) == 0 {
		return nil, errors.New("artifact has no parameters")
	}

	switch tm.Type {
	case KindLinear:
		if tm.Scaler == nil {
			return nil, errors.New("linear artifact has no scaler")
		}
		scaler, err := preprocessing.NewStandardScalerFromState(*tm.Scaler)
		if err != nil {
			return nil, err
		}
		if len(scaler.Means) != p {
			return nil, errors.NewDimensionError("trainer.decodeModel", p, len(scaler.Means), 1)
		}
		var params linear.Params
		if err := json.Unmarshal(tm.Params, &params); err != nil {
			return nil, errors.Wrap(err, "decode linear parameters")
		}
		return linear.NewFromParams(params, scaler)

	case KindRandomForest:
		var st ensemble.ExtraTreesState
		if err := json.Unmarshal(tm.Params, &st); err != nil {
			return nil, errors.Wrap(err, "decode forest")
		}
		return ensemble.NewExtraTreesFromState(st, p)

	case KindGradientBoosting:
		var st ensemble.GradientBoostingState
		if err := json.Unmarshal(tm.Params, &st); err != nil {
			return nil, errors.Wrap(err, "decode boosting stumps")
		}
		return ensemble.NewGradientBoostingFromState(st, p)

	default:
		return nil, errors.Newf("unknown model type %q", tm.Type)
	}
}

// Artifact returns the TrainedModel the predictor was built from.
func (p *Predictor) Artifact() *TrainedModel {
	return p.artifact
}

// NumFeatures returns the expected feature vector length.
func (p *Predictor) NumFeatures() int {
	return len(p.artifact.Features)
}

// Predict returns the prediction for one feature vector in the artifact's
// feature order. A vector of the wrong length is ErrFeatureMismatch.
func (p *Predictor) Predict(features []float64) (out float64, err error) {
	defer errors.Recover(&err, "trainer.Predictor.Predict")

	if len(features) != p.NumFeatures() {
		return 0, errors.Mark(
			errors.NewDimensionError("Predictor.Predict", p.NumFeatures(), len(features), 1),
			errors.ErrFeatureMismatch)
	}
	for j, v := range features {
		if !errors.IsFinite(v) {
			return 0, errors.NewValidationError(p.artifact.Features[j], "must be a finite number", v)
		}
	}
	X := mat.NewDense(1, len(features), append([]float64(nil), features...))
	pred, err := p.model.Predict(X)
	if err != nil {
		return 0, err
	}
	return pred.At(0, 0), nil
}

// PredictBatch predicts every row of X.
func (p *Predictor) PredictBatch(X mat.Matrix) ([]float64, error) {
	_, c := X.Dims()
	if c != p.NumFeatures() {
		return nil, errors.Mark(
			errors.NewDimensionError("Predictor.PredictBatch", p.NumFeatures(), c, 1),
			errors.ErrFeatureMismatch)
	}
	v, err := model.PredictVec(p.model, X)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), v.RawVector().Data...), nil
}

// PredictValues looks every feature up by name in values. A missing or
// non-numeric feature is ErrFeatureMismatch.
func (p *Predictor) PredictValues(values map[string]any) (float64, error) {
	x := make([]float64, p.NumFeatures())
	for j, name := range p.artifact.Features {
		raw, ok := values[name]
		if !ok {
			return 0, errors.Mark(errors.Newf("missing feature %q", name), errors.ErrFeatureMismatch)
		}
		v, ok := preprocessing.ParseValue(raw)
		if !ok {
			return 0, errors.Mark(errors.Newf("feature %q is not a finite number", name), errors.ErrFeatureMismatch)
		}
		x[j] = v
	}
	return p.Predict(x)
}
