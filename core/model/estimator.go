package model

import (
	"gonum.org/v1/gonum/mat"

	mlerrors "github.com/plantops/forgeml/pkg/errors"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は n×1 の行列またはベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を n×1 の行列で返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor is a supervised regression model.
type Regressor interface {
	Fitter
	Predictor
}

// Transformer is a preprocessing step fit on training rows only and then
// reused verbatim for test and inference rows.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// RegressorFactory builds a fresh, unfitted Regressor.
// Cross-validation calls it once per fold.
type RegressorFactory func() (Regressor, error)

// PredictVec runs p on X and returns the predictions as a vector.
func PredictVec(p Predictor, X mat.Matrix) (*mat.VecDense, error) {
	out, err := p.Predict(X)
	if err != nil {
		return nil, err
	}
	rows, cols := out.Dims()
	if cols != 1 {
		return nil, mlerrors.NewDimensionError("PredictVec", 1, cols, 1)
	}
	v := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		v.SetVec(i, out.At(i, 0))
	}
	return v, nil
}

// TargetVec extracts the first column of y as a vector.
// mat.Vector はそのまま複製されます。
func TargetVec(y mat.Matrix) (*mat.VecDense, error) {
	if v, ok := y.(mat.Vector); ok {
		out := mat.NewVecDense(v.Len(), nil)
		out.CopyVec(v)
		return out, nil
	}
	rows, cols := y.Dims()
	if cols != 1 {
		return nil, mlerrors.NewDimensionError("TargetVec", 1, cols, 1)
	}
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		out.SetVec(i, y.At(i, 0))
	}
	return out, nil
}
