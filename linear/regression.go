package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/plantops/forgeml/core/model"
	"github.com/plantops/forgeml/core/parallel"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/preprocessing"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const defaultParallelThreshold = 1000

// Params はLinearRegressionのシリアライズ形式
type Params struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// LinearRegression は標準化した特徴量に対する最小二乗線形回帰モデル
//
// Fitは訓練データでStandardScalerを学習し、[1, X_scaled] に対する
// 最小二乗問題を薄いSVDで解く。ランク落ちした計画行列では最小ノルム解を返す。
// Predictは学習時のスケーラーをそのまま使って入力を変換する。
type LinearRegression struct {
	state  *model.StateManager
	scaler *preprocessing.StandardScaler

	Coefficients []float64 // 標準化後の特徴量に対する係数
	Intercept    float64   // 切片

	rcond             float64
	parallelThreshold int
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		state:             model.NewStateManager(),
		parallelThreshold: defaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// NewFromParams は保存された係数とスケーラーから再学習なしでモデルを復元する
func NewFromParams(p Params, scaler *preprocessing.StandardScaler) (*LinearRegression, error) {
	if scaler == nil || !scaler.IsFitted() {
		return nil, errors.NewValidationError("scaler", "a fitted scaler is required", nil)
	}
	if len(p.Coefficients) == 0 || len(p.Coefficients) != len(scaler.Means) {
		return nil, errors.NewValidationError("coefficients", "length must match the scaler",
			fmt.Sprintf("%d/%d", len(p.Coefficients), len(scaler.Means)))
	}
	if err := errors.CheckNumericalStability("LinearRegression.NewFromParams", p.Coefficients); err != nil {
		return nil, err
	}
	if err := errors.CheckScalar("LinearRegression.NewFromParams", p.Intercept); err != nil {
		return nil, err
	}

	lr := NewLinearRegression()
	lr.scaler = scaler
	lr.Coefficients = append([]float64(nil), p.Coefficients...)
	lr.Intercept = p.Intercept
	lr.state.SetDimensions(len(p.Coefficients), 0)
	lr.state.SetFitted()
	return lr, nil
}

// Fit はモデルを訓練データで学習させる
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	lr.state.Reset()
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	yVec, err := model.TargetVec(y)
	if err != nil {
		return err
	}
	if yVec.Len() != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, yVec.Len(), 0)
	}

	scaler := preprocessing.NewStandardScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		return err
	}

	// 切片項のために X に 1 の列を追加
	// A = [1, X_scaled]
	A := mat.NewDense(r, c+1, nil)
	parallel.ParallelizeWithThreshold(r, lr.parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			A.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				A.Set(i, j+1, scaled.At(i, j))
			}
		}
	})

	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "SVD factorization failed", nil)
	}

	rcond := lr.rcond
	if rcond <= 0 {
		rcond = math.Nextafter(1, 2) - 1
		rcond *= float64(max(r, c+1))
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return errors.NewModelError("LinearRegression.Fit", "design matrix has rank 0", nil)
	}

	var w mat.VecDense
	svd.SolveVecTo(&w, yVec, rank)

	coef := make([]float64, c)
	for j := 0; j < c; j++ {
		coef[j] = w.AtVec(j + 1)
	}
	if err := errors.CheckNumericalStability("LinearRegression.Fit", coef); err != nil {
		return err
	}

	lr.scaler = scaler
	lr.Intercept = w.AtVec(0)
	lr.Coefficients = coef
	lr.state.SetDimensions(c, r)
	lr.state.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := lr.state.RequireFeatures("LinearRegression.Predict", c); err != nil {
		return nil, err
	}

	scaled, err := lr.scaler.Transform(X)
	if err != nil {
		return nil, err
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.Intercept
		for j := 0; j < c; j++ {
			pred += scaled.At(i, j) * lr.Coefficients[j]
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Scaler returns the scaler fitted on the training rows.
func (lr *LinearRegression) Scaler() *preprocessing.StandardScaler {
	return lr.scaler
}

// Params returns the fitted coefficients for serialization.
func (lr *LinearRegression) Params() Params {
	return Params{
		Coefficients: append([]float64(nil), lr.Coefficients...),
		Intercept:    lr.Intercept,
	}
}

// IsFitted reports whether the model has been fitted.
func (lr *LinearRegression) IsFitted() bool {
	return lr.state.IsFitted()
}
