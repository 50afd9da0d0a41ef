package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/plantops/forgeml/core/model"
	"github.com/plantops/forgeml/pkg/errors"
)

var _ model.Transformer = (*StandardScaler)(nil)

// zeroVarianceEpsilon 以下の標準偏差は1として扱う
const zeroVarianceEpsilon = 1e-8

// StandardScaler は特徴量を平均0、標準偏差1に変換する標準化スケーラー
//
// 訓練データに対して一度だけFitし、テストデータや推論時の入力には
// 学習済みの平均・標準偏差をそのまま再利用する。
type StandardScaler struct {
	state *model.StateManager

	// Means は各特徴量の平均値
	Means []float64

	// Stds は各特徴量の母標準偏差（分散0の特徴量は1）
	Stds []float64
}

// ScalerState はStandardScalerのシリアライズ形式
type ScalerState struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler()
//	XScaled, err := scaler.FitTransform(XTrain)
//	XTestScaled, err := scaler.Transform(XTest)
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{state: model.NewStateManager()}
}

// NewStandardScalerFromState は保存された統計量から再学習なしでスケーラーを復元する
func NewStandardScalerFromState(st ScalerState) (*StandardScaler, error) {
	if len(st.Means) == 0 || len(st.Means) != len(st.Stds) {
		return nil, errors.NewValidationError("scaler", "means and stds must be non-empty and of equal length",
			fmt.Sprintf("%d/%d", len(st.Means), len(st.Stds)))
	}
	for j := range st.Means {
		if !errors.IsFinite(st.Means[j]) || !errors.IsFinite(st.Stds[j]) || st.Stds[j] == 0 {
			return nil, errors.NewValidationError("scaler", "non-finite or zero statistic", j)
		}
	}
	s := NewStandardScaler()
	s.Means = append([]float64(nil), st.Means...)
	s.Stds = append([]float64(nil), st.Stds...)
	s.state.SetDimensions(len(s.Means), 0)
	s.state.SetFitted()
	return s, nil
}

// Fit は訓練データから各特徴量の平均と母標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	s.state.Reset()
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.Means = make([]float64, c)
	s.Stds = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean := stat.Mean(col, nil)

		sumSquares := 0.0
		for _, v := range col {
			d := v - mean
			sumSquares += d * d
		}
		std := math.Sqrt(sumSquares / float64(r))

		// 標準偏差が0に近い場合は1に設定（ゼロ除算を避ける）
		if math.Abs(std) < zeroVarianceEpsilon || !errors.IsFinite(std) {
			std = 1.0
		}
		s.Means[j] = mean
		s.Stds[j] = std
	}

	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := s.state.RequireFeatures("StandardScaler.Transform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Means[j])/s.Stds[j])
		}
	}
	return result, nil
}

// TransformRow は1行分の特徴量を標準化する
func (s *StandardScaler) TransformRow(x []float64) ([]float64, error) {
	if err := s.state.RequireFitted("StandardScaler", "TransformRow"); err != nil {
		return nil, err
	}
	if err := s.state.RequireFeatures("StandardScaler.TransformRow", len(x)); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Means[j]) / s.Stds[j]
	}
	return out, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// IsFitted reports whether Fit (or NewStandardScalerFromState) has run.
func (s *StandardScaler) IsFitted() bool {
	return s.state.IsFitted()
}

// State returns a copy of the fitted statistics for serialization.
func (s *StandardScaler) State() ScalerState {
	return ScalerState{
		Means: append([]float64(nil), s.Means...),
		Stds:  append([]float64(nil), s.Stds...),
	}
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return "StandardScaler(fitted=false)"
	}
	return fmt.Sprintf("StandardScaler(n_features=%d)", len(s.Means))
}
