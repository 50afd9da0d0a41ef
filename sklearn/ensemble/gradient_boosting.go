// Package ensemble provides the boosted-stump and extremely randomized
// forest regressors.
package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/plantops/forgeml/core/model"
	"github.com/plantops/forgeml/core/parallel"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/pkg/log"
	"github.com/plantops/forgeml/sklearn/tree"
)

// 行数がこの値を超える場合は予測を並列化する
const predictParallelThreshold = 512

// GradientBoostingConfig はGradientBoostingRegressorのハイパーパラメータ
type GradientBoostingConfig struct {
	NRounds      int     // ブースティングのラウンド数
	LearningRate float64 // 各スタンプの寄与に掛ける学習率
	YieldEvery   int     // この数のラウンドごとにスケジューラへ制御を返す
}

// DefaultGradientBoostingConfig は本番モデル用の設定を返す
func DefaultGradientBoostingConfig() GradientBoostingConfig {
	return GradientBoostingConfig{NRounds: 100, LearningRate: 0.1, YieldEvery: 10}
}

// GradientBoostingState はシリアライズ形式
type GradientBoostingState struct {
	InitialPrediction float64      `json:"initial_prediction"`
	LearningRate      float64      `json:"learning_rate"`
	Stumps            []tree.Stump `json:"stumps"`
}

// GradientBoostingRegressor は二乗誤差に対する決定スタンプの勾配ブースティング
//
// 初期予測は目的変数の平均。各ラウンドで残差にスタンプを当てはめ、
// 予測を learningRate × stump(x) だけ更新する。内部に乱数は持たない。
type GradientBoostingRegressor struct {
	state  *model.StateManager
	config GradientBoostingConfig
	hook   func(done, total int)
	logger log.Logger

	InitialPrediction float64
	Stumps            []tree.Stump
}

// NewGradientBoostingRegressor は新しいGradientBoostingRegressorを作成する
func NewGradientBoostingRegressor(cfg GradientBoostingConfig) *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		state:  model.NewStateManager(),
		config: cfg,
		logger: log.GetLoggerWithName("ensemble").With(log.ModelNameKey, "gradient_boosting"),
	}
}

// NewGradientBoostingFromState は保存されたスタンプ列から再学習なしでモデルを復元する
func NewGradientBoostingFromState(st GradientBoostingState, nFeatures int) (*GradientBoostingRegressor, error) {
	if !errors.IsFinite(st.InitialPrediction) || !errors.IsFinite(st.LearningRate) || st.LearningRate <= 0 {
		return nil, errors.NewValidationError("gradient_boosting", "non-finite or non-positive parameter", st)
	}
	if len(st.Stumps) == 0 {
		return nil, errors.NewValidationError("stumps", "at least one stump is required", 0)
	}
	for _, s := range st.Stumps {
		if err := s.Validate(nFeatures); err != nil {
			return nil, err
		}
	}
	g := NewGradientBoostingRegressor(GradientBoostingConfig{
		NRounds:      len(st.Stumps),
		LearningRate: st.LearningRate,
	})
	g.InitialPrediction = st.InitialPrediction
	g.Stumps = append([]tree.Stump(nil), st.Stumps...)
	g.state.SetDimensions(nFeatures, 0)
	g.state.SetFitted()
	return g, nil
}

// OnProgress は YieldEvery ラウンドごとに呼ばれるフックを設定する
func (g *GradientBoostingRegressor) OnProgress(hook func(done, total int)) {
	g.hook = hook
}

// Fit はモデルを訓練データで学習させる
func (g *GradientBoostingRegressor) Fit(X, y mat.Matrix) error {
	g.state.Reset()
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("GradientBoostingRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if g.config.NRounds < 0 {
		return errors.NewValidationError("n_rounds", "must be non-negative", g.config.NRounds)
	}
	yVec, err := model.TargetVec(y)
	if err != nil {
		return err
	}
	if yVec.Len() != r {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", r, yVec.Len(), 0)
	}

	Xd := mat.DenseCopyOf(X)
	target := yVec.RawVector().Data

	init := 0.0
	for _, v := range target {
		init += v
	}
	init /= float64(r)

	pred := make([]float64, r)
	residuals := make([]float64, r)
	for i := range pred {
		pred[i] = init
		residuals[i] = target[i] - init
	}

	checkpoint := parallel.Checkpoint{Every: g.config.YieldEvery, Hook: g.hook}
	stumps := make([]tree.Stump, 0, g.config.NRounds)
	for round := 1; round <= g.config.NRounds; round++ {
		s := tree.FitStump(Xd, residuals)
		stumps = append(stumps, s)
		for i := 0; i < r; i++ {
			pred[i] += g.config.LearningRate * s.PredictRow(Xd.RawRowView(i))
			residuals[i] = target[i] - pred[i]
		}
		checkpoint.Tick(round, g.config.NRounds)
	}

	g.InitialPrediction = init
	g.Stumps = stumps
	g.state.SetDimensions(c, r)
	g.state.SetFitted()
	g.logger.Debug("boosting finished", log.IterationKey, len(stumps), log.SamplesKey, r)
	return nil
}

// PredictRow returns the boosted prediction for one feature vector.
func (g *GradientBoostingRegressor) PredictRow(x []float64) float64 {
	out := g.InitialPrediction
	for _, s := range g.Stumps {
		out += g.config.LearningRate * s.PredictRow(x)
	}
	return out
}

// Predict は入力データに対する予測を行う
func (g *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := g.state.RequireFitted("GradientBoostingRegressor", "Predict"); err != nil {
		return nil, err
	}
	if err := g.state.RequireFeatures("GradientBoostingRegressor.Predict", cols(X)); err != nil {
		return nil, err
	}
	return predictRows(X, g.PredictRow)
}

// State returns the serializable form of the fitted model.
func (g *GradientBoostingRegressor) State() GradientBoostingState {
	stumps := make([]tree.Stump, len(g.Stumps))
	copy(stumps, g.Stumps)
	return GradientBoostingState{
		InitialPrediction: g.InitialPrediction,
		LearningRate:      g.config.LearningRate,
		Stumps:            stumps,
	}
}

// predictRows applies fn to every row of X, in parallel for large inputs.
func predictRows(X mat.Matrix, fn func(x []float64) float64) (*mat.Dense, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError("Predict", "empty input")
	}
	Xd := mat.DenseCopyOf(X)
	out := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, predictParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			out.Set(i, 0, fn(Xd.RawRowView(i)))
		}
	})
	return out, nil
}

func cols(X mat.Matrix) int {
	_, c := X.Dims()
	return c
}
