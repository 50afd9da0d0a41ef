package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/plantops/forgeml/core/model"
	"github.com/plantops/forgeml/core/parallel"
	"github.com/plantops/forgeml/core/random"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/pkg/log"
	"github.com/plantops/forgeml/sklearn/tree"
)

// treeSeedStride は木ごとのシードの間隔
const treeSeedStride uint32 = 7919

// ExtraTreesConfig はExtraTreesRegressorのハイパーパラメータ
type ExtraTreesConfig struct {
	NEstimators    int    // 木の本数
	MaxDepth       int    // 木の最大深さ
	MinSamplesLeaf int    // 葉の最小サンプル数
	Seed           uint32 // 木ごとのシードの基点
	YieldEvery     int    // この本数ごとにスケジューラへ制御を返す
}

// DefaultExtraTreesConfig は本番モデル用の設定を返す
func DefaultExtraTreesConfig() ExtraTreesConfig {
	return ExtraTreesConfig{
		NEstimators:    50,
		MaxDepth:       8,
		MinSamplesLeaf: 2,
		Seed:           random.DefaultSeed,
		YieldEvery:     5,
	}
}

// ExtraTreesState はシリアライズ形式
type ExtraTreesState struct {
	Trees []*tree.Node `json:"trees"`
}

// ExtraTreesRegressor は Extremely Randomized Trees のアンサンブル回帰
//
// 各木 i はシード Seed + i·7919 のLCGを持ち、ブートストラップ標本と
// round(√p) 個の特徴量部分集合を選び、分割閾値を一様乱数で決める。
// 予測は全ての木の算術平均。
type ExtraTreesRegressor struct {
	state  *model.StateManager
	config ExtraTreesConfig
	hook   func(done, total int)
	logger log.Logger

	Trees []*tree.Node
}

// NewExtraTreesRegressor は新しいExtraTreesRegressorを作成する
func NewExtraTreesRegressor(cfg ExtraTreesConfig) *ExtraTreesRegressor {
	return &ExtraTreesRegressor{
		state:  model.NewStateManager(),
		config: cfg,
		logger: log.GetLoggerWithName("ensemble").With(log.ModelNameKey, "random_forest"),
	}
}

// NewExtraTreesFromState は保存された木から再学習なしでモデルを復元する
func NewExtraTreesFromState(st ExtraTreesState, nFeatures int) (*ExtraTreesRegressor, error) {
	if len(st.Trees) == 0 {
		return nil, errors.NewValidationError("trees", "at least one tree is required", 0)
	}
	for _, t := range st.Trees {
		if err := t.Validate(nFeatures); err != nil {
			return nil, err
		}
	}
	e := NewExtraTreesRegressor(ExtraTreesConfig{NEstimators: len(st.Trees)})
	e.Trees = append([]*tree.Node(nil), st.Trees...)
	e.state.SetDimensions(nFeatures, 0)
	e.state.SetFitted()
	return e, nil
}

// OnProgress は YieldEvery 本ごとに呼ばれるフックを設定する
func (e *ExtraTreesRegressor) OnProgress(hook func(done, total int)) {
	e.hook = hook
}

// Fit はモデルを訓練データで学習させる
func (e *ExtraTreesRegressor) Fit(X, y mat.Matrix) error {
	e.state.Reset()
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("ExtraTreesRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if e.config.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be positive", e.config.NEstimators)
	}
	yVec, err := model.TargetVec(y)
	if err != nil {
		return err
	}
	if yVec.Len() != r {
		return errors.NewDimensionError("ExtraTreesRegressor.Fit", r, yVec.Len(), 0)
	}

	Xd := mat.DenseCopyOf(X)
	target := yVec.RawVector().Data
	k := tree.FeatureSubsetSize(c)
	cfg := tree.ExtraTreeConfig{MaxDepth: e.config.MaxDepth, MinSamplesLeaf: e.config.MinSamplesLeaf}
	checkpoint := parallel.Checkpoint{Every: e.config.YieldEvery, Hook: e.hook}

	trees := make([]*tree.Node, 0, e.config.NEstimators)
	samples := make([]int, r)
	for i := 0; i < e.config.NEstimators; i++ {
		rng := random.NewLCG(random.DeriveSeed(e.config.Seed, i, treeSeedStride))
		for s := range samples {
			samples[s] = rng.Intn(r)
		}
		subset := rng.Perm(c)[:k]

		trees = append(trees, tree.BuildExtraTree(Xd, target, samples, subset, cfg, rng))
		checkpoint.Tick(i+1, e.config.NEstimators)
	}

	e.Trees = trees
	e.state.SetDimensions(c, r)
	e.state.SetFitted()
	e.logger.Debug("forest finished", log.IterationKey, len(trees), log.SamplesKey, r)
	return nil
}

// PredictRow returns the mean of all trees for one feature vector.
func (e *ExtraTreesRegressor) PredictRow(x []float64) float64 {
	sum := 0.0
	for _, t := range e.Trees {
		sum += t.PredictRow(x)
	}
	return sum / float64(len(e.Trees))
}

// Predict は入力データに対する予測を行う
func (e *ExtraTreesRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := e.state.RequireFitted("ExtraTreesRegressor", "Predict"); err != nil {
		return nil, err
	}
	if err := e.state.RequireFeatures("ExtraTreesRegressor.Predict", cols(X)); err != nil {
		return nil, err
	}
	return predictRows(X, e.PredictRow)
}

// State returns the serializable form of the fitted model.
func (e *ExtraTreesRegressor) State() ExtraTreesState {
	trees := make([]*tree.Node, len(e.Trees))
	copy(trees, e.Trees)
	return ExtraTreesState{Trees: trees}
}
