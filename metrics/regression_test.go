package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/plantops/forgeml/pkg/errors"
)

func vec(v ...float64) *mat.VecDense {
	return mat.NewVecDense(len(v), v)
}

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{name: "perfect prediction", yTrue: vec(1, 2, 3, 4, 5), yPred: vec(1, 2, 3, 4, 5), want: 0},
		// ((0.5)^2 + (0.5)^2 + (-0.5)^2 + (-0.5)^2) / 4 = 0.25
		{name: "simple case", yTrue: vec(1, 2, 3, 4), yPred: vec(1.5, 2.5, 2.5, 3.5), want: 0.25},
		// (4 + 4 + 9) / 3
		{name: "larger errors", yTrue: vec(10, 20, 30), yPred: vec(12, 18, 33), want: 17.0 / 3.0},
		{name: "dimension mismatch", yTrue: vec(1, 2, 3), yPred: vec(1, 2), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestRMSEAndMAE(t *testing.T) {
	yTrue := vec(3, -0.5, 2, 7)
	yPred := vec(2.5, 0, 2, 8)

	rmse, err := RMSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.375), rmse, 1e-12)

	mae, err := MAE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mae, 1e-12)

	_, err = MAE(&mat.VecDense{}, &mat.VecDense{})
	assert.Error(t, err)
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name  string
		yTrue *mat.VecDense
		yPred *mat.VecDense
		want  float64
	}{
		{name: "perfect", yTrue: vec(1, 2, 3), yPred: vec(1, 2, 3), want: 1},
		// rss = 0.375*4 = 1.5, tss = 29.1875
		{name: "sklearn example", yTrue: vec(3, -0.5, 2, 7), yPred: vec(2.5, 0, 2, 8), want: 1 - 1.5/29.1875},
		{name: "worse than mean clamps to zero", yTrue: vec(1, 2, 3), yPred: vec(3, 2, 1), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestR2ScoreConstantTargetWarns(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	got, err := R2Score(vec(4, 4, 4), vec(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
	require.Len(t, warnings, 1)

	var w *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warnings[0], &w))
	assert.Equal(t, "r2", w.Metric)
}

func TestMAPEDividesByFullCount(t *testing.T) {
	// 0 の行は分子から除外されるが、分母は 4 のまま
	got, err := MAPE(vec(0, 10, 20, 0), vec(5, 11, 18, -3))
	require.NoError(t, err)
	assert.InDelta(t, (0.1+0.1)/4*100, got, 1e-12)

	got, err = MAPE(vec(0, 0), vec(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy(vec(10, 20), vec(11, 18))
	require.NoError(t, err)
	assert.InDelta(t, 90, acc, 1e-12)

	// MAPE > 100 は 0 に切り詰める
	acc, err = Accuracy(vec(1, 1), vec(10, 10))
	require.NoError(t, err)
	assert.Equal(t, 0.0, acc)
}

func TestEvaluate(t *testing.T) {
	m, err := Evaluate(vec(10, 20, 30, 40), vec(12, 18, 33, 40))
	require.NoError(t, err)

	assert.InDelta(t, math.Sqrt(17.0/4), m.RMSE, 1e-12)
	assert.InDelta(t, 7.0/4, m.MAE, 1e-12)
	assert.True(t, m.R2 >= 0 && m.R2 <= 1)
	assert.InDelta(t, (0.2+0.1+0.1)/4*100, m.MAPE, 1e-12)
	assert.InDelta(t, 100-m.MAPE, m.Accuracy, 1e-12)

	_, err = Evaluate(vec(1, 2), vec(1))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestEvaluateSanitizesNonFinite(t *testing.T) {
	m, err := Evaluate(vec(1, 2, 3), vec(math.Inf(1), 2, 3))
	require.NoError(t, err)
	for _, v := range []float64{m.RMSE, m.MAE, m.R2, m.MAPE, m.Accuracy} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestOverflowingMAPEGivesZeroAccuracy(t *testing.T) {
	m, err := Evaluate(vec(1e-320, 1), vec(1e6, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.MAPE)
	assert.Equal(t, 0.0, m.Accuracy)

	acc, err := Accuracy(vec(1e-320, 1), vec(1e6, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, acc)
}

func TestSummarize(t *testing.T) {
	folds := []ModelMetrics{
		{RMSE: 1, MAE: 1, R2: 0.5, MAPE: 10, Accuracy: 90},
		{RMSE: 3, MAE: 1, R2: 0.7, MAPE: 20, Accuracy: 80},
	}
	cv, err := Summarize(folds)
	require.NoError(t, err)

	assert.Equal(t, 2, cv.Folds)
	assert.InDelta(t, 2, cv.Mean.RMSE, 1e-12)
	assert.InDelta(t, 1, cv.Std.RMSE, 1e-12) // 母標準偏差
	assert.InDelta(t, 0, cv.Std.MAE, 1e-12)
	assert.InDelta(t, 0.6, cv.Mean.R2, 1e-12)
	assert.InDelta(t, 5, cv.Std.Accuracy, 1e-12)

	_, err = Summarize(nil)
	assert.Error(t, err)
}

func BenchmarkEvaluate(b *testing.B) {
	n := 10000
	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yTrue.SetVec(i, float64(i+1))
		yPred.SetVec(i, float64(i+1)*1.01)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Evaluate(yTrue, yPred); err != nil {
			b.Fatal(err)
		}
	}
}
