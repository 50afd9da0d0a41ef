package tree

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFitStump_SingleFeature(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{3, 1, 4, 2})
	r := []float64{5, 1, 5, 1}

	s := FitStump(X, r)
	assert.Equal(t, 0, s.Feature)
	assert.Equal(t, 2.5, s.Threshold)
	assert.Equal(t, 1.0, s.LeftValue)
	assert.Equal(t, 5.0, s.RightValue)

	assert.Equal(t, 1.0, s.PredictRow([]float64{2.5}))
	assert.Equal(t, 5.0, s.PredictRow([]float64{2.6}))
}

func TestFitStump_PicksBestFeature(t *testing.T) {
	// 特徴量0はノイズ、特徴量1が目的変数を完全に分ける
	X := mat.NewDense(6, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		1, 40,
		2, 50,
		3, 60,
	})
	r := []float64{0, 0, 0, 9, 9, 9}

	s := FitStump(X, r)
	assert.Equal(t, 1, s.Feature)
	assert.Equal(t, 35.0, s.Threshold)
	assert.Equal(t, 0.0, s.LeftValue)
	assert.Equal(t, 9.0, s.RightValue)
}

func TestFitStump_TieKeepsFirstFeature(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 1,
		2, 2,
		3, 3,
		4, 4,
	})
	s := FitStump(X, []float64{0, 0, 1, 1})
	assert.Equal(t, 0, s.Feature)
}

func TestFitStump_DuplicateValues(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{1, 2, 1, 2, 2})
	s := FitStump(X, []float64{0, 3, 0, 3, 3})
	assert.Equal(t, 1.5, s.Threshold)
	assert.Equal(t, 0.0, s.LeftValue)
	assert.Equal(t, 3.0, s.RightValue)
}

func TestFitStump_Constant(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{7, 1, 7, 1, 7, 1})
	s := FitStump(X, []float64{1, 2, 6})
	assert.Equal(t, -1, s.Feature)
	assert.Equal(t, 3.0, s.LeftValue)
	assert.Equal(t, 3.0, s.RightValue)
	assert.Equal(t, 3.0, s.PredictRow([]float64{100, -100}))
}

func TestStumpJSON(t *testing.T) {
	s := Stump{Feature: 2, Threshold: 0.5, LeftValue: -1, RightValue: 1}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"feature":2,"threshold":0.5,"left_value":-1,"right_value":1}`, string(data))
}

func TestStumpValidate(t *testing.T) {
	assert.NoError(t, Stump{Feature: 1}.Validate(2))
	assert.NoError(t, Stump{Feature: -1}.Validate(2))
	assert.Error(t, Stump{Feature: 2}.Validate(2))
	assert.Error(t, Stump{Feature: -2}.Validate(2))
	assert.Error(t, Stump{Feature: 0, LeftValue: math.NaN()}.Validate(2))
}
