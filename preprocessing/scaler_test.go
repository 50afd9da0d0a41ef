package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/plantops/forgeml/pkg/errors"
)

func TestStandardScalerFit(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})
	s := NewStandardScaler()
	require.NoError(t, s.Fit(X))

	assert.InDelta(t, 2.5, s.Means[0], 1e-12)
	// 母標準偏差: sqrt(1.25)
	assert.InDelta(t, math.Sqrt(1.25), s.Stds[0], 1e-12)
	// 定数列は1
	assert.Equal(t, 5.0, s.Means[1])
	assert.Equal(t, 1.0, s.Stds[1])

	out, err := s.Transform(X)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		assert.Equal(t, 0.0, out.At(i, 1))
	}
	col := mat.Col(nil, 0, out)
	sum := 0.0
	for _, v := range col {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-12)
}

func TestStandardScalerNotFitted(t *testing.T) {
	s := NewStandardScaler()
	_, err := s.Transform(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	_, err = s.TransformRow([]float64{1})
	assert.Error(t, err)
}

func TestStandardScalerDimensionMismatch(t *testing.T) {
	s := NewStandardScaler()
	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))

	_, err := s.Transform(mat.NewDense(1, 3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, err = s.TransformRow([]float64{1})
	assert.True(t, errors.As(err, &de))
}

func TestStandardScalerEmpty(t *testing.T) {
	s := NewStandardScaler()
	err := s.Fit(&mat.Dense{})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestStandardScalerStateRoundTrip(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 10, 2, 20, 4, 40})
	s := NewStandardScaler()
	require.NoError(t, s.Fit(X))

	restored, err := NewStandardScalerFromState(s.State())
	require.NoError(t, err)
	assert.True(t, restored.IsFitted())

	row := []float64{3, 30}
	a, err := s.TransformRow(row)
	require.NoError(t, err)
	b, err := restored.TransformRow(row)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewStandardScalerFromStateRejectsCorruption(t *testing.T) {
	tests := []struct {
		name  string
		state ScalerState
	}{
		{"empty", ScalerState{}},
		{"length mismatch", ScalerState{Means: []float64{1, 2}, Stds: []float64{1}}},
		{"zero std", ScalerState{Means: []float64{1}, Stds: []float64{0}}},
		{"nan mean", ScalerState{Means: []float64{math.NaN()}, Stds: []float64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStandardScalerFromState(tt.state)
			assert.Error(t, err)
		})
	}
}

func TestStandardScalerString(t *testing.T) {
	s := NewStandardScaler()
	assert.Equal(t, "StandardScaler(fitted=false)", s.String())
	require.NoError(t, s.Fit(mat.NewDense(2, 3, nil)))
	assert.Equal(t, "StandardScaler(n_features=3)", s.String())
}
