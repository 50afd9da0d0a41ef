package errors

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "forgeml: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "forgeml: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 3, 2, 1)

	want := "forgeml: Predict: dimension mismatch on axis 1 (features). Expected 3, got 2"
	assert.Equal(t, want, err.Error())

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)
}

func TestNewInsufficientDataError(t *testing.T) {
	err := NewInsufficientDataError(5, 10)

	var insufficient *InsufficientDataError
	require.True(t, As(err, &insufficient))
	assert.Equal(t, 5, insufficient.Count)
	assert.Equal(t, "forgeml: insufficient data: 5 valid rows, at least 10 required", err.Error())

	wrapped := Wrap(err, "train")
	require.True(t, As(wrapped, &insufficient))
	assert.Equal(t, 5, insufficient.Count)
}

func TestValidationError_ZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var validation *ValidationError
	require.True(t, As(NewValidationError("test_split", "must be in (0,1)", 1.5), &validation))
	logger.Error().EmbedObject(validation).Msg("invalid config")

	out := buf.String()
	assert.Contains(t, out, `"param_name":"test_split"`)
	assert.Contains(t, out, `"type":"ValidationError"`)
}

func TestMarkedSentinels(t *testing.T) {
	err := Mark(Newf("tree node %d has one child", 4), ErrInvalidArtifact)
	assert.True(t, Is(err, ErrInvalidArtifact))
	assert.False(t, Is(err, ErrFeatureMismatch))
}

func TestWarn_UsesZerologFuncWhenSet(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewUndefinedMetricWarning("r2", "constant target", 0))
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Error(), "'r2' is ill-defined")
}

func TestWarn_FallsBackToHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(nil)

	Warn(NewDroppedRowsWarning(12, 2))
	require.Len(t, got, 1)
	assert.Equal(t, "2 of 12 rows dropped: target or feature is not a finite number", got[0].Error())
}

func TestNumericalHelpers(t *testing.T) {
	assert.Equal(t, 0.0, Sanitize(math.NaN()))
	assert.Equal(t, 0.0, Sanitize(math.Inf(1)))
	assert.Equal(t, 1.5, Sanitize(1.5))

	assert.Equal(t, 100.0, ClipValue(120, 0, 100))
	assert.Equal(t, 0.0, ClipValue(-3, 0, 100))

	assert.NoError(t, CheckNumericalStability("op", []float64{1, 2}))
	assert.Error(t, CheckNumericalStability("op", []float64{1, math.NaN()}))
	assert.Error(t, CheckScalar("op", math.Inf(-1)))
}
