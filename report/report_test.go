package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/forgeml/metrics"
	"github.com/plantops/forgeml/sklearn/inspection"
	"github.com/plantops/forgeml/trainer"
)

func sampleModels() []*trainer.TrainedModel {
	return []*trainer.TrainedModel{
		{
			ID:       "a1",
			Type:     trainer.KindLinear,
			Target:   "yield_pct",
			Features: []string{"oxygen_flow", "power_mwh"},
			Metrics:  metrics.ModelMetrics{RMSE: 0.5, MAE: 0.4, R2: 0.97, MAPE: 1.2, Accuracy: 98.8},
			CVMetrics: &metrics.CVMetrics{
				Mean:  metrics.ModelMetrics{RMSE: 0.6, R2: 0.95, Accuracy: 98.1},
				Std:   metrics.ModelMetrics{RMSE: 0.1, R2: 0.01},
				Folds: 5,
			},
			Importances: []inspection.FeatureImportance{
				{Feature: "oxygen_flow", Importance: 0.8},
				{Feature: "power_mwh", Importance: 0.2},
			},
			TrainRows: 16,
			TestRows:  4,
		},
		{
			ID:          "b2",
			Type:        trainer.KindGradientBoosting,
			Target:      "tap temp/°C",
			Features:    []string{"oxygen_flow"},
			Metrics:     metrics.ModelMetrics{RMSE: 2, R2: 0.5, Accuracy: 90},
			Importances: []inspection.FeatureImportance{{Feature: "oxygen_flow", Importance: 1}},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleModels()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{
		"a1", "linear", "yield_pct",
		"0.5000", "0.4000", "0.9700", "1.2000", "98.8000",
		"0.6000", "0.1000", "0.9500", "0.0100", "98.1000",
		"16", "4",
	}, records[1])
	assert.Equal(t, "0.0000", records[2][8], "missing CV metrics are written as zero")
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleModels()))
	out := buf.String()

	assert.Contains(t, out, "MODEL EVALUATION REPORT")
	assert.Contains(t, out, "Linear Regression")
	assert.Contains(t, out, "Gradient Boosting")
	assert.Contains(t, out, "oxygen_flow")
	assert.Less(t, strings.Index(out, "oxygen_flow"), strings.Index(out, "power_mwh"))
}

func TestWriteImportanceChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteImportanceChart(&buf, sampleModels()[0]))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	err := WriteImportanceChart(&buf, &trainer.TrainedModel{Type: trainer.KindLinear})
	assert.Error(t, err)
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	paths, err := WriteAll(dir, sampleModels())
	require.NoError(t, err)
	require.Len(t, paths, 4)

	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.FileExists(t, filepath.Join(dir, "importance_tap_temp__C_gradient_boosting.png"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
