// Package report writes evaluation reports for trained models: a CSV table,
// a fixed-width text summary and per-model feature importance charts.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/plantops/forgeml/metrics"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/trainer"
)

// File names written by WriteAll.
const (
	CSVFile  = "evaluation_report.csv"
	TextFile = "evaluation_report.txt"
)

// TopFeatures is the number of importances listed per model in the text report.
const TopFeatures = 10

var csvHeader = []string{
	"id", "model_type", "target",
	"test_rmse", "test_mae", "test_r2", "test_mape", "test_accuracy",
	"cv_rmse_mean", "cv_rmse_std", "cv_r2_mean", "cv_r2_std", "cv_accuracy_mean",
	"train_rows", "test_rows",
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// WriteCSV writes one row per model.
func WriteCSV(w io.Writer, models []*trainer.TrainedModel) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, m := range models {
		cv := cvOrZero(m)
		record := []string{
			m.ID, string(m.Type), m.Target,
			format(m.Metrics.RMSE), format(m.Metrics.MAE), format(m.Metrics.R2),
			format(m.Metrics.MAPE), format(m.Metrics.Accuracy),
			format(cv.Mean.RMSE), format(cv.Std.RMSE), format(cv.Mean.R2), format(cv.Std.R2),
			format(cv.Mean.Accuracy),
			strconv.Itoa(m.TrainRows), strconv.Itoa(m.TestRows),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write csv row %s", m.ID)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cvOrZero(m *trainer.TrainedModel) metrics.CVMetrics {
	if m.CVMetrics == nil {
		return metrics.CVMetrics{}
	}
	return *m.CVMetrics
}

// WriteText writes a human-readable summary: a metrics table followed by the
// top importances of every model.
func WriteText(w io.Writer, models []*trainer.TrainedModel) error {
	var b strings.Builder
	rule := strings.Repeat("=", 78)
	thin := strings.Repeat("-", 78)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "  MODEL EVALUATION REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "%-20s %-18s %9s %8s %9s %9s %8s\n",
		"Target", "Model", "Test RMSE", "Test R²", "Accuracy", "CV RMSE", "±")
	fmt.Fprintln(&b, thin)
	for _, m := range models {
		cv := cvOrZero(m)
		fmt.Fprintf(&b, "%-20s %-18s %9s %8s %9s %9s %8s\n",
			truncate(m.Target, 20), m.Type.DisplayName(),
			format(m.Metrics.RMSE), format(m.Metrics.R2), format(m.Metrics.Accuracy),
			format(cv.Mean.RMSE), format(cv.Std.RMSE))
	}

	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "FEATURE IMPORTANCE  (top %d per model)\n", TopFeatures)
	fmt.Fprintln(&b, rule)
	for _, m := range models {
		fmt.Fprintf(&b, "\n  %s / %s\n", m.Target, m.Type.DisplayName())
		fmt.Fprintf(&b, "  %-6s %-40s %12s\n", "Rank", "Feature", "Importance")
		fmt.Fprintln(&b, "  "+strings.Repeat("-", 60))
		for i, fi := range m.TopImportances(TopFeatures) {
			fmt.Fprintf(&b, "  %-6d %-40s %12s\n", i+1, truncate(fi.Feature, 40), format(fi.Importance))
		}
	}

	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "write text report")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// ChartFile returns the file name of the importance chart for m.
func ChartFile(m *trainer.TrainedModel) string {
	return fmt.Sprintf("importance_%s_%s.png", sanitize(m.Target), m.Type)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// WriteAll writes the CSV, the text report and one chart per model into dir
// and returns the written paths.
func WriteAll(dir string, models []*trainer.TrainedModel) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}

	var paths []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrapf(err, "create %s", path)
		}
		if err := fn(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return errors.Wrapf(err, "close %s", path)
		}
		paths = append(paths, path)
		return nil
	}

	if err := write(CSVFile, func(w io.Writer) error { return WriteCSV(w, models) }); err != nil {
		return paths, err
	}
	if err := write(TextFile, func(w io.Writer) error { return WriteText(w, models) }); err != nil {
		return paths, err
	}
	for _, m := range models {
		m := m
		if err := write(ChartFile(m), func(w io.Writer) error { return WriteImportanceChart(w, m) }); err != nil {
			return paths, err
		}
	}
	return paths, nil
}
