package report

import (
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/trainer"
)

// WriteImportanceChart renders the top importances of m as a PNG bar chart.
func WriteImportanceChart(w io.Writer, m *trainer.TrainedModel) error {
	top := m.TopImportances(TopFeatures)
	if len(top) == 0 {
		return errors.NewValueError("WriteImportanceChart", "model has no feature importances")
	}

	values := make(plotter.Values, len(top))
	names := make([]string, len(top))
	for i, fi := range top {
		values[i] = fi.Importance
		names[i] = truncate(fi.Feature, 24)
	}

	p := plot.New()
	p.Title.Text = m.Target + " / " + m.Type.DisplayName()
	p.Y.Label.Text = "Permutation importance"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars, plotter.NewGrid())
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4

	wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return errors.Wrap(err, "render chart")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write chart")
	}
	return nil
}
