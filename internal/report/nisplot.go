package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/radar-tracker/internal/monitoring"
)

// chiSq2DOF95 is the 95% quantile of chi-squared with 2 degrees of freedom.
// For a consistent filter roughly 95% of NIS samples fall below this line.
const chiSq2DOF95 = 5.991

// WriteNISPlot renders a static PNG of every track's NIS series with the
// chi-squared consistency band.
func (d *RunData) WriteNISPlot(path string) error {
	p := plot.New()
	p.Title.Text = "Normalised innovation squared"
	p.X.Label.Text = "step"
	p.Y.Label.Text = "NIS"

	var lastStep float64
	series := 0
	for _, id := range d.trackIDs() {
		acc := d.tracks[id]
		if len(acc.nis) == 0 {
			continue
		}
		series++
		xys := make(plotter.XYs, 0, len(acc.nis))
		for _, pt := range acc.nis {
			xys = append(xys, plotter.XY{X: float64(pt.Step), Y: pt.NIS})
			if float64(pt.Step) > lastStep {
				lastStep = float64(pt.Step)
			}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("build NIS series for track %d: %w", id, err)
		}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("track %d", id), line)
	}

	if series == 0 {
		monitoring.Logf("report: no associated steps recorded, NIS plot will only show the consistency band")
	}

	band, err := plotter.NewLine(plotter.XYs{
		{X: 0, Y: chiSq2DOF95},
		{X: lastStep, Y: chiSq2DOF95},
	})
	if err != nil {
		return fmt.Errorf("build consistency band: %w", err)
	}
	band.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(band)
	p.Legend.Add("chi-sq 2dof 95%", band)
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save NIS plot: %w", err)
	}
	return nil
}
