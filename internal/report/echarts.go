package report

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/radar-tracker/internal/units"
)

// WriteHTML renders the interactive run report: a trails chart overlaying
// truth and track estimates in the world frame, and a NIS time-series chart
// per track.
func (d *RunData) WriteHTML(path string) error {
	page := components.NewPage()
	page.AddCharts(d.trailsChart(), d.nisChart())

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func (d *RunData) trailsChart() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tracker Run", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Truth and track trails", Subtitle: fmt.Sprintf("%d truth targets, %d tracks", len(d.truthTrails), len(d.tracks))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)

	for _, id := range d.truthIDs() {
		data := make([]opts.LineData, 0, len(d.truthTrails[id]))
		for _, p := range d.truthTrails[id] {
			data = append(data, opts.LineData{Value: []interface{}{p.Pos.X, p.Pos.Y}})
		}
		line.AddSeries(fmt.Sprintf("truth %d", id), data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}),
		)
	}

	for _, id := range d.trackIDs() {
		data := make([]opts.LineData, 0, len(d.tracks[id].trail))
		for _, p := range d.tracks[id].trail {
			data = append(data, opts.LineData{Value: []interface{}{p.Pos.X, p.Pos.Y}})
		}
		name := fmt.Sprintf("track %d (avg %.1f %s)", id, d.avgSpeed(id), units.Label(d.speedUnits))
		line.AddSeries(name, data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	}

	return line
}

func (d *RunData) nisChart() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "450px"}),
		charts.WithTitleOpts(opts.Title{Title: "Normalised innovation squared", Subtitle: "per associated step; consistent filters hover around 2 (the innovation dof)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "step", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "NIS", NameLocation: "middle", NameGap: 30}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)

	for _, id := range d.trackIDs() {
		acc := d.tracks[id]
		if len(acc.nis) == 0 {
			continue
		}
		data := make([]opts.LineData, 0, len(acc.nis))
		for _, p := range acc.nis {
			data = append(data, opts.LineData{Value: []interface{}{p.Step, p.NIS}})
		}
		line.AddSeries(fmt.Sprintf("track %d", id), data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	}

	return line
}
