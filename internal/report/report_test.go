package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/radar-tracker/internal/geom"
	"github.com/banshee-data/radar-tracker/internal/sim"
	"github.com/banshee-data/radar-tracker/internal/tracker"
	"github.com/banshee-data/radar-tracker/internal/units"
)

func sampleData(speedUnits string) *RunData {
	d := NewRunData(speedUnits)
	truth := []sim.TruthTarget{{ID: 1, Pos: geom.Vec2{X: 0, Y: 0}, Vel: geom.Vec2{X: 5, Y: 0}}}
	for step := 0; step < 10; step++ {
		truth[0].Pos.X += 0.25
		snap := tracker.Snapshot{
			ID: 1, Confirmed: step >= 2,
			X: [4]float64{truth[0].Pos.X, 0, 5, 0},
		}
		innov := geom.Vec2{X: 0.5, Y: -0.25}
		S := geom.Mat2{M00: 4, M11: 4}
		d.AddStep(step, truth, []tracker.Snapshot{snap}, []geom.Vec2{innov}, []geom.Mat2{S})
	}
	return d
}

func TestRunData_AccumulatesSeries(t *testing.T) {
	t.Parallel()

	d := sampleData(units.MPS)

	require.Len(t, d.truthTrails, 1)
	assert.Len(t, d.truthTrails[1], 10)

	require.Contains(t, d.tracks, uint32(1))
	acc := d.tracks[uint32(1)]
	assert.Len(t, acc.trail, 10)
	assert.Len(t, acc.nis, 10, "every associated step contributes a NIS sample")

	// NIS = yᵀS⁻¹y = (0.25 + 0.0625) / 4
	assert.InDelta(t, 0.078125, acc.nis[0].NIS, 1e-12)

	assert.InDelta(t, 5.0, d.avgSpeed(1), 1e-12)
}

func TestRunData_SkipsUnassociatedSteps(t *testing.T) {
	t.Parallel()

	d := NewRunData(units.MPS)
	snap := tracker.Snapshot{ID: 2, X: [4]float64{1, 1, 0, 0}}
	// Zero diagnostics mark an unassociated (or newly created) track.
	d.AddStep(0, nil, []tracker.Snapshot{snap}, []geom.Vec2{{}}, []geom.Mat2{{}})

	acc := d.tracks[uint32(2)]
	require.NotNil(t, acc)
	assert.Len(t, acc.trail, 1)
	assert.Empty(t, acc.nis)
}

func TestRunData_SpeedUnitConversion(t *testing.T) {
	t.Parallel()

	d := sampleData(units.KPH)
	assert.InDelta(t, 18.0, d.avgSpeed(1), 1e-9) // 5 m/s = 18 km/h

	// Unknown units fall back to m/s rather than failing.
	d = NewRunData("parsec/fortnight")
	assert.Equal(t, units.MPS, d.speedUnits)
}

func TestWriteHTML_RendersChartsPage(t *testing.T) {
	t.Parallel()

	d := sampleData(units.MPS)
	path := filepath.Join(t.TempDir(), "run.html")
	require.NoError(t, d.WriteHTML(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(content)
	assert.True(t, strings.Contains(html, "echarts"), "page must embed echarts")
	assert.Contains(t, html, "truth 1")
	assert.Contains(t, html, "track 1")
}

func TestWriteNISPlot_WritesPNG(t *testing.T) {
	t.Parallel()

	d := sampleData(units.MPS)
	path := filepath.Join(t.TempDir(), "nis.png")
	require.NoError(t, d.WriteNISPlot(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(content), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, content[:4])
}
