// Package report renders offline run reports: an interactive HTML page with
// truth and track trails plus per-track NIS series, and a static NIS plot
// with the chi-squared consistency band.
package report

import (
	"math"
	"sort"

	"github.com/banshee-data/radar-tracker/internal/geom"
	"github.com/banshee-data/radar-tracker/internal/sim"
	"github.com/banshee-data/radar-tracker/internal/tracker"
	"github.com/banshee-data/radar-tracker/internal/units"
)

// minNISDet guards the 2×2 inversion when reconstructing NIS from logged
// residuals.
const minNISDet = 1e-12

type trailPoint struct {
	Step int
	Pos  geom.Vec2
}

type nisPoint struct {
	Step int
	NIS  float64
}

type trackAccum struct {
	trail    []trailPoint
	nis      []nisPoint
	speedSum float64
	steps    int
}

// RunData accumulates one run's plotting series step by step.
type RunData struct {
	speedUnits string

	truthTrails map[uint32][]trailPoint
	tracks      map[uint32]*trackAccum
}

// NewRunData returns an empty accumulator. Speeds in series labels are
// converted to speedUnits; invalid units fall back to m/s.
func NewRunData(speedUnits string) *RunData {
	if !units.IsValid(speedUnits) {
		speedUnits = units.MPS
	}
	return &RunData{
		speedUnits:  speedUnits,
		truthTrails: make(map[uint32][]trailPoint),
		tracks:      make(map[uint32]*trackAccum),
	}
}

// AddStep folds one completed step into the accumulator. snaps, innovs and
// Ss are the tracker's parallel post-step outputs.
func (d *RunData) AddStep(step int, truth []sim.TruthTarget, snaps []tracker.Snapshot, innovs []geom.Vec2, Ss []geom.Mat2) {
	for _, t := range truth {
		d.truthTrails[t.ID] = append(d.truthTrails[t.ID], trailPoint{Step: step, Pos: t.Pos})
	}

	for i, snap := range snaps {
		acc := d.tracks[snap.ID]
		if acc == nil {
			acc = &trackAccum{}
			d.tracks[snap.ID] = acc
		}
		acc.trail = append(acc.trail, trailPoint{Step: step, Pos: geom.Vec2{X: snap.X[0], Y: snap.X[1]}})
		acc.speedSum += math.Hypot(snap.X[2], snap.X[3])
		acc.steps++

		// NIS = yᵀ·S⁻¹·y for steps with an association; unassociated
		// steps log zero diagnostics and are skipped.
		sinv, ok := Ss[i].Inverse(minNISDet)
		if !ok {
			continue
		}
		nis := sinv.QuadForm(innovs[i])
		if nis > 0 {
			acc.nis = append(acc.nis, nisPoint{Step: step, NIS: nis})
		}
	}
}

// avgSpeed returns a track's mean speed converted to the report units.
func (d *RunData) avgSpeed(id uint32) float64 {
	acc := d.tracks[id]
	if acc == nil || acc.steps == 0 {
		return 0
	}
	return units.ConvertSpeed(acc.speedSum/float64(acc.steps), d.speedUnits)
}

func (d *RunData) truthIDs() []uint32 {
	ids := make([]uint32, 0, len(d.truthTrails))
	for id := range d.truthTrails {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (d *RunData) trackIDs() []uint32 {
	ids := make([]uint32, 0, len(d.tracks))
	for id := range d.tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
