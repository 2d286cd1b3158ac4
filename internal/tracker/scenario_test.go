package tracker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/radar-tracker/internal/geom"
	"github.com/banshee-data/radar-tracker/internal/sim"
)

func measVecs(ms []sim.Measurement) []geom.Vec2 {
	out := make([]geom.Vec2, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Z)
	}
	return out
}

// cloneForAssoc deep-copies the tracker's filter states and advances the
// copy's predictions, reproducing exactly the state the next Step will
// associate against. Used to compare association variants without touching
// the live tracker.
func cloneForAssoc(mt *MultiTargetTracker, dt, sigmaA, sigmaZ float64) *MultiTargetTracker {
	c := New(mt.cfg)
	for _, tr := range mt.tracks {
		kf := NewKalmanCV2D(dt, sigmaA, sigmaZ)
		kf.X.CopyVec(tr.KF.X)
		kf.P.Copy(tr.KF.P)
		kf.Predict()
		c.tracks = append(c.tracks, &Track{
			ID:      tr.ID,
			KF:      kf,
			HitHist: append([]uint8(nil), tr.HitHist...),
		})
	}
	return c
}

func assocStats(mt *MultiTargetTracker, meas []geom.Vec2, ar AssocResult) (count int, total float64) {
	for ti, mi := range ar.TrackToMeas {
		if mi == -1 {
			continue
		}
		count++
		total += maha2For(mt.tracks[ti], meas[mi])
	}
	return count, total
}

// checkStepProperties validates the per-step association invariants on a
// predicted clone of the tracker: inverse-array consistency, gate
// compliance, and that the optimal variant never assigns fewer pairs than
// greedy and never a larger total at equal cardinality.
func checkStepProperties(t *testing.T, mt *MultiTargetTracker, meas []geom.Vec2, dt, sigmaA, sigmaZ float64) {
	t.Helper()

	c := cloneForAssoc(mt, dt, sigmaA, sigmaZ)

	gar := c.associateGreedy(meas)
	checkInverseArrays(t, gar)
	har := c.associateHungarian(meas)
	checkInverseArrays(t, har)

	for _, ar := range []AssocResult{gar, har} {
		for ti, mi := range ar.TrackToMeas {
			if mi == -1 {
				continue
			}
			m2 := maha2For(c.tracks[ti], meas[mi])
			require.LessOrEqual(t, m2, c.cfg.GateMaha2, "gate violated by pair (%d,%d)", ti, mi)
		}
	}

	gCount, gTotal := assocStats(c, meas, gar)
	hCount, hTotal := assocStats(c, meas, har)
	require.GreaterOrEqual(t, hCount, gCount, "optimal variant must not assign fewer pairs")
	if hCount == gCount {
		require.LessOrEqual(t, hTotal, gTotal+1e-9,
			"optimal total %v exceeds greedy total %v at equal cardinality", hTotal, gTotal)
	}
}

func TestScenario_StationarySingleton(t *testing.T) {
	t.Parallel()

	simCfg := sim.Config{Dt: 0.05, SigmaZ: 1.0, PDetect: 1.0}
	s := sim.New(777, simCfg)
	s.SetTruth([]sim.TruthTarget{{ID: 1, Pos: geom.Vec2{X: 10, Y: -5}}})

	mt := New(DefaultConfig())

	confirmedAt := -1
	for step := 0; step < 50; step++ {
		s.Step()
		zs := measVecs(s.LastMeasurements())
		checkStepProperties(t, mt, zs, simCfg.Dt, 1.5, simCfg.SigmaZ)
		require.NoError(t, mt.Step(zs, simCfg.Dt, 1.5, simCfg.SigmaZ))

		if _, confirmed := mt.TrackCount(); confirmed > 0 && confirmedAt == -1 {
			confirmedAt = step
		}
	}

	total, confirmed := mt.TrackCount()
	require.Equal(t, 1, total, "exactly one track expected")
	assert.Equal(t, 1, confirmed)
	require.NotEqual(t, -1, confirmedAt)
	assert.LessOrEqual(t, confirmedAt, 5, "confirmation within the first five steps")

	snap := mt.Tracks()[0]
	err := math.Hypot(snap.X[0]-10, snap.X[1]+5)
	assert.Less(t, err, 0.5, "terminal position estimate within 0.5 m of truth")
}

// runCrossing drives the two-target crossing scenario and returns the
// tracker plus the confirmed ids observed mid-run before the crossing.
func runCrossing(t *testing.T, useHungarian bool) (*MultiTargetTracker, []uint32) {
	t.Helper()

	simCfg := sim.Config{Dt: 0.05, SigmaZ: 3.0, PDetect: 0.9, ScenarioCross: true}
	s := sim.New(12345, simCfg)

	cfg := DefaultConfig()
	cfg.UseHungarian = useHungarian
	mt := New(cfg)

	var idsBeforeCrossing []uint32
	for step := 0; step < 400; step++ {
		s.Step()
		zs := measVecs(s.LastMeasurements())
		checkStepProperties(t, mt, zs, simCfg.Dt, 1.5, simCfg.SigmaZ)
		require.NoError(t, mt.Step(zs, simCfg.Dt, 1.5, simCfg.SigmaZ))

		if step == 100 {
			for _, snap := range mt.Tracks() {
				if snap.Confirmed {
					idsBeforeCrossing = append(idsBeforeCrossing, snap.ID)
				}
			}
		}
	}
	return mt, idsBeforeCrossing
}

func TestScenario_CrossingPairOptimal(t *testing.T) {
	t.Parallel()

	mt, idsBefore := runCrossing(t, true)
	require.Len(t, idsBefore, 2, "both tracks confirmed before the crossing")

	var confirmed []Snapshot
	for _, snap := range mt.Tracks() {
		if snap.Confirmed {
			confirmed = append(confirmed, snap)
		}
	}
	require.Len(t, confirmed, 2, "both tracks survive the crossing")
	assert.Equal(t, idsBefore[0], confirmed[0].ID, "identifier preserved through the crossing")
	assert.Equal(t, idsBefore[1], confirmed[1].ID, "identifier preserved through the crossing")

	// No identity swap: the track created from the left-hand target still
	// heads right (+x) after the crossing, and vice versa.
	assert.Greater(t, confirmed[0].X[2], 0.0, "first track keeps +x heading")
	assert.Less(t, confirmed[1].X[2], 0.0, "second track keeps -x heading")
}

func TestScenario_CrossingPairGreedy(t *testing.T) {
	t.Parallel()

	// Identical scenario under greedy association. The per-step property
	// checks inside runCrossing assert that wherever both variants assign
	// the same number of pairs the optimal total is no larger — including
	// the steps adjacent to the crossing where greedy picks locally.
	mt, idsBefore := runCrossing(t, false)
	require.Len(t, idsBefore, 2)

	_, confirmed := mt.TrackCount()
	assert.Equal(t, 2, confirmed)
}

func TestScenario_ClutterRejection(t *testing.T) {
	t.Parallel()

	simCfg := sim.Config{
		Dt: 0.05, SigmaZ: 3.0, PDetect: 0.9,
		EnableClutter: true, ClutterPerStep: 6, ClutterAreaHalf: 300,
	}
	s := sim.New(2024, simCfg)

	mt := New(DefaultConfig())
	for step := 0; step < 200; step++ {
		s.Step()
		zs := measVecs(s.LastMeasurements())
		require.NoError(t, mt.Step(zs, simCfg.Dt, 1.5, simCfg.SigmaZ))

		_, confirmed := mt.TrackCount()
		require.Zero(t, confirmed, "clutter must never confirm a track (step %d)", step)
	}
}

func TestScenario_IntermittentDetection(t *testing.T) {
	t.Parallel()

	simCfg := sim.Config{Dt: 0.05, SigmaZ: 3.0, PDetect: 0.5}
	s := sim.New(4242, simCfg)
	s.SetTruth([]sim.TruthTarget{{
		ID: 1, Pos: geom.Vec2{X: 20, Y: -30}, Vel: geom.Vec2{X: 4, Y: 2},
	}})

	cfg := DefaultConfig()
	mt := New(cfg)

	maxMissesSeen := 0
	var squaredErrs []float64
	for step := 0; step < 200; step++ {
		s.Step()
		zs := measVecs(s.LastMeasurements())
		require.NoError(t, mt.Step(zs, simCfg.Dt, 1.5, simCfg.SigmaZ))

		for _, snap := range mt.Tracks() {
			if snap.Misses > maxMissesSeen {
				maxMissesSeen = snap.Misses
			}
		}

		if step >= 150 {
			truth := s.Truth()[0]
			best := math.Inf(1)
			for _, snap := range mt.Tracks() {
				d := math.Hypot(snap.X[0]-truth.Pos.X, snap.X[1]-truth.Pos.Y)
				if d < best {
					best = d
				}
			}
			require.False(t, math.IsInf(best, 1), "track lost at step %d", step)
			squaredErrs = append(squaredErrs, best*best)
		}
	}

	// The original track survives the whole run.
	found := false
	for _, snap := range mt.Tracks() {
		if snap.ID == 1 {
			found = true
		}
	}
	assert.True(t, found, "track must survive intermittent detection")
	assert.LessOrEqual(t, maxMissesSeen, cfg.MaxMisses)

	var sum float64
	for _, e := range squaredErrs {
		sum += e
	}
	rmse := math.Sqrt(sum / float64(len(squaredErrs)))
	assert.Less(t, rmse, 5.0, "terminal position RMSE bounded")
}
