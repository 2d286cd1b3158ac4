package tracker

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/radar-tracker/internal/geom"
)

// candidate is a pre-track accumulator used to suppress clutter-initiated
// tracks. A candidate becomes a track once it has collected enough
// spatially-consistent hits; it is discarded when it goes unmatched for too
// many steps.
type candidate struct {
	z    geom.Vec2 // last observed position
	hits int
	age  int // steps since last hit
}

// initiateFromUnassigned feeds the measurements left unassigned by the
// association into the candidate pool, ages and discards stale candidates,
// and promotes candidates with enough hits to new tracks.
func (mt *MultiTargetTracker) initiateFromUnassigned(meas []geom.Vec2, ar AssocResult, dt, sigmaA, sigmaZ float64) {
	gate2 := mt.cfg.InitGateDist * mt.cfg.InitGateDist

	if cap(mt.candUsed) < len(mt.cands) {
		mt.candUsed = make([]bool, len(mt.cands))
	}
	used := mt.candUsed[:len(mt.cands)]
	for i := range used {
		used[i] = false
	}

	for mi, z := range meas {
		if ar.MeasToTrack[mi] != -1 {
			continue
		}

		// Closest unmatched candidate within the initiation radius;
		// the scan order breaks distance ties on the lowest index.
		bestCi := -1
		bestD2 := math.Inf(1)
		for ci := range mt.cands {
			if used[ci] {
				continue
			}
			d2 := z.Sub(mt.cands[ci].z).Norm2()
			if d2 <= gate2 && d2 < bestD2 {
				bestD2 = d2
				bestCi = ci
			}
		}

		if bestCi != -1 {
			used[bestCi] = true
			mt.cands[bestCi].z = z
			mt.cands[bestCi].hits++
			mt.cands[bestCi].age = 0
		} else {
			mt.cands = append(mt.cands, candidate{z: z, hits: 1, age: 0})
			used = append(used, true)
		}
	}
	mt.candUsed = used

	// Age every candidate that was not matched this step, then drop the
	// stale ones in place, preserving pool order.
	keep := mt.cands[:0]
	for ci := range mt.cands {
		if !used[ci] {
			mt.cands[ci].age++
		}
		if mt.cands[ci].age <= mt.cfg.InitMaxAge {
			keep = append(keep, mt.cands[ci])
		}
	}
	mt.cands = keep

	// Promote in pool order so track identifiers stay deterministic.
	remaining := mt.cands[:0]
	for _, c := range mt.cands {
		if c.hits >= mt.cfg.InitRequiredHits {
			mt.tracks = append(mt.tracks, mt.newTrack(c, dt, sigmaA, sigmaZ))
		} else {
			remaining = append(remaining, c)
		}
	}
	mt.cands = remaining
}

// newTrack promotes a candidate: zero initial velocity, position uncertainty
// matching the sensor and deliberately wide velocity uncertainty. The hit
// window is pre-seeded with the candidate's hits so confirmation logic sees
// the initiation evidence.
func (mt *MultiTargetTracker) newTrack(c candidate, dt, sigmaA, sigmaZ float64) *Track {
	kf := NewKalmanCV2D(dt, sigmaA, sigmaZ)
	kf.X.SetVec(0, c.z.X)
	kf.X.SetVec(1, c.z.Y)

	kf.P = mat.NewDense(4, 4, nil)
	kf.P.Set(0, 0, sigmaZ*sigmaZ)
	kf.P.Set(1, 1, sigmaZ*sigmaZ)
	kf.P.Set(2, 2, mt.cfg.InitVelSigma*mt.cfg.InitVelSigma)
	kf.P.Set(3, 3, mt.cfg.InitVelSigma*mt.cfg.InitVelSigma)

	t := &Track{
		ID:      mt.nextID,
		KF:      kf,
		Age:     1,
		Misses:  0,
		HitHist: make([]uint8, mt.cfg.ConfirmN),
	}
	mt.nextID++

	for i := 0; i < len(t.HitHist) && i < c.hits; i++ {
		t.HitHist[i] = 1
	}
	t.Confirmed = t.hitsInWindow() >= mt.cfg.ConfirmM

	return t
}
