package tracker

import (
	"sort"

	"github.com/banshee-data/radar-tracker/internal/geom"
)

// BigCost is the sentinel cost for out-of-gate pairs. It is large enough
// that the optimal solver avoids such pairs whenever possible, but finite so
// the potential updates stay well-defined. Picks at or above BigCost/2 are
// rejected after solving.
const BigCost = 1e9

// AssocResult holds the measurement-to-track assignment of one step as a
// pair of inverse index arrays. TrackToMeas[i] is the measurement index
// assigned to track i (or -1); MeasToTrack[j] is the track index assigned to
// measurement j (or -1).
type AssocResult struct {
	TrackToMeas []int
	MeasToTrack []int
}

type gateEdge struct {
	ti, mi int
	m2     float64
}

// maha2For computes the squared Mahalanobis distance of measurement z under
// track t's predicted innovation covariance. A singular covariance rejects
// the pair by returning BigCost.
func maha2For(t *Track, z geom.Vec2) float64 {
	S := t.KF.InnovationCov()
	sinv, ok := S.Inverse(minDeterminant)
	if !ok {
		return BigCost
	}
	return sinv.QuadForm(t.KF.Innovation(z))
}

// associate solves the per-step assignment with the configured variant.
func (mt *MultiTargetTracker) associate(meas []geom.Vec2) AssocResult {
	if mt.cfg.UseHungarian {
		return mt.associateHungarian(meas)
	}
	return mt.associateGreedy(meas)
}

// associateGreedy enumerates all in-gate pairs, sorts them ascending by
// maha² (ties broken by track index, then measurement index) and claims
// pairs first-come-first-served.
func (mt *MultiTargetTracker) associateGreedy(meas []geom.Vec2) AssocResult {
	ar := AssocResult{
		TrackToMeas: assignInit(len(mt.tracks)),
		MeasToTrack: assignInit(len(meas)),
	}

	edges := mt.edgeBuf[:0]
	for ti, t := range mt.tracks {
		for mi, z := range meas {
			m2 := maha2For(t, z)
			if m2 <= mt.cfg.GateMaha2 {
				edges = append(edges, gateEdge{ti: ti, mi: mi, m2: m2})
			}
		}
	}
	mt.edgeBuf = edges

	sort.Slice(edges, func(a, b int) bool {
		ea, eb := edges[a], edges[b]
		if ea.m2 != eb.m2 {
			return ea.m2 < eb.m2
		}
		if ea.ti != eb.ti {
			return ea.ti < eb.ti
		}
		return ea.mi < eb.mi
	})

	for _, e := range edges {
		if ar.TrackToMeas[e.ti] != -1 {
			continue
		}
		if ar.MeasToTrack[e.mi] != -1 {
			continue
		}
		ar.TrackToMeas[e.ti] = e.mi
		ar.MeasToTrack[e.mi] = e.ti
		mt.tracks[e.ti].LastMaha2 = e.m2
	}

	return ar
}

// associateHungarian builds the full T×M cost matrix with out-of-gate pairs
// at BigCost, solves the optimal assignment and drops picks that fall back
// on the sentinel. Its choice minimises total maha² across the step rather
// than the best-first local choice.
func (mt *MultiTargetTracker) associateHungarian(meas []geom.Vec2) AssocResult {
	ar := AssocResult{
		TrackToMeas: assignInit(len(mt.tracks)),
		MeasToTrack: assignInit(len(meas)),
	}

	nT := len(mt.tracks)
	nM := len(meas)
	if nT == 0 || nM == 0 {
		return ar
	}

	cost := mt.costMatrix(nT, nM)
	for ti, t := range mt.tracks {
		for mi, z := range meas {
			m2 := maha2For(t, z)
			if m2 <= mt.cfg.GateMaha2 {
				cost[ti][mi] = m2
			} else {
				cost[ti][mi] = BigCost
			}
		}
	}

	assign := HungarianAssign(cost)

	for ti := range mt.tracks {
		mi := assign[ti]
		if mi < 0 || mi >= nM {
			continue
		}
		c := cost[ti][mi]
		if c >= BigCost/2 {
			continue // out-of-gate sentinel pick
		}
		if ar.MeasToTrack[mi] != -1 {
			continue
		}
		ar.TrackToMeas[ti] = mi
		ar.MeasToTrack[mi] = ti
		mt.tracks[ti].LastMaha2 = c
	}

	return ar
}

// costMatrix returns a T×M matrix backed by the tracker's scratch buffer.
func (mt *MultiTargetTracker) costMatrix(nT, nM int) [][]float64 {
	if cap(mt.costBuf) < nT*nM {
		mt.costBuf = make([]float64, nT*nM)
	}
	mt.costBuf = mt.costBuf[:nT*nM]
	if cap(mt.costRows) < nT {
		mt.costRows = make([][]float64, nT)
	}
	mt.costRows = mt.costRows[:nT]
	for i := 0; i < nT; i++ {
		mt.costRows[i] = mt.costBuf[i*nM : (i+1)*nM]
	}
	return mt.costRows
}

func assignInit(n int) []int {
	a := make([]int, n)
	for i := range a {
		a[i] = -1
	}
	return a
}
