// Package tracker implements a deterministic discrete-time multi-target
// tracker for a 2-D position sensor: per-track constant-velocity Kalman
// filtering, Mahalanobis gating, global measurement-to-track association
// (greedy or optimal), candidate-pool initiation and M-of-N confirmation.
package tracker

import (
	"fmt"

	"github.com/banshee-data/radar-tracker/internal/geom"
)

// Config holds the tracker's tuning parameters. Treat it as immutable after
// the first Step; in particular the hit-history window length is fixed at
// construction.
type Config struct {
	GateMaha2 float64 // association gate on squared Mahalanobis distance
	MaxMisses int     // drop a track once its consecutive misses exceed this

	ConfirmM int // ones required in the window for confirmation
	ConfirmN int // hit-history window length

	InitGateDist     float64 // candidate merge radius (m)
	InitRequiredHits int     // candidate hits required for promotion
	InitMaxAge       int     // candidate steps without a hit before discard
	InitVelSigma     float64 // initial velocity std for promoted tracks (m/s)

	UseHungarian bool // optimal assignment; false selects the greedy variant
}

// DefaultConfig returns the default tracker configuration. The gate is the
// 99% quantile of chi-squared with 2 degrees of freedom.
func DefaultConfig() Config {
	return Config{
		GateMaha2:        9.21,
		MaxMisses:        8,
		ConfirmM:         3,
		ConfirmN:         5,
		InitGateDist:     12.0,
		InitRequiredHits: 2,
		InitMaxAge:       2,
		InitVelSigma:     40.0,
		UseHungarian:     true,
	}
}

// Track is an estimated target with stable identity and kinematic state.
type Track struct {
	ID        uint32
	KF        *KalmanCV2D
	Age       int     // steps the track has existed
	Misses    int     // consecutive steps without an association
	Confirmed bool    // M-of-N window state, recomputed each step
	LastMaha2 float64 // maha² of the most recent association, 0 if none this step
	HitHist   []uint8 // rotating window, oldest first, length ConfirmN
}

// hitsInWindow counts the ones in the hit-history window.
func (t *Track) hitsInWindow() int {
	n := 0
	for _, h := range t.HitHist {
		if h != 0 {
			n++
		}
	}
	return n
}

// Snapshot is a read-only copy of a track's observable state.
type Snapshot struct {
	ID        uint32
	Confirmed bool
	X         [4]float64  // [px, py, vx, vy]
	P         [16]float64 // row-major covariance
	Age       int
	Misses    int
	LastMaha2 float64
	HitHist   []uint8
}

// MultiTargetTracker owns its tracks and candidates exclusively. It is
// single-threaded: a Step is an atomic unit of work and no state is shared
// across instances.
type MultiTargetTracker struct {
	cfg    Config
	nextID uint32

	tracks []*Track
	cands  []candidate

	// Per-step diagnostics, parallel to tracks at end of every step.
	lastInnovs []geom.Vec2
	lastS      []geom.Mat2

	// Scratch buffers reused across steps to avoid per-step reallocation.
	costRows [][]float64
	costBuf  []float64
	edgeBuf  []gateEdge
	candUsed []bool
}

// New returns a tracker for the given configuration. Invalid confirmation
// bounds are corrected silently: ConfirmN is raised to at least 1 and
// ConfirmM clamped into [1, ConfirmN].
func New(cfg Config) *MultiTargetTracker {
	if cfg.ConfirmN < 1 {
		cfg.ConfirmN = 1
	}
	if cfg.ConfirmM < 1 {
		cfg.ConfirmM = 1
	}
	if cfg.ConfirmM > cfg.ConfirmN {
		cfg.ConfirmM = cfg.ConfirmN
	}
	return &MultiTargetTracker{cfg: cfg, nextID: 1}
}

// Config returns the tracker's (possibly clamped) configuration.
func (mt *MultiTargetTracker) Config() Config { return mt.cfg }

// Step consumes one scan of measurements and advances every track by dt.
// The phases run in a fixed order: predict, associate, update, initiate,
// confirm and prune. The only error is a singular innovation covariance
// during a Kalman update, which indicates a configuration or numerical bug
// and aborts the step.
func (mt *MultiTargetTracker) Step(measurements []geom.Vec2, dt, sigmaA, sigmaZ float64) error {
	// 1. Predict every live track forward, re-applying the current
	// parameters so they may vary across steps.
	for _, t := range mt.tracks {
		t.KF.Dt = dt
		t.KF.SigmaA = sigmaA
		t.KF.SigmaZ = sigmaZ
		t.KF.Predict()
		t.Age++
		t.LastMaha2 = 0
	}

	// 2. Associate.
	ar := mt.associate(measurements)

	mt.lastInnovs = resizeVec2(mt.lastInnovs, len(mt.tracks))
	mt.lastS = resizeMat2(mt.lastS, len(mt.tracks))

	// 3. Update assigned tracks; slide every hit window.
	for ti, t := range mt.tracks {
		mi := ar.TrackToMeas[ti]

		// Rotate the window left by one and record this step's outcome.
		if len(t.HitHist) > 0 {
			head := t.HitHist[0]
			copy(t.HitHist, t.HitHist[1:])
			t.HitHist[len(t.HitHist)-1] = head
			if mi != -1 {
				t.HitHist[len(t.HitHist)-1] = 1
			} else {
				t.HitHist[len(t.HitHist)-1] = 0
			}
		}

		if mi == -1 {
			t.Misses++
			continue
		}

		innov, S, err := t.KF.Update(measurements[mi])
		if err != nil {
			return fmt.Errorf("track %d update: %w", t.ID, err)
		}
		mt.lastInnovs[ti] = innov
		mt.lastS[ti] = S
		t.Misses = 0
	}

	// 4. Initiate from unassigned measurements via the candidate pool;
	// keep the diagnostic vectors parallel to the grown track list.
	before := len(mt.tracks)
	mt.initiateFromUnassigned(measurements, ar, dt, sigmaA, sigmaZ)
	if len(mt.tracks) > before {
		mt.lastInnovs = growVec2(mt.lastInnovs, len(mt.tracks))
		mt.lastS = growMat2(mt.lastS, len(mt.tracks))
	}

	// 5. Confirm and prune, compacting diagnostics in lockstep.
	mt.confirmAndPrune()

	return nil
}

// confirmAndPrune recomputes every track's confirmation flag from its window
// and removes tracks whose consecutive-miss count exceeds the limit. The
// flag is a function of the current window, not latched.
func (mt *MultiTargetTracker) confirmAndPrune() {
	keep := mt.tracks[:0]
	keepInnovs := mt.lastInnovs[:0]
	keepS := mt.lastS[:0]
	for i, t := range mt.tracks {
		t.Confirmed = t.hitsInWindow() >= mt.cfg.ConfirmM
		if t.Misses > mt.cfg.MaxMisses {
			continue
		}
		keep = append(keep, t)
		keepInnovs = append(keepInnovs, mt.lastInnovs[i])
		keepS = append(keepS, mt.lastS[i])
	}
	// Release dropped pointers so pruned tracks can be collected.
	for i := len(keep); i < len(mt.tracks); i++ {
		mt.tracks[i] = nil
	}
	mt.tracks = keep
	mt.lastInnovs = keepInnovs
	mt.lastS = keepS
}

// Tracks returns read-only snapshots of the live tracks in creation order.
func (mt *MultiTargetTracker) Tracks() []Snapshot {
	out := make([]Snapshot, len(mt.tracks))
	for i, t := range mt.tracks {
		hist := make([]uint8, len(t.HitHist))
		copy(hist, t.HitHist)
		out[i] = Snapshot{
			ID:        t.ID,
			Confirmed: t.Confirmed,
			X:         t.KF.StateVec(),
			P:         t.KF.CovMat(),
			Age:       t.Age,
			Misses:    t.Misses,
			LastMaha2: t.LastMaha2,
			HitHist:   hist,
		}
	}
	return out
}

// LastInnovations returns the innovations of the most recent step, parallel
// to Tracks. Entries are zero for tracks not associated this step and for
// tracks created this step.
func (mt *MultiTargetTracker) LastInnovations() []geom.Vec2 {
	out := make([]geom.Vec2, len(mt.lastInnovs))
	copy(out, mt.lastInnovs)
	return out
}

// LastS returns the innovation covariances of the most recent step, parallel
// to Tracks under the same zero conventions as LastInnovations.
func (mt *MultiTargetTracker) LastS() []geom.Mat2 {
	out := make([]geom.Mat2, len(mt.lastS))
	copy(out, mt.lastS)
	return out
}

// TrackCount returns total and confirmed live track counts.
func (mt *MultiTargetTracker) TrackCount() (total, confirmed int) {
	total = len(mt.tracks)
	for _, t := range mt.tracks {
		if t.Confirmed {
			confirmed++
		}
	}
	return total, confirmed
}

func resizeVec2(s []geom.Vec2, n int) []geom.Vec2 {
	s = s[:0]
	for i := 0; i < n; i++ {
		s = append(s, geom.Vec2{})
	}
	return s
}

func resizeMat2(s []geom.Mat2, n int) []geom.Mat2 {
	s = s[:0]
	for i := 0; i < n; i++ {
		s = append(s, geom.Mat2{})
	}
	return s
}

func growVec2(s []geom.Vec2, n int) []geom.Vec2 {
	for len(s) < n {
		s = append(s, geom.Vec2{})
	}
	return s
}

func growMat2(s []geom.Mat2, n int) []geom.Mat2 {
	for len(s) < n {
		s = append(s, geom.Mat2{})
	}
	return s
}
