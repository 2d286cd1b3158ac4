// Package sim generates ground truth and noisy measurements for offline
// tracker evaluation. Targets move at constant velocity; each step every
// target is detected with probability PDetect and reported with Gaussian
// position noise, optionally mixed with uniform clutter. All randomness
// comes from the seeded Rng, so runs reproduce bit-for-bit.
package sim

import "github.com/banshee-data/radar-tracker/internal/geom"

// Config holds the simulation parameters.
type Config struct {
	NumTargets int
	Dt         float64
	Steps      int

	SigmaZ  float64 // position measurement std (m)
	PDetect float64 // per-target detection probability

	ScenarioCross bool // two targets crossing near the origin

	EnableClutter   bool
	ClutterPerStep  int
	ClutterAreaHalf float64 // clutter uniform on [-half, half]²
}

// DefaultConfig returns the default simulation parameters.
func DefaultConfig() Config {
	return Config{
		NumTargets:      3,
		Dt:              0.05,
		Steps:           400,
		SigmaZ:          3.0,
		PDetect:         0.90,
		ClutterPerStep:  6,
		ClutterAreaHalf: 300.0,
	}
}

// TruthTarget is a simulated target's true kinematic state.
type TruthTarget struct {
	ID  uint32
	Pos geom.Vec2
	Vel geom.Vec2
}

// Measurement is one reported position. TrueID tags the originating target
// for evaluation and logging; it is 0 for clutter and is never read by the
// tracker.
type Measurement struct {
	TrueID uint32
	Z      geom.Vec2
}

// TargetSim2D propagates truth and emits one scan of measurements per Step.
type TargetSim2D struct {
	rng     *Rng
	cfg     Config
	stepIdx int

	truth    []TruthTarget
	lastMeas []Measurement
}

// New creates a simulator. The initial world depends on the scenario: the
// crossing scenario places two targets at (∓80, 0) heading (±6, 0); the
// random scenario draws NumTargets positions and velocities from the seeded
// stream.
func New(seed uint64, cfg Config) *TargetSim2D {
	s := &TargetSim2D{rng: NewRng(seed), cfg: cfg}
	if cfg.ScenarioCross {
		s.initCross()
	} else {
		s.initRandom()
	}
	return s
}

func (s *TargetSim2D) initRandom() {
	s.truth = make([]TruthTarget, 0, s.cfg.NumTargets)
	for i := 0; i < s.cfg.NumTargets; i++ {
		s.truth = append(s.truth, TruthTarget{
			ID:  uint32(i + 1),
			Pos: geom.Vec2{X: s.rng.Uniform(-120, 120), Y: s.rng.Uniform(-120, 120)},
			Vel: geom.Vec2{X: s.rng.Uniform(-8, 8), Y: s.rng.Uniform(-8, 8)},
		})
	}
}

func (s *TargetSim2D) initCross() {
	s.truth = []TruthTarget{
		{ID: 1, Pos: geom.Vec2{X: -80, Y: 0}, Vel: geom.Vec2{X: 6, Y: 0}},
		{ID: 2, Pos: geom.Vec2{X: 80, Y: 0}, Vel: geom.Vec2{X: -6, Y: 0}},
	}
}

// SetTruth replaces the simulated world, for scenario setups the built-in
// initializers do not cover. Call before the first Step.
func (s *TargetSim2D) SetTruth(targets []TruthTarget) {
	s.truth = append(s.truth[:0], targets...)
}

// Step propagates every target by Dt and generates this step's scan. Draw
// order is fixed: per target one detection Bernoulli then two noise normals
// if detected, followed by two uniforms per clutter point.
func (s *TargetSim2D) Step() {
	for i := range s.truth {
		s.truth[i].Pos = s.truth[i].Pos.Add(s.truth[i].Vel.Scale(s.cfg.Dt))
	}
	s.genMeasurements()
	s.stepIdx++
}

func (s *TargetSim2D) genMeasurements() {
	s.lastMeas = s.lastMeas[:0]

	for _, t := range s.truth {
		if s.rng.Uniform01() > s.cfg.PDetect {
			continue
		}
		nx := s.rng.Normal(0, s.cfg.SigmaZ)
		ny := s.rng.Normal(0, s.cfg.SigmaZ)
		s.lastMeas = append(s.lastMeas, Measurement{
			TrueID: t.ID,
			Z:      t.Pos.Add(geom.Vec2{X: nx, Y: ny}),
		})
	}

	if s.cfg.EnableClutter {
		for i := 0; i < s.cfg.ClutterPerStep; i++ {
			x := s.rng.Uniform(-s.cfg.ClutterAreaHalf, s.cfg.ClutterAreaHalf)
			y := s.rng.Uniform(-s.cfg.ClutterAreaHalf, s.cfg.ClutterAreaHalf)
			s.lastMeas = append(s.lastMeas, Measurement{TrueID: 0, Z: geom.Vec2{X: x, Y: y}})
		}
	}
}

// StepIndex returns the number of completed steps.
func (s *TargetSim2D) StepIndex() int { return s.stepIdx }

// Truth returns the current true target states.
func (s *TargetSim2D) Truth() []TruthTarget { return s.truth }

// LastMeasurements returns the scan generated by the most recent Step.
func (s *TargetSim2D) LastMeasurements() []Measurement { return s.lastMeas }
