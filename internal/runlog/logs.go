package runlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/radar-tracker/internal/geom"
	"github.com/banshee-data/radar-tracker/internal/sim"
	"github.com/banshee-data/radar-tracker/internal/tracker"
)

// Logs bundles the four CSV sinks of one run. Open all sinks up front so a
// failing disk surfaces before any simulation work; Close releases them on
// every exit path.
type Logs struct {
	truth  *Writer
	meas   *Writer
	tracks *Writer
	resid  *Writer
	closed bool
}

// Open creates outDir if needed and the four log files inside it.
func Open(outDir string) (*Logs, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	l := &Logs{}
	var err error
	if l.truth, err = NewWriter(filepath.Join(outDir, "truth.csv"),
		[]string{"step", "true_id", "x", "y", "vx", "vy"}); err != nil {
		return nil, err
	}
	if l.meas, err = NewWriter(filepath.Join(outDir, "meas.csv"),
		[]string{"step", "true_id", "zx", "zy"}); err != nil {
		l.Close()
		return nil, err
	}
	if l.tracks, err = NewWriter(filepath.Join(outDir, "tracks.csv"),
		[]string{"step", "track_id", "confirmed", "x", "y", "vx", "vy", "misses", "age", "maha2"}); err != nil {
		l.Close()
		return nil, err
	}
	if l.resid, err = NewWriter(filepath.Join(outDir, "residuals.csv"),
		[]string{"step", "track_id", "innov_x", "innov_y", "S00", "S01", "S10", "S11"}); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// Truth logs one true target state.
func (l *Logs) Truth(step int, t sim.TruthTarget) error {
	return l.truth.Row(Int(step), Uint(t.ID),
		Float(t.Pos.X), Float(t.Pos.Y), Float(t.Vel.X), Float(t.Vel.Y))
}

// Meas logs one measurement.
func (l *Logs) Meas(step int, m sim.Measurement) error {
	return l.meas.Row(Int(step), Uint(m.TrueID), Float(m.Z.X), Float(m.Z.Y))
}

// Track logs one track snapshot.
func (l *Logs) Track(step int, s tracker.Snapshot) error {
	return l.tracks.Row(Int(step), Uint(s.ID), Bool(s.Confirmed),
		Float(s.X[0]), Float(s.X[1]), Float(s.X[2]), Float(s.X[3]),
		Int(s.Misses), Int(s.Age), Float(s.LastMaha2))
}

// Residual logs one track's innovation and innovation covariance.
func (l *Logs) Residual(step int, id uint32, innov geom.Vec2, S geom.Mat2) error {
	return l.resid.Row(Int(step), Uint(id),
		Float(innov.X), Float(innov.Y),
		Float(S.M00), Float(S.M01), Float(S.M10), Float(S.M11))
}

// Close flushes and releases every sink that was opened. Further calls are
// no-ops, so callers may both defer Close and check its error explicitly.
func (l *Logs) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	var errs []error
	for _, w := range []*Writer{l.truth, l.meas, l.tracks, l.resid} {
		if w != nil {
			errs = append(errs, w.Close())
		}
	}
	return errors.Join(errs...)
}
