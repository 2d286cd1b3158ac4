// Package store archives tracker runs in sqlite: one row per run with its
// configuration and determinism hash, plus per-step track observations and
// per-track summaries for the report and later analysis.
package store

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/radar-tracker/internal/geom"
	"github.com/banshee-data/radar-tracker/internal/tracker"
)

// Store wraps the sqlite database holding archived runs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// RunMeta describes one archived run.
type RunMeta struct {
	RunID      string
	CreatedAt  time.Time
	Seed       uint64
	Steps      int
	Dt         float64
	ConfigJSON string
	FNV1a64    string
}

// CreateRun inserts a new run row and returns its identifier.
func (s *Store) CreateRun(seed uint64, steps int, dt float64, configJSON string) (string, error) {
	runID := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, created_unix_nanos, seed, steps, dt, config_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UnixNano(), int64(seed), steps, dt, configJSON,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

// RecordStep inserts the post-step track snapshots with their diagnostics.
// snaps, innovs and Ss are parallel, as produced by the tracker.
func (s *Store) RecordStep(runID string, step int, snaps []tracker.Snapshot, innovs []geom.Vec2, Ss []geom.Mat2) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin step tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO track_obs (
			run_id, step, track_id, confirmed,
			x, y, vx, vy, speed_mps, misses, age, maha2,
			innov_x, innov_y, s00, s01, s10, s11
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare observation insert: %w", err)
	}
	defer stmt.Close()

	for i, snap := range snaps {
		speed := math.Hypot(snap.X[2], snap.X[3])
		if _, err := stmt.Exec(
			runID, step, snap.ID, boolInt(snap.Confirmed),
			snap.X[0], snap.X[1], snap.X[2], snap.X[3], speed,
			snap.Misses, snap.Age, snap.LastMaha2,
			innovs[i].X, innovs[i].Y,
			Ss[i].M00, Ss[i].M01, Ss[i].M10, Ss[i].M11,
		); err != nil {
			return fmt.Errorf("insert observation for track %d: %w", snap.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit step tx: %w", err)
	}
	return nil
}

// FinishRun records the determinism hash and derives the per-track summary
// rows from the archived observations.
func (s *Store) FinishRun(runID string, fnv1a64 string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin finish tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE runs SET fnv1a64 = ? WHERE run_id = ?`, fnv1a64, runID); err != nil {
		return fmt.Errorf("update run hash: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO tracks (
			run_id, track_id, confirmed_ever, first_step, last_step,
			observation_count, avg_speed_mps, peak_speed_mps
		)
		SELECT run_id, track_id, MAX(confirmed), MIN(step), MAX(step),
			COUNT(*), AVG(speed_mps), MAX(speed_mps)
		FROM track_obs
		WHERE run_id = ?
		GROUP BY track_id
		ON CONFLICT(run_id, track_id) DO UPDATE SET
			confirmed_ever = excluded.confirmed_ever,
			first_step = excluded.first_step,
			last_step = excluded.last_step,
			observation_count = excluded.observation_count,
			avg_speed_mps = excluded.avg_speed_mps,
			peak_speed_mps = excluded.peak_speed_mps`, runID); err != nil {
		return fmt.Errorf("summarise tracks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish tx: %w", err)
	}
	return nil
}

// GetRun fetches one run's metadata.
func (s *Store) GetRun(runID string) (*RunMeta, error) {
	row := s.db.QueryRow(`
		SELECT run_id, created_unix_nanos, seed, steps, dt, config_json, fnv1a64
		FROM runs WHERE run_id = ?`, runID)

	var meta RunMeta
	var createdNanos, seed int64
	if err := row.Scan(&meta.RunID, &createdNanos, &seed, &meta.Steps, &meta.Dt,
		&meta.ConfigJSON, &meta.FNV1a64); err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	meta.CreatedAt = time.Unix(0, createdNanos)
	meta.Seed = uint64(seed)
	return &meta, nil
}

// TrackSummary is one row of the per-track summary table.
type TrackSummary struct {
	TrackID          uint32
	ConfirmedEver    bool
	FirstStep        int
	LastStep         int
	ObservationCount int
	AvgSpeedMps      float64
	PeakSpeedMps     float64
}

// ListTracks returns the summaries of a run in track-id order.
func (s *Store) ListTracks(runID string) ([]TrackSummary, error) {
	rows, err := s.db.Query(`
		SELECT track_id, confirmed_ever, first_step, last_step,
			observation_count, avg_speed_mps, peak_speed_mps
		FROM tracks WHERE run_id = ? ORDER BY track_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var out []TrackSummary
	for rows.Next() {
		var t TrackSummary
		var confirmed int
		if err := rows.Scan(&t.TrackID, &confirmed, &t.FirstStep, &t.LastStep,
			&t.ObservationCount, &t.AvgSpeedMps, &t.PeakSpeedMps); err != nil {
			return nil, fmt.Errorf("scan track summary: %w", err)
		}
		t.ConfirmedEver = confirmed != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// Observation is one archived per-step track state.
type Observation struct {
	Step      int
	TrackID   uint32
	Confirmed bool
	X, Y      float64
	VX, VY    float64
	SpeedMps  float64
	Misses    int
	Age       int
	Maha2     float64
	Innov     geom.Vec2
	S         geom.Mat2
}

// GetTrackObservations returns one track's observations in step order.
func (s *Store) GetTrackObservations(runID string, trackID uint32) ([]Observation, error) {
	rows, err := s.db.Query(`
		SELECT step, track_id, confirmed, x, y, vx, vy, speed_mps,
			misses, age, maha2, innov_x, innov_y, s00, s01, s10, s11
		FROM track_obs WHERE run_id = ? AND track_id = ? ORDER BY step`, runID, trackID)
	if err != nil {
		return nil, fmt.Errorf("get observations: %w", err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		var confirmed int
		if err := rows.Scan(&o.Step, &o.TrackID, &confirmed, &o.X, &o.Y, &o.VX, &o.VY,
			&o.SpeedMps, &o.Misses, &o.Age, &o.Maha2,
			&o.Innov.X, &o.Innov.Y, &o.S.M00, &o.S.M01, &o.S.M10, &o.S.M11); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Confirmed = confirmed != 0
		out = append(out, o)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
