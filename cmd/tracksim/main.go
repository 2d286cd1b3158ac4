// Command tracksim runs the seeded ground-truth simulator against the
// multi-target tracker and writes the per-step CSV logs, an optional sqlite
// archive and an optional HTML/PNG report. Identical seed and configuration
// reproduce the outputs bit-for-bit; the FNV1A64 line printed at the end is
// the quick determinism witness.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/radar-tracker/internal/config"
	"github.com/banshee-data/radar-tracker/internal/geom"
	"github.com/banshee-data/radar-tracker/internal/report"
	"github.com/banshee-data/radar-tracker/internal/runlog"
	"github.com/banshee-data/radar-tracker/internal/sim"
	"github.com/banshee-data/radar-tracker/internal/store"
	"github.com/banshee-data/radar-tracker/internal/tracker"
	"github.com/banshee-data/radar-tracker/internal/units"
)

func main() {
	defaults := config.MustLoadDefaultConfig()

	var (
		seed       = flag.Uint64("seed", 12345, "random seed shared by simulator initialisation")
		steps      = flag.Int("steps", defaults.GetSteps(), "number of simulation steps")
		dt         = flag.Float64("dt", defaults.GetDt(), "step length in seconds")
		targets    = flag.Int("targets", defaults.GetNumTargets(), "number of simulated targets")
		sigmaZ     = flag.Float64("sigma-z", defaults.GetSigmaZ(), "position measurement noise std (m)")
		pDetect    = flag.Float64("p-detect", defaults.GetPDetect(), "per-target detection probability")
		sigmaA     = flag.Float64("sigma-a", defaults.GetSigmaA(), "process noise acceleration std (m/s^2)")
		gateMaha2  = flag.Float64("gate-maha2", defaults.GetGateMaha2(), "association gate on squared Mahalanobis distance")
		confirmM   = flag.Int("confirm-m", defaults.GetConfirmM(), "hits required in the confirmation window")
		confirmN   = flag.Int("confirm-n", defaults.GetConfirmN(), "confirmation window length")
		maxMisses  = flag.Int("max-misses", defaults.GetMaxMisses(), "consecutive misses before a track is dropped")
		initGate   = flag.Float64("init-gate-dist", defaults.GetInitGateDist(), "candidate merge radius (m)")
		initHits   = flag.Int("init-hits", defaults.GetInitRequiredHits(), "candidate hits required for promotion")
		initMaxAge = flag.Int("init-max-age", defaults.GetInitMaxAge(), "candidate steps without a hit before discard")
		initVel    = flag.Float64("init-vel-sigma", defaults.GetInitVelSigma(), "initial velocity std for new tracks (m/s)")
		greedy     = flag.Bool("greedy", !defaults.GetUseHungarian(), "use greedy association instead of the optimal solver")
		cross      = flag.Bool("cross", defaults.GetScenarioCross(), "use the two-target crossing scenario")
		clutter    = flag.Bool("clutter", defaults.GetEnableClutter(), "generate uniform clutter")
		clutterN   = flag.Int("clutter-per-step", defaults.GetClutterPerStep(), "clutter measurements per step")
		clutterHW  = flag.Float64("clutter-half", defaults.GetClutterAreaHalf(), "clutter area half-width (m)")
		outDir     = flag.String("out", "out", "output directory for CSV logs")
		dbPath     = flag.String("db", "", "optional sqlite archive path")
		reportDir  = flag.String("report", "", "optional report output directory")
		speedUnits = flag.String("units", units.MPS, "speed units in the report ("+units.GetValidUnitsString()+")")
		configPath = flag.String("config", "", "optional tuning JSON overriding embedded defaults")
	)
	flag.Parse()

	if !units.IsValid(*speedUnits) {
		log.Fatalf("invalid -units %q (valid: %s)", *speedUnits, units.GetValidUnitsString())
	}

	tuning := defaults
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		tuning = loaded
	}

	simCfg := config.SimConfigFromTuning(tuning)
	trkCfg := config.TrackerConfigFromTuning(tuning)
	procSigmaA := tuning.GetSigmaA()

	// Flags given explicitly on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "steps":
			simCfg.Steps = *steps
		case "dt":
			simCfg.Dt = *dt
		case "targets":
			simCfg.NumTargets = *targets
		case "sigma-z":
			simCfg.SigmaZ = *sigmaZ
		case "p-detect":
			simCfg.PDetect = *pDetect
		case "sigma-a":
			procSigmaA = *sigmaA
		case "cross":
			simCfg.ScenarioCross = *cross
		case "clutter":
			simCfg.EnableClutter = *clutter
		case "clutter-per-step":
			simCfg.ClutterPerStep = *clutterN
		case "clutter-half":
			simCfg.ClutterAreaHalf = *clutterHW
		case "gate-maha2":
			trkCfg.GateMaha2 = *gateMaha2
		case "confirm-m":
			trkCfg.ConfirmM = *confirmM
		case "confirm-n":
			trkCfg.ConfirmN = *confirmN
		case "max-misses":
			trkCfg.MaxMisses = *maxMisses
		case "init-gate-dist":
			trkCfg.InitGateDist = *initGate
		case "init-hits":
			trkCfg.InitRequiredHits = *initHits
		case "init-max-age":
			trkCfg.InitMaxAge = *initMaxAge
		case "init-vel-sigma":
			trkCfg.InitVelSigma = *initVel
		case "greedy":
			trkCfg.UseHungarian = !*greedy
		}
	})

	if err := run(*seed, simCfg, trkCfg, procSigmaA, *outDir, *dbPath, *reportDir, *speedUnits); err != nil {
		log.Fatal(err)
	}
}

func run(seed uint64, simCfg sim.Config, trkCfg tracker.Config, sigmaA float64, outDir, dbPath, reportDir, speedUnits string) error {
	logs, err := runlog.Open(outDir)
	if err != nil {
		return err
	}
	defer logs.Close()

	var st *store.Store
	var runID string
	if dbPath != "" {
		st, err = store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		cfgJSON, err := json.Marshal(map[string]interface{}{
			"sim": simCfg, "tracker": trkCfg, "sigma_a": sigmaA,
		})
		if err != nil {
			return fmt.Errorf("marshal run config: %w", err)
		}
		runID, err = st.CreateRun(seed, simCfg.Steps, simCfg.Dt, string(cfgJSON))
		if err != nil {
			return err
		}
	}

	var data *report.RunData
	if reportDir != "" {
		data = report.NewRunData(speedUnits)
	}

	hash := runlog.NewRunHash(seed)
	simulator := sim.New(seed, simCfg)
	trk := tracker.New(trkCfg)

	var zs []geom.Vec2
	for step := 0; step < simCfg.Steps; step++ {
		simulator.Step()

		for _, t := range simulator.Truth() {
			_ = logs.Truth(step, t)
		}

		zs = zs[:0]
		for _, m := range simulator.LastMeasurements() {
			_ = logs.Meas(step, m)
			zs = append(zs, m.Z)
		}

		if err := trk.Step(zs, simCfg.Dt, sigmaA, simCfg.SigmaZ); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}

		snaps := trk.Tracks()
		innovs := trk.LastInnovations()
		Ss := trk.LastS()
		for i, snap := range snaps {
			_ = logs.Track(step, snap)
			_ = logs.Residual(step, snap.ID, innovs[i], Ss[i])
			hash.AddTrackLine(step, snap.ID, snap.Confirmed, snap.X)
		}

		if st != nil {
			if err := st.RecordStep(runID, step, snaps, innovs, Ss); err != nil {
				return err
			}
		}
		if data != nil {
			data.AddStep(step, simulator.Truth(), snaps, innovs, Ss)
		}
	}

	digest := hash.Sum64()
	fmt.Fprintf(os.Stderr, "FNV1A64=%016x\n", digest)

	if err := logs.Close(); err != nil {
		return fmt.Errorf("flush logs: %w", err)
	}

	if st != nil {
		if err := st.FinishRun(runID, fmt.Sprintf("%016x", digest)); err != nil {
			return err
		}
		log.Printf("archived run %s to %s", runID, dbPath)
	}

	if data != nil {
		if err := os.MkdirAll(reportDir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
		if err := data.WriteHTML(filepath.Join(reportDir, "run.html")); err != nil {
			return err
		}
		if err := data.WriteNISPlot(filepath.Join(reportDir, "nis.png")); err != nil {
			return err
		}
		log.Printf("wrote report to %s", reportDir)
	}

	fmt.Printf("Wrote logs to: %s\n", outDir)
	fmt.Println("Files: truth.csv, meas.csv, tracks.csv, residuals.csv")
	return nil
}
