// Package config loads tracker and simulation tuning parameters. The schema
// uses optional pointer fields so a partial JSON file overrides only the
// values it names; everything else falls back to the embedded defaults.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/radar-tracker/internal/sim"
	"github.com/banshee-data/radar-tracker/internal/tracker"
)

//go:embed tuning.defaults.json
var defaultsJSON []byte

// MaxConfigFileSize bounds tuning files to catch obviously wrong paths.
const MaxConfigFileSize = 1 << 20

// TuningConfig is the root tuning schema. Fields omitted from a JSON file
// retain their defaults, so partial configs are safe.
type TuningConfig struct {
	// Tracker params
	GateMaha2        *float64 `json:"gate_maha2,omitempty"`
	MaxMisses        *int     `json:"max_misses,omitempty"`
	ConfirmM         *int     `json:"confirm_m,omitempty"`
	ConfirmN         *int     `json:"confirm_n,omitempty"`
	InitGateDist     *float64 `json:"init_gate_dist,omitempty"`
	InitRequiredHits *int     `json:"init_required_hits,omitempty"`
	InitMaxAge       *int     `json:"init_max_age,omitempty"`
	InitVelSigma     *float64 `json:"init_vel_sigma,omitempty"`
	UseHungarian     *bool    `json:"use_hungarian,omitempty"`

	// Filter params
	SigmaA *float64 `json:"sigma_a,omitempty"`

	// Simulation params
	NumTargets      *int     `json:"num_targets,omitempty"`
	Dt              *float64 `json:"dt,omitempty"`
	Steps           *int     `json:"steps,omitempty"`
	SigmaZ          *float64 `json:"sigma_z,omitempty"`
	PDetect         *float64 `json:"p_detect,omitempty"`
	ScenarioCross   *bool    `json:"scenario_cross,omitempty"`
	EnableClutter   *bool    `json:"enable_clutter,omitempty"`
	ClutterPerStep  *int     `json:"clutter_per_step,omitempty"`
	ClutterAreaHalf *float64 `json:"clutter_area_half,omitempty"`
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Only values the
// file names are set; use the getters to resolve defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig parses the embedded defaults file. Panics only if
// the embedded asset itself is malformed, which is a build defect.
func MustLoadDefaultConfig() *TuningConfig {
	cfg := &TuningConfig{}
	if err := json.Unmarshal(defaultsJSON, cfg); err != nil {
		panic(fmt.Sprintf("embedded tuning defaults: %v", err))
	}
	return cfg
}

func (c *TuningConfig) GetGateMaha2() float64 {
	if c.GateMaha2 != nil {
		return *c.GateMaha2
	}
	return 9.21
}

func (c *TuningConfig) GetMaxMisses() int {
	if c.MaxMisses != nil {
		return *c.MaxMisses
	}
	return 8
}

func (c *TuningConfig) GetConfirmM() int {
	if c.ConfirmM != nil {
		return *c.ConfirmM
	}
	return 3
}

func (c *TuningConfig) GetConfirmN() int {
	if c.ConfirmN != nil {
		return *c.ConfirmN
	}
	return 5
}

func (c *TuningConfig) GetInitGateDist() float64 {
	if c.InitGateDist != nil {
		return *c.InitGateDist
	}
	return 12.0
}

func (c *TuningConfig) GetInitRequiredHits() int {
	if c.InitRequiredHits != nil {
		return *c.InitRequiredHits
	}
	return 2
}

func (c *TuningConfig) GetInitMaxAge() int {
	if c.InitMaxAge != nil {
		return *c.InitMaxAge
	}
	return 2
}

func (c *TuningConfig) GetInitVelSigma() float64 {
	if c.InitVelSigma != nil {
		return *c.InitVelSigma
	}
	return 40.0
}

func (c *TuningConfig) GetUseHungarian() bool {
	if c.UseHungarian != nil {
		return *c.UseHungarian
	}
	return true
}

func (c *TuningConfig) GetSigmaA() float64 {
	if c.SigmaA != nil {
		return *c.SigmaA
	}
	return 1.5
}

func (c *TuningConfig) GetNumTargets() int {
	if c.NumTargets != nil {
		return *c.NumTargets
	}
	return 3
}

func (c *TuningConfig) GetDt() float64 {
	if c.Dt != nil {
		return *c.Dt
	}
	return 0.05
}

func (c *TuningConfig) GetSteps() int {
	if c.Steps != nil {
		return *c.Steps
	}
	return 400
}

func (c *TuningConfig) GetSigmaZ() float64 {
	if c.SigmaZ != nil {
		return *c.SigmaZ
	}
	return 3.0
}

func (c *TuningConfig) GetPDetect() float64 {
	if c.PDetect != nil {
		return *c.PDetect
	}
	return 0.90
}

func (c *TuningConfig) GetScenarioCross() bool {
	if c.ScenarioCross != nil {
		return *c.ScenarioCross
	}
	return false
}

func (c *TuningConfig) GetEnableClutter() bool {
	if c.EnableClutter != nil {
		return *c.EnableClutter
	}
	return false
}

func (c *TuningConfig) GetClutterPerStep() int {
	if c.ClutterPerStep != nil {
		return *c.ClutterPerStep
	}
	return 6
}

func (c *TuningConfig) GetClutterAreaHalf() float64 {
	if c.ClutterAreaHalf != nil {
		return *c.ClutterAreaHalf
	}
	return 300.0
}

// TrackerConfigFromTuning builds a tracker.Config from a loaded TuningConfig.
func TrackerConfigFromTuning(c *TuningConfig) tracker.Config {
	return tracker.Config{
		GateMaha2:        c.GetGateMaha2(),
		MaxMisses:        c.GetMaxMisses(),
		ConfirmM:         c.GetConfirmM(),
		ConfirmN:         c.GetConfirmN(),
		InitGateDist:     c.GetInitGateDist(),
		InitRequiredHits: c.GetInitRequiredHits(),
		InitMaxAge:       c.GetInitMaxAge(),
		InitVelSigma:     c.GetInitVelSigma(),
		UseHungarian:     c.GetUseHungarian(),
	}
}

// SimConfigFromTuning builds a sim.Config from a loaded TuningConfig.
func SimConfigFromTuning(c *TuningConfig) sim.Config {
	return sim.Config{
		NumTargets:      c.GetNumTargets(),
		Dt:              c.GetDt(),
		Steps:           c.GetSteps(),
		SigmaZ:          c.GetSigmaZ(),
		PDetect:         c.GetPDetect(),
		ScenarioCross:   c.GetScenarioCross(),
		EnableClutter:   c.GetEnableClutter(),
		ClutterPerStep:  c.GetClutterPerStep(),
		ClutterAreaHalf: c.GetClutterAreaHalf(),
	}
}
