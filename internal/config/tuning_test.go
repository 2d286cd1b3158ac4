package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoadDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := MustLoadDefaultConfig()
	assert.Equal(t, 9.21, cfg.GetGateMaha2())
	assert.Equal(t, 8, cfg.GetMaxMisses())
	assert.Equal(t, 3, cfg.GetConfirmM())
	assert.Equal(t, 5, cfg.GetConfirmN())
	assert.Equal(t, 12.0, cfg.GetInitGateDist())
	assert.Equal(t, 2, cfg.GetInitRequiredHits())
	assert.Equal(t, 2, cfg.GetInitMaxAge())
	assert.Equal(t, 40.0, cfg.GetInitVelSigma())
	assert.True(t, cfg.GetUseHungarian())
	assert.Equal(t, 1.5, cfg.GetSigmaA())
	assert.Equal(t, 0.05, cfg.GetDt())
	assert.Equal(t, 400, cfg.GetSteps())
}

func TestGetters_FallBackOnNil(t *testing.T) {
	t.Parallel()

	cfg := &TuningConfig{}
	assert.Equal(t, 9.21, cfg.GetGateMaha2())
	assert.Equal(t, 3.0, cfg.GetSigmaZ())
	assert.Equal(t, 0.9, cfg.GetPDetect())
	assert.False(t, cfg.GetScenarioCross())
	assert.False(t, cfg.GetEnableClutter())
	assert.Equal(t, 6, cfg.GetClutterPerStep())
	assert.Equal(t, 300.0, cfg.GetClutterAreaHalf())
}

func TestLoadTuningConfig_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"gate_maha2": 13.8, "max_misses": 4}`), 0o644))

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 13.8, cfg.GetGateMaha2())
	assert.Equal(t, 4, cfg.GetMaxMisses())
	// Unnamed fields keep their defaults.
	assert.Equal(t, 3, cfg.GetConfirmM())
	assert.True(t, cfg.GetUseHungarian())
}

func TestLoadTuningConfig_RejectsNonJSONExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := LoadTuningConfig(path)
	assert.Error(t, err)
}

func TestLoadTuningConfig_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadTuningConfig_MalformedJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadTuningConfig(path)
	assert.Error(t, err)
}

func TestConfigConversions(t *testing.T) {
	t.Parallel()

	tuning := MustLoadDefaultConfig()

	trkCfg := TrackerConfigFromTuning(tuning)
	assert.Equal(t, 9.21, trkCfg.GateMaha2)
	assert.Equal(t, 8, trkCfg.MaxMisses)
	assert.Equal(t, 3, trkCfg.ConfirmM)
	assert.Equal(t, 5, trkCfg.ConfirmN)
	assert.True(t, trkCfg.UseHungarian)

	simCfg := SimConfigFromTuning(tuning)
	assert.Equal(t, 3, simCfg.NumTargets)
	assert.Equal(t, 0.05, simCfg.Dt)
	assert.Equal(t, 400, simCfg.Steps)
	assert.Equal(t, 3.0, simCfg.SigmaZ)
	assert.Equal(t, 0.9, simCfg.PDetect)
	assert.False(t, simCfg.EnableClutter)
}
