package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penplan/motion"
	"penplan/motion/prep"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "corexy", cfg.Device.Kinematics)
	assert.Equal(t, 5.0, cfg.Device.StepsPerMM)
}

func TestLoadConfigJSON(t *testing.T) {
	data := []byte(`{
		"device": {"kinematics": "cartesian", "steps_per_mm": 10},
		"pen_down": {"acceleration": 100, "max_velocity": 25}
	}`)
	cfg, err := LoadConfig(data, JSON)
	require.NoError(t, err)

	assert.Equal(t, "cartesian", cfg.Device.Kinematics)
	assert.Equal(t, 10.0, cfg.Device.StepsPerMM)
	assert.Equal(t, 100.0, cfg.PenDown.Acceleration)
	assert.Equal(t, 0.127, cfg.PenDown.CorneringFactor, "untouched keys keep defaults")
	assert.Equal(t, 200.0, cfg.PenUp.MaxVelocity)
}

func TestLoadConfigTOML(t *testing.T) {
	data := []byte(`
[paper]
size = "A4"
landscape = false
margin_mm = 10

[paths]
layer_mode = "group"
layers = ["g1", "g3"]
`)
	cfg, err := LoadConfig(data, TOML)
	require.NoError(t, err)

	assert.Equal(t, "A4", cfg.Paper.Size)
	assert.False(t, cfg.Paper.Landscape)
	assert.Equal(t, 10.0, cfg.Paper.MarginMM)
	assert.Equal(t, []string{"g1", "g3"}, cfg.Paths.Layers)

	opts, err := cfg.PrepOptions()
	require.NoError(t, err)
	assert.Equal(t, prep.LayerGroup, opts.LayerMode)
	assert.True(t, opts.Layers["g3"])
	assert.False(t, opts.Paper.IsLandscape())
}

func TestLoadConfigUnknownField(t *testing.T) {
	_, err := LoadConfig([]byte(`{"device": {"stepz_per_mm": 3}}`), JSON)
	assert.Error(t, err)

	_, err = LoadConfig([]byte("[device]\nstepz_per_mm = 3\n"), TOML)
	assert.Error(t, err)
}

func TestValidateAggregates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device.StepsPerMM = 0
	cfg.PenDown.Acceleration = -1
	cfg.Paper.Size = "Napkin"
	cfg.Paths.LayerMode = "colour"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"device.steps_per_mm", "pen_down.acceleration", "paper.size", "paths.layer_mode"} {
		assert.True(t, strings.Contains(msg, want), "missing %s in %q", want, msg)
	}
}

func TestPlannerOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PenUp.CorneringFactor = 3

	opts := cfg.PlannerOptions()
	require.NoError(t, opts.Validate())

	assert.Equal(t, 1000.0, opts.PenDownProfile.Acceleration)
	assert.Equal(t, 250.0, opts.PenDownProfile.MaximumVelocity)
	assert.InDelta(t, 0.635, opts.PenDownProfile.CorneringFactor, 1e-12)
	assert.Equal(t, 0.0, opts.PenUpProfile.CorneringFactor, "travel moves never corner")
	assert.Equal(t, 1000.0, opts.PenUpProfile.MaximumVelocity)
	require.NotNil(t, opts.Home)
	assert.Equal(t, motion.Point{}, *opts.Home)

	cfg.Paper.ReturnHome = false
	assert.Nil(t, cfg.PlannerOptions().Home)
}

func TestPenPosition(t *testing.T) {
	dev := DefaultConfig().Device
	tests := []struct {
		pct  float64
		want int
	}{
		{0, 7500},
		{100, 28000},
		{50, 17750},
		{60, 19800},
	}
	for _, tt := range tests {
		if got := dev.PenPosition(tt.pct); got != tt.want {
			t.Errorf("PenPosition(%g): expected %d, got %d", tt.pct, tt.want, got)
		}
	}
}

func TestStepgenConfig(t *testing.T) {
	cfg := DefaultConfig()
	sc, err := cfg.StepgenConfig()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Millisecond, sc.Interval)
	assert.Equal(t, "corexy", sc.Kinematics.Name())
	assert.Equal(t, 25000.0, sc.MaxStepRate)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plotter.toml")
	require.NoError(t, os.WriteFile(path, []byte("[stepgen]\ninterval_ms = 20\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Stepgen.IntervalMS)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
