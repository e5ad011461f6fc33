package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/usvsim/internal/core"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, TaskGoToXY, cfg.Task.Name)
	assert.Positive(t, cfg.Env.Dt)
	assert.Positive(t, cfg.Env.NumEnvs)
	assert.Len(t, cfg.Hydrodynamics.LinearDamping, 6)
	assert.NoError(t, cfg.Validate())
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("mfp", "go_to_pose")
	require.NotNil(t, cfg)
	assert.Equal(t, TaskGoToPose, cfg.Task.Name)
	assert.Equal(t, 0.025, cfg.Task.HeadingTolerance)
	assert.NoError(t, cfg.Validate())

	cfg.Task.KillDist = 99
	fresh := GetPreset("mfp", "go_to_pose")
	assert.NotEqual(t, 99.0, fresh.Task.KillDist, "presets must not share state")
}

func TestGetPreset_NotFound(t *testing.T) {
	assert.Nil(t, GetPreset("usv", "nonexistent"))
	assert.Nil(t, GetPreset("nonexistent", "go_to_xy"))
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("usv")
	assert.Contains(t, presets, "go_to_xy_curriculum")
	assert.Nil(t, ListPresets("nonexistent"))
	assert.Equal(t, []string{"mfp", "usv"}, ListPlatforms())

	for _, platform := range ListPlatforms() {
		for _, name := range ListPresets(platform) {
			assert.NoError(t, GetPreset(platform, name).Validate(), "%s/%s", platform, name)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero envs", func(c *Config) { c.Env.NumEnvs = 0 }, core.ErrConfiguration},
		{"zero dt", func(c *Config) { c.Env.Dt = 0 }, core.ErrConfiguration},
		{"short damping vector", func(c *Config) { c.Hydrodynamics.LinearDamping = []float64{1, 2, 3} }, core.ErrConfiguration},
		{"short randomization vector", func(c *Config) {
			c.Hydrodynamics.UseDragRandomization = true
			c.Hydrodynamics.QuadRand = []float64{0.1}
		}, core.ErrConfiguration},
		{"negative fraction", func(c *Config) {
			c.Hydrodynamics.UseDragRandomization = true
			c.Hydrodynamics.LinearRand[0] = -0.1
		}, core.ErrConfiguration},
		{"zero tolerance", func(c *Config) { c.Task.PositionTolerance = 0 }, core.ErrConfiguration},
		{"pose without heading tolerance", func(c *Config) {
			c.Task.Name = TaskGoToPose
			c.Task.HeadingTolerance = -1
		}, core.ErrConfiguration},
		{"inverted spawn range", func(c *Config) { c.Task.MinSpawnDist, c.Task.MaxSpawnDist = 3, 1 }, core.ErrConfiguration},
		{"unknown task", func(c *Config) { c.Task.Name = "go_to_moon" }, core.ErrUnsupportedMode},
		{"bad current", func(c *Config) {
			c.Env.UseWaterCurrent = true
			c.Env.WaterCurrent = []float64{1}
		}, core.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := []byte(`
env:
  num_envs: 8
task:
  name: go_to_pose
  kill_dist: 6
  spawn_curriculum:
    enabled: true
    warmup: 10
    end: 20
hydrodynamics:
  use_drag_randomization: true
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Env.NumEnvs)
	assert.Equal(t, TaskGoToPose, cfg.Task.Name)
	assert.Equal(t, 6.0, cfg.Task.KillDist)
	assert.True(t, cfg.Task.SpawnCurriculum.Enabled)
	assert.Equal(t, 2.5, cfg.Task.SpawnCurriculum.MaxDist)
	assert.Equal(t, DefaultDt, cfg.Env.Dt)
	assert.True(t, cfg.Hydrodynamics.UseDragRandomization)
}

func TestLoadFromPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pose.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env:\n  num_envs: 4\n"), 0644))

	base := GetPreset("mfp", "go_to_pose")
	cfg, err := LoadFrom(path, base)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Env.NumEnvs)
	assert.Equal(t, TaskGoToPose, cfg.Task.Name)
	assert.Equal(t, 5.32, cfg.Platform.Mass)
	assert.Equal(t, DefaultNumEnvs, base.Env.NumEnvs, "base must not be modified")
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("task:\n  position_tolerance: -1\n"), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := GetPreset("usv", "current")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestPolicyConfigSet(t *testing.T) {
	var p PolicyConfig
	for i, name := range TunableGains() {
		require.NoError(t, p.Set(name, float64(i+1)))
	}
	assert.Equal(t, PolicyConfig{SurgeGain: 1, HeadingGain: 2, YawDamping: 3, AlignRadius: 4}, p)
	assert.ErrorIs(t, p.Set("integral_gain", 1), core.ErrUnsupportedMode)
}

func TestPolicySeed(t *testing.T) {
	env := EnvConfig{Seed: 10}
	assert.Equal(t, uint64(10+1<<32), env.PolicySeed())

	// Consecutive env seeds never reach a neighbour's policy seed.
	for i := uint64(0); i < 1000; i++ {
		assert.NotEqual(t, env.Seed+i, env.PolicySeed())
	}
}

func TestBoundaryPenaltyOptOut(t *testing.T) {
	assert.True(t, DefaultConfig().Task.ApplyBoundaryPenalty)

	path := filepath.Join(t.TempDir(), "no_boundary.yaml")
	require.NoError(t, os.WriteFile(path, []byte("task:\n  apply_boundary_penalty: false\n"), 0644))
	cfg, err := LoadFrom(path, GetPreset("usv", "go_to_xy"))
	require.NoError(t, err)
	assert.False(t, cfg.Task.ApplyBoundaryPenalty)
	assert.Equal(t, 25.0, cfg.Task.BoundaryCost)
}
