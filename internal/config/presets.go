package config

import "sort"

// Presets are keyed by platform then scenario; GetPreset returns a copy.
var Presets = map[string]map[string]func() *Config{
	"usv": {
		"go_to_xy": func() *Config {
			return DefaultConfig()
		},
		"go_to_xy_curriculum": func() *Config {
			cfg := DefaultConfig()
			cfg.Task.SpawnCurriculum.Enabled = true
			return cfg
		},
		"randomized_drag": func() *Config {
			cfg := DefaultConfig()
			cfg.Hydrodynamics.UseDragRandomization = true
			return cfg
		},
		"current": func() *Config {
			cfg := DefaultConfig()
			cfg.Hydrodynamics.UseDragRandomization = true
			cfg.Env.UseWaterCurrent = true
			cfg.Env.WaterCurrent = []float64{0.2, -0.1, 0}
			return cfg
		},
	},
	"mfp": {
		"go_to_pose": func() *Config {
			cfg := DefaultConfig()
			cfg.Task.Name = TaskGoToPose
			cfg.Task.PositionTolerance = 0.01
			cfg.Task.HeadingTolerance = 0.025
			cfg.Task.GoalRandomPosition = 5.0
			cfg.Task.BoundaryCost = 0
			cfg.Hydrodynamics.ScalingDamping = 0
			cfg.Platform = PlatformConfig{Mass: 5.32, Inertia: 0.25, MaxThrust: 2.0, MaxTorque: 0.5}
			cfg.Policy.SurgeGain = 0.5
			return cfg
		},
		"go_to_xy": func() *Config {
			cfg := DefaultConfig()
			cfg.Task.PositionTolerance = 0.01
			cfg.Task.GoalRandomPosition = 5.0
			cfg.Task.BoundaryCost = 0
			cfg.Task.GoalReward = 100
			cfg.Hydrodynamics.ScalingDamping = 0
			cfg.Platform = PlatformConfig{Mass: 5.32, Inertia: 0.25, MaxThrust: 2.0, MaxTorque: 0.5}
			cfg.Policy.SurgeGain = 0.5
			return cfg
		},
	},
}

// GetPreset returns a fresh copy of platform/scenario, or nil when unknown.
func GetPreset(platform, preset string) *Config {
	platformPresets, ok := Presets[platform]
	if !ok {
		return nil
	}
	fn, ok := platformPresets[preset]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets(platform string) []string {
	platformPresets, ok := Presets[platform]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(platformPresets))
	for name := range platformPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListPlatforms() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
