package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/usvsim/internal/core"
)

const (
	DefaultNumEnvs          = 64
	DefaultMaxEpisodeLength = 500
	DefaultDt               = 0.02
	DefaultGoalRefresh      = 500
	DefaultSeed             = 42
)

// Task names understood by task.New.
const (
	TaskGoToXY   = "go_to_xy"
	TaskGoToPose = "go_to_pose"
)

type Config struct {
	Env           EnvConfig      `yaml:"env"`
	Hydrodynamics Hydrodynamics  `yaml:"hydrodynamics"`
	Task          TaskConfig     `yaml:"task"`
	Reward        RewardConfig   `yaml:"reward"`
	Platform      PlatformConfig `yaml:"platform"`
	Policy        PolicyConfig   `yaml:"policy"`
}

type EnvConfig struct {
	NumEnvs          int       `yaml:"num_envs"`
	MaxEpisodeLength int       `yaml:"max_episode_length"`
	Dt               float64   `yaml:"dt"`
	Seed             uint64    `yaml:"seed"`
	GoalRefresh      int       `yaml:"goal_refresh"`
	Integrator       string    `yaml:"integrator"`
	UseWaterCurrent  bool      `yaml:"use_water_current"`
	WaterCurrent     []float64 `yaml:"water_current"`
}

// policySeedOffset keeps policy streams clear of the consecutive env seeds
// an ensemble hands out.
const policySeedOffset = 1 << 32

// PolicySeed is the seed for the policy driving an environment seeded with
// e.Seed.
func (e EnvConfig) PolicySeed() uint64 {
	return e.Seed + policySeedOffset
}

// Hydrodynamics holds the 6-DOF damping model. Vectors are ordered
// surge, sway, heave, roll, pitch, yaw.
type Hydrodynamics struct {
	LinearDamping                []float64 `yaml:"linear_damping"`
	QuadraticDamping             []float64 `yaml:"quadratic_damping"`
	LinearDampingForwardSpeed    []float64 `yaml:"linear_damping_forward_speed"`
	OffsetLinearDamping          float64   `yaml:"offset_linear_damping"`
	OffsetLinForwardDampingSpeed float64   `yaml:"offset_lin_forward_damping_speed"`
	OffsetNonlinDamping          float64   `yaml:"offset_nonlin_damping"`
	ScalingDamping               float64   `yaml:"scaling_damping"`
	UseDragRandomization         bool      `yaml:"use_drag_randomization"`
	// Randomization ranges as a fraction of the matching base coefficient.
	LinearRand []float64 `yaml:"linear_rand"`
	QuadRand   []float64 `yaml:"quad_rand"`
}

type TaskConfig struct {
	Name                       string  `yaml:"name"`
	PositionTolerance          float64 `yaml:"position_tolerance"`
	HeadingTolerance           float64 `yaml:"heading_tolerance"`
	KillAfterNStepsInTolerance int     `yaml:"kill_after_n_steps_in_tolerance"`
	KillDist                   float64 `yaml:"kill_dist"`
	GoalRandomPosition         float64 `yaml:"goal_random_position"`
	MinSpawnDist               float64 `yaml:"min_spawn_dist"`
	MaxSpawnDist               float64 `yaml:"max_spawn_dist"`
	GoalReward                 float64 `yaml:"goal_reward"`
	BoundaryCost               float64 `yaml:"boundary_cost"`
	// ApplyBoundaryPenalty adds the GoToXY boundary penalty to the reward.
	// It is always recorded as a statistic.
	ApplyBoundaryPenalty bool             `yaml:"apply_boundary_penalty"`
	SpawnCurriculum      CurriculumConfig `yaml:"spawn_curriculum"`
}

type CurriculumConfig struct {
	Enabled bool    `yaml:"enabled"`
	Warmup  int     `yaml:"warmup"`
	End     int     `yaml:"end"`
	MinDist float64 `yaml:"min_dist"`
	MaxDist float64 `yaml:"max_dist"`
}

type RewardConfig struct {
	PositionRewardMode             string  `yaml:"position_reward_mode"`
	HeadingRewardMode              string  `yaml:"heading_reward_mode"`
	PositionExponentialRewardCoeff float64 `yaml:"position_exponential_reward_coeff"`
	HeadingExponentialRewardCoeff  float64 `yaml:"heading_exponential_reward_coeff"`
	PositionScale                  float64 `yaml:"position_scale"`
	HeadingScale                   float64 `yaml:"heading_scale"`
}

type PlatformConfig struct {
	Mass      float64 `yaml:"mass"`
	Inertia   float64 `yaml:"inertia"`
	MaxThrust float64 `yaml:"max_thrust"`
	MaxTorque float64 `yaml:"max_torque"`
}

type PolicyConfig struct {
	Name        string  `yaml:"name"`
	SurgeGain   float64 `yaml:"surge_gain"`
	HeadingGain float64 `yaml:"heading_gain"`
	YawDamping  float64 `yaml:"yaw_damping"`
	AlignRadius float64 `yaml:"align_radius"`
}

// Tunable policy gains, by yaml key.
const (
	GainSurge       = "surge_gain"
	GainHeading     = "heading_gain"
	GainYawDamping  = "yaw_damping"
	GainAlignRadius = "align_radius"
)

// TunableGains lists the keys accepted by PolicyConfig.Set.
func TunableGains() []string {
	return []string{GainSurge, GainHeading, GainYawDamping, GainAlignRadius}
}

// Set assigns the gain named by its yaml key.
func (p *PolicyConfig) Set(name string, v float64) error {
	switch name {
	case GainSurge:
		p.SurgeGain = v
	case GainHeading:
		p.HeadingGain = v
	case GainYawDamping:
		p.YawDamping = v
	case GainAlignRadius:
		p.AlignRadius = v
	default:
		return fmt.Errorf("policy gain %q: %w", name, core.ErrUnsupportedMode)
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Env: EnvConfig{
			NumEnvs:          DefaultNumEnvs,
			MaxEpisodeLength: DefaultMaxEpisodeLength,
			Dt:               DefaultDt,
			Seed:             DefaultSeed,
			GoalRefresh:      DefaultGoalRefresh,
			Integrator:       "rk4",
			WaterCurrent:     []float64{0, 0, 0},
		},
		Hydrodynamics: Hydrodynamics{
			LinearDamping:             []float64{0.0, 99.99, 99.99, 13.0, 13.0, 5.83},
			QuadraticDamping:          []float64{17.257603, 99.99, 10.0, 5.0, 5.0, 17.33600724},
			LinearDampingForwardSpeed: []float64{0, 0, 0, 0, 0, 0},
			ScalingDamping:            1.0,
			LinearRand:                []float64{0.1, 0.1, 0.0, 0.0, 0.0, 0.1},
			QuadRand:                  []float64{0.1, 0.1, 0.0, 0.0, 0.0, 0.1},
		},
		Task: TaskConfig{
			Name:                       TaskGoToXY,
			PositionTolerance:          0.1,
			HeadingTolerance:           0.1,
			KillAfterNStepsInTolerance: 50,
			KillDist:                   10.0,
			GoalRandomPosition:         0.0,
			MinSpawnDist:               0.5,
			MaxSpawnDist:               5.0,
			GoalReward:                 0.0,
			BoundaryCost:               25.0,
			ApplyBoundaryPenalty:       true,
			SpawnCurriculum: CurriculumConfig{
				Warmup:  250,
				End:     750,
				MinDist: 0.5,
				MaxDist: 2.5,
			},
		},
		Reward: RewardConfig{
			PositionRewardMode:             "exponential",
			HeadingRewardMode:              "exponential",
			PositionExponentialRewardCoeff: 0.25,
			HeadingExponentialRewardCoeff:  0.25,
			PositionScale:                  1.0,
			HeadingScale:                   1.0,
		},
		Platform: PlatformConfig{
			Mass:      35.0,
			Inertia:   5.0,
			MaxThrust: 40.0,
			MaxTorque: 15.0,
		},
		Policy: PolicyConfig{
			Name:        "goal",
			SurgeGain:   1.0,
			HeadingGain: 2.0,
			YawDamping:  0.5,
			AlignRadius: 0.5,
		},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	return LoadFrom(path, DefaultConfig())
}

// LoadFrom reads a YAML file over a copy of base, so a file can refine a
// preset.
func LoadFrom(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy so presets can be modified by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.Env.WaterCurrent = cloneFloats(c.Env.WaterCurrent)
	out.Hydrodynamics.LinearDamping = cloneFloats(c.Hydrodynamics.LinearDamping)
	out.Hydrodynamics.QuadraticDamping = cloneFloats(c.Hydrodynamics.QuadraticDamping)
	out.Hydrodynamics.LinearDampingForwardSpeed = cloneFloats(c.Hydrodynamics.LinearDampingForwardSpeed)
	out.Hydrodynamics.LinearRand = cloneFloats(c.Hydrodynamics.LinearRand)
	out.Hydrodynamics.QuadRand = cloneFloats(c.Hydrodynamics.QuadRand)
	return &out
}

// Validate fails fast on anything that would otherwise surface mid-run.
func (c *Config) Validate() error {
	if c.Env.NumEnvs <= 0 {
		return core.Configf("env.num_envs must be positive, got %d", c.Env.NumEnvs)
	}
	if c.Env.MaxEpisodeLength <= 1 {
		return core.Configf("env.max_episode_length must be > 1, got %d", c.Env.MaxEpisodeLength)
	}
	if c.Env.Dt <= 0 {
		return core.Configf("env.dt must be positive, got %f", c.Env.Dt)
	}
	if c.Env.GoalRefresh <= 0 {
		return core.Configf("env.goal_refresh must be positive, got %d", c.Env.GoalRefresh)
	}
	if c.Env.UseWaterCurrent && len(c.Env.WaterCurrent) != 3 {
		return core.Configf("env.water_current: want 3 values, got %d", len(c.Env.WaterCurrent))
	}
	if err := c.Hydrodynamics.Validate(); err != nil {
		return err
	}
	if err := c.Task.Validate(); err != nil {
		return err
	}
	if c.Platform.Mass <= 0 || c.Platform.Inertia <= 0 {
		return core.Configf("platform mass and inertia must be positive")
	}
	return nil
}

func (h *Hydrodynamics) Validate() error {
	type namedVec struct {
		name string
		v    []float64
	}
	vectors := []namedVec{
		{"hydrodynamics.linear_damping", h.LinearDamping},
		{"hydrodynamics.quadratic_damping", h.QuadraticDamping},
		{"hydrodynamics.linear_damping_forward_speed", h.LinearDampingForwardSpeed},
	}
	if h.UseDragRandomization {
		vectors = append(vectors,
			namedVec{"hydrodynamics.linear_rand", h.LinearRand},
			namedVec{"hydrodynamics.quad_rand", h.QuadRand},
		)
	}
	for _, vec := range vectors {
		if _, err := core.Vec6(vec.name, vec.v); err != nil {
			return err
		}
	}
	if h.UseDragRandomization {
		for i := range h.LinearRand {
			if h.LinearRand[i] < 0 || h.QuadRand[i] < 0 {
				return core.Configf("hydrodynamics randomization fractions must be >= 0")
			}
		}
	}
	return nil
}

func (t *TaskConfig) Validate() error {
	switch t.Name {
	case TaskGoToXY, TaskGoToPose:
	default:
		return fmt.Errorf("task %q: %w", t.Name, core.ErrUnsupportedMode)
	}
	if t.PositionTolerance <= 0 {
		return core.Configf("task.position_tolerance must be positive, got %f", t.PositionTolerance)
	}
	if t.Name == TaskGoToPose && t.HeadingTolerance <= 0 {
		return core.Configf("task.heading_tolerance must be positive, got %f", t.HeadingTolerance)
	}
	if t.KillDist <= 0 {
		return core.Configf("task.kill_dist must be positive, got %f", t.KillDist)
	}
	if t.KillAfterNStepsInTolerance <= 0 {
		return core.Configf("task.kill_after_n_steps_in_tolerance must be positive, got %d", t.KillAfterNStepsInTolerance)
	}
	if t.GoalRandomPosition < 0 {
		return core.Configf("task.goal_random_position must be >= 0, got %f", t.GoalRandomPosition)
	}
	if t.MinSpawnDist < 0 || t.MaxSpawnDist < t.MinSpawnDist {
		return core.Configf("task spawn distances must satisfy 0 <= min <= max, got [%f, %f]", t.MinSpawnDist, t.MaxSpawnDist)
	}
	return nil
}

func cloneFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
