package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/core"
	"github.com/san-kum/usvsim/internal/hydro"
	"github.com/san-kum/usvsim/internal/logging"
	"github.com/san-kum/usvsim/internal/metrics"
	"github.com/san-kum/usvsim/internal/models"
	"github.com/san-kum/usvsim/internal/task"
)

const minEnvsPerWorker = 64

// Statistics recorded by the environment itself, next to the task's.
const (
	StatActionEffort  = "action_effort"
	StatKineticEnergy = "kinetic_energy"
)

// VecEnv steps N independent platforms that share one task, one
// hydrodynamics engine and one configuration.
type VecEnv struct {
	cfg     *config.Config
	numEnvs int
	log     zerolog.Logger

	task     task.Task
	hydro    *hydro.Hydrodynamics
	platform *models.Platform
	pool     *integratorPool

	states   []core.State
	progress []int
	resetBuf []bool
	step     int

	goalPositions    *mat.Dense // N x 3
	goalOrientations *mat.Dense // N x 4
	current          *mat.Dense // 1 x 3

	stats    *metrics.Stats
	outcomes metrics.Outcomes
}

// NewVecEnv builds every component from cfg. src drives spawn, goal and
// drag randomization; it is only drawn from on the calling goroutine.
func NewVecEnv(cfg *config.Config, src rand.Source, log zerolog.Logger) (*VecEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := cfg.Env.NumEnvs

	t, err := task.New(cfg.Task, cfg.Reward, n, src, log)
	if err != nil {
		return nil, fmt.Errorf("build task: %w", err)
	}
	h, err := hydro.New(cfg.Hydrodynamics, n, src, log)
	if err != nil {
		return nil, fmt.Errorf("build hydrodynamics: %w", err)
	}
	pool, err := newIntegratorPool(cfg.Env.Integrator)
	if err != nil {
		return nil, err
	}

	env := &VecEnv{
		cfg:              cfg,
		numEnvs:          n,
		log:              logging.Component(log, "vecenv"),
		task:             t,
		hydro:            h,
		platform:         models.NewPlatform(cfg.Platform),
		pool:             pool,
		states:           make([]core.State, n),
		progress:         make([]int, n),
		resetBuf:         make([]bool, n),
		goalPositions:    mat.NewDense(n, 3, nil),
		goalOrientations: identityOrientations(n),
		stats:            metrics.NewStats(n),
	}
	for e := range env.states {
		env.states[e] = make(core.State, models.StateDim)
	}
	if cfg.Env.UseWaterCurrent {
		env.current = mat.NewDense(1, 3, append([]float64(nil), cfg.Env.WaterCurrent...))
	}

	t.CreateStats(env.stats)
	env.stats.Ensure(StatActionEffort)
	env.stats.Ensure(StatKineticEnergy)

	env.log.Info().
		Int("envs", n).
		Str("task", t.Name()).
		Str("integrator", cfg.Env.Integrator).
		Bool("drag_randomization", cfg.Hydrodynamics.UseDragRandomization).
		Bool("water_current", cfg.Env.UseWaterCurrent).
		Msg("environment ready")
	return env, nil
}

func (v *VecEnv) NumEnvs() int                { return v.numEnvs }
func (v *VecEnv) Task() task.Task             { return v.task }
func (v *VecEnv) Hydro() *hydro.Hydrodynamics { return v.hydro }
func (v *VecEnv) Stats() *metrics.Stats       { return v.stats }
func (v *VecEnv) Outcomes() metrics.Outcomes  { return v.outcomes }
func (v *VecEnv) StepCount() int              { return v.step }

// Progress returns the episode step counter of every environment.
func (v *VecEnv) Progress() []int {
	out := make([]int, v.numEnvs)
	copy(out, v.progress)
	return out
}

// Goals returns the goal markers, positions N x 3 and orientations N x 4.
func (v *VecEnv) Goals() (mat.Matrix, mat.Matrix) {
	return v.goalPositions, v.goalOrientations
}

// PlatformState returns a copy of the [x, y, ψ, vx, vy, ω] state of env e.
func (v *VecEnv) PlatformState(e int) core.State {
	return v.states[e].Clone()
}

// Reset restarts every environment and returns the first observations.
func (v *VecEnv) Reset() (*mat.Dense, error) {
	all := core.AllEnvs(v.numEnvs)
	if _, err := v.resetIdx(all); err != nil {
		return nil, err
	}
	v.outcomes.Reset()
	return v.task.StateObservations(v.taskState())
}

// Step applies one batch of actions (N x 3, in [-1, 1]) and advances every
// environment by one dt.
func (v *VecEnv) Step(actions mat.Matrix) (*StepResult, error) {
	if err := core.CheckShape("step actions", actions, v.numEnvs, models.ControlDim); err != nil {
		return nil, err
	}

	res := &StepResult{}
	resetIDs := core.Where(v.resetBuf)
	if len(resetIDs) > 0 {
		extras, err := v.resetIdx(resetIDs)
		if err != nil {
			return nil, err
		}
		res.Extras = extras
	}
	if err := v.refreshGoals(); err != nil {
		return nil, err
	}

	justReset := make([]bool, v.numEnvs)
	for _, e := range resetIDs {
		justReset[e] = true
	}
	thrust := make([]core.Control, v.numEnvs)
	row := make([]float64, models.ControlDim)
	for e := range thrust {
		if justReset[e] {
			thrust[e] = make(core.Control, models.ControlDim)
			continue
		}
		mat.Row(row, e, actions)
		thrust[e] = v.platform.Wrench(row)
	}

	if err := v.physics(thrust); err != nil {
		return nil, err
	}
	v.step++
	for e := range v.progress {
		v.progress[e]++
	}

	state := v.taskState()
	obs, err := v.task.StateObservations(state)
	if err != nil {
		return nil, err
	}
	rewards, err := v.task.ComputeReward(state, actions)
	if err != nil {
		return nil, err
	}
	if err := v.task.UpdateStatistics(v.stats); err != nil {
		return nil, err
	}
	if err := v.recordStats(actions); err != nil {
		return nil, err
	}

	kills := v.task.UpdateKills()
	goalReached := v.task.GoalReached()
	maxLen := v.cfg.Env.MaxEpisodeLength
	dones := make([]bool, v.numEnvs)
	for e := range dones {
		timedOut := v.progress[e] >= maxLen-1
		dones[e] = kills[e] || timedOut
		if dones[e] {
			v.outcomes.Observe(goalReached[e], kills[e], timedOut)
		}
	}
	copy(v.resetBuf, dones)

	res.Step = v.step
	res.Observations = obs
	res.Rewards = rewards
	res.Dones = dones
	return res, nil
}

// Run resets the environments and drives them with policy for steps steps,
// or until ctx is done.
func (v *VecEnv) Run(ctx context.Context, policy core.Policy, steps int, observers ...Observer) (*Summary, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d", steps)
	}
	obs, err := v.Reset()
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	var rewardSum float64
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			if summary.Steps > 0 {
				summary.MeanReward = rewardSum / float64(summary.Steps)
			}
			summary.Outcomes = v.outcomes
			return summary, ctx.Err()
		default:
		}

		actions, err := policy.Act(obs)
		if err != nil {
			return summary, fmt.Errorf("policy %s: %w", policy.Name(), err)
		}
		res, err := v.Step(actions)
		if err != nil {
			return summary, err
		}
		for _, o := range observers {
			o.OnStep(res)
		}

		obs = res.Observations
		rewardSum += floats.Sum(res.Rewards) / float64(v.numEnvs)
		if res.Extras != nil {
			summary.Extras = res.Extras
		}
		summary.Steps++
	}

	summary.MeanReward = rewardSum / float64(summary.Steps)
	summary.Outcomes = v.outcomes
	v.log.Info().
		Int("steps", summary.Steps).
		Float64("mean_reward", summary.MeanReward).
		Int("episodes", v.outcomes.Episodes).
		Float64("success_rate", v.outcomes.SuccessRate()).
		Msg("run finished")
	return summary, nil
}

// resetIdx restarts envIDs: new drag coefficients, new goals, spawns around
// them at rest. It returns the finished episodes' per-step stat means.
func (v *VecEnv) resetIdx(envIDs core.EnvIDs) (map[string]float64, error) {
	if err := v.task.Reset(envIDs); err != nil {
		return nil, err
	}
	if err := v.hydro.ResetCoefficients(envIDs); err != nil {
		return nil, err
	}
	if err := v.setGoals(envIDs); err != nil {
		return nil, err
	}

	positions := mat.NewDense(v.numEnvs, 3, nil)
	orientations := identityOrientations(v.numEnvs)
	if err := v.task.Spawns(envIDs, positions, orientations, v.step); err != nil {
		return nil, err
	}
	for _, e := range envIDs {
		x := v.states[e]
		for i := range x {
			x[i] = 0
		}
		x[models.StateX] = positions.At(e, 0)
		x[models.StateY] = positions.At(e, 1)
		x[models.StateYaw] = core.Yaw([4]float64{
			orientations.At(e, 0), orientations.At(e, 1), orientations.At(e, 2), orientations.At(e, 3),
		})
		v.progress[e] = 0
		v.resetBuf[e] = false
	}

	extras := v.stats.EpisodeMeans(envIDs, v.cfg.Env.MaxEpisodeLength)
	v.stats.ResetEnvs(envIDs)

	v.log.Debug().Int("envs", len(envIDs)).Int("step", v.step).Msg("reset")
	return extras, nil
}

func (v *VecEnv) setGoals(envIDs core.EnvIDs) error {
	positions := mat.NewDense(v.numEnvs, 3, nil)
	orientations := identityOrientations(v.numEnvs)
	if err := v.task.Goals(envIDs, positions, orientations); err != nil {
		return err
	}
	for _, e := range envIDs {
		v.goalPositions.SetRow(e, positions.RawRowView(e))
		v.goalOrientations.SetRow(e, orientations.RawRowView(e))
	}
	return nil
}

// refreshGoals moves the goal of every environment that has run a multiple
// of goal_refresh steps without being reset.
func (v *VecEnv) refreshGoals() error {
	ids := make(core.EnvIDs, 0)
	for e, p := range v.progress {
		if p > 0 && p%v.cfg.Env.GoalRefresh == 0 {
			ids = append(ids, e)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return v.setGoals(ids)
}

// physics applies thrust plus hydrodynamic drag and integrates every
// environment by dt.
func (v *VecEnv) physics(thrust []core.Control) error {
	n := v.numEnvs
	quats := mat.NewDense(n, 4, nil)
	vel := mat.NewDense(n, hydro.DOF, nil)
	for e, x := range v.states {
		q := core.YawQuaternion(x[models.StateYaw])
		quats.SetRow(e, q[:])
		vel.Set(e, 0, x[models.StateVX])
		vel.Set(e, 1, x[models.StateVY])
		vel.Set(e, 5, x[models.StateYawRate])
	}
	drag, err := v.hydro.ComputeEffects(quats, vel, v.cfg.Env.UseWaterCurrent, v.current)
	if err != nil {
		return err
	}

	dt := v.cfg.Env.Dt
	t := float64(v.step) * dt
	return core.ParallelForErr(n, minEnvsPerWorker, func(start, end int) error {
		integ := v.pool.Get()
		defer v.pool.Put(integ)

		u := make(core.Control, models.ControlDim)
		for e := start; e < end; e++ {
			u[0] = thrust[e][0] + drag.At(e, 0)
			u[1] = thrust[e][1] + drag.At(e, 1)
			u[2] = thrust[e][2] + drag.At(e, 5)

			next := integ.Step(v.platform, v.states[e], u, t, dt)
			if !next.IsValid() {
				return SimError{Time: t, Step: v.step, Env: e, Message: "invalid state (NaN/Inf)"}
			}
			next[models.StateYaw] = core.WrapToPi(next[models.StateYaw])
			copy(v.states[e], next)
		}
		return nil
	})
}

func (v *VecEnv) recordStats(actions mat.Matrix) error {
	if err := v.stats.Add(StatActionEffort, metrics.ActionEffort(actions)); err != nil {
		return err
	}
	energy := make([]float64, v.numEnvs)
	for e, x := range v.states {
		energy[e] = v.platform.KineticEnergy(x)
	}
	return v.stats.Add(StatKineticEnergy, energy)
}

// taskState converts the platform states into the task's planar view.
func (v *VecEnv) taskState() task.State {
	n := v.numEnvs
	s := task.State{
		Position:        mat.NewDense(n, 2, nil),
		Orientation:     mat.NewDense(n, 2, nil),
		LinearVelocity:  mat.NewDense(n, 2, nil),
		AngularVelocity: make([]float64, n),
	}
	for e, x := range v.states {
		sin, cos := math.Sincos(x[models.StateYaw])
		s.Position.Set(e, 0, x[models.StateX])
		s.Position.Set(e, 1, x[models.StateY])
		s.Orientation.Set(e, 0, cos)
		s.Orientation.Set(e, 1, sin)
		s.LinearVelocity.Set(e, 0, x[models.StateVX])
		s.LinearVelocity.Set(e, 1, x[models.StateVY])
		s.AngularVelocity[e] = x[models.StateYawRate]
	}
	return s
}

func identityOrientations(n int) *mat.Dense {
	return core.Tile([]float64{1, 0, 0, 0}, n)
}
