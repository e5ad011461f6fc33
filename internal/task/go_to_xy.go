package task

import (
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/core"
	"github.com/san-kum/usvsim/internal/metrics"
)

// GoToXY rewards reaching a planar target position.
type GoToXY struct {
	*taskCore
	position Shaping

	positionReward  []float64
	boundaryDist    []float64
	boundaryPenalty []float64
}

func NewGoToXY(cfg config.TaskConfig, rew config.RewardConfig, numEnvs int, src rand.Source, log zerolog.Logger) (*GoToXY, error) {
	c, err := newTaskCore(config.TaskGoToXY, LabelGoToXY, cfg, numEnvs, src, log)
	if err != nil {
		return nil, err
	}
	position, err := NewShaping(rew.PositionRewardMode, rew.PositionExponentialRewardCoeff, rew.PositionScale)
	if err != nil {
		return nil, err
	}
	return &GoToXY{
		taskCore:        c,
		position:        position,
		positionReward:  make([]float64, numEnvs),
		boundaryDist:    make([]float64, numEnvs),
		boundaryPenalty: make([]float64, numEnvs),
	}, nil
}

func (t *GoToXY) CreateStats(stats *metrics.Stats) {
	for _, name := range []string{"position_reward", "position_error", "boundary_penalty", "boundary_dist"} {
		stats.Ensure(name)
	}
}

func (t *GoToXY) StateObservations(state State) (*mat.Dense, error) {
	return t.observe(state, func(e int, dst []float64) {
		dst[0] = t.positionError.At(e, 0)
		dst[1] = t.positionError.At(e, 1)
		dst[2] = 0
		dst[3] = 0
	})
}

// ComputeReward returns the shaped position reward plus the goal bonus. The
// boundary penalty is always recorded and is only added to the reward when
// apply_boundary_penalty is set.
func (t *GoToXY) ComputeReward(state State, actions mat.Matrix) ([]float64, error) {
	if err := t.beginReward(actions); err != nil {
		return nil, err
	}

	tol := t.cfg.PositionTolerance
	t.advanceGoalReached(func(e int) bool { return t.positionDist[e] < tol })

	reward := make([]float64, t.numEnvs)
	for e := range reward {
		d := t.positionDist[e]
		t.boundaryDist[e] = d - t.cfg.KillDist
		t.boundaryPenalty[e] = boundaryPenalty(t.boundaryDist[e], t.cfg.BoundaryCost)
		t.positionReward[e] = t.position.Reward(d) + float64(t.goalReached[e])*t.cfg.GoalReward
		reward[e] = t.positionReward[e]
		if t.cfg.ApplyBoundaryPenalty {
			reward[e] += t.boundaryPenalty[e]
		}
	}
	return reward, nil
}

func (t *GoToXY) UpdateStatistics(stats *metrics.Stats) error {
	for name, values := range map[string][]float64{
		"position_reward":  t.positionReward,
		"position_error":   t.positionDist,
		"boundary_penalty": t.boundaryPenalty,
		"boundary_dist":    t.boundaryDist,
	} {
		if err := stats.Add(name, values); err != nil {
			return err
		}
	}
	return nil
}

// Goals draws new targets for envIDs and offsets the reference positions
// (N x 3) by them. Orientations (N x 4) are left as given.
func (t *GoToXY) Goals(envIDs core.EnvIDs, positions, orientations *mat.Dense) error {
	if err := t.checkPose("goals", envIDs, positions, orientations); err != nil {
		return err
	}
	t.drawTargets(envIDs, positions)
	return nil
}
