package task

import (
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/core"
	"github.com/san-kum/usvsim/internal/metrics"
)

// GoToPose rewards reaching a target position and heading.
type GoToPose struct {
	*taskCore
	position Shaping
	heading  Shaping

	targetHeadings []float64
	headingError   []float64
	headingDist    []float64
	positionReward []float64
	headingReward  []float64
}

func NewGoToPose(cfg config.TaskConfig, rew config.RewardConfig, numEnvs int, src rand.Source, log zerolog.Logger) (*GoToPose, error) {
	c, err := newTaskCore(config.TaskGoToPose, LabelGoToPose, cfg, numEnvs, src, log)
	if err != nil {
		return nil, err
	}
	position, err := NewShaping(rew.PositionRewardMode, rew.PositionExponentialRewardCoeff, rew.PositionScale)
	if err != nil {
		return nil, err
	}
	heading, err := NewShaping(rew.HeadingRewardMode, rew.HeadingExponentialRewardCoeff, rew.HeadingScale)
	if err != nil {
		return nil, err
	}
	return &GoToPose{
		taskCore:       c,
		position:       position,
		heading:        heading,
		targetHeadings: make([]float64, numEnvs),
		headingError:   make([]float64, numEnvs),
		headingDist:    make([]float64, numEnvs),
		positionReward: make([]float64, numEnvs),
		headingReward:  make([]float64, numEnvs),
	}, nil
}

func (t *GoToPose) CreateStats(stats *metrics.Stats) {
	for _, name := range []string{"position_reward", "position_error", "heading_reward", "heading_error"} {
		stats.Ensure(name)
	}
}

// TargetHeadings returns the live heading targets (read only).
func (t *GoToPose) TargetHeadings() []float64 { return t.targetHeadings }

// HeadingError returns the signed heading errors of the last observation.
func (t *GoToPose) HeadingError() []float64 { return t.headingError }

func (t *GoToPose) StateObservations(state State) (*mat.Dense, error) {
	return t.observe(state, func(e int, dst []float64) {
		current := math.Atan2(state.Orientation.At(e, 1), state.Orientation.At(e, 0))
		he := core.HeadingError(t.targetHeadings[e], current)
		t.headingError[e] = he
		sin, cos := math.Sincos(he)
		dst[0] = t.positionError.At(e, 0)
		dst[1] = t.positionError.At(e, 1)
		dst[2] = cos
		dst[3] = sin
	})
}

// ComputeReward returns the shaped position and heading rewards plus the
// goal bonus. The goal counts only while both tolerances hold.
func (t *GoToPose) ComputeReward(state State, actions mat.Matrix) ([]float64, error) {
	if err := t.beginReward(actions); err != nil {
		return nil, err
	}
	for e := range t.headingDist {
		t.headingDist[e] = math.Abs(t.headingError[e])
	}

	posTol, headTol := t.cfg.PositionTolerance, t.cfg.HeadingTolerance
	t.advanceGoalReached(func(e int) bool {
		return t.positionDist[e] < posTol && t.headingDist[e] < headTol
	})

	reward := make([]float64, t.numEnvs)
	for e := range reward {
		t.positionReward[e] = t.position.Reward(t.positionDist[e])
		t.headingReward[e] = t.heading.Reward(t.headingDist[e])
		reward[e] = t.positionReward[e] + t.headingReward[e] + float64(t.goalReached[e])*t.cfg.GoalReward
	}
	return reward, nil
}

func (t *GoToPose) UpdateStatistics(stats *metrics.Stats) error {
	for name, values := range map[string][]float64{
		"position_reward": t.positionReward,
		"position_error":  t.positionDist,
		"heading_reward":  t.headingReward,
		"heading_error":   t.headingDist,
	} {
		if err := stats.Add(name, values); err != nil {
			return err
		}
	}
	return nil
}

// Goals draws a new target position and a heading in [0, 2π) for envIDs,
// offsets the reference positions and writes the heading as a yaw
// quaternion.
func (t *GoToPose) Goals(envIDs core.EnvIDs, positions, orientations *mat.Dense) error {
	if err := t.checkPose("goals", envIDs, positions, orientations); err != nil {
		return err
	}
	t.drawTargets(envIDs, positions)
	for _, e := range envIDs {
		h := t.unit.Rand() * 2 * math.Pi
		t.targetHeadings[e] = h
		q := core.YawQuaternion(h)
		orientations.SetRow(e, q[:])
	}
	return nil
}
