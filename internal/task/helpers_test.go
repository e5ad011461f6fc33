package task

import (
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/core"
)

func xyConfig() config.TaskConfig {
	cfg := config.DefaultConfig().Task
	cfg.KillDist = 5
	cfg.PositionTolerance = 0.1
	cfg.ApplyBoundaryPenalty = false
	return cfg
}

func poseConfig() config.TaskConfig {
	cfg := xyConfig()
	cfg.Name = config.TaskGoToPose
	cfg.HeadingTolerance = 0.1
	return cfg
}

func rewardConfig() config.RewardConfig {
	return config.DefaultConfig().Reward
}

func newXY(cfg config.TaskConfig, n int) *GoToXY {
	return newXYWithReward(cfg, rewardConfig(), n)
}

func newXYWithReward(cfg config.TaskConfig, rew config.RewardConfig, n int) *GoToXY {
	t, err := NewGoToXY(cfg, rew, n, rand.NewSource(1), zerolog.Nop())
	if err != nil {
		panic(err)
	}
	return t
}

func newPose(cfg config.TaskConfig, n int) *GoToPose {
	t, err := NewGoToPose(cfg, rewardConfig(), n, rand.NewSource(1), zerolog.Nop())
	if err != nil {
		panic(err)
	}
	return t
}

// planarState builds a resting state from (x, y, heading) rows.
func planarState(poses ...[3]float64) State {
	n := len(poses)
	s := State{
		Position:        mat.NewDense(n, 2, nil),
		Orientation:     mat.NewDense(n, 2, nil),
		LinearVelocity:  mat.NewDense(n, 2, nil),
		AngularVelocity: make([]float64, n),
	}
	for i, p := range poses {
		s.Position.Set(i, 0, p[0])
		s.Position.Set(i, 1, p[1])
		s.Orientation.Set(i, 0, math.Cos(p[2]))
		s.Orientation.Set(i, 1, math.Sin(p[2]))
	}
	return s
}

func step(t Task, s State) ([]float64, []bool) {
	if _, err := t.StateObservations(s); err != nil {
		panic(err)
	}
	rew, err := t.ComputeReward(s, nil)
	if err != nil {
		panic(err)
	}
	return rew, t.UpdateKills()
}

func referencePoses(n int) (*mat.Dense, *mat.Dense) {
	positions := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		positions.SetRow(i, []float64{float64(i), -float64(i), 0.5})
	}
	q := [4]float64{1, 0, 0, 0}
	return positions, core.Tile(q[:], n)
}
