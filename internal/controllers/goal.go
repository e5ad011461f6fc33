package controllers

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/core"
	"github.com/san-kum/usvsim/internal/task"
)

// GoalSeeker is a PD controller on the task observation. Far from the goal
// it turns toward the goal bearing; inside AlignRadius a GoToPose env turns
// to the target heading instead. Translation is commanded in the body frame
// with the body velocity as the derivative term.
type GoalSeeker struct {
	SurgeGain   float64
	HeadingGain float64
	YawDamping  float64
	AlignRadius float64
}

func NewGoalSeeker(cfg config.PolicyConfig) *GoalSeeker {
	return &GoalSeeker{
		SurgeGain:   cfg.SurgeGain,
		HeadingGain: cfg.HeadingGain,
		YawDamping:  cfg.YawDamping,
		AlignRadius: cfg.AlignRadius,
	}
}

func (g *GoalSeeker) Name() string { return "goal" }

func (g *GoalSeeker) Act(obs mat.Matrix) (*mat.Dense, error) {
	rows, err := checkObs(g.Name(), obs)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, ActionDim, nil)
	core.ParallelFor(rows, 256, func(start, end int) {
		for e := start; e < end; e++ {
			g.act(out.RawRowView(e), obs, e)
		}
	})
	return out, nil
}

func (g *GoalSeeker) act(dst []float64, obs mat.Matrix, e int) {
	cos, sin := obs.At(e, task.ObsCosYaw), obs.At(e, task.ObsSinYaw)
	dx, dy := obs.At(e, task.ObsTaskData), obs.At(e, task.ObsTaskData+1)

	// World to body: rotate by -ψ.
	ex := cos*dx + sin*dy
	ey := -sin*dx + cos*dy
	vx := cos*obs.At(e, task.ObsVX) + sin*obs.At(e, task.ObsVY)
	vy := -sin*obs.At(e, task.ObsVX) + cos*obs.At(e, task.ObsVY)

	var headingErr float64
	dist := math.Hypot(dx, dy)
	switch {
	case dist > g.AlignRadius:
		headingErr = core.WrapToPi(math.Atan2(dy, dx) - math.Atan2(sin, cos))
	case obs.At(e, task.ObsLabel) == task.LabelGoToPose:
		headingErr = math.Atan2(obs.At(e, task.ObsTaskData+3), obs.At(e, task.ObsTaskData+2))
	}

	dst[0] = clamp(g.SurgeGain * (ex - vx))
	dst[1] = clamp(g.SurgeGain * (ey - vy))
	dst[2] = clamp(g.HeadingGain*headingErr - g.YawDamping*obs.At(e, task.ObsYawRate))
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
