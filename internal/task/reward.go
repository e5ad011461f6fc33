package task

import (
	"fmt"
	"math"

	"github.com/san-kum/usvsim/internal/core"
)

// Reward shaping modes.
const (
	ModeLinear      = "linear"
	ModeSquare      = "square"
	ModeExponential = "exponential"
)

// Shaping maps a non-negative error distance to a bounded reward.
type Shaping struct {
	Mode  string
	Coeff float64
	Scale float64
}

func NewShaping(mode string, coeff, scale float64) (Shaping, error) {
	switch mode {
	case ModeLinear, ModeSquare:
	case ModeExponential:
		if coeff <= 0 {
			return Shaping{}, core.Configf("exponential reward coefficient must be positive, got %f", coeff)
		}
	default:
		return Shaping{}, fmt.Errorf("reward mode %q: %w", mode, core.ErrUnsupportedMode)
	}
	return Shaping{Mode: mode, Coeff: coeff, Scale: scale}, nil
}

func (s Shaping) Reward(d float64) float64 {
	switch s.Mode {
	case ModeLinear:
		return s.Scale / (1 + d)
	case ModeSquare:
		return s.Scale / (1 + d*d)
	default:
		return s.Scale * math.Exp(-d/s.Coeff)
	}
}

// boundaryPenalty is -exp(-(dist - killDist)/0.25) * cost for boundaryDist = dist - killDist.
func boundaryPenalty(boundaryDist, cost float64) float64 {
	return -math.Exp(-boundaryDist/0.25) * cost
}
