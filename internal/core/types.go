package core

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// State is the integration state of a single environment.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Control is the generalized force applied to a single environment.
type Control []float64

// Dynamics is an ODE dX/dt = f(X, u, t) for a single environment.
type Dynamics interface {
	Derivative(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Integrator advances a single environment by dt. Implementations may keep
// scratch buffers and must not be shared between goroutines.
type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t float64, dt float64) State
}

// Policy maps a batch of observations to a batch of actions in [-1, 1].
type Policy interface {
	Name() string
	Act(obs mat.Matrix) (*mat.Dense, error)
}
