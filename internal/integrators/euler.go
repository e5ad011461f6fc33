package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/usvsim/internal/core"
)

// Euler is the explicit first-order step x + dt·f(x, u, t). It is the
// cheapest option and only stable for small dt relative to the damping.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (Euler) Step(dyn core.Dynamics, x core.State, u core.Control, t, dt float64) core.State {
	return floats.AddScaledTo(make(core.State, len(x)), x, dt, dyn.Derivative(x, u, t))
}
