package integrators

import (
	"math"

	"github.com/san-kum/usvsim/internal/core"
)

// Dormand-Prince 5(4) tableau. The last stage is evaluated at the solution
// (FSAL) and only feeds the error estimate.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	dpB  = [7]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0}
	dpB4 = [7]float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40}
)

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
	tol      float64

	k [7]core.State
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		tol:      1e-6,
	}
}

func (r *RK45) Step(dyn core.Dynamics, x core.State, u core.Control, t, dt float64) core.State {
	next, _ := r.StepAdaptive(dyn, x, u, t, dt, r.tol)
	return next
}

// StepAdaptive takes one fifth-order step of size dt and suggests the step
// size for the next call given the relative tolerance tol.
func (r *RK45) StepAdaptive(dyn core.Dynamics, x core.State, u core.Control, t, dt, tol float64) (core.State, float64) {
	n := len(x)
	stage := make(core.State, n)

	for s := 0; s < 7; s++ {
		for i := 0; i < n; i++ {
			acc := 0.0
			for j := 0; j < s; j++ {
				acc += dpA[s][j] * r.k[j][i]
			}
			stage[i] = x[i] + dt*acc
		}
		r.k[s] = dyn.Derivative(stage, u, t+dpC[s]*dt)
	}

	// the seventh stage point is the fifth-order solution
	next := stage

	errMax := 0.0
	for i := 0; i < n; i++ {
		est := 0.0
		for s := 0; s < 7; s++ {
			est += (dpB[s] - dpB4[s]) * r.k[s][i]
		}
		scale := math.Abs(x[i]) + math.Abs(dt*r.k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(dt*est)/scale)
	}

	ratio := errMax / tol
	switch {
	case ratio > 1:
		return next, dt * math.Max(r.minScale, r.safety*math.Pow(ratio, -0.25))
	case ratio > 0:
		return next, dt * math.Min(r.maxScale, r.safety*math.Pow(ratio, -0.2))
	default:
		return next, dt * r.maxScale
	}
}
