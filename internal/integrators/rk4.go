package integrators

import "github.com/san-kum/usvsim/internal/core"

// RK4 is the classic fourth-order Runge-Kutta step. The control is held
// constant across the stages.
type RK4 struct {
	k1, k2, k3, k4 core.State
	scratch        core.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(core.State, n)
		r.k2 = make(core.State, n)
		r.k3 = make(core.State, n)
		r.k4 = make(core.State, n)
		r.scratch = make(core.State, n)
	}
}

func (r *RK4) stage(dst core.State, dyn core.Dynamics, x, k core.State, u core.Control, t, h float64) {
	for i := range x {
		r.scratch[i] = x[i] + h*k[i]
	}
	copy(dst, dyn.Derivative(r.scratch, u, t))
}

func (r *RK4) Step(dyn core.Dynamics, x core.State, u core.Control, t, dt float64) core.State {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k1, dyn.Derivative(x, u, t))
	half := 0.5 * dt
	r.stage(r.k2, dyn, x, r.k1, u, t+half, half)
	r.stage(r.k3, dyn, x, r.k2, u, t+half, half)
	r.stage(r.k4, dyn, x, r.k3, u, t+dt, dt)

	next := make(core.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		next[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return next
}
