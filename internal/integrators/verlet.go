package integrators

import "github.com/san-kum/usvsim/internal/core"

// Verlet and Leapfrog expect states laid out as positions followed by the
// matching velocities, e.g. [x, y, ψ, vx, vy, ω].

// Verlet is the velocity Verlet scheme.
type Verlet struct {
	scratch core.State
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(dyn core.Dynamics, x core.State, u core.Control, t, dt float64) core.State {
	n := len(x)
	half := n / 2
	if len(v.scratch) != n {
		v.scratch = make(core.State, n)
	}

	next := make(core.State, n)
	acc := dyn.Derivative(x, u, t)
	for i := 0; i < half; i++ {
		next[i] = x[i] + x[half+i]*dt + 0.5*acc[half+i]*dt*dt
	}

	copy(v.scratch[:half], next[:half])
	copy(v.scratch[half:], x[half:])
	accNew := dyn.Derivative(v.scratch, u, t+dt)

	for i := 0; i < half; i++ {
		next[half+i] = x[half+i] + 0.5*(acc[half+i]+accNew[half+i])*dt
	}
	return next
}

// Leapfrog is the kick-drift-kick scheme.
type Leapfrog struct {
	scratch core.State
}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(dyn core.Dynamics, x core.State, u core.Control, t, dt float64) core.State {
	n := len(x)
	half := n / 2
	if len(l.scratch) != n {
		l.scratch = make(core.State, n)
	}

	acc := dyn.Derivative(x, u, t)
	for i := 0; i < half; i++ {
		l.scratch[half+i] = x[half+i] + 0.5*dt*acc[half+i]
	}

	next := make(core.State, n)
	for i := 0; i < half; i++ {
		next[i] = x[i] + l.scratch[half+i]*dt
		l.scratch[i] = next[i]
	}

	accNew := dyn.Derivative(l.scratch, u, t+dt)
	for i := 0; i < half; i++ {
		next[half+i] = l.scratch[half+i] + 0.5*dt*accNew[half+i]
	}
	return next
}
