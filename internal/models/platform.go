package models

import (
	"math"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/core"
)

// State layout of a planar platform, world frame.
const (
	StateX = iota
	StateY
	StateYaw
	StateVX
	StateVY
	StateYawRate
	StateDim
)

// ControlDim is the width of the body-frame wrench [Fu, Fv, τ].
const ControlDim = 3

// Platform is a rigid body moving on the water plane. Its control is the
// body-frame wrench [surge force, sway force, yaw torque].
type Platform struct {
	Mass      float64
	Inertia   float64
	MaxThrust float64
	MaxTorque float64
}

func NewPlatform(cfg config.PlatformConfig) *Platform {
	return &Platform{
		Mass:      cfg.Mass,
		Inertia:   cfg.Inertia,
		MaxThrust: cfg.MaxThrust,
		MaxTorque: cfg.MaxTorque,
	}
}

func (p *Platform) StateDim() int   { return StateDim }
func (p *Platform) ControlDim() int { return ControlDim }

func (p *Platform) Derivative(x core.State, u core.Control, t float64) core.State {
	yaw, vx, vy, omega := x[StateYaw], x[StateVX], x[StateVY], x[StateYawRate]

	var fu, fv, tau float64
	if len(u) >= 3 {
		fu, fv, tau = u[0], u[1], u[2]
	}

	sin, cos := math.Sincos(yaw)
	fx := cos*fu - sin*fv
	fy := sin*fu + cos*fv

	return core.State{vx, vy, omega, fx / p.Mass, fy / p.Mass, tau / p.Inertia}
}

// Wrench scales an action in [-1, 1]^3 to a body-frame thrust wrench.
// Out-of-range commands saturate.
func (p *Platform) Wrench(action []float64) core.Control {
	u := make(core.Control, ControlDim)
	if len(action) < ControlDim {
		return u
	}
	u[0] = clamp(action[0]) * p.MaxThrust
	u[1] = clamp(action[1]) * p.MaxThrust
	u[2] = clamp(action[2]) * p.MaxTorque
	return u
}

func (p *Platform) KineticEnergy(x core.State) float64 {
	vx, vy, omega := x[StateVX], x[StateVY], x[StateYawRate]
	return 0.5*p.Mass*(vx*vx+vy*vy) + 0.5*p.Inertia*omega*omega
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
