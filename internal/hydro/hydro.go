package hydro

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/core"
	"github.com/san-kum/usvsim/internal/logging"
)

// DOF is the width of every damping, velocity and drag row.
const DOF = 6

const minRowsPerWorker = 256

type Hydrodynamics struct {
	numEnvs int
	log     zerolog.Logger

	linearBase  [DOF]float64
	quadBase    [DOF]float64
	forward     [DOF]float64
	linearRange [DOF]float64
	quadRange   [DOF]float64

	offsetLinear  float64
	offsetForward float64
	offsetQuad    float64
	scaling       float64
	randomize     bool

	noise distuv.Uniform

	linear *mat.Dense
	quad   *mat.Dense
	drag   *mat.Dense
}

// New builds the per-environment coefficient tables. When randomization is
// enabled every environment receives an independent draw from src.
func New(cfg config.Hydrodynamics, numEnvs int, src rand.Source, log zerolog.Logger) (*Hydrodynamics, error) {
	if numEnvs <= 0 {
		return nil, core.Configf("hydrodynamics: num_envs must be positive, got %d", numEnvs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &Hydrodynamics{
		numEnvs:       numEnvs,
		log:           logging.Component(log, "hydro"),
		offsetLinear:  cfg.OffsetLinearDamping,
		offsetForward: cfg.OffsetLinForwardDampingSpeed,
		offsetQuad:    cfg.OffsetNonlinDamping,
		scaling:       cfg.ScalingDamping,
		randomize:     cfg.UseDragRandomization,
		noise:         distuv.Uniform{Min: -1, Max: 1, Src: src},
	}
	var err error
	if h.linearBase, err = core.Vec6("linear_damping", cfg.LinearDamping); err != nil {
		return nil, err
	}
	if h.quadBase, err = core.Vec6("quadratic_damping", cfg.QuadraticDamping); err != nil {
		return nil, err
	}
	if h.forward, err = core.Vec6("linear_damping_forward_speed", cfg.LinearDampingForwardSpeed); err != nil {
		return nil, err
	}

	if h.randomize {
		linRand, err := core.Vec6("linear_rand", cfg.LinearRand)
		if err != nil {
			return nil, err
		}
		quadRand, err := core.Vec6("quad_rand", cfg.QuadRand)
		if err != nil {
			return nil, err
		}
		for i := 0; i < DOF; i++ {
			h.linearRange[i] = linRand[i] * h.linearBase[i]
			h.quadRange[i] = quadRand[i] * h.quadBase[i]
		}
	}

	h.linear = core.Tile(h.linearBase[:], numEnvs)
	h.quad = core.Tile(h.quadBase[:], numEnvs)
	h.drag = mat.NewDense(numEnvs, DOF, nil)

	if h.randomize {
		h.perturb(core.AllEnvs(numEnvs))
	}

	h.log.Info().
		Int("envs", numEnvs).
		Bool("randomized", h.randomize).
		Floats64("linear_damping", h.linearBase[:]).
		Floats64("quadratic_damping", h.quadBase[:]).
		Msg("hydrodynamics initialized")

	return h, nil
}

func (h *Hydrodynamics) NumEnvs() int { return h.numEnvs }

// ResetCoefficients redraws the damping noise of the named environments.
// Other rows are not touched. It is a no-op without randomization.
func (h *Hydrodynamics) ResetCoefficients(envIDs core.EnvIDs) error {
	if err := envIDs.Validate(h.numEnvs); err != nil {
		return fmt.Errorf("reset coefficients: %w", err)
	}
	if !h.randomize || len(envIDs) == 0 {
		return nil
	}
	h.perturb(envIDs)
	h.log.Debug().Int("envs", len(envIDs)).Msg("damping coefficients redrawn")
	return nil
}

// perturb draws serially so a seeded source is reproducible.
func (h *Hydrodynamics) perturb(envIDs core.EnvIDs) {
	for _, e := range envIDs {
		lin := h.linear.RawRowView(e)
		quad := h.quad.RawRowView(e)
		for i := 0; i < DOF; i++ {
			lin[i] = h.linearBase[i] + h.noise.Rand()*h.linearRange[i]
		}
		for i := 0; i < DOF; i++ {
			quad[i] = h.quadBase[i] + h.noise.Rand()*h.quadRange[i]
		}
	}
}

// DampingMatrix returns the per-DOF damping coefficients for body-frame
// velocities vel (N x 6).
func (h *Hydrodynamics) DampingMatrix(vel mat.Matrix) (*mat.Dense, error) {
	if err := core.CheckShape("damping matrix", vel, h.numEnvs, DOF); err != nil {
		return nil, err
	}
	out := mat.NewDense(h.numEnvs, DOF, nil)
	core.ParallelFor(h.numEnvs, minRowsPerWorker, func(start, end int) {
		for e := start; e < end; e++ {
			h.dampingRow(out.RawRowView(e), e, func(i int) float64 { return vel.At(e, i) })
		}
	})
	return out, nil
}

func (h *Hydrodynamics) dampingRow(dst []float64, e int, v func(i int) float64) {
	lin := h.linear.RawRowView(e)
	quad := h.quad.RawRowView(e)
	for i := 0; i < DOF; i++ {
		l := lin[i] + h.offsetLinear - (h.forward[i] + h.offsetForward)
		q := (quad[i] + h.offsetQuad) * math.Abs(v(i))
		dst[i] = (l + q) * h.scaling
	}
}

// ComputeEffects returns the drag wrench (N x 6, body frame) for world-frame
// velocities worldVel (N x 6, linear then angular) and orientations quats
// (N x 4, w x y z). When useCurrent is set, current is either a single 1 x 3
// world-frame flow broadcast to every environment or one row per environment.
// The result is also kept as Drag.
func (h *Hydrodynamics) ComputeEffects(quats, worldVel mat.Matrix, useCurrent bool, current mat.Matrix) (*mat.Dense, error) {
	if err := core.CheckShape("hydrodynamics quaternions", quats, h.numEnvs, 4); err != nil {
		return nil, err
	}
	if err := core.CheckShape("hydrodynamics velocity", worldVel, h.numEnvs, DOF); err != nil {
		return nil, err
	}
	broadcast := false
	if useCurrent {
		if current == nil {
			return nil, &core.ShapeError{Op: "water current", WantRows: 1, WantCols: 3}
		}
		r, c := current.Dims()
		switch {
		case r == 1 && c == 3:
			broadcast = true
		case r == h.numEnvs && c == 3:
		default:
			return nil, &core.ShapeError{Op: "water current", WantRows: h.numEnvs, WantCols: 3, GotRows: r, GotCols: c}
		}
	}

	drag := mat.NewDense(h.numEnvs, DOF, nil)
	err := core.ParallelForErr(h.numEnvs, minRowsPerWorker, func(start, end int) error {
		var rel [DOF]float64
		damping := make([]float64, DOF)
		for e := start; e < end; e++ {
			q := [4]float64{quats.At(e, 0), quats.At(e, 1), quats.At(e, 2), quats.At(e, 3)}

			lin, err := core.ToBody(q, [3]float64{worldVel.At(e, 0), worldVel.At(e, 1), worldVel.At(e, 2)})
			if err != nil {
				return fmt.Errorf("env %d: %w: %w", e, core.ErrShapeMismatch, err)
			}
			ang, _ := core.ToBody(q, [3]float64{worldVel.At(e, 3), worldVel.At(e, 4), worldVel.At(e, 5)})

			if useCurrent {
				row := e
				if broadcast {
					row = 0
				}
				flow, _ := core.ToBody(q, [3]float64{current.At(row, 0), current.At(row, 1), current.At(row, 2)})
				for i := 0; i < 3; i++ {
					lin[i] -= flow[i]
				}
			}

			copy(rel[:3], lin[:])
			copy(rel[3:], ang[:])

			h.dampingRow(damping, e, func(i int) float64 { return rel[i] })
			out := drag.RawRowView(e)
			for i := 0; i < DOF; i++ {
				out[i] = -damping[i] * rel[i]
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("compute hydrodynamic effects: %w", err)
	}

	h.drag = drag
	return drag, nil
}

// Drag returns the wrench computed by the last ComputeEffects call.
func (h *Hydrodynamics) Drag() *mat.Dense {
	return h.drag
}

// LinearDamping exposes the per-environment linear coefficients (read only).
func (h *Hydrodynamics) LinearDamping() mat.Matrix {
	return h.linear
}

// QuadraticDamping exposes the per-environment quadratic coefficients (read only).
func (h *Hydrodynamics) QuadraticDamping() mat.Matrix {
	return h.quad
}
