package task

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/usvsim/internal/core"
	"github.com/san-kum/usvsim/internal/metrics"
)

// Observation columns: [cos ψ, sin ψ, vx, vy, ωz, task label, task data(4)].
// Task data is [dx, dy, cos he, sin he]; GoToXY leaves the heading terms 0.
const (
	ObsCosYaw = iota
	ObsSinYaw
	ObsVX
	ObsVY
	ObsYawRate
	ObsLabel
	ObsTaskData

	TaskDataDim    = 4
	ObservationDim = ObsTaskData + TaskDataDim
)

// Task labels written into the observation.
const (
	LabelGoToXY   = 0.0
	LabelGoToPose = 1.0
)

// State is the platform state of every environment, in the frame of its own
// environment origin.
type State struct {
	Position        *mat.Dense // N x 2
	Orientation     *mat.Dense // N x 2, cos and sin of the heading
	LinearVelocity  *mat.Dense // N x 2
	AngularVelocity []float64  // N
}

func (s State) validate(n int) error {
	if err := core.CheckShape("state position", s.Position, n, 2); err != nil {
		return err
	}
	if err := core.CheckShape("state orientation", s.Orientation, n, 2); err != nil {
		return err
	}
	if err := core.CheckShape("state linear velocity", s.LinearVelocity, n, 2); err != nil {
		return err
	}
	return core.CheckLen("state angular velocity", len(s.AngularVelocity), n)
}

// Task is a goal-conditioned episode state machine over N environments.
type Task interface {
	Name() string
	Label() float64
	NumEnvs() int

	StateObservations(state State) (*mat.Dense, error)
	ComputeReward(state State, actions mat.Matrix) ([]float64, error)
	UpdateKills() []bool

	CreateStats(stats *metrics.Stats)
	UpdateStatistics(stats *metrics.Stats) error

	Reset(envIDs core.EnvIDs) error
	Goals(envIDs core.EnvIDs, positions, orientations *mat.Dense) error
	Spawns(envIDs core.EnvIDs, positions, orientations *mat.Dense, step int) error

	GoalReached() []int
	Targets() *mat.Dense
}
