package task

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

// taskCore holds the buffers and lifecycle shared by every task.
type taskCore struct {
	name    string
	label   float64
	numEnvs int
	cfg     config.TaskConfig
	log     zerolog.Logger

	unit       distuv.Uniform
	curriculum Curriculum

	targetPositions *mat.Dense
	goalReached     []int
	positionError   *mat.Dense
	positionDist    []float64
	obs             *mat.Dense

	observed bool
}

func newTaskCore(name string, label float64, cfg config.TaskConfig, numEnvs int, src rand.Source, log zerolog.Logger) (*taskCore, error) {
	if numEnvs <= 0 {
		return nil, core.Configf("task: num_envs must be positive, got %d", numEnvs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logging.Component(log, "task").With().Str("task", name).Logger()
	return &taskCore{
		name:            name,
		label:           label,
		numEnvs:         numEnvs,
		cfg:             cfg,
		log:             log,
		unit:            distuv.Uniform{Min: 0, Max: 1, Src: src},
		curriculum:      NewCurriculum(cfg.SpawnCurriculum, cfg.MinSpawnDist, cfg.MaxSpawnDist, log),
		targetPositions: mat.NewDense(numEnvs, 2, nil),
		goalReached:     make([]int, numEnvs),
		positionError:   mat.NewDense(numEnvs, 2, nil),
		positionDist:    make([]float64, numEnvs),
		obs:             mat.NewDense(numEnvs, ObservationDim, nil),
	}, nil
}

func (c *taskCore) Name() string             { return c.name }
func (c *taskCore) Label() float64           { return c.label }
func (c *taskCore) NumEnvs() int             { return c.numEnvs }
func (c *taskCore) Curriculum() Curriculum   { return c.curriculum }
func (c *taskCore) Targets() *mat.Dense      { return c.targetPositions }
func (c *taskCore) PositionDist() []float64  { return c.positionDist }
func (c *taskCore) Observations() *mat.Dense { return c.obs }

func (c *taskCore) GoalReached() []int {
	out := make([]int, c.numEnvs)
	copy(out, c.goalReached)
	return out
}

// observe computes the position error and fills the platform part of the
// observation. taskData fills the four task columns of row e.
func (c *taskCore) observe(state State, taskData func(e int, dst []float64)) (*mat.Dense, error) {
	if err := state.validate(c.numEnvs); err != nil {
		return nil, fmt.Errorf("%s observations: %w", c.name, err)
	}
	c.positionError.Sub(c.targetPositions, state.Position)

	for e := 0; e < c.numEnvs; e++ {
		row := c.obs.RawRowView(e)
		row[ObsCosYaw] = state.Orientation.At(e, 0)
		row[ObsSinYaw] = state.Orientation.At(e, 1)
		row[ObsVX] = state.LinearVelocity.At(e, 0)
		row[ObsVY] = state.LinearVelocity.At(e, 1)
		row[ObsYawRate] = state.AngularVelocity[e]
		row[ObsLabel] = c.label
		taskData(e, row[ObsTaskData:ObsTaskData+TaskDataDim])
	}
	c.observed = true

	out := mat.NewDense(c.numEnvs, ObservationDim, nil)
	out.Copy(c.obs)
	return out, nil
}

// beginReward enforces observe-then-reward ordering and refreshes the
// position distance.
func (c *taskCore) beginReward(actions mat.Matrix) error {
	if !c.observed {
		return fmt.Errorf("%s reward before observations: %w", c.name, core.ErrNotReady)
	}
	if actions != nil {
		if r, cols := actions.Dims(); r != c.numEnvs {
			return &core.ShapeError{Op: c.name + " actions", WantRows: c.numEnvs, WantCols: cols, GotRows: r, GotCols: cols}
		}
	}
	c.observed = false
	for e := 0; e < c.numEnvs; e++ {
		c.positionDist[e] = math.Hypot(c.positionError.At(e, 0), c.positionError.At(e, 1))
	}
	return nil
}

// advanceGoalReached zeroes the counter of environments out of tolerance and
// increments the others, so it counts consecutive in-tolerance steps.
func (c *taskCore) advanceGoalReached(inTolerance func(e int) bool) {
	for e := range c.goalReached {
		ind := 0
		if inTolerance(e) {
			ind = 1
		}
		c.goalReached[e] = c.goalReached[e]*ind + ind
	}
}

func (c *taskCore) UpdateKills() []bool {
	kill := make([]bool, c.numEnvs)
	for e := range kill {
		kill[e] = c.positionDist[e] > c.cfg.KillDist ||
			c.goalReached[e] >= c.cfg.KillAfterNStepsInTolerance
	}
	return kill
}

func (c *taskCore) Reset(envIDs core.EnvIDs) error {
	if err := envIDs.Validate(c.numEnvs); err != nil {
		return fmt.Errorf("%s reset: %w", c.name, err)
	}
	for _, e := range envIDs {
		c.goalReached[e] = 0
	}
	return nil
}

func (c *taskCore) checkPose(op string, envIDs core.EnvIDs, positions, orientations *mat.Dense) error {
	if err := envIDs.Validate(c.numEnvs); err != nil {
		return fmt.Errorf("%s %s: %w", c.name, op, err)
	}
	if err := core.CheckShape(c.name+" "+op+" positions", positions, c.numEnvs, 3); err != nil {
		return err
	}
	return core.CheckShape(c.name+" "+op+" orientations", orientations, c.numEnvs, 4)
}

// drawTargets samples a planar target in the goal box for each env and
// offsets the matching reference positions by it.
func (c *taskCore) drawTargets(envIDs core.EnvIDs, positions *mat.Dense) {
	grp := c.cfg.GoalRandomPosition
	for _, e := range envIDs {
		x := c.unit.Rand()*grp*2 - grp
		y := c.unit.Rand()*grp*2 - grp
		c.targetPositions.Set(e, 0, x)
		c.targetPositions.Set(e, 1, y)
		positions.Set(e, 0, positions.At(e, 0)+x)
		positions.Set(e, 1, positions.At(e, 1)+y)
	}
}

// Spawns places each named environment in an annulus around its target and
// draws its initial heading in [0, π). Radii follow the curriculum at step.
func (c *taskCore) Spawns(envIDs core.EnvIDs, positions, orientations *mat.Dense, step int) error {
	if err := c.checkPose("spawns", envIDs, positions, orientations); err != nil {
		return err
	}
	for _, e := range envIDs {
		c.goalReached[e] = 0
	}

	rmin, rmax := c.curriculum.Bounds(step)
	for _, e := range envIDs {
		r := c.unit.Rand()*(rmax-rmin) + rmin
		theta := c.unit.Rand() * 2 * math.Pi
		sin, cos := math.Sincos(theta)
		positions.Set(e, 0, positions.At(e, 0)+r*cos+c.targetPositions.At(e, 0))
		positions.Set(e, 1, positions.At(e, 1)+r*sin+c.targetPositions.At(e, 1))
	}
	for _, e := range envIDs {
		q := core.YawQuaternion(c.unit.Rand() * math.Pi)
		orientations.SetRow(e, q[:])
	}

	c.log.Debug().
		Int("envs", len(envIDs)).
		Int("step", step).
		Float64("rmin", rmin).
		Float64("rmax", rmax).
		Msg("spawned")
	return nil
}
