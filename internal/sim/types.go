package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/usvsim/internal/metrics"
)

// StepResult is what one VecEnv.Step hands back to the learner.
type StepResult struct {
	Step         int
	Observations *mat.Dense // N x task.ObservationDim
	Rewards      []float64
	Dones        []bool
	// Extras holds per-step episode means of the environments reset at the
	// start of this step. Nil when no environment was reset.
	Extras map[string]float64
}

// Summary aggregates a Run.
type Summary struct {
	Steps      int
	MeanReward float64
	Outcomes   metrics.Outcomes
	Extras     map[string]float64
}

type Observer interface {
	OnStep(res *StepResult)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(res *StepResult)

func (f ObserverFunc) OnStep(res *StepResult) { f(res) }

// SimError reports a non-finite platform state.
type SimError struct {
	Time    float64
	Step    int
	Env     int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f) env %d: %s", e.Step, e.Time, e.Env, e.Message)
}
