package controllers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/usvsim/internal/task"
)

// ActionDim is the width of an action row: surge, sway and yaw commands.
const ActionDim = 3

// None commands zero thrust.
type None struct{}

func NewNone() *None {
	return &None{}
}

func (n *None) Name() string { return "none" }

func (n *None) Act(obs mat.Matrix) (*mat.Dense, error) {
	rows, err := checkObs(n.Name(), obs)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(rows, ActionDim, nil), nil
}

func checkObs(name string, obs mat.Matrix) (int, error) {
	if obs == nil {
		return 0, fmt.Errorf("policy %s: nil observations", name)
	}
	rows, cols := obs.Dims()
	if cols != task.ObservationDim {
		return 0, fmt.Errorf("policy %s: observations have %d columns, want %d", name, cols, task.ObservationDim)
	}
	return rows, nil
}
