package controllers

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Random draws every action component uniformly from [-1, 1].
type Random struct {
	dist distuv.Uniform
}

func NewRandom(src rand.Source) *Random {
	return &Random{dist: distuv.Uniform{Min: -1, Max: 1, Src: src}}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Act(obs mat.Matrix) (*mat.Dense, error) {
	rows, err := checkObs(r.Name(), obs)
	if err != nil {
		return nil, err
	}
	data := make([]float64, rows*ActionDim)
	for i := range data {
		data[i] = r.dist.Rand()
	}
	return mat.NewDense(rows, ActionDim, data), nil
}
