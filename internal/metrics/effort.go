package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ActionEffort is the mean absolute command of each action row.
func ActionEffort(actions mat.Matrix) []float64 {
	r, c := actions.Dims()
	out := make([]float64, r)
	if c == 0 {
		return out
	}
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			sum += math.Abs(actions.At(i, j))
		}
		out[i] = sum / float64(c)
	}
	return out
}
