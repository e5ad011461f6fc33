package core

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// EnvIDs selects the environment rows an operation is allowed to mutate.
type EnvIDs []int

// AllEnvs returns the ids 0..n-1.
func AllEnvs(n int) EnvIDs {
	ids := make(EnvIDs, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// Where returns the ids of the true entries of mask.
func Where(mask []bool) EnvIDs {
	ids := make(EnvIDs, 0)
	for i, v := range mask {
		if v {
			ids = append(ids, i)
		}
	}
	return ids
}

// Validate checks every id is a row of an n-environment batch.
func (ids EnvIDs) Validate(n int) error {
	for _, id := range ids {
		if id < 0 || id >= n {
			return fmt.Errorf("env id %d outside [0, %d): %w", id, n, ErrShapeMismatch)
		}
	}
	return nil
}

// CheckShape fails fast when m is nil or not rows x cols.
func CheckShape(op string, m mat.Matrix, rows, cols int) error {
	if m == nil {
		return &ShapeError{Op: op, WantRows: rows, WantCols: cols}
	}
	r, c := m.Dims()
	if r != rows || c != cols {
		return &ShapeError{Op: op, WantRows: rows, WantCols: cols, GotRows: r, GotCols: c}
	}
	return nil
}

// CheckLen fails fast when a per-environment slice has the wrong length.
func CheckLen(op string, got, want int) error {
	if got != want {
		return &ShapeError{Op: op, WantRows: want, WantCols: 1, GotRows: got, GotCols: 1}
	}
	return nil
}

// Tile returns an n x len(row) matrix whose rows are copies of row.
func Tile(row []float64, n int) *mat.Dense {
	c := len(row)
	data := make([]float64, n*c)
	for i := 0; i < n; i++ {
		copy(data[i*c:(i+1)*c], row)
	}
	return mat.NewDense(n, c, data)
}

// Vec6 copies a configuration slice into a fixed 6-DOF array.
func Vec6(name string, v []float64) ([6]float64, error) {
	var out [6]float64
	if len(v) != 6 {
		return out, Configf("%s: want 6 values (u, v, w, p, q, r), got %d", name, len(v))
	}
	copy(out[:], v)
	return out, nil
}
