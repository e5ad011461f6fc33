// Package optim searches policy parameters against a scored objective.
package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/usvsim/internal/core"
)

// Param is one searched dimension and the values tried for it.
type Param struct {
	Name   string
	Values []float64
}

// Objective scores one parameter assignment. Higher is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

type Result struct {
	Params    map[string]float64
	Score     float64
	Evaluated int
}

// GridSearch evaluates the full cartesian product of its params.
type GridSearch struct {
	params []Param
}

func NewGridSearch(params ...Param) (*GridSearch, error) {
	if len(params) == 0 {
		return nil, core.Configf("grid search needs at least one parameter")
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if len(p.Values) == 0 {
			return nil, core.Configf("grid search parameter %q has no values", p.Name)
		}
		if seen[p.Name] {
			return nil, core.Configf("grid search parameter %q given twice", p.Name)
		}
		seen[p.Name] = true
	}
	return &GridSearch{params: params}, nil
}

// Size is the number of objective evaluations Search performs.
func (g *GridSearch) Size() int {
	n := 1
	for _, p := range g.params {
		n *= len(p.Values)
	}
	return n
}

// Search returns the best-scoring assignment. Ties keep the first one
// found; NaN scores never win.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (*Result, error) {
	best := &Result{Score: math.Inf(-1)}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64, len(g.params)), objective, best); err != nil {
		return nil, err
	}
	if best.Params == nil {
		return nil, fmt.Errorf("grid search: no finite score in %d evaluations", best.Evaluated)
	}
	return best, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, objective Objective, best *Result) error {
	if depth == len(g.params) {
		if err := ctx.Err(); err != nil {
			return err
		}
		score, err := objective(ctx, current)
		if err != nil {
			return fmt.Errorf("evaluate %v: %w", current, err)
		}
		best.Evaluated++
		if score > best.Score {
			best.Score = score
			best.Params = make(map[string]float64, len(current))
			for k, v := range current {
				best.Params[k] = v
			}
		}
		return nil
	}

	p := g.params[depth]
	for _, val := range p.Values {
		current[p.Name] = val
		if err := g.searchRecursive(ctx, depth+1, current, objective, best); err != nil {
			return err
		}
	}
	delete(current, p.Name)
	return nil
}
