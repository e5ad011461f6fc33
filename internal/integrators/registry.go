package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/usvsim/internal/core"
)

var registry = map[string]func() core.Integrator{
	"euler":    func() core.Integrator { return NewEuler() },
	"rk4":      func() core.Integrator { return NewRK4() },
	"rk45":     func() core.Integrator { return NewRK45() },
	"verlet":   func() core.Integrator { return NewVerlet() },
	"leapfrog": func() core.Integrator { return NewLeapfrog() },
}

// New returns a fresh integrator. Integrators keep scratch state, so each
// worker needs its own.
func New(name string) (core.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("integrator %q: %w", name, core.ErrUnsupportedMode)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
