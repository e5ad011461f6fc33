package controllers

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/core"
)

type factory func(cfg config.PolicyConfig, src rand.Source) core.Policy

var registry = map[string]factory{
	"none":   func(config.PolicyConfig, rand.Source) core.Policy { return NewNone() },
	"random": func(_ config.PolicyConfig, src rand.Source) core.Policy { return NewRandom(src) },
	"goal":   func(cfg config.PolicyConfig, _ rand.Source) core.Policy { return NewGoalSeeker(cfg) },
}

// New builds the policy named by cfg.Name.
func New(cfg config.PolicyConfig, src rand.Source) (core.Policy, error) {
	fn, ok := registry[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("policy %q: %w", cfg.Name, core.ErrUnsupportedMode)
	}
	return fn(cfg, src), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
