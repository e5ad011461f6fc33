package task

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/core"
)

type constructor func(cfg config.TaskConfig, rew config.RewardConfig, numEnvs int, src rand.Source, log zerolog.Logger) (Task, error)

var registry = map[string]constructor{
	config.TaskGoToXY: func(cfg config.TaskConfig, rew config.RewardConfig, numEnvs int, src rand.Source, log zerolog.Logger) (Task, error) {
		t, err := NewGoToXY(cfg, rew, numEnvs, src, log)
		if err != nil {
			return nil, err
		}
		return t, nil
	},
	config.TaskGoToPose: func(cfg config.TaskConfig, rew config.RewardConfig, numEnvs int, src rand.Source, log zerolog.Logger) (Task, error) {
		t, err := NewGoToPose(cfg, rew, numEnvs, src, log)
		if err != nil {
			return nil, err
		}
		return t, nil
	},
}

// New builds the task named by cfg.Name.
func New(cfg config.TaskConfig, rew config.RewardConfig, numEnvs int, src rand.Source, log zerolog.Logger) (Task, error) {
	fn, ok := registry[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("task %q: %w", cfg.Name, core.ErrUnsupportedMode)
	}
	return fn(cfg, rew, numEnvs, src, log)
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
