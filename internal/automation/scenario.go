// Package automation runs scripted sequences of simulation runs.
package automation

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/controllers"
	"github.com/san-kum/usvsim/internal/core"
	"github.com/san-kum/usvsim/internal/logging"
	"github.com/san-kum/usvsim/internal/sim"
	"github.com/san-kum/usvsim/internal/storage"
)

// Scenario defines a scripted simulation sequence.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run: a preset, optionally patched by Overrides,
// driven for Steps environment steps.
type ScenarioStep struct {
	Name   string `yaml:"name"`
	Preset string `yaml:"preset"`
	Steps  int    `yaml:"steps"`
	Save   bool   `yaml:"save"`
	// Overrides has the layout of a config file and is applied over the
	// preset.
	Overrides yaml.Node `yaml:"overrides"`
}

// StepOutcome is the result of one scenario step. RunID is empty unless the
// step was saved.
type StepOutcome struct {
	Name    string
	RunID   string
	Summary *sim.Summary
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, core.Configf("scenario %q has no steps", scenario.Name)
	}
	for i, step := range scenario.Steps {
		if _, _, _, err := step.Config(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.Steps <= 0 {
			return nil, core.Configf("step %d: steps must be positive, got %d", i+1, step.Steps)
		}
	}
	return &scenario, nil
}

// Config resolves the preset with the overrides applied and validated.
func (s *ScenarioStep) Config() (*config.Config, string, string, error) {
	platform, name, ok := strings.Cut(s.Preset, "/")
	if !ok {
		return nil, "", "", core.Configf("preset %q: want platform/name", s.Preset)
	}
	cfg := config.GetPreset(platform, name)
	if cfg == nil {
		return nil, "", "", core.Configf("unknown preset %q", s.Preset)
	}
	if !s.Overrides.IsZero() {
		if err := s.Overrides.Decode(cfg); err != nil {
			return nil, "", "", fmt.Errorf("overrides: %w", err)
		}
	}
	return cfg, platform, name, cfg.Validate()
}

// RunScenario executes every step in order. Steps marked Save are written
// to st, which may be nil when no step saves. Outcomes of the steps that
// completed are returned along with any error.
func RunScenario(ctx context.Context, scenario *Scenario, st *storage.Store, log zerolog.Logger) ([]StepOutcome, error) {
	log = logging.Component(log, "scenario").With().Str("scenario", scenario.Name).Logger()
	results := make([]StepOutcome, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("%s#%d", step.Preset, i+1)
		}
		log.Info().Int("step", i+1).Int("of", len(scenario.Steps)).Str("name", name).Msg("running")

		out, err := runStep(ctx, &step, st, log)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}
		out.Name = name
		results = append(results, out)
	}
	return results, nil
}

func runStep(ctx context.Context, step *ScenarioStep, st *storage.Store, log zerolog.Logger) (StepOutcome, error) {
	cfg, platform, preset, err := step.Config()
	if err != nil {
		return StepOutcome{}, err
	}
	env, err := sim.NewVecEnv(cfg, rand.NewSource(cfg.Env.Seed), log)
	if err != nil {
		return StepOutcome{}, err
	}
	policy, err := controllers.New(cfg.Policy, rand.NewSource(cfg.Env.PolicySeed()))
	if err != nil {
		return StepOutcome{}, err
	}

	var rec *storage.Recorder
	var observers []sim.Observer
	if step.Save {
		if st == nil {
			return StepOutcome{}, fmt.Errorf("step saves but no store was given")
		}
		rec = storage.NewRecorder(1)
		observers = append(observers, rec)
	}

	summary, err := env.Run(ctx, policy, step.Steps, observers...)
	if err != nil {
		return StepOutcome{}, err
	}
	out := StepOutcome{Summary: summary}
	if step.Save {
		out.RunID, err = st.Save(storage.NewRunMetadata(cfg, platform, preset, policy.Name(), summary), rec)
		if err != nil {
			return StepOutcome{}, err
		}
	}
	return out, nil
}
