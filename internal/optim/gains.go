package optim

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/controllers"
	"github.com/san-kum/usvsim/internal/logging"
	"github.com/san-kum/usvsim/internal/sim"
)

// GainObjective scores policy gains by the mean per-step reward of a
// seeded run of cfg. Every evaluation sees the same spawns and goals.
func GainObjective(cfg *config.Config, steps int, log zerolog.Logger) Objective {
	log = logging.Component(log, "optim")
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		c := cfg.Clone()
		for name, v := range params {
			if err := c.Policy.Set(name, v); err != nil {
				return 0, err
			}
		}
		env, err := sim.NewVecEnv(c, rand.NewSource(c.Env.Seed), zerolog.Nop())
		if err != nil {
			return 0, err
		}
		policy, err := controllers.New(c.Policy, rand.NewSource(c.Env.PolicySeed()))
		if err != nil {
			return 0, err
		}
		summary, err := env.Run(ctx, policy, steps)
		if err != nil {
			return 0, err
		}
		log.Debug().
			Interface("params", params).
			Float64("mean_reward", summary.MeanReward).
			Float64("success_rate", summary.Outcomes.SuccessRate()).
			Msg("evaluated")
		return summary.MeanReward, nil
	}
}
