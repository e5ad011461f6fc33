package sim

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/core"
)

// PolicyFactory builds a fresh policy for one ensemble member.
type PolicyFactory func(src rand.Source) (core.Policy, error)

// Ensemble runs independent copies of one configuration with consecutive
// seeds, each VecEnv on its own goroutine.
type Ensemble struct {
	cfg       *config.Config
	numRuns   int
	seedStart uint64
	policy    PolicyFactory
	log       zerolog.Logger
}

func NewEnsemble(cfg *config.Config, numRuns int, seedStart uint64, policy PolicyFactory, log zerolog.Logger) *Ensemble {
	return &Ensemble{cfg: cfg, numRuns: numRuns, seedStart: seedStart, policy: policy, log: log}
}

// Run returns one summary per member, in seed order. The first failure
// cancels the remaining members.
func (e *Ensemble) Run(ctx context.Context, steps int) ([]*Summary, error) {
	results := make([]*Summary, e.numRuns)
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			cfg := e.cfg.Clone()
			cfg.Env.Seed = e.seedStart + uint64(idx)

			env, err := NewVecEnv(cfg, rand.NewSource(cfg.Env.Seed), e.log.With().Int("member", idx).Logger())
			if err != nil {
				return err
			}
			policy, err := e.policy(rand.NewSource(cfg.Env.PolicySeed()))
			if err != nil {
				return err
			}
			results[idx], err = env.Run(ctx, policy, steps)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
