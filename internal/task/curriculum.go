package task

import (
	"github.com/rs/zerolog"

	"github.com/san-kum/usvsim/internal/config"
)

// Curriculum schedules the spawn annulus over training steps.
type Curriculum struct {
	enabled     bool
	warmup, end int
	startMin    float64
	startMax    float64
	finalMin    float64
	finalMax    float64
}

// NewCurriculum falls back to the fixed [minDist, maxDist] range when the
// schedule is disabled or malformed.
func NewCurriculum(cfg config.CurriculumConfig, minDist, maxDist float64, log zerolog.Logger) Curriculum {
	c := Curriculum{
		enabled:  cfg.Enabled,
		warmup:   cfg.Warmup,
		end:      cfg.End,
		startMin: cfg.MinDist,
		startMax: cfg.MaxDist,
		finalMin: minDist,
		finalMax: maxDist,
	}
	if !c.enabled {
		return c
	}
	if cfg.End <= cfg.Warmup || cfg.Warmup < 0 || cfg.MinDist < 0 || cfg.MaxDist < cfg.MinDist {
		log.Debug().
			Int("warmup", cfg.Warmup).
			Int("end", cfg.End).
			Float64("min_dist", cfg.MinDist).
			Float64("max_dist", cfg.MaxDist).
			Msg("spawn curriculum malformed, using fixed spawn range")
		c.enabled = false
	}
	return c
}

func (c Curriculum) Enabled() bool { return c.enabled }

// Bounds returns the spawn radius range for a training step.
func (c Curriculum) Bounds(step int) (rmin, rmax float64) {
	if !c.enabled {
		return c.finalMin, c.finalMax
	}
	switch {
	case step < c.warmup:
		return c.startMin, c.startMax
	case step > c.end:
		return c.finalMin, c.finalMax
	}
	p := float64(step-c.warmup) / float64(c.end-c.warmup)
	return lerp(c.startMin, c.finalMin, p), lerp(c.startMax, c.finalMax, p)
}

// lerp is exact at both ends.
func lerp(a, b, p float64) float64 {
	return (1-p)*a + p*b
}
