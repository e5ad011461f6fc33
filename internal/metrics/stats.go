package metrics

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/usvsim/internal/core"
)

// Stats accumulates named per-environment running sums across an episode.
type Stats struct {
	numEnvs int
	sums    map[string][]float64
}

func NewStats(numEnvs int) *Stats {
	return &Stats{
		numEnvs: numEnvs,
		sums:    make(map[string][]float64),
	}
}

func (s *Stats) NumEnvs() int { return s.numEnvs }

// Ensure registers name with zeroed sums. Existing sums are kept.
func (s *Stats) Ensure(name string) {
	if _, ok := s.sums[name]; !ok {
		s.sums[name] = make([]float64, s.numEnvs)
	}
}

// Add accumulates one value per environment into name.
func (s *Stats) Add(name string, values []float64) error {
	if err := core.CheckLen("stats "+name, len(values), s.numEnvs); err != nil {
		return err
	}
	s.Ensure(name)
	floats.Add(s.sums[name], values)
	return nil
}

// Get returns the live sums for name, or nil when unknown.
func (s *Stats) Get(name string) []float64 {
	return s.sums[name]
}

func (s *Stats) Names() []string {
	names := make([]string, 0, len(s.sums))
	for name := range s.sums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EpisodeMeans averages every statistic over envIDs and normalises by the
// episode length, giving a per-step mean for the finished episodes.
func (s *Stats) EpisodeMeans(envIDs core.EnvIDs, episodeLength int) map[string]float64 {
	out := make(map[string]float64, len(s.sums))
	if len(envIDs) == 0 || episodeLength <= 0 {
		return out
	}
	picked := make([]float64, len(envIDs))
	for name, sums := range s.sums {
		for i, e := range envIDs {
			picked[i] = sums[e]
		}
		out[name] = floats.Sum(picked) / float64(len(envIDs)) / float64(episodeLength)
	}
	return out
}

// ResetEnvs zeroes every statistic for envIDs only.
func (s *Stats) ResetEnvs(envIDs core.EnvIDs) {
	for _, sums := range s.sums {
		for _, e := range envIDs {
			sums[e] = 0
		}
	}
}
