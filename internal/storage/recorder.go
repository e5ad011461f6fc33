package storage

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/usvsim/internal/sim"
)

// StepRecord is the batch summary of one environment step.
type StepRecord struct {
	Step       int     `json:"step"`
	MeanReward float64 `json:"mean_reward"`
	DoneRate   float64 `json:"done_rate"`
}

// EpisodeRecord holds the episode means reported by one reset.
type EpisodeRecord struct {
	Step   int
	Extras map[string]float64
}

// Recorder collects step and episode records. It is a sim.Observer.
type Recorder struct {
	every    int
	Steps    []StepRecord
	Episodes []EpisodeRecord
}

// NewRecorder keeps every n-th step record; episode records are all kept.
func NewRecorder(every int) *Recorder {
	if every < 1 {
		every = 1
	}
	return &Recorder{every: every}
}

func (r *Recorder) OnStep(res *sim.StepResult) {
	if res.Extras != nil {
		r.Episodes = append(r.Episodes, EpisodeRecord{Step: res.Step, Extras: res.Extras})
	}
	if res.Step%r.every != 0 {
		return
	}
	n := float64(len(res.Rewards))
	done := 0
	for _, d := range res.Dones {
		if d {
			done++
		}
	}
	r.Steps = append(r.Steps, StepRecord{
		Step:       res.Step,
		MeanReward: floats.Sum(res.Rewards) / n,
		DoneRate:   float64(done) / n,
	})
}

// episodeKeys returns the sorted union of the extras names.
func (r *Recorder) episodeKeys() []string {
	seen := make(map[string]bool)
	for _, ep := range r.Episodes {
		for k := range ep.Extras {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
