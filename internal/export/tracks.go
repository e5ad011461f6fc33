// Package export renders recorded platform trajectories for offline viewing.
package export

import (
	"github.com/san-kum/usvsim/internal/models"
	"github.com/san-kum/usvsim/internal/sim"
)

type Point struct{ X, Y float64 }

// Track is the path of one env over one episode.
type Track struct {
	Env    int
	Points []Point
	Goal   Point
	// Done is set once the episode ended inside the recording.
	Done bool
}

// Tracks is a sim.Observer that records the platform positions of a few
// environments, one Track per episode.
type Tracks struct {
	env      *sim.VecEnv
	follow   []int
	open     []*Track
	finished []Track
}

var _ sim.Observer = (*Tracks)(nil)

// NewTracks follows the given envs. Out of range ids are ignored.
func NewTracks(env *sim.VecEnv, envIDs ...int) *Tracks {
	t := &Tracks{env: env}
	for _, e := range envIDs {
		if e >= 0 && e < env.NumEnvs() {
			t.follow = append(t.follow, e)
		}
	}
	t.open = make([]*Track, len(t.follow))
	return t
}

func (t *Tracks) OnStep(res *sim.StepResult) {
	goals, _ := t.env.Goals()
	for i, e := range t.follow {
		tr := t.open[i]
		if tr == nil {
			tr = &Track{Env: e}
			t.open[i] = tr
		}
		x := t.env.PlatformState(e)
		tr.Points = append(tr.Points, Point{x[models.StateX], x[models.StateY]})
		tr.Goal = Point{goals.At(e, 0), goals.At(e, 1)}

		if res.Dones[e] {
			tr.Done = true
			t.finished = append(t.finished, *tr)
			t.open[i] = nil
		}
	}
}

// Episodes returns finished tracks in completion order followed by the
// ones still running.
func (t *Tracks) Episodes() []Track {
	out := append([]Track(nil), t.finished...)
	for _, tr := range t.open {
		if tr != nil && len(tr.Points) > 0 {
			out = append(out, *tr)
		}
	}
	return out
}
