package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/metrics"
	"github.com/san-kum/usvsim/internal/sim"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	st := New(t.TempDir())
	require.NoError(t, st.Init())
	t.Cleanup(func() { st.Close() })
	return st
}

func recorded() *Recorder {
	rec := NewRecorder(1)
	rec.OnStep(&sim.StepResult{Step: 1, Rewards: []float64{1, 3}, Dones: []bool{false, true}})
	rec.OnStep(&sim.StepResult{
		Step:    2,
		Rewards: []float64{2, 2},
		Dones:   []bool{false, false},
		Extras:  map[string]float64{"position_error": 0.5, "action_effort": 0.25},
	})
	return rec
}

func TestRecorder(t *testing.T) {
	rec := recorded()
	require.Len(t, rec.Steps, 2)
	assert.Equal(t, StepRecord{Step: 1, MeanReward: 2, DoneRate: 0.5}, rec.Steps[0])
	require.Len(t, rec.Episodes, 1)
	assert.Equal(t, 2, rec.Episodes[0].Step)
	assert.Equal(t, []string{"action_effort", "position_error"}, rec.episodeKeys())

	sparse := NewRecorder(2)
	sparse.OnStep(&sim.StepResult{Step: 1, Rewards: []float64{1}, Dones: []bool{false}})
	sparse.OnStep(&sim.StepResult{Step: 2, Rewards: []float64{1}, Dones: []bool{false}})
	assert.Len(t, sparse.Steps, 1)
}

func TestStoreSaveLoad(t *testing.T) {
	st := newStore(t)

	runID, err := st.Save(RunMetadata{
		Task:        "go_to_xy",
		Policy:      "goal",
		Seed:        42,
		NumEnvs:     2,
		MeanReward:  1.5,
		SuccessRate: 0.25,
		Metrics:     map[string]float64{"position_error": 0.5},
	}, recorded())
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, meta.ID)
	assert.Equal(t, uint64(42), meta.Seed)
	assert.Equal(t, 0.5, meta.Metrics["position_error"])
	assert.False(t, meta.Timestamp.IsZero())

	steps, err := st.LoadSeries(runID)
	require.NoError(t, err)
	assert.Equal(t, recorded().Steps, steps)

	episodes, err := st.LoadEpisodes(runID)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, episodes["position_error"])
	assert.Equal(t, []float64{0.25}, episodes["action_effort"])
}

func TestStoreList(t *testing.T) {
	st := newStore(t)

	runs, err := st.List("")
	require.NoError(t, err)
	assert.Empty(t, runs)

	first, err := st.Save(RunMetadata{
		Task:       "go_to_xy",
		Integrator: "rk4",
		Dt:         0.02,
		Episodes:   7,
		Metrics:    map[string]float64{"kinetic_energy": 3, "position_error": 0.125},
	}, nil)
	require.NoError(t, err)
	second, err := st.Save(RunMetadata{Task: "go_to_pose"}, NewRecorder(1))
	require.NoError(t, err)

	runs, err = st.List("")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, map[string]float64{"kinetic_energy": 3, "position_error": 0.125}, runs[1].Metrics)
	assert.Equal(t, "rk4", runs[1].Integrator)
	assert.Equal(t, 0.02, runs[1].Dt)
	assert.Equal(t, 7, runs[1].Episodes)

	// The index and the run directory describe the same run.
	loaded, err := st.Load(first)
	require.NoError(t, err)
	loaded.Timestamp = runs[1].Timestamp
	assert.Equal(t, *loaded, runs[1])

	runs, err = st.List("go_to_pose")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second, runs[0].ID)
}

func TestStoreFileStructure(t *testing.T) {
	st := newStore(t)
	runID, err := st.Save(RunMetadata{Task: "go_to_xy"}, recorded())
	require.NoError(t, err)

	for _, name := range []string{metadataFile, stepsFile, episodesFile} {
		_, err := os.Stat(filepath.Join(st.baseDir, runID, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(st.baseDir, indexFile))
	assert.NoError(t, err)
}

func TestStoreRequiresInit(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Save(RunMetadata{Task: "go_to_xy"}, nil)
	assert.Error(t, err)
	_, err = st.List("")
	assert.Error(t, err)
}

func TestExportJSON(t *testing.T) {
	st := newStore(t)
	runID, err := st.Save(RunMetadata{Task: "go_to_pose", Policy: "random"}, recorded())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.ExportJSON(&buf, runID))

	var out ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, runID, out.Run.ID)
	assert.Equal(t, "random", out.Run.Policy)
	assert.Len(t, out.Steps, 2)
	assert.Contains(t, out.Episodes, "position_error")
}

func TestNewRunMetadata(t *testing.T) {
	cfg := config.GetPreset("mfp", "go_to_pose")
	summary := &sim.Summary{
		Steps:      100,
		MeanReward: 0.75,
		Outcomes:   metrics.Outcomes{Episodes: 4, Successes: 1},
		Extras:     map[string]float64{"heading_error": 0.1},
	}
	meta := NewRunMetadata(cfg, "mfp", "go_to_pose", "goal", summary)

	assert.Equal(t, config.TaskGoToPose, meta.Task)
	assert.Equal(t, "mfp", meta.Platform)
	assert.Equal(t, cfg.Env.NumEnvs, meta.NumEnvs)
	assert.Equal(t, cfg.Env.Integrator, meta.Integrator)
	assert.Equal(t, 100, meta.Steps)
	assert.Equal(t, 4, meta.Episodes)
	assert.Equal(t, 0.25, meta.SuccessRate)
	assert.Equal(t, 0.1, meta.Metrics["heading_error"])
}

func TestMetricValue(t *testing.T) {
	f, ok := metricValue(json.Number("2.5"))
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	f, ok = metricValue(1.5)
	assert.True(t, ok)
	assert.Equal(t, 1.5, f)

	_, ok = metricValue(json.Number("nope"))
	assert.False(t, ok)
	_, ok = metricValue("3")
	assert.False(t, ok)
}
