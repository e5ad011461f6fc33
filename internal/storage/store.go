package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/usvsim/internal/config"
	"github.com/san-kum/usvsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	stepsFile    = "steps.csv"
	episodesFile = "episodes.csv"
	indexFile    = "runs.db"
)

// Store keeps one directory per run plus a SQLite index of all runs.
type Store struct {
	baseDir string
	index   *index
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	ix, err := openIndex(filepath.Join(s.baseDir, indexFile))
	if err != nil {
		return err
	}
	s.index = ix
	return nil
}

func (s *Store) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.close()
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Task        string             `json:"task"`
	Platform    string             `json:"platform"`
	Preset      string             `json:"preset"`
	Policy      string             `json:"policy"`
	Integrator  string             `json:"integrator"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        uint64             `json:"seed"`
	NumEnvs     int                `json:"num_envs"`
	Dt          float64            `json:"dt"`
	Steps       int                `json:"steps"`
	MeanReward  float64            `json:"mean_reward"`
	SuccessRate float64            `json:"success_rate"`
	Episodes    int                `json:"episodes"`
	Metrics     map[string]float64 `json:"metrics"`
}

// NewRunMetadata describes a finished run of cfg. platform and preset name
// the preset cfg was built from.
func NewRunMetadata(cfg *config.Config, platform, preset, policy string, summary *sim.Summary) RunMetadata {
	return RunMetadata{
		Task:        cfg.Task.Name,
		Platform:    platform,
		Preset:      preset,
		Policy:      policy,
		Integrator:  cfg.Env.Integrator,
		Seed:        cfg.Env.Seed,
		NumEnvs:     cfg.Env.NumEnvs,
		Dt:          cfg.Env.Dt,
		Steps:       summary.Steps,
		MeanReward:  summary.MeanReward,
		SuccessRate: summary.Outcomes.SuccessRate(),
		Episodes:    summary.Outcomes.Episodes,
		Metrics:     summary.Extras,
	}
}

// Save writes meta and the recorded series under a new run id and indexes
// the run. meta.ID and meta.Timestamp are filled in.
func (s *Store) Save(meta RunMetadata, rec *Recorder) (string, error) {
	if s.index == nil {
		return "", fmt.Errorf("store %s: Init not called", s.baseDir)
	}
	meta.Timestamp = time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Task, meta.Timestamp.UnixNano())
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeSteps(filepath.Join(runDir, stepsFile), rec); err != nil {
		return "", err
	}
	if err := writeEpisodes(filepath.Join(runDir, episodesFile), rec); err != nil {
		return "", err
	}
	if err := s.index.put(meta); err != nil {
		return "", fmt.Errorf("index run %s: %w", meta.ID, err)
	}
	return meta.ID, nil
}

// List returns every indexed run, newest first. A non-empty task filters.
func (s *Store) List(task string) ([]RunMetadata, error) {
	if s.index == nil {
		return nil, fmt.Errorf("store %s: Init not called", s.baseDir)
	}
	return s.index.list(task)
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSeries reads the step records of a run.
func (s *Store) LoadSeries(runID string) ([]StepRecord, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, stepsFile))
	if err != nil {
		return nil, err
	}
	steps := make([]StepRecord, 0, len(records))
	for _, record := range records {
		if len(record) < 3 {
			continue
		}
		step, err := strconv.Atoi(record[0])
		if err != nil {
			continue
		}
		reward, err1 := strconv.ParseFloat(record[1], 64)
		done, err2 := strconv.ParseFloat(record[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		steps = append(steps, StepRecord{Step: step, MeanReward: reward, DoneRate: done})
	}
	return steps, nil
}

// LoadEpisodes reads the episode means of a run, one series per statistic.
func (s *Store) LoadEpisodes(runID string) (map[string][]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, episodesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float64)
	if len(all) == 0 {
		return out, nil
	}
	header := all[0]
	for _, record := range all[1:] {
		for j := 1; j < len(record) && j < len(header); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				continue
			}
			out[header[j]] = append(out[header[j]], val)
		}
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSteps(path string, rec *Recorder) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"step", "mean_reward", "done_rate"}); err != nil {
		return err
	}
	if rec != nil {
		for _, r := range rec.Steps {
			row := []string{strconv.Itoa(r.Step), formatFloat(r.MeanReward), formatFloat(r.DoneRate)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func writeEpisodes(path string, rec *Recorder) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var keys []string
	if rec != nil {
		keys = rec.episodeKeys()
	}
	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"step"}, keys...)); err != nil {
		return err
	}
	if rec != nil {
		for _, ep := range rec.Episodes {
			row := []string{strconv.Itoa(ep.Step)}
			for _, k := range keys {
				row = append(row, formatFloat(ep.Extras[k]))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// readCSV returns the records after the header.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]string{}, nil
	}
	return records[1:], nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}
