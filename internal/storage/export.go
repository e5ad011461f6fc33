package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	Run      RunMetadata          `json:"run"`
	Steps    []StepRecord         `json:"steps"`
	Episodes map[string][]float64 `json:"episodes"`
}

// ExportJSON writes the metadata and both series of runID to w.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	steps, err := s.LoadSeries(runID)
	if err != nil {
		return err
	}
	episodes, err := s.LoadEpisodes(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Steps: steps, Episodes: episodes})
}
