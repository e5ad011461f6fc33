package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// runRecord is the queryable row kept for every saved run.
type runRecord struct {
	ID          string `gorm:"primaryKey"`
	Task        string `gorm:"index"`
	Platform    string
	Preset      string
	Policy      string `gorm:"index"`
	Integrator  string
	Timestamp   time.Time `gorm:"index"`
	Seed        uint64
	NumEnvs     int
	Dt          float64
	Steps       int
	MeanReward  float64
	SuccessRate float64
	Episodes    int
	Metrics     datatypes.JSONMap
}

func (runRecord) TableName() string { return "runs" }

// index is a SQLite catalogue of the runs under a store directory.
type index struct {
	db *gorm.DB
}

func openIndex(path string) (*index, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open run index %s: %w", path, err)
	}
	if err := db.AutoMigrate(&runRecord{}); err != nil {
		return nil, fmt.Errorf("migrate run index: %w", err)
	}
	return &index{db: db}, nil
}

func (ix *index) put(meta RunMetadata) error {
	metrics := make(datatypes.JSONMap, len(meta.Metrics))
	for k, v := range meta.Metrics {
		metrics[k] = v
	}
	rec := runRecord{
		ID:          meta.ID,
		Task:        meta.Task,
		Platform:    meta.Platform,
		Preset:      meta.Preset,
		Policy:      meta.Policy,
		Integrator:  meta.Integrator,
		Timestamp:   meta.Timestamp,
		Seed:        meta.Seed,
		NumEnvs:     meta.NumEnvs,
		Dt:          meta.Dt,
		Steps:       meta.Steps,
		MeanReward:  meta.MeanReward,
		SuccessRate: meta.SuccessRate,
		Episodes:    meta.Episodes,
		Metrics:     metrics,
	}
	return ix.db.Save(&rec).Error
}

// list returns the runs newest first, optionally restricted to one task.
func (ix *index) list(task string) ([]RunMetadata, error) {
	var recs []runRecord
	q := ix.db.Order("timestamp desc")
	if task != "" {
		q = q.Where("task = ?", task)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	runs := make([]RunMetadata, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, rec.metadata())
	}
	return runs, nil
}

func (ix *index) close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (rec runRecord) metadata() RunMetadata {
	meta := RunMetadata{
		ID:          rec.ID,
		Task:        rec.Task,
		Platform:    rec.Platform,
		Preset:      rec.Preset,
		Policy:      rec.Policy,
		Integrator:  rec.Integrator,
		Timestamp:   rec.Timestamp,
		Seed:        rec.Seed,
		NumEnvs:     rec.NumEnvs,
		Dt:          rec.Dt,
		Steps:       rec.Steps,
		MeanReward:  rec.MeanReward,
		SuccessRate: rec.SuccessRate,
		Episodes:    rec.Episodes,
		Metrics:     make(map[string]float64, len(rec.Metrics)),
	}
	for k, v := range rec.Metrics {
		if f, ok := metricValue(v); ok {
			meta.Metrics[k] = f
		}
	}
	return meta
}

// metricValue unpacks a JSON column value. Rows read back from SQLite hold
// json.Number; freshly built maps hold float64.
func metricValue(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	default:
		return 0, false
	}
}
