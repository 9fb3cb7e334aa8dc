package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dataveil/dataveil/cache"
	"github.com/dataveil/dataveil/checkpoint"
	"github.com/dataveil/dataveil/util"
)

type TableReport struct {
	Table    string  `json:"Table"`
	Status   string  `json:"Status"`
	Rows     int64   `json:"Rows"`
	Failed   int64   `json:"Failed"`
	Duration float64 `json:"DurationSeconds"`
}

type Report struct {
	RunID      string        `json:"RunID"`
	Database   string        `json:"Database"`
	ConfigHash string        `json:"ConfigHash"`
	DryRun     bool          `json:"DryRun"`
	StartedAt  time.Time     `json:"StartedAt"`
	FinishedAt time.Time     `json:"FinishedAt"`
	Tables     []TableReport `json:"Tables"`
	Rows       int64         `json:"Rows"`
	Failed     int64         `json:"Failed"`

	TablesFailed int         `json:"TablesFailed"`
	Cache        cache.Stats `json:"Cache"`

	FailureLog string `json:"FailureLog,omitempty"`
	Path       string `json:"-"`
}

func (e *Engine) buildReport(started time.Time, results []tableResult) *Report {
	r := &Report{
		RunID:      e.runID,
		Database:   e.dbName,
		ConfigHash: e.doc.Hash,
		DryRun:     e.doc.Global.DryRun,
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
		Cache:      e.cache.Stats(),
	}
	if e.flog != nil && e.flog.Count() > 0 {
		r.FailureLog = e.flog.Path()
	}
	r.Tables = util.TransformSlice(results, func(res tableResult) TableReport {
		return TableReport{
			Table:    res.Table,
			Status:   string(res.Status),
			Rows:     res.Rows,
			Failed:   res.Failed,
			Duration: res.Duration.Seconds(),
		}
	})
	for _, res := range results {
		r.Rows += res.Rows
		r.Failed += res.Failed
		if res.Status == checkpoint.StatusFailed {
			r.TablesFailed++
		}
	}
	return r
}

func (e *Engine) writeReport(r *Report) (string, error) {
	path := e.doc.PostProcessing.ReportPath
	if path == "" {
		path = filepath.Join("reports",
			fmt.Sprintf("%s-obfuscation-%s.json", e.dbName, r.FinishedAt.Format("20060102T150405Z")))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, raw, 0o644)
}
