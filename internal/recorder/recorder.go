package recorder

import (
	"time"

	"FundLens/internal/model"
)

// Run statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// RunRecord describes one pipeline run.
type RunRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Error      string
	Lookback   string
	Requested  []string
	Succeeded  []string
	Failed     map[string]string // symbol -> reason
	RowCount   int
	Snapshot   []model.IndicatorRow
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordRun(run *RunRecord) error
	Close() error
}
