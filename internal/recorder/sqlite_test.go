package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	"FundLens/internal/model"
)

func snapshotRow(symbol string, cum float64, vol null.Float) model.IndicatorRow {
	return model.IndicatorRow{
		Bar:              model.Bar{Date: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), Close: 100, Volume: 5},
		Symbol:           symbol,
		FundName:         symbol + " Fund",
		SMA20:            null.FloatFrom(99.5),
		Volatility20:     vol,
		CumulativeReturn: cum,
	}
}

func TestSQLiteRecorder_RecordRun(t *testing.T) {
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rec.Close()

	now := time.Now()
	if err := rec.RecordRun(&RunRecord{
		StartedAt:  now,
		FinishedAt: now,
		Status:     StatusSuccess,
		Lookback:   "3y",
		Requested:  []string{"AAA", "BBB", "CCC"},
		Succeeded:  []string{"AAA", "BBB"},
		Failed:     map[string]string{"CCC": "no data returned"},
		RowCount:   42,
		Snapshot: []model.IndicatorRow{
			snapshotRow("BBB", 12.5, null.Float{}),
			snapshotRow("AAA", -1.25, null.FloatFrom(0.8)),
		},
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := rec.RecordRun(&RunRecord{
		StartedAt:  now,
		FinishedAt: now,
		Status:     StatusFailed,
		Error:      model.ErrAllFetchesFailed.Error(),
		Requested:  []string{"AAA"},
		Failed:     map[string]string{"AAA": "timeout"},
	}); err != nil {
		t.Fatalf("record failed run: %v", err)
	}

	snap, err := rec.LastSnapshot()
	if err != nil {
		t.Fatalf("last snapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("expected 2 snapshot rows from the successful run, got %d", len(snap))
	}
	if snap[0].Symbol != "AAA" || snap[0].CumulativeReturn != -1.25 || !snap[0].Volatility20.Valid {
		t.Errorf("unexpected first entry %+v", snap[0])
	}
	if snap[1].Symbol != "BBB" || snap[1].Volatility20.Valid || snap[1].Date != "2024-05-03" {
		t.Errorf("unexpected second entry %+v", snap[1])
	}

	for status, want := range map[string]int{StatusSuccess: 1, StatusFailed: 1} {
		n, err := rec.RunCount(status)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != want {
			t.Errorf("%s runs = %d, want %d", status, n, want)
		}
	}
}

func TestSQLiteRecorder_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	rec, err := NewSQLiteRecorder(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := rec.RecordRun(&RunRecord{StartedAt: time.Now(), FinishedAt: time.Now(), Status: StatusSuccess}); err != nil {
		t.Fatalf("record: %v", err)
	}
	rec.Close()

	rec, err = NewSQLiteRecorder(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rec.Close()
	n, err := rec.RunCount(StatusSuccess)
	if err != nil || n != 1 {
		t.Errorf("runs after reopen = %d (%v), want 1", n, err)
	}
}
