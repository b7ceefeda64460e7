package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"FundLens/internal/calculator"
	"FundLens/internal/consolidator"
	"FundLens/internal/model"
)

func dataset(t *testing.T) ([]model.IndicatorRow, []model.IndicatorRow) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	perTicker := make(map[string][]model.IndicatorRow)
	for s, base := range map[string]float64{"FXAIX": 180.25, "JNGTX": 71.5} {
		bars := make([]model.Bar, 30)
		for i := range bars {
			c := base + float64(i%7) - 3
			bars[i] = model.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: int64(1000 + i)}
		}
		series := &model.TickerSeries{
			Symbol: s,
			Fund:   model.FundInfo{Symbol: s, Name: s + ", Inc. \"fund\"", Category: "Large Blend", Style: "Index"},
			Bars:   bars,
		}
		perTicker[s] = calculator.ComputeIndicators(series)
	}
	full := consolidator.Consolidate(perTicker)
	latest, err := consolidator.LatestPerTicker(full)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	return full, consolidator.Snapshot(latest)
}

func TestWriteDataset_RoundTrip(t *testing.T) {
	full, latest := dataset(t)
	files := Files{Dir: filepath.Join(t.TempDir(), "data"), Full: "market_data.csv", Latest: "market_data_latest.csv"}

	if err := WriteDataset(files, full, latest); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadDataset(files.FullPath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(full) {
		t.Fatalf("row count %d, want %d", len(got), len(full))
	}
	for i := range got {
		if !got[i].Date.Equal(full[i].Date) || got[i].Symbol != full[i].Symbol {
			t.Fatalf("row %d: got %s/%s, want %s/%s", i,
				got[i].Date.Format(model.DateLayout), got[i].Symbol,
				full[i].Date.Format(model.DateLayout), full[i].Symbol)
		}
		got[i].Date = full[i].Date
		if got[i] != full[i] {
			t.Fatalf("row %d differs:\n got %+v\nwant %+v", i, got[i], full[i])
		}
	}

	snap, err := ReadDataset(files.LatestPath())
	if err != nil {
		t.Fatalf("read latest: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("latest rows %d, want 2", len(snap))
	}

	entries, _ := os.ReadDir(files.Dir)
	if len(entries) != 2 {
		t.Errorf("expected only the two output files, found %d entries", len(entries))
	}
}

func TestWriteRows_NullsAreBlank(t *testing.T) {
	full, _ := dataset(t)
	var buf bytes.Buffer
	if err := WriteRows(&buf, full[:1]); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(Columns, ",") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], ",,,,,,0") {
		t.Errorf("first row should have blank indicators and zero cumulative return: %q", lines[1])
	}
}

func TestReadRows_RejectsWrongHeader(t *testing.T) {
	in := strings.Replace(strings.Join(Columns, ","), "Close", "Adj Close", 1) + "\n"
	if _, err := ReadRows(strings.NewReader(in)); err == nil {
		t.Error("expected header mismatch error")
	}
}

func TestWriteDataset_FailedCommitKeepsPreviousSnapshot(t *testing.T) {
	full, latest := dataset(t)
	dir := t.TempDir()
	files := Files{Dir: dir, Full: "market_data.csv", Latest: "market_data_latest.csv"}

	if err := os.WriteFile(files.LatestPath(), []byte("previous snapshot\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// A non-empty directory at the full path makes its rename fail.
	if err := os.MkdirAll(filepath.Join(files.FullPath(), "occupied"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := WriteDataset(files, full, latest); err == nil {
		t.Fatal("expected commit error")
	}
	got, err := os.ReadFile(files.LatestPath())
	if err != nil {
		t.Fatalf("previous snapshot gone: %v", err)
	}
	if string(got) != "previous snapshot\n" {
		t.Errorf("snapshot replaced although the full dataset was not: %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") || strings.HasSuffix(e.Name(), ".prev") {
			t.Errorf("leftover file %s", e.Name())
		}
	}
}
