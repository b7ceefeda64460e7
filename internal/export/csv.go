// Package export persists the consolidated dataset and latest snapshot as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"FundLens/internal/model"
)

// Columns is the header of both output files.
var Columns = []string{
	"Date", "Open", "High", "Low", "Close", "Volume",
	"Ticker", "Fund_Name", "Category", "Style",
	"SMA_20", "SMA_50", "SMA_200",
	"Daily_Return", "Volatility_20", "Cumulative_Return",
}

// Files names the two outputs inside Dir.
type Files struct {
	Dir    string
	Full   string
	Latest string
}

// FullPath returns the location of the full dataset.
func (f Files) FullPath() string { return filepath.Join(f.Dir, f.Full) }

// LatestPath returns the location of the latest snapshot.
func (f Files) LatestPath() string { return filepath.Join(f.Dir, f.Latest) }

// WriteDataset writes both files to temporaries and renames them into place
// only after both were written, so a failed run never leaves a half-written
// dataset over a previous good one.
func WriteDataset(files Files, full, latest []model.IndicatorRow) error {
	if err := os.MkdirAll(files.Dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	fullTmp, err := writeTemp(files.Dir, files.Full, full)
	if err != nil {
		return fmt.Errorf("write %s: %w", files.Full, err)
	}
	latestTmp, err := writeTemp(files.Dir, files.Latest, latest)
	if err != nil {
		os.Remove(fullTmp)
		return fmt.Errorf("write %s: %w", files.Latest, err)
	}

	// The old snapshot is parked until the full dataset is in place, so a
	// failed second rename can put it back.
	prev := ""
	if _, err := os.Stat(files.LatestPath()); err == nil {
		prev = files.LatestPath() + ".prev"
		if err := os.Rename(files.LatestPath(), prev); err != nil {
			os.Remove(fullTmp)
			os.Remove(latestTmp)
			return fmt.Errorf("park %s: %w", files.Latest, err)
		}
	}
	restore := func() {
		if prev == "" {
			os.Remove(files.LatestPath())
			return
		}
		if err := os.Rename(prev, files.LatestPath()); err != nil {
			log.Printf("[ERROR] could not restore previous %s, it remains at %s: %v", files.Latest, prev, err)
		}
	}

	if err := os.Rename(latestTmp, files.LatestPath()); err != nil {
		os.Remove(fullTmp)
		os.Remove(latestTmp)
		restore()
		return fmt.Errorf("commit %s: %w", files.Latest, err)
	}
	if err := os.Rename(fullTmp, files.FullPath()); err != nil {
		os.Remove(fullTmp)
		restore()
		return fmt.Errorf("commit %s: %w", files.Full, err)
	}
	if prev != "" {
		os.Remove(prev)
	}
	return nil
}

func writeTemp(dir, name string, rows []model.IndicatorRow) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", err
	}
	if err := WriteRows(f, rows); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// WriteRows encodes rows as CSV with a header line.
func WriteRows(w io.Writer, rows []model.IndicatorRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Date.Format(model.DateLayout),
			formatFloat(r.Open),
			formatFloat(r.High),
			formatFloat(r.Low),
			formatFloat(r.Close),
			strconv.FormatInt(r.Volume, 10),
			r.Symbol,
			r.FundName,
			r.Category,
			r.Style,
			formatNull(r.SMA20),
			formatNull(r.SMA50),
			formatNull(r.SMA200),
			formatNull(r.DailyReturn),
			formatNull(r.Volatility20),
			formatFloat(r.CumulativeReturn),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadDataset reads a file written by WriteDataset.
func ReadDataset(path string) ([]model.IndicatorRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRows(f)
}

// ReadRows decodes CSV produced by WriteRows.
func ReadRows(r io.Reader) ([]model.IndicatorRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header")
	}
	for i, c := range Columns {
		if records[0][i] != c {
			return nil, fmt.Errorf("column %d: got %q, want %q", i, records[0][i], c)
		}
	}

	rows := make([]model.IndicatorRow, 0, len(records)-1)
	for n, rec := range records[1:] {
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(rec []string) (model.IndicatorRow, error) {
	var (
		row model.IndicatorRow
		err error
	)
	p := parser{}
	row.Date, err = time.Parse(model.DateLayout, rec[0])
	if err != nil {
		return row, fmt.Errorf("date: %w", err)
	}
	row.Open = p.float(rec[1])
	row.High = p.float(rec[2])
	row.Low = p.float(rec[3])
	row.Close = p.float(rec[4])
	if row.Volume, err = strconv.ParseInt(rec[5], 10, 64); err != nil {
		return row, fmt.Errorf("volume: %w", err)
	}
	row.Symbol, row.FundName, row.Category, row.Style = rec[6], rec[7], rec[8], rec[9]
	row.SMA20 = p.null(rec[10])
	row.SMA50 = p.null(rec[11])
	row.SMA200 = p.null(rec[12])
	row.DailyReturn = p.null(rec[13])
	row.Volatility20 = p.null(rec[14])
	row.CumulativeReturn = p.float(rec[15])
	return row, p.err
}

// parser remembers the first numeric parse error.
type parser struct{ err error }

func (p *parser) float(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("number %q: %w", s, err)
		}
		return 0
	}
	f, _ := d.Float64()
	return f
}

func (p *parser) null(s string) null.Float {
	if s == "" {
		return null.Float{}
	}
	return null.FloatFrom(p.float(s))
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}

func formatNull(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Float64)
}
