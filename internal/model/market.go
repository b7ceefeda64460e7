package model

import "time"

// Canonical column names recognized by the normalizer.
const (
	ColOpen   = "Open"
	ColHigh   = "High"
	ColLow    = "Low"
	ColClose  = "Close"
	ColVolume = "Volume"
)

// RawBar is one daily record in the shape a source returns it: a timestamp
// plus whatever named columns the source provides.
type RawBar struct {
	Time   time.Time
	Fields map[string]float64
}

// Bar is a canonical daily OHLCV record.
type Bar struct {
	Date   time.Time `validate:"required"`
	Open   float64   `validate:"gte=0"`
	High   float64   `validate:"gte=0"`
	Low    float64   `validate:"gte=0"`
	Close  float64   `validate:"gt=0"`
	Volume int64     `validate:"gte=0"`
}

// TickerSeries is the normalized, date-ascending bar history of one symbol.
type TickerSeries struct {
	Symbol string
	Fund   FundInfo
	Bars   []Bar
}

// Len returns the number of bars in the series.
func (s *TickerSeries) Len() int { return len(s.Bars) }

// Closes returns the close prices in series order.
func (s *TickerSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Day truncates t to its calendar date, expressed as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the on-disk representation of a bar date.
const DateLayout = "2006-01-02"
