package model

import "github.com/guregu/null/v6"

// IndicatorRow is a bar of one ticker extended with its derived indicators.
// Invalid null fields mean not enough history exists yet.
type IndicatorRow struct {
	Bar
	Symbol   string
	FundName string
	Category string
	Style    string

	SMA20            null.Float
	SMA50            null.Float
	SMA200           null.Float
	DailyReturn      null.Float // percent
	Volatility20     null.Float // percent
	CumulativeReturn float64    // percent vs first close of the series
}

