// Package calculator derives technical indicators from a single ticker's
// date-ascending bar history.
package calculator

import (
	"github.com/guregu/null/v6"

	"FundLens/internal/model"
)

// Moving-average and volatility windows, in bars.
const (
	ShortWindow      = 20
	MediumWindow     = 50
	LongWindow       = 200
	VolatilityWindow = 20
)

// ComputeIndicators derives the indicator rows for one series. The series
// must already be sorted ascending by date; no state is shared between calls.
func ComputeIndicators(series *model.TickerSeries) []model.IndicatorRow {
	n := series.Len()
	if n == 0 {
		return nil
	}

	closes := series.Closes()
	sma20, ok20 := RollingSMA(closes, ShortWindow)
	sma50, ok50 := RollingSMA(closes, MediumWindow)
	sma200, ok200 := RollingSMA(closes, LongWindow)

	// returns[i-1] is the return ending at bar i.
	returns := make([]float64, 0, n)
	first := closes[0]

	rows := make([]model.IndicatorRow, n)
	for i, bar := range series.Bars {
		row := model.IndicatorRow{
			Bar:              bar,
			Symbol:           series.Symbol,
			FundName:         series.Fund.Name,
			Category:         series.Fund.Category,
			Style:            series.Fund.Style,
			SMA20:            null.NewFloat(sma20[i], ok20[i]),
			SMA50:            null.NewFloat(sma50[i], ok50[i]),
			SMA200:           null.NewFloat(sma200[i], ok200[i]),
			CumulativeReturn: PercentChange(first, closes[i]),
		}
		if i > 0 {
			r := PercentChange(closes[i-1], closes[i])
			returns = append(returns, r)
			row.DailyReturn = null.FloatFrom(r)
		}
		if len(returns) >= VolatilityWindow {
			if sd, err := SampleStdDev(returns[len(returns)-VolatilityWindow:]); err == nil {
				row.Volatility20 = null.FloatFrom(sd)
			}
		}
		rows[i] = row
	}
	return rows
}
