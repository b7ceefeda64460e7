// Package ranking answers read-only highlight queries over a latest snapshot.
package ranking

import (
	"fmt"

	"FundLens/internal/model"
)

// Highlights collects the summary queries for one snapshot. A failed query
// keeps its error so the reporter can show it as an omission.
type Highlights struct {
	Total int

	BestReturn    model.IndicatorRow
	BestReturnErr error

	LowestRisk    model.IndicatorRow
	LowestRiskErr error

	Focus     model.IndicatorRow
	FocusRank int
	FocusErr  error
}

// BestReturn returns the row with the highest cumulative return; ties go to
// the lexicographically smallest symbol.
func BestReturn(snapshot []model.IndicatorRow) (model.IndicatorRow, error) {
	if len(snapshot) == 0 {
		return model.IndicatorRow{}, model.ErrInsufficientHistory
	}
	best := snapshot[0]
	for _, r := range snapshot[1:] {
		if r.CumulativeReturn > best.CumulativeReturn ||
			(r.CumulativeReturn == best.CumulativeReturn && r.Symbol < best.Symbol) {
			best = r
		}
	}
	return best, nil
}

// LowestRisk returns the row with the smallest defined 20-day volatility; ties
// go to the lexicographically smallest symbol. It fails with
// model.ErrInsufficientHistory when no row has a volatility value.
func LowestRisk(snapshot []model.IndicatorRow) (model.IndicatorRow, error) {
	var (
		best  model.IndicatorRow
		found bool
	)
	for _, r := range snapshot {
		if !r.Volatility20.Valid {
			continue
		}
		v := r.Volatility20.Float64
		if !found || v < best.Volatility20.Float64 ||
			(v == best.Volatility20.Float64 && r.Symbol < best.Symbol) {
			best, found = r, true
		}
	}
	if !found {
		return model.IndicatorRow{}, fmt.Errorf("lowest risk: %w: no ticker has a 20-day volatility yet", model.ErrInsufficientHistory)
	}
	return best, nil
}

// RankOf returns 1 + the number of rows whose cumulative return is strictly
// greater than symbol's.
func RankOf(snapshot []model.IndicatorRow, symbol string) (int, model.IndicatorRow, error) {
	var (
		target model.IndicatorRow
		found  bool
	)
	for _, r := range snapshot {
		if r.Symbol == symbol {
			target, found = r, true
			break
		}
	}
	if !found {
		return 0, model.IndicatorRow{}, fmt.Errorf("rank of %s: %w", symbol, model.ErrUnknownTicker)
	}
	rank := 1
	for _, r := range snapshot {
		if r.CumulativeReturn > target.CumulativeReturn {
			rank++
		}
	}
	return rank, target, nil
}

// Compute runs every highlight query over snapshot, ranking focus.
func Compute(snapshot []model.IndicatorRow, focus string) *Highlights {
	h := &Highlights{Total: len(snapshot)}
	h.BestReturn, h.BestReturnErr = BestReturn(snapshot)
	h.LowestRisk, h.LowestRiskErr = LowestRisk(snapshot)
	if focus != "" {
		h.FocusRank, h.Focus, h.FocusErr = RankOf(snapshot, focus)
	} else {
		h.FocusErr = fmt.Errorf("rank: %w: no focus ticker configured", model.ErrUnknownTicker)
	}
	return h
}
