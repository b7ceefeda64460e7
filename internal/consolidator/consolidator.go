// Package consolidator merges per-ticker indicator rows into one dataset and
// extracts the latest row of each ticker.
package consolidator

import (
	"fmt"
	"sort"

	"FundLens/internal/model"
)

// Consolidate concatenates every ticker's rows and orders the union by date,
// then symbol.
func Consolidate(perTicker map[string][]model.IndicatorRow) []model.IndicatorRow {
	total := 0
	for _, rows := range perTicker {
		total += len(rows)
	}

	// Deterministic input order keeps the stable sort reproducible.
	symbols := make([]string, 0, len(perTicker))
	for sym := range perTicker {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	all := make([]model.IndicatorRow, 0, total)
	for _, sym := range symbols {
		all = append(all, perTicker[sym]...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.Before(all[j].Date)
		}
		return all[i].Symbol < all[j].Symbol
	})
	return all
}

// LatestPerTicker returns the maximum-date row of every symbol present.
// Two rows sharing a symbol's maximum date is a *model.DataIntegrityError.
func LatestPerTicker(rows []model.IndicatorRow) (map[string]model.IndicatorRow, error) {
	latest := make(map[string]model.IndicatorRow)
	dup := make(map[string]bool)
	for _, r := range rows {
		cur, ok := latest[r.Symbol]
		switch {
		case !ok || r.Date.After(cur.Date):
			latest[r.Symbol] = r
			dup[r.Symbol] = false
		case r.Date.Equal(cur.Date):
			dup[r.Symbol] = true
		}
	}
	for sym, d := range dup {
		if d {
			return nil, &model.DataIntegrityError{
				Symbol: sym,
				Reason: fmt.Sprintf("multiple rows share latest date %s", latest[sym].Date.Format(model.DateLayout)),
			}
		}
	}
	return latest, nil
}

// Snapshot orders the latest rows by symbol.
func Snapshot(latest map[string]model.IndicatorRow) []model.IndicatorRow {
	out := make([]model.IndicatorRow, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
