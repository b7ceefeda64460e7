package notifier

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/guregu/null/v6"

	"FundLens/internal/model"
	"FundLens/internal/pipeline"
	"FundLens/internal/recorder"
)

const rule = "======================================================================"

// FormatSummary renders the run summary: the per-ticker table, highlights and
// any tickers left out of the dataset.
func FormatSummary(res *pipeline.Result) string {
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString(fmt.Sprintf(" FUND PERFORMANCE SUMMARY (%s lookback) | %s\n", res.Lookback, res.FinishedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(rule + "\n")

	if len(res.Dataset) > 0 {
		first, last := res.DateRange()
		b.WriteString(fmt.Sprintf("Records: %d | Date range: %s to %s\n", len(res.Dataset),
			first.Format(model.DateLayout), last.Format(model.DateLayout)))
		b.WriteString(fmt.Sprintf("Full data: %s\nLatest: %s\n\n", res.Files.FullPath(), res.Files.LatestPath()))
	}

	if len(res.Snapshot) > 0 {
		b.WriteString(fmt.Sprintf("%-8s %-35s %-10s %-10s %-8s\n", "Ticker", "Fund Name", "NAV", "Return", "Vol"))
		b.WriteString(strings.Repeat("-", 70) + "\n")
		for _, r := range res.Snapshot {
			b.WriteString(fmt.Sprintf("%-8s %-35s $%7.2f  %+7.2f%%  %s\n",
				r.Symbol, truncate(r.FundName, 35), r.Close, r.CumulativeReturn, formatVol(r.Volatility20, "%6.2f%%")))
		}
	}

	if h := res.Highlights; h != nil {
		b.WriteString("\n" + rule + "\n HIGHLIGHTS\n" + rule + "\n")
		if h.BestReturnErr != nil {
			b.WriteString(fmt.Sprintf(" Best Return:     n/a (%v)\n", h.BestReturnErr))
		} else {
			b.WriteString(fmt.Sprintf(" Best Return:     %s (%+.2f%%)\n", h.BestReturn.Symbol, h.BestReturn.CumulativeReturn))
		}
		if h.LowestRiskErr != nil {
			b.WriteString(fmt.Sprintf(" Lowest Risk:     n/a (%v)\n", h.LowestRiskErr))
		} else {
			b.WriteString(fmt.Sprintf(" Lowest Risk:     %s (%.2f%% volatility)\n", h.LowestRisk.Symbol, h.LowestRisk.Volatility20.Float64))
		}
		if h.FocusErr != nil {
			b.WriteString(fmt.Sprintf(" Focus Rank:      n/a (%v)\n", h.FocusErr))
		} else {
			sym := h.Focus.Symbol
			b.WriteString(fmt.Sprintf(" %s Rank:%s#%d of %d funds\n", sym, pad(sym), h.FocusRank, h.Total))
			b.WriteString(fmt.Sprintf(" %s Return:%s%+.2f%%\n", sym, pad(sym+"  "), h.Focus.CumulativeReturn))
			b.WriteString(fmt.Sprintf(" %s Risk:%s%s volatility\n", sym, pad(sym), formatVol(h.Focus.Volatility20, "%.2f%%")))
		}
	}

	if len(res.Excluded) > 0 {
		b.WriteString("\nExcluded tickers:\n")
		syms := make([]string, 0, len(res.Excluded))
		for s := range res.Excluded {
			syms = append(syms, s)
		}
		sort.Strings(syms)
		for _, s := range syms {
			b.WriteString(fmt.Sprintf("  %-8s %s\n", s, describe(res.Excluded[s])))
		}
	}

	return b.String()
}

// FormatArchivedSnapshot renders the snapshot kept by the recorder, for use
// before this process has completed a run of its own.
func FormatArchivedSnapshot(entries []recorder.SnapshotEntry, successfulRuns int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Archived snapshot (%d successful runs recorded)\n", successfulRuns))
	b.WriteString(fmt.Sprintf("%-8s %-10s %-10s %-10s %-8s\n", "Ticker", "Date", "NAV", "Return", "Vol"))
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("%-8s %-10s $%7.2f  %+7.2f%%  %s\n",
			e.Symbol, e.Date, e.Close, e.CumulativeReturn, formatVol(e.Volatility20, "%6.2f%%")))
	}
	return b.String()
}

// FormatFailure renders a short report for a run that produced no output.
func FormatFailure(res *pipeline.Result, err error) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Run failed: %v\n", err))
	if errors.Is(err, model.ErrAllFetchesFailed) {
		b.WriteString("No output written. Check your internet connection or data source.\n")
	}
	if res != nil {
		for _, s := range res.Requested {
			if e, ok := res.Excluded[s]; ok {
				b.WriteString(fmt.Sprintf("  %-8s %s\n", s, describe(e)))
			}
		}
	}
	return b.String()
}

func describe(err error) string {
	var die *model.DataIntegrityError
	switch {
	case errors.As(err, &die):
		return "DATA INTEGRITY: " + die.Reason
	case errors.Is(err, model.ErrNoData), errors.Is(err, model.ErrEmptySeries):
		return "no data returned"
	default:
		return err.Error()
	}
}

func formatVol(v null.Float, format string) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf(format, v.Float64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// pad aligns highlight values that follow a ticker label.
func pad(label string) string {
	n := 11 - len(label)
	if n < 1 {
		n = 1
	}
	return strings.Repeat(" ", n)
}
