// Package pipeline runs one full fetch → normalize → compute → consolidate →
// export pass over the configured tickers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"FundLens/internal/calculator"
	"FundLens/internal/collector"
	"FundLens/internal/consolidator"
	"FundLens/internal/export"
	"FundLens/internal/metrics"
	"FundLens/internal/model"
	"FundLens/internal/normalizer"
	"FundLens/internal/ranking"
	"FundLens/internal/recorder"
)

// Options configures a Pipeline.
type Options struct {
	Tickers     []string
	FocusTicker string
	Lookback    model.Lookback
	Files       export.Files
}

// Pipeline wires the collector, the per-ticker computation and the outputs.
type Pipeline struct {
	options    Options
	collector  *collector.Collector
	normalizer *normalizer.Normalizer
	recorder   recorder.Recorder
	metrics    *metrics.Metrics
}

// New creates a Pipeline. rec and m may be nil.
func New(col *collector.Collector, funds model.FundTable, rec recorder.Recorder, m *metrics.Metrics, opts Options) *Pipeline {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Pipeline{
		options:    opts,
		collector:  col,
		normalizer: normalizer.New(funds),
		recorder:   rec,
		metrics:    m,
	}
}

// Result is everything a run produced.
type Result struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Lookback   model.Lookback
	Requested  []string
	Included   []string
	Excluded   map[string]error // symbol -> fetch failure, empty series or integrity error
	BarCounts  map[string]int
	Dataset    []model.IndicatorRow
	Snapshot   []model.IndicatorRow
	Highlights *ranking.Highlights
	Files      export.Files
}

// DateRange returns the first and last dates of the dataset.
func (r *Result) DateRange() (first, last time.Time) {
	if len(r.Dataset) == 0 {
		return time.Time{}, time.Time{}
	}
	return r.Dataset[0].Date, r.Dataset[len(r.Dataset)-1].Date
}

// Run executes one pass. It returns model.ErrAllFetchesFailed, without
// touching the output files, when no ticker produced usable data; a
// cancelled ctx discards all partial work the same way.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		StartedAt: time.Now(),
		Lookback:  p.options.Lookback,
		Requested: p.options.Tickers,
		Excluded:  make(map[string]error),
		BarCounts: make(map[string]int),
		Files:     p.options.Files,
	}
	log.Printf("[INFO] run started: %d tickers, lookback %s, source %s",
		len(p.options.Tickers), p.options.Lookback, p.collector.Source.Name())

	err := p.run(ctx, res)
	res.FinishedAt = time.Now()
	p.finish(res, err)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	fetched := p.collector.Collect(ctx, p.options.Tickers, p.options.Lookback)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	series := make(map[string]*model.TickerSeries, len(fetched))
	for _, f := range fetched {
		if !f.OK() {
			res.Excluded[f.Symbol] = f.Err
			if p.metrics != nil {
				p.metrics.FetchFailures.WithLabelValues(f.Symbol).Inc()
			}
			continue
		}
		s, err := p.normalizer.Normalize(f.Symbol, f.Bars)
		if err != nil {
			var die *model.DataIntegrityError
			if errors.As(err, &die) {
				log.Printf("[ERROR] excluding %s: %v", f.Symbol, err)
			} else {
				log.Printf("[WARN] skipping %s: %v", f.Symbol, err)
			}
			res.Excluded[f.Symbol] = err
			continue
		}
		last := s.Bars[s.Len()-1]
		log.Printf("[INFO] %s %s: NAV %.2f (%d days of data)", s.Symbol, s.Fund.Name, last.Close, s.Len())
		series[f.Symbol] = s
		res.BarCounts[f.Symbol] = s.Len()
	}
	if len(series) == 0 {
		return model.ErrAllFetchesFailed
	}

	perTicker := computeAll(series)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	dataset, latest, err := consolidate(perTicker, res.Excluded)
	if err != nil {
		return err
	}
	for sym := range res.Excluded {
		delete(res.BarCounts, sym)
	}
	res.Dataset = dataset
	res.Snapshot = consolidator.Snapshot(latest)
	for _, r := range res.Snapshot {
		res.Included = append(res.Included, r.Symbol)
	}
	res.Highlights = ranking.Compute(res.Snapshot, p.options.FocusTicker)

	if err := export.WriteDataset(p.options.Files, res.Dataset, res.Snapshot); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	log.Printf("[INFO] data saved to %s (%d records) and %s", p.options.Files.FullPath(), len(res.Dataset), p.options.Files.LatestPath())
	return nil
}

// consolidate merges perTicker and extracts the latest rows. A ticker whose
// latest date is ambiguous is moved to excluded and the rest are merged again.
func consolidate(perTicker map[string][]model.IndicatorRow, excluded map[string]error) ([]model.IndicatorRow, map[string]model.IndicatorRow, error) {
	for len(perTicker) > 0 {
		dataset := consolidator.Consolidate(perTicker)
		latest, err := consolidator.LatestPerTicker(dataset)
		if err == nil {
			return dataset, latest, nil
		}
		var die *model.DataIntegrityError
		if !errors.As(err, &die) {
			return nil, nil, fmt.Errorf("latest snapshot: %w", err)
		}
		log.Printf("[ERROR] excluding %s: %v", die.Symbol, err)
		excluded[die.Symbol] = err
		delete(perTicker, die.Symbol)
	}
	return nil, nil, model.ErrAllFetchesFailed
}

// computeAll derives indicators for every series in parallel. Each series is
// computed independently; only the result map is shared.
func computeAll(series map[string]*model.TickerSeries) map[string][]model.IndicatorRow {
	out := make(map[string][]model.IndicatorRow, len(series))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for sym, s := range series {
		wg.Add(1)
		go func(sym string, s *model.TickerSeries) {
			defer wg.Done()
			rows := calculator.ComputeIndicators(s)
			mu.Lock()
			out[sym] = rows
			mu.Unlock()
		}(sym, s)
	}
	wg.Wait()
	return out
}

func (p *Pipeline) finish(res *Result, runErr error) {
	status := recorder.StatusSuccess
	errText := ""
	if runErr != nil {
		status = recorder.StatusFailed
		errText = runErr.Error()
		log.Printf("[ERROR] run failed: %v", runErr)
	}

	failed := make(map[string]string, len(res.Excluded))
	for sym, err := range res.Excluded {
		failed[sym] = err.Error()
	}
	run := &recorder.RunRecord{
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Status:     status,
		Error:      errText,
		Lookback:   res.Lookback.String(),
		Requested:  res.Requested,
		Succeeded:  sortedKeys(res.BarCounts),
		Failed:     failed,
	}
	if runErr == nil {
		run.RowCount = len(res.Dataset)
		run.Snapshot = res.Snapshot
	}
	if err := p.recorder.RecordRun(run); err != nil {
		log.Printf("[ERROR] record run: %v", err)
	}
	if p.metrics != nil {
		p.metrics.ObserveRun(status, res.FinishedAt.Sub(res.StartedAt), run.RowCount, len(res.Snapshot), res.FinishedAt)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
