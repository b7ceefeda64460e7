package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"FundLens/internal/model"
)

// MockSource returns controllable synthetic data for development and testing.
type MockSource struct {
	BasePrice float64
	Days      int
	Bars      map[string][]model.RawBar
	Errors    map[string]error
	End       time.Time
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Fetch(ctx context.Context, symbol string, _ model.Lookback) ([]model.RawBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		if len(bars) == 0 {
			return nil, fmt.Errorf("mock %s: %w", symbol, model.ErrNoData)
		}
		return bars, nil
	}
	end := m.End
	if end.IsZero() {
		end = model.Day(time.Now())
	}
	return GenerateMockBars(m.BasePrice, m.Days, end), nil
}

// GenerateMockBars builds count consecutive daily bars ending at end.
func GenerateMockBars(basePrice float64, count int, end time.Time) []model.RawBar {
	bars := make([]model.RawBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.RawBar{
			Time: end.AddDate(0, 0, -(count - 1 - i)),
			Fields: map[string]float64{
				model.ColOpen:   p * 0.999,
				model.ColHigh:   p * 1.005,
				model.ColLow:    p * 0.995,
				model.ColClose:  p,
				model.ColVolume: 1000000,
			},
		}
	}
	return bars
}

// Options bounds each per-ticker fetch.
type Options struct {
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	Concurrency int
}

// DefaultOptions returns the default fetch options.
func DefaultOptions() Options {
	return Options{
		Timeout:     30 * time.Second,
		MaxRetries:  2,
		RetryDelay:  time.Second,
		Concurrency: 4,
	}
}

// FetchResult is the outcome of one ticker's fetch: Bars on success, Err on failure.
type FetchResult struct {
	Symbol   string
	Bars     []model.RawBar
	Err      error
	Attempts int
	Elapsed  time.Duration
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool { return r.Err == nil }

// Collector fetches many tickers with per-ticker failure isolation.
type Collector struct {
	Source  Source
	Options Options
}

// NewCollector creates a new Collector.
func NewCollector(source Source, opts Options) *Collector {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Collector{Source: source, Options: opts}
}

// Collect fetches every symbol and returns one result per symbol in request
// order. A failing ticker never aborts the others.
func (c *Collector) Collect(ctx context.Context, symbols []string, lookback model.Lookback) []FetchResult {
	results := make([]FetchResult, len(symbols))
	sem := make(chan struct{}, c.Options.Concurrency)
	var wg sync.WaitGroup

	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = FetchResult{Symbol: sym, Err: ctx.Err()}
				return
			}
			results[i] = c.fetchWithRetry(ctx, sym, lookback)
			if r := results[i]; r.OK() {
				log.Printf("[INFO] fetched %s: %d bars in %v (%d attempt(s))", sym, len(r.Bars), r.Elapsed.Round(time.Millisecond), r.Attempts)
			} else {
				log.Printf("[WARN] fetch %s failed after %d attempt(s): %v", sym, r.Attempts, r.Err)
			}
		}(i, sym)
	}
	wg.Wait()
	return results
}

// fetchWithRetry calls the source with exponential backoff. Empty results are
// not retried.
func (c *Collector) fetchWithRetry(ctx context.Context, symbol string, lookback model.Lookback) FetchResult {
	start := time.Now()
	res := FetchResult{Symbol: symbol}
	for i := 0; i <= c.Options.MaxRetries; i++ {
		res.Attempts = i + 1
		bars, err := c.fetchOnce(ctx, symbol, lookback)
		if err == nil {
			res.Bars, res.Err = bars, nil
			break
		}
		res.Err = err
		if errors.Is(err, model.ErrNoData) || ctx.Err() != nil || i == c.Options.MaxRetries {
			break
		}
		backoff := c.Options.RetryDelay * time.Duration(1<<uint(i))
		log.Printf("[WARN] fetch %s failed (attempt %d/%d): %v, retrying in %v", symbol, i+1, c.Options.MaxRetries+1, err, backoff)
		select {
		case <-ctx.Done():
			res.Err = ctx.Err()
			res.Elapsed = time.Since(start)
			return res
		case <-time.After(backoff):
		}
	}
	res.Elapsed = time.Since(start)
	return res
}

func (c *Collector) fetchOnce(ctx context.Context, symbol string, lookback model.Lookback) ([]model.RawBar, error) {
	if c.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Options.Timeout)
		defer cancel()
	}
	bars, err := c.Source.Fetch(ctx, symbol, lookback)
	if err == nil && len(bars) == 0 {
		err = fmt.Errorf("%s %s: %w", c.Source.Name(), symbol, model.ErrNoData)
	}
	return bars, err
}
