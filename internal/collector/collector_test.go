package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"FundLens/internal/model"
)

var threeYears, _ = model.ParseLookback("3y")

// flakySource fails the first failures calls per symbol.
type flakySource struct {
	mu       sync.Mutex
	calls    map[string]int
	failures int
}

func (f *flakySource) Name() string { return "flaky" }

func (f *flakySource) Fetch(_ context.Context, symbol string, _ model.Lookback) ([]model.RawBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if f.calls[symbol] <= f.failures {
		return nil, errors.New("connection reset")
	}
	return GenerateMockBars(100, 3, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)), nil
}

func fastOptions() Options {
	return Options{Timeout: time.Second, MaxRetries: 2, RetryDelay: time.Millisecond, Concurrency: 2}
}

func TestCollect_IsolatesFailures(t *testing.T) {
	src := &MockSource{
		BasePrice: 50,
		Days:      10,
		End:       time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		Errors:    map[string]error{"BAD": errors.New("lookup failed")},
		Bars:      map[string][]model.RawBar{"EMPTY": {}},
	}
	results := NewCollector(src, fastOptions()).Collect(context.Background(), []string{"AAA", "BAD", "EMPTY", "BBB"}, threeYears)

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	wantOK := []bool{true, false, false, true}
	for i, r := range results {
		if r.OK() != wantOK[i] {
			t.Errorf("%s: ok=%v, want %v (err=%v)", r.Symbol, r.OK(), wantOK[i], r.Err)
		}
	}
	if results[0].Symbol != "AAA" || len(results[0].Bars) != 10 {
		t.Errorf("unexpected first result: %s with %d bars", results[0].Symbol, len(results[0].Bars))
	}
	if !errors.Is(results[2].Err, model.ErrNoData) {
		t.Errorf("EMPTY: expected ErrNoData, got %v", results[2].Err)
	}
	if results[2].Attempts != 1 {
		t.Errorf("EMPTY: empty results must not be retried, got %d attempts", results[2].Attempts)
	}
	if results[1].Attempts != 3 {
		t.Errorf("BAD: expected 3 attempts, got %d", results[1].Attempts)
	}
}

func TestCollect_RetriesThenSucceeds(t *testing.T) {
	src := &flakySource{calls: map[string]int{}, failures: 2}
	results := NewCollector(src, fastOptions()).Collect(context.Background(), []string{"AAA"}, threeYears)
	if !results[0].OK() {
		t.Fatalf("expected success after retries, got %v", results[0].Err)
	}
	if results[0].Attempts != 3 {
		t.Errorf("attempts = %d, want 3", results[0].Attempts)
	}
}

func TestCollect_RetriesExhausted(t *testing.T) {
	src := &flakySource{calls: map[string]int{}, failures: 5}
	opts := fastOptions()
	opts.MaxRetries = 1
	results := NewCollector(src, opts).Collect(context.Background(), []string{"AAA"}, threeYears)
	if results[0].OK() {
		t.Fatal("expected failure")
	}
	if src.calls["AAA"] != 2 {
		t.Errorf("calls = %d, want 2", src.calls["AAA"])
	}
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &MockSource{BasePrice: 10, Days: 5}
	for _, r := range NewCollector(src, fastOptions()).Collect(ctx, []string{"AAA", "BBB"}, threeYears) {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", r.Symbol, r.Err)
		}
	}
}

const yahooFixture = `{"chart":{"result":[{
  "meta":{"exchangeTimezoneName":"America/New_York"},
  "timestamp":[1714656600,1714743000,1714829400],
  "indicators":{
    "quote":[{"open":[70.1,null,71.0],"high":[70.9,null,71.6],"low":[69.8,null,70.7],"close":[70.5,null,71.2],"volume":[0,null,0]}],
    "adjclose":[{"adjclose":[70.5,null,71.2]}]
  }}],"error":null}}`

func TestYahooSource_Fetch(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(yahooFixture))
	}))
	defer srv.Close()

	src := NewYahooSource("")
	src.BaseURL = srv.URL
	src.Now = func() time.Time { return time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC) }

	bars, err := src.Fetch(context.Background(), "JNGTX", threeYears)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v8/finance/chart/JNGTX" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "interval=1d") || !strings.Contains(gotQuery, "period1=") {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if len(bars) != 2 {
		t.Fatalf("null bar should be skipped, got %d bars", len(bars))
	}
	if d := model.Day(bars[0].Time); !d.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected first date %v", d)
	}
	if bars[1].Fields[model.ColClose] != 71.2 || bars[1].Fields["Adj Close"] != 71.2 {
		t.Errorf("unexpected fields %+v", bars[1].Fields)
	}
}

func TestYahooSource_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		noData bool
	}{
		{"api error", 200, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, false},
		{"empty result", 200, `{"chart":{"result":[],"error":null}}`, true},
		{"server error", 500, `oops`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			src := NewYahooSource("")
			src.BaseURL = srv.URL
			_, err := src.Fetch(context.Background(), "XXXX", threeYears)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, model.ErrNoData) != tt.noData {
				t.Errorf("ErrNoData=%v, want %v (err=%v)", errors.Is(err, model.ErrNoData), tt.noData, err)
			}
		})
	}
}

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("symbol") != "FXAIX" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`[{"timestamp":1714608000,"open":180,"high":181,"low":179,"close":180.5,"volume":1200,"dividend":0.4}]`))
	}))
	defer srv.Close()

	bars, err := NewHTTPSource(srv.URL, "secret", "").Fetch(context.Background(), "FXAIX", threeYears)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 || bars[0].Fields[model.ColClose] != 180.5 || bars[0].Fields["Dividends"] != 0.4 {
		t.Errorf("unexpected bars %+v", bars)
	}

	if _, err := NewHTTPSource(srv.URL, "wrong", "").Fetch(context.Background(), "FXAIX", threeYears); err == nil {
		t.Error("expected unauthorized error")
	}
}
