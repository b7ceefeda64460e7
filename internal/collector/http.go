package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"FundLens/internal/model"
)

// HTTPSource implements Source against a JSON bar service exposing
// GET {base}/api/v1/bars/daily?symbol=..&from=..&to=..
type HTTPSource struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Now     func() time.Time
}

// NewHTTPSource creates a new source with optional proxy support.
func NewHTTPSource(baseURL, apiKey, proxyURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
		Now:     time.Now,
	}
}

func (f *HTTPSource) Name() string { return "http" }

// httpBar is the expected JSON shape from the bar service.
type httpBar struct {
	Timestamp int64    `json:"timestamp"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    *float64 `json:"volume"`
	Dividend  *float64 `json:"dividend,omitempty"`
}

func (f *HTTPSource) Fetch(ctx context.Context, symbol string, lookback model.Lookback) ([]model.RawBar, error) {
	now := f.Now()
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("from", lookback.Start(now).Format(model.DateLayout))
	q.Set("to", now.Format(model.DateLayout))
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var hb []httpBar
	if err := json.NewDecoder(resp.Body).Decode(&hb); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	if len(hb) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, model.ErrNoData)
	}

	bars := make([]model.RawBar, len(hb))
	for i, b := range hb {
		fields := make(map[string]float64, 6)
		for name, v := range map[string]*float64{
			model.ColOpen:   b.Open,
			model.ColHigh:   b.High,
			model.ColLow:    b.Low,
			model.ColClose:  b.Close,
			model.ColVolume: b.Volume,
			"Dividends":     b.Dividend,
		} {
			if v != nil {
				fields[name] = *v
			}
		}
		bars[i] = model.RawBar{Time: time.Unix(b.Timestamp, 0).UTC(), Fields: fields}
	}
	return bars, nil
}
