package collector

import (
	"context"

	"FundLens/internal/model"
)

// Source supplies the daily bar history of one symbol over a lookback window.
// An empty history is reported as model.ErrNoData.
type Source interface {
	Fetch(ctx context.Context, symbol string, lookback model.Lookback) ([]model.RawBar, error)
	Name() string
}
