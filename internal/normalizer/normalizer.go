// Package normalizer projects source-native bars onto the canonical bar
// shape and builds one isolated, date-ascending series per ticker.
package normalizer

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"

	"FundLens/internal/model"
)

// Normalizer turns raw source output into TickerSeries values.
type Normalizer struct {
	Funds    model.FundTable
	validate *validator.Validate
}

// New creates a Normalizer that resolves metadata from funds.
func New(funds model.FundTable) *Normalizer {
	return &Normalizer{Funds: funds, validate: validator.New()}
}

// Normalize builds the series for symbol. It returns model.ErrEmptySeries when
// raw is empty and a *model.DataIntegrityError when a bar is unusable or two
// bars share a date.
func (n *Normalizer) Normalize(symbol string, raw []model.RawBar) (*model.TickerSeries, error) {
	if len(raw) == 0 {
		return nil, model.ErrEmptySeries
	}

	bars := make([]model.Bar, 0, len(raw))
	for _, rb := range raw {
		bar, err := n.project(symbol, rb)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	if !sort.SliceIsSorted(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) }) {
		log.Printf("[WARN] %s: source bars not in date order, sorting", symbol)
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return nil, &model.DataIntegrityError{
				Symbol: symbol,
				Reason: fmt.Sprintf("duplicate date %s", bars[i].Date.Format(model.DateLayout)),
			}
		}
	}

	return &model.TickerSeries{
		Symbol: symbol,
		Fund:   n.Funds.Lookup(symbol),
		Bars:   bars,
	}, nil
}

// project keeps only the recognized OHLCV columns of rb.
func (n *Normalizer) project(symbol string, rb model.RawBar) (model.Bar, error) {
	date := model.Day(rb.Time)
	closePrice, ok := rb.Fields[model.ColClose]
	if !ok {
		return model.Bar{}, &model.DataIntegrityError{
			Symbol: symbol,
			Reason: fmt.Sprintf("missing close on %s", date.Format(model.DateLayout)),
		}
	}
	for _, col := range []string{model.ColOpen, model.ColHigh, model.ColLow, model.ColClose, model.ColVolume} {
		if v, ok := rb.Fields[col]; ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
			return model.Bar{}, &model.DataIntegrityError{
				Symbol: symbol,
				Reason: fmt.Sprintf("non-finite %s %v on %s", col, v, date.Format(model.DateLayout)),
			}
		}
	}
	volume := rb.Fields[model.ColVolume]
	if volume != math.Trunc(volume) || volume >= math.MaxInt64 {
		return model.Bar{}, &model.DataIntegrityError{
			Symbol: symbol,
			Reason: fmt.Sprintf("volume %v on %s is not a whole share count", volume, date.Format(model.DateLayout)),
		}
	}
	bar := model.Bar{
		Date:   date,
		Open:   rb.Fields[model.ColOpen],
		High:   rb.Fields[model.ColHigh],
		Low:    rb.Fields[model.ColLow],
		Close:  closePrice,
		Volume: int64(volume),
	}
	if err := n.validate.Struct(bar); err != nil {
		return model.Bar{}, &model.DataIntegrityError{
			Symbol: symbol,
			Reason: fmt.Sprintf("invalid bar on %s: %v", date.Format(model.DateLayout), err),
		}
	}
	return bar, nil
}
