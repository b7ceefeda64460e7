package calculator

import (
	"errors"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// RollingSMA returns, for every position i, the SMA of prices[i-period+1..i].
// Positions with fewer than period prices report ok=false.
func RollingSMA(prices []float64, period int) (values []float64, ok []bool) {
	values = make([]float64, len(prices))
	ok = make([]bool, len(prices))
	for i := range prices {
		v, err := CalculateSMA(prices[:i+1], period)
		if err != nil {
			continue
		}
		values[i], ok[i] = v, true
	}
	return values, ok
}
