package calculator

import (
	"errors"
	"math"
)

// PercentChange returns (cur/prev - 1) * 100.
func PercentChange(prev, cur float64) float64 {
	return (cur/prev - 1) * 100
}

// SampleStdDev returns the sample (n-1) standard deviation of values.
func SampleStdDev(values []float64) (float64, error) {
	n := len(values)
	if n < 2 {
		return 0, errors.New("sample standard deviation needs at least 2 values")
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1)), nil
}
