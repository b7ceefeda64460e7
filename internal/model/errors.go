package model

import (
	"errors"
	"fmt"
)

var (
	ErrNoData              = errors.New("no data returned")
	ErrEmptySeries         = errors.New("empty series")
	ErrAllFetchesFailed    = errors.New("all ticker fetches failed")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrUnknownTicker       = errors.New("unknown ticker")
)

// DataIntegrityError reports an invariant violation in one ticker's data.
// The ticker's contribution is excluded rather than repaired.
type DataIntegrityError struct {
	Symbol string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity violation for %s: %s", e.Symbol, e.Reason)
}
