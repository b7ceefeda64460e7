package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Lookback is a calendar duration such as "3y" or "6mo".
type Lookback struct {
	Years, Months, Days int
	raw                 string
}

// ParseLookback accepts <n>d, <n>w, <n>mo or <n>y with n > 0.
func ParseLookback(s string) (Lookback, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	var unit string
	for _, u := range []string{"mo", "d", "w", "y"} {
		if strings.HasSuffix(s, u) {
			unit = u
			break
		}
	}
	if unit == "" {
		return Lookback{}, fmt.Errorf("lookback %q: missing unit (d, w, mo, y)", s)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(s, unit))
	if err != nil || n <= 0 {
		return Lookback{}, fmt.Errorf("lookback %q: count must be a positive integer", s)
	}
	lb := Lookback{raw: s}
	switch unit {
	case "d":
		lb.Days = n
	case "w":
		lb.Days = 7 * n
	case "mo":
		lb.Months = n
	case "y":
		lb.Years = n
	}
	return lb, nil
}

// Start returns the first instant of the window ending at now.
func (l Lookback) Start(now time.Time) time.Time {
	return now.AddDate(-l.Years, -l.Months, -l.Days)
}

func (l Lookback) String() string {
	if l.raw != "" {
		return l.raw
	}
	return fmt.Sprintf("%dy%dmo%dd", l.Years, l.Months, l.Days)
}
