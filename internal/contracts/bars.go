package contracts

import (
	"fmt"
	"time"
)

// PriceBar is one day of OHLCV data for a ticker. Bars are immutable once
// ingested; Close must be positive. Missing open/high/low/volume default
// from close at ingestion.
type PriceBar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// FillFromClose defaults missing OHLV fields from the close.
func (b *PriceBar) FillFromClose() {
	if b.Open <= 0 {
		b.Open = b.Close
	}
	if b.High <= 0 {
		b.High = b.Close
	}
	if b.Low <= 0 {
		b.Low = b.Close
	}
	if b.Volume < 0 {
		b.Volume = 0
	}
}

// BarSeries is a date-ascending sequence of bars for a single ticker.
type BarSeries struct {
	Ticker string
	Bars   []PriceBar
}

// Validate checks the series for malformed data: non-positive closes or
// out-of-order dates. Malformed input is a hard failure for the caller.
func (s *BarSeries) Validate() error {
	for i, bar := range s.Bars {
		if bar.Close <= 0 {
			return &HardDataError{
				Ticker: s.Ticker,
				Date:   bar.Date,
				Reason: fmt.Sprintf("non-positive close %.4f", bar.Close),
			}
		}
		if i > 0 && !s.Bars[i-1].Date.Before(bar.Date) {
			return &HardDataError{
				Ticker: s.Ticker,
				Date:   bar.Date,
				Reason: "bars not in ascending date order",
			}
		}
	}
	return nil
}

// TruncateAt returns the bars with date <= d. The underlying array is
// shared; callers must not mutate bars.
func (s *BarSeries) TruncateAt(d time.Time) []PriceBar {
	n := 0
	for _, bar := range s.Bars {
		if bar.Date.After(d) {
			break
		}
		n++
	}
	return s.Bars[:n]
}

// Closes extracts the close column.
func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// DailyReturns computes close-to-close returns; length is len(bars)-1.
func DailyReturns(bars []PriceBar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		out = append(out, bars[i].Close/bars[i-1].Close-1)
	}
	return out
}

// Day truncates a timestamp to its UTC date. All per-date keys use this.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
