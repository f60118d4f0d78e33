package contracts

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientData marks too little history or too few articles to
// compute a signal. Engines resolve it locally by substituting the neutral
// midpoint; it never crosses a package boundary.
var ErrInsufficientData = errors.New("insufficient data")

// ErrNoUsableInput is returned when a run has no tickers with valid data at
// all. A multi-date run aborts only on this or on configuration failure.
var ErrNoUsableInput = errors.New("no usable input")

// TimeoutError is raised when a per-date computation exceeds its budget.
// The date loop catches it, skips the date and continues.
type TimeoutError struct {
	Date   time.Time
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("decision for %s exceeded budget %s", e.Date.Format("2006-01-02"), e.Budget)
}

// HardDataError marks malformed required price data. The date's decision
// abstains and holds the previous intent.
type HardDataError struct {
	Ticker string
	Date   time.Time
	Reason string
}

func (e *HardDataError) Error() string {
	return fmt.Sprintf("malformed price data for %s at %s: %s", e.Ticker, e.Date.Format("2006-01-02"), e.Reason)
}

// ExternalServiceError marks a failed, timed-out or unparseable call to an
// external analysis or data service. Callers fail open: the result
// contributes nothing and the error is logged as a warning.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
