package contracts

import (
	"context"
	"time"
)

// LedgerRecord is one completed rebalance period's realized outcome.
// Records are append-only; lookups never mutate them.
type LedgerRecord struct {
	Date     time.Time   `json:"date"`      // period end
	ParamsID string      `json:"params_id"` // strategy parameter identifier
	Return   float64     `json:"return"`    // realized weekly return
	Drawdown float64     `json:"drawdown"`  // max drawdown within the period
	Regime   RegimeLabel `json:"regime"`    // label at decision time
}

// LedgerStore persists the append-only performance ledger. Both selectors
// read through Records; a single writer appends one row per completed
// period.
type LedgerStore interface {
	Append(ctx context.Context, rec LedgerRecord) error

	// Records returns all records in append order. Implementations
	// return a copy; callers may not rely on it reflecting later
	// appends.
	Records(ctx context.Context) ([]LedgerRecord, error)
}
