package contracts

import "time"

// RegimeLabel classifies the market state.
type RegimeLabel string

const (
	RegimeBull     RegimeLabel = "BULL"
	RegimeBear     RegimeLabel = "BEAR"
	RegimeSideways RegimeLabel = "SIDEWAYS"
	RegimeUnknown  RegimeLabel = "UNKNOWN"
)

// RegimeState is the detector output for one date, computed from benchmark
// history up to that date only.
type RegimeState struct {
	Date  time.Time   `json:"date"`
	Label RegimeLabel `json:"label"`

	// Estimated daily mean return and volatility of the current state
	Mean       float64 `json:"mean"`
	Volatility float64 `json:"volatility"`

	// Row-stochastic transition matrix indexed BULL, SIDEWAYS, BEAR by
	// mean rank; nil when the fallback produced the label.
	Transition [][]float64 `json:"transition,omitempty"`

	// Stable is true when the current state's self-transition
	// probability exceeds 0.8.
	Stable bool `json:"stable"`

	// BelowLongSMA is true when the benchmark close sits below its
	// trailing 200-day average; feeds the policy kill-switch.
	BelowLongSMA bool `json:"below_long_sma"`

	// Source records which detector produced the label: "hmm" or "sma".
	Source string `json:"source"`
}
