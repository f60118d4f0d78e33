package contracts

import (
	"math"
	"time"
)

// GatedScore is a ticker's blended score after regime-based adjustment.
type GatedScore struct {
	Ticker string  `json:"ticker"`
	Score  float64 `json:"score"`
}

// IntentMode tags how the portfolio decision was produced.
type IntentMode string

const (
	ModeNormal   IntentMode = "Normal"
	ModeCash     IntentMode = "Cash"
	ModeHalfSize IntentMode = "HalfSize"
	ModeReduced  IntentMode = "Reduced" // sideways risk scaling applied
)

// Intent is one rebalance decision: an ordered ticker list with target
// weights. Weights sum to at most 1; a full de-risk intent has all zeros.
type Intent struct {
	Date    time.Time          `json:"date"`
	Mode    IntentMode         `json:"mode"`
	Tickers []string           `json:"tickers"` // ranked, best first
	Weights map[string]float64 `json:"weights"`
	Meta    map[string]string  `json:"meta,omitempty"`
}

// EmptyIntent returns an all-cash intent for a date.
func EmptyIntent(date time.Time, mode IntentMode) *Intent {
	return &Intent{
		Date:    date,
		Mode:    mode,
		Tickers: []string{},
		Weights: map[string]float64{},
	}
}

// TotalWeight returns the sum of position weights.
func (in *Intent) TotalWeight() float64 {
	total := 0.0
	for _, w := range in.Weights {
		total += w
	}
	return total
}

// IsCash reports whether the intent holds no positions.
func (in *Intent) IsCash() bool {
	return in.TotalWeight() < 1e-12
}

// WeightsEqual reports whether two weight vectors differ by less than eps
// in L1 distance. The backtest uses it to decide whether friction applies.
func WeightsEqual(a, b map[string]float64, eps float64) bool {
	dist := 0.0
	seen := make(map[string]bool, len(a))
	for k, v := range a {
		dist += math.Abs(v - b[k])
		seen[k] = true
	}
	for k, v := range b {
		if !seen[k] {
			dist += math.Abs(v)
		}
	}
	return dist <= eps
}
