package contracts

import "time"

// Category is one of the four indicator categories.
type Category string

const (
	CategoryTrend      Category = "trend"
	CategoryMomentum   Category = "momentum"
	CategoryVolume     Category = "volume"
	CategoryVolatility Category = "volatility"
)

// AllCategories returns the categories in canonical order.
func AllCategories() []Category {
	return []Category{CategoryTrend, CategoryMomentum, CategoryVolume, CategoryVolatility}
}

// IndicatorRow holds raw and normalized indicator values for one
// ticker/date, derived only from bars up to and including that date.
type IndicatorRow struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`

	// Raw values keyed by indicator name
	Raw map[string]float64 `json:"raw"`

	// Normalized values in [0,1] keyed by indicator name
	Normalized map[string]float64 `json:"normalized"`

	// Category means of normalized members, each in [0,1]
	CategoryScores map[Category]float64 `json:"category_scores"`

	// Weighted composite in [0,1]
	MasterScore float64 `json:"master_score"`

	// ATR/close from the prior bar; used by position sizing
	NormalizedATR float64 `json:"normalized_atr"`
}

// CategoryWeights maps categories to their master-score weights.
type CategoryWeights map[Category]float64

// Normalize rescales the weights to sum to 1. Non-positive totals return
// equal weights.
func (w CategoryWeights) Normalize() CategoryWeights {
	total := 0.0
	for _, v := range w {
		if v > 0 {
			total += v
		}
	}

	out := make(CategoryWeights, len(w))
	if total <= 0 {
		for _, c := range AllCategories() {
			out[c] = 0.25
		}
		return out
	}
	for c, v := range w {
		if v < 0 {
			v = 0
		}
		out[c] = v / total
	}
	return out
}

// Sum returns the raw total of the weights.
func (w CategoryWeights) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}
