package contracts

import (
	"context"
	"time"
)

// PriceSource supplies per-ticker OHLCV history. Implementations live in
// internal/ingest; the core only reads.
type PriceSource interface {
	// Bars returns the full date-ascending history for a ticker.
	Bars(ctx context.Context, ticker string) (*BarSeries, error)
}

// NewsSource supplies per-ticker articles within a date range, inclusive.
type NewsSource interface {
	Articles(ctx context.Context, ticker string, from, to time.Time) ([]Article, error)
}

// RelationshipSource supplies the supply-chain relationship table. A
// missing ticker is not an error; implementations return an empty set.
type RelationshipSource interface {
	Relationships(ctx context.Context, ticker string) (RelationshipSet, error)
}

// DeepAnalysisResult is the gated external classifier's contribution.
type DeepAnalysisResult struct {
	Ticker             string             `json:"ticker"`
	Date               time.Time          `json:"date"`
	SentimentAdjust    float64            `json:"sentiment_adjust"` // [-1,1]
	DiscoveredEntities []DiscoveredEntity `json:"discovered_entities,omitempty"`
}

// DeepAnalyzer is the optional external deep-analysis step. Failures are
// fail-open: callers treat any error as "contributes nothing".
type DeepAnalyzer interface {
	Analyze(ctx context.Context, ticker string, date time.Time, headlines []string) (*DeepAnalysisResult, error)
}

// ExternalScorer optionally contributes a score in [0,1] blended into the
// master score. The trained-model path is out of scope; ok=false declines.
type ExternalScorer interface {
	Score(ctx context.Context, ticker string, date time.Time, row *IndicatorRow) (score float64, ok bool)
}

// WeightSource produces category weights for the master score. returns
// ok=false to decline, in which case the engine falls back to fixed
// weights. history holds trailing per-category strategy returns strictly
// before the decision date.
type WeightSource interface {
	Weights(ctx context.Context, regime RegimeLabel, history map[Category][]float64) (CategoryWeights, bool)
}
