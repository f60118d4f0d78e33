package indicator

import (
	"context"
	"math"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/pkg/logger"
)

// definition describes one indicator: which category it belongs to, how its
// raw series is computed, and how it is normalized. Inverted indicators
// (volatility measures) score higher when the raw value is lower.
type definition struct {
	name     string
	category contracts.Category
	series   func(bars []contracts.PriceBar) []float64
	bounded  bool // fixed 0..100 rescale instead of rolling min-max
	inverted bool
}

func definitions() []definition {
	return []definition{
		// Trend
		{name: "sma_ratio", category: contracts.CategoryTrend,
			series: smaRatioSeries},
		{name: "macd_hist", category: contracts.CategoryTrend,
			series: macdHistSeries},
		{name: "price_vs_sma200", category: contracts.CategoryTrend,
			series: func(b []contracts.PriceBar) []float64 { return priceVsSMASeries(b, 200) }},

		// Momentum
		{name: "rsi14", category: contracts.CategoryMomentum,
			series: func(b []contracts.PriceBar) []float64 { return rsiSeries(b, 14) }, bounded: true},
		{name: "roc20", category: contracts.CategoryMomentum,
			series: func(b []contracts.PriceBar) []float64 { return rocSeries(b, 20) }},
		{name: "stoch_k", category: contracts.CategoryMomentum,
			series: func(b []contracts.PriceBar) []float64 { return stochKSeries(b, 14) }, bounded: true},

		// Volume
		{name: "obv_slope", category: contracts.CategoryVolume,
			series: func(b []contracts.PriceBar) []float64 { return obvSlopeSeries(b, 20) }},
		{name: "volume_ratio", category: contracts.CategoryVolume,
			series: func(b []contracts.PriceBar) []float64 { return volumeRatioSeries(b, 20) }},

		// Volatility: calmer is better, so these invert
		{name: "atr_pct", category: contracts.CategoryVolatility,
			series: func(b []contracts.PriceBar) []float64 { return atrPctSeries(b, 14) }, inverted: true},
		{name: "ret_stdev20", category: contracts.CategoryVolatility,
			series: func(b []contracts.PriceBar) []float64 { return returnStdevSeries(b, 20) }, inverted: true},
		{name: "bb_width", category: contracts.CategoryVolatility,
			series: func(b []contracts.PriceBar) []float64 { return bollingerWidthSeries(b, 20) }, inverted: true},
	}
}

// Engine computes one IndicatorRow per ticker/date: raw indicators,
// normalized values, category scores and the weighted master score.
type Engine struct {
	cfg       strategyconfig.Indicators
	weightSrc contracts.WeightSource
	scorer    contracts.ExternalScorer // optional
	defs      []definition
	logger    *logger.Logger
}

// NewEngine creates a new indicator engine. weightSrc decides the
// master-score weights; scorer may be nil.
func NewEngine(cfg strategyconfig.Indicators, weightSrc contracts.WeightSource, scorer contracts.ExternalScorer, log *logger.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		weightSrc: weightSrc,
		scorer:    scorer,
		defs:      definitions(),
		logger:    log,
	}
}

// Compute produces the IndicatorRow for the last bar of history. history
// must already be truncated at the decision date; nothing after its last
// bar is ever consulted. catHistory holds trailing per-category strategy
// returns strictly before the decision date, for dynamic weight fitting.
func (e *Engine) Compute(ctx context.Context, history []contracts.PriceBar, regime contracts.RegimeLabel, catHistory map[contracts.Category][]float64) (*contracts.IndicatorRow, error) {
	if len(history) == 0 {
		return nil, contracts.ErrInsufficientData
	}

	last := history[len(history)-1]
	row := &contracts.IndicatorRow{
		Ticker:         last.Ticker,
		Date:           last.Date,
		Raw:            make(map[string]float64, len(e.defs)),
		Normalized:     make(map[string]float64, len(e.defs)),
		CategoryScores: make(map[contracts.Category]float64, 4),
	}

	idx := len(history) - 1
	shortHistory := len(history) < e.cfg.MinHistoryDays

	catSums := make(map[contracts.Category]float64, 4)
	catCounts := make(map[contracts.Category]int, 4)

	for _, def := range e.defs {
		norm := neutral
		if !shortHistory {
			series := def.series(history)
			raw := series[idx]
			if !math.IsNaN(raw) {
				row.Raw[def.name] = raw
				if def.bounded {
					norm = normalizeBounded(raw, 0, 100)
				} else {
					norm = normalizeRolling(series, idx, e.cfg.RollingWindowDays)
				}
				if def.inverted {
					norm = 1 - norm
				}
			}
		}

		row.Normalized[def.name] = norm
		catSums[def.category] += norm
		catCounts[def.category]++
	}

	for _, c := range contracts.AllCategories() {
		if catCounts[c] > 0 {
			row.CategoryScores[c] = catSums[c] / float64(catCounts[c])
		} else {
			row.CategoryScores[c] = neutral
		}
	}

	weights := e.resolveWeights(ctx, regime, catHistory)
	row.MasterScore = masterScore(row.CategoryScores, weights)

	// External scorer blends in equally when present; its training and
	// loading are out of scope here.
	if e.scorer != nil {
		if s, ok := e.scorer.Score(ctx, row.Ticker, row.Date, row); ok {
			row.MasterScore = clamp01((row.MasterScore + clamp01(s)) / 2)
		}
	}

	// ATR from the bar before the decision bar, so sizing never reads the
	// decision bar itself.
	row.NormalizedATR = priorATR(history, e.cfg.MinHistoryDays)

	return row, nil
}

// resolveWeights asks the configured weight source; a decline falls back to
// the fixed config weights.
func (e *Engine) resolveWeights(ctx context.Context, regime contracts.RegimeLabel, catHistory map[contracts.Category][]float64) contracts.CategoryWeights {
	if e.weightSrc != nil {
		if w, ok := e.weightSrc.Weights(ctx, regime, catHistory); ok {
			return w.Normalize()
		}
	}
	return fixedWeights(e.cfg.FixedWeights).Normalize()
}

// masterScore is the weighted sum of category scores over normalized
// weights, clamped to [0,1].
func masterScore(scores map[contracts.Category]float64, weights contracts.CategoryWeights) float64 {
	num, den := 0.0, 0.0
	for c, s := range scores {
		w := weights[c]
		num += w * s
		den += w
	}
	if den <= 0 {
		return neutral
	}
	return clamp01(num / den)
}

// priorATR returns ATR(14)/close as of the second-to-last bar. With too
// little history it returns 0, which sizing treats as missing.
func priorATR(history []contracts.PriceBar, minHistory int) float64 {
	if len(history) < 2 || len(history)-1 < minHistory {
		return 0
	}
	prior := history[:len(history)-1]
	series := atrPctSeries(prior, 14)
	v := series[len(series)-1]
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
