package portfolio

import (
	"sort"
	"time"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/policy"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/pkg/logger"
)

// Engine ranks gated scores, keeps the top N, and sizes positions by
// inverse normalized ATR so volatile names get smaller weights. ATR
// values come from the bar before the decision date.
type Engine struct {
	cfg    strategyconfig.Portfolio
	logger *logger.Logger
}

// NewEngine creates a portfolio engine.
func NewEngine(cfg strategyconfig.Portfolio, log *logger.Logger) *Engine {
	return &Engine{cfg: cfg, logger: log}
}

// Build turns a gate result into an intent. atr maps ticker to
// normalized ATR; a missing or non-positive entry falls back to the
// median ATR of the selected names.
func (e *Engine) Build(date time.Time, gate policy.GateResult, atr map[string]float64) *contracts.Intent {
	if gate.Scale == 0 || len(gate.Scores) == 0 {
		return contracts.EmptyIntent(date, gate.Mode)
	}

	ranked := e.rank(gate.Scores)
	if len(ranked) == 0 {
		return contracts.EmptyIntent(date, gate.Mode)
	}
	if len(ranked) > e.cfg.TopN {
		ranked = ranked[:e.cfg.TopN]
	}

	weights := e.size(ranked, atr)

	intent := &contracts.Intent{
		Date:    date,
		Mode:    gate.Mode,
		Tickers: make([]string, 0, len(ranked)),
		Weights: make(map[string]float64, len(ranked)),
	}
	for _, s := range ranked {
		intent.Tickers = append(intent.Tickers, s.Ticker)
		intent.Weights[s.Ticker] = weights[s.Ticker] * gate.Scale
	}
	return intent
}

// rank sorts by score descending with ticker as the deterministic
// tie-break, dropping zero scores.
func (e *Engine) rank(scores []contracts.GatedScore) []contracts.GatedScore {
	ranked := make([]contracts.GatedScore, 0, len(scores))
	for _, s := range scores {
		if s.Score > 0 {
			ranked = append(ranked, s)
		}
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].Score != ranked[b].Score {
			return ranked[a].Score > ranked[b].Score
		}
		return ranked[a].Ticker < ranked[b].Ticker
	})
	return ranked
}

// size computes inverse-ATR weights normalized to sum 1.
func (e *Engine) size(ranked []contracts.GatedScore, atr map[string]float64) map[string]float64 {
	resolved := make(map[string]float64, len(ranked))
	var known []float64
	for _, s := range ranked {
		if v, ok := atr[s.Ticker]; ok && v > 0 {
			resolved[s.Ticker] = v
			known = append(known, v)
		}
	}

	fallback := median(known)
	for _, s := range ranked {
		if _, ok := resolved[s.Ticker]; !ok {
			if fallback > 0 {
				e.logger.WithFields(map[string]interface{}{
					"ticker": s.Ticker,
				}).Warn("Missing ATR, using selection median")
				resolved[s.Ticker] = fallback
			} else {
				resolved[s.Ticker] = 1 // equal weighting when no ATR is known
			}
		}
	}

	total := 0.0
	inv := make(map[string]float64, len(ranked))
	for _, s := range ranked {
		w := 1 / resolved[s.Ticker]
		inv[s.Ticker] = w
		total += w
	}

	weights := make(map[string]float64, len(ranked))
	for t, w := range inv {
		weights[t] = w / total
	}
	return weights
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64{}, vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
