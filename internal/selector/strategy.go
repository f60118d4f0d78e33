package selector

import (
	"context"
	"math"
	"sort"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/pkg/logger"
)

// StrategySelector picks the full parameter set for the next period by
// win rate over recent same-regime ledger rows, grouped by ParamsID.
// Like the adaptive selector it is a pure, idempotent query.
type StrategySelector struct {
	cfg    strategyconfig.Selector
	ledger contracts.LedgerStore
	logger *logger.Logger
}

// NewStrategySelector creates the parameter-set selector.
func NewStrategySelector(cfg strategyconfig.Selector, store contracts.LedgerStore, log *logger.Logger) *StrategySelector {
	return &StrategySelector{cfg: cfg, ledger: store, logger: log}
}

// candidate aggregates one ParamsID's performance in the window.
type candidate struct {
	id      string
	rows    int
	wins    int
	worstDD float64
	returns []float64
}

func (c candidate) winRate() float64 {
	return float64(c.wins) / float64(c.rows)
}

// sharpeLike is mean return over stdev. Identical returns have zero
// dispersion; the ratio then follows the sign of the mean so that a
// degenerate-but-profitable group still qualifies.
func (c candidate) sharpeLike() float64 {
	if len(c.returns) < 2 {
		return 0
	}
	m := 0.0
	for _, r := range c.returns {
		m += r
	}
	m /= float64(len(c.returns))
	v := 0.0
	for _, r := range c.returns {
		d := r - m
		v += d * d
	}
	sd := math.Sqrt(v / float64(len(c.returns)-1))
	if sd == 0 {
		switch {
		case m > 0:
			return math.Inf(1)
		case m < 0:
			return math.Inf(-1)
		default:
			return 0
		}
	}
	return m / sd
}

// Select returns the winning Params and true, or fallback and false when
// no candidate qualifies. A candidate needs at least two rows in the
// window and a positive risk-adjusted return; ties on win rate break
// toward the smaller worst drawdown, then lexicographic ParamsID.
func (s *StrategySelector) Select(ctx context.Context, regime contracts.RegimeLabel, fallback Params) (Params, bool) {
	records, err := s.ledger.Records(ctx)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Warn("Ledger read failed, keeping fallback params")
		return fallback, false
	}

	recent := lastMatching(records, regime, s.cfg.StrategyLookback)
	if len(recent) == 0 {
		return fallback, false
	}

	byID := make(map[string]*candidate)
	for _, rec := range recent {
		c, ok := byID[rec.ParamsID]
		if !ok {
			c = &candidate{id: rec.ParamsID}
			byID[rec.ParamsID] = c
		}
		c.rows++
		if rec.Return > 0 {
			c.wins++
		}
		if rec.Drawdown < c.worstDD {
			c.worstDD = rec.Drawdown
		}
		c.returns = append(c.returns, rec.Return)
	}

	var qualified []*candidate
	for _, c := range byID {
		if c.rows < 2 {
			continue
		}
		if c.sharpeLike() <= 0 {
			continue
		}
		qualified = append(qualified, c)
	}
	if len(qualified) == 0 {
		return fallback, false
	}

	sort.Slice(qualified, func(a, b int) bool {
		ca, cb := qualified[a], qualified[b]
		if ca.winRate() != cb.winRate() {
			return ca.winRate() > cb.winRate()
		}
		if ca.worstDD != cb.worstDD {
			return ca.worstDD > cb.worstDD // less negative drawdown wins
		}
		return ca.id < cb.id
	})

	winner, err := DecodeParams(qualified[0].id)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"params_id": qualified[0].id,
			"error":     err.Error(),
		}).Warn("Winning params_id undecodable, keeping fallback")
		return fallback, false
	}
	return winner, true
}
