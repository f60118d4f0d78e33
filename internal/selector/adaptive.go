package selector

import (
	"context"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/pkg/logger"
)

// AdaptiveSelector picks the news blend weight for the next period from
// recent same-regime ledger history. It is a pure query: the ledger is
// never written here, and the same ledger state always yields the same
// choice.
type AdaptiveSelector struct {
	cfg    strategyconfig.Selector
	ledger contracts.LedgerStore
	logger *logger.Logger
}

// NewAdaptiveSelector creates the blend-weight selector.
func NewAdaptiveSelector(cfg strategyconfig.Selector, store contracts.LedgerStore, log *logger.Logger) *AdaptiveSelector {
	return &AdaptiveSelector{cfg: cfg, ledger: store, logger: log}
}

// BlendWeight returns the candidate blend weight with the best average
// return over the last K same-regime rows. Fewer than K matching rows is
// too thin a sample and returns the configured default, as do ledger
// read failures.
func (s *AdaptiveSelector) BlendWeight(ctx context.Context, regime contracts.RegimeLabel) float64 {
	records, err := s.ledger.Records(ctx)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Warn("Ledger read failed, using default blend weight")
		return s.cfg.DefaultBlendWeight
	}

	recent := lastMatching(records, regime, s.cfg.AdaptiveLookback)
	if len(recent) < s.cfg.AdaptiveLookback {
		return s.cfg.DefaultBlendWeight
	}

	// Average return per candidate weight observed in the window
	sums := make(map[float64]float64)
	counts := make(map[float64]int)
	for _, rec := range recent {
		p, err := DecodeParams(rec.ParamsID)
		if err != nil {
			continue
		}
		sums[p.NewsBlendWeight] += rec.Return
		counts[p.NewsBlendWeight]++
	}

	best := s.cfg.DefaultBlendWeight
	bestAvg := 0.0
	found := false
	for _, cand := range s.cfg.BlendCandidates {
		n, ok := counts[cand]
		if !ok {
			continue
		}
		avg := sums[cand] / float64(n)
		if !found || avg > bestAvg {
			best, bestAvg, found = cand, avg, true
		}
	}
	if !found {
		return s.cfg.DefaultBlendWeight
	}
	return best
}

// lastMatching returns up to limit most recent records with the given
// regime label, preserving append order.
func lastMatching(records []contracts.LedgerRecord, regime contracts.RegimeLabel, limit int) []contracts.LedgerRecord {
	var matched []contracts.LedgerRecord
	for _, rec := range records {
		if rec.Regime == regime {
			matched = append(matched, rec)
		}
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}
