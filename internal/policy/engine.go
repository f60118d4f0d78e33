package policy

import (
	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/pkg/logger"
)

// Engine applies regime gating between scoring and sizing. The kill
// switch fires only on the conjunction of a BEAR label and a close below
// the long SMA; either signal alone passes through unchanged.
type Engine struct {
	cfg    strategyconfig.Policy
	logger *logger.Logger
}

// GateResult carries the gated scores plus the sizing directives the
// portfolio stage must honor.
type GateResult struct {
	Scores []contracts.GatedScore
	Mode   contracts.IntentMode

	// Scale multiplies every position weight after sizing; 1 means no
	// adjustment, 0 means full cash.
	Scale float64
}

// NewEngine creates the policy gate.
func NewEngine(cfg strategyconfig.Policy, log *logger.Logger) *Engine {
	return &Engine{cfg: cfg, logger: log}
}

// Gate evaluates the kill switch and risk scaling for one decision date.
func (e *Engine) Gate(regime contracts.RegimeState, scores []contracts.GatedScore) GateResult {
	if regime.Label == contracts.RegimeBear && regime.BelowLongSMA {
		if e.cfg.KillSwitchMode == "half" {
			e.logger.WithFields(map[string]interface{}{
				"regime": string(regime.Label),
				"mode":   "half",
			}).Warn("Kill switch fired, halving exposure")
			return GateResult{Scores: scores, Mode: contracts.ModeHalfSize, Scale: 0.5}
		}
		e.logger.WithFields(map[string]interface{}{
			"regime": string(regime.Label),
			"mode":   "cash",
		}).Warn("Kill switch fired, moving to cash")
		return GateResult{Scores: nil, Mode: contracts.ModeCash, Scale: 0}
	}

	if regime.Label == contracts.RegimeSideways {
		return GateResult{Scores: scores, Mode: contracts.ModeReduced, Scale: e.cfg.SidewaysScale}
	}

	return GateResult{Scores: scores, Mode: contracts.ModeNormal, Scale: 1}
}
