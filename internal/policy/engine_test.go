package policy

import (
	"testing"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/pkg/logger"
)

func gateScores() []contracts.GatedScore {
	return []contracts.GatedScore{
		{Ticker: "AAA", Score: 0.9},
		{Ticker: "BBB", Score: 0.7},
	}
}

func TestKillSwitchRequiresBothSignals(t *testing.T) {
	eng := NewEngine(strategyconfig.Default().Policy, logger.NewNop())

	cases := []struct {
		name     string
		label    contracts.RegimeLabel
		below    bool
		wantMode contracts.IntentMode
	}{
		{"bear below sma", contracts.RegimeBear, true, contracts.ModeCash},
		{"bear above sma", contracts.RegimeBear, false, contracts.ModeNormal},
		{"bull below sma", contracts.RegimeBull, true, contracts.ModeNormal},
		{"bull above sma", contracts.RegimeBull, false, contracts.ModeNormal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := eng.Gate(contracts.RegimeState{Label: tc.label, BelowLongSMA: tc.below}, gateScores())
			if res.Mode != tc.wantMode {
				t.Errorf("mode = %s, want %s", res.Mode, tc.wantMode)
			}
		})
	}
}

func TestCashModeZeroesEverything(t *testing.T) {
	eng := NewEngine(strategyconfig.Default().Policy, logger.NewNop())

	res := eng.Gate(contracts.RegimeState{Label: contracts.RegimeBear, BelowLongSMA: true}, gateScores())
	if res.Scale != 0 {
		t.Errorf("cash mode scale = %f, want 0", res.Scale)
	}
	if len(res.Scores) != 0 {
		t.Errorf("cash mode should drop all scores, got %d", len(res.Scores))
	}
}

func TestHalfModeKeepsScores(t *testing.T) {
	cfg := strategyconfig.Default().Policy
	cfg.KillSwitchMode = "half"
	eng := NewEngine(cfg, logger.NewNop())

	res := eng.Gate(contracts.RegimeState{Label: contracts.RegimeBear, BelowLongSMA: true}, gateScores())
	if res.Mode != contracts.ModeHalfSize {
		t.Errorf("mode = %s, want HalfSize", res.Mode)
	}
	if res.Scale != 0.5 {
		t.Errorf("scale = %f, want 0.5", res.Scale)
	}
	if len(res.Scores) != 2 {
		t.Errorf("half mode should keep scores, got %d", len(res.Scores))
	}
}

func TestSidewaysScaling(t *testing.T) {
	eng := NewEngine(strategyconfig.Default().Policy, logger.NewNop())

	res := eng.Gate(contracts.RegimeState{Label: contracts.RegimeSideways}, gateScores())
	if res.Mode != contracts.ModeReduced {
		t.Errorf("mode = %s, want Reduced", res.Mode)
	}
	if res.Scale != 0.5 {
		t.Errorf("sideways scale = %f, want 0.5", res.Scale)
	}
}

func TestUnknownRegimePassesThrough(t *testing.T) {
	eng := NewEngine(strategyconfig.Default().Policy, logger.NewNop())

	res := eng.Gate(contracts.RegimeState{Label: contracts.RegimeUnknown}, gateScores())
	if res.Mode != contracts.ModeNormal || res.Scale != 1 {
		t.Errorf("unknown regime should pass through, got mode=%s scale=%f", res.Mode, res.Scale)
	}
}
