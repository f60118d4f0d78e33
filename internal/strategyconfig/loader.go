package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the strategy YAML. KnownFields(true) makes typos and unused
// fields fail immediately instead of silently defaulting.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode strategy config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Hash generates a SHA256 hash of the canonical JSON form. Structs (not
// maps) keep field order deterministic, so identical configs hash
// identically across runs.
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// Default returns the built-in strategy used when no YAML is supplied.
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "meridian_weekly_v1",
			Version:    "1.0.0",
			Benchmark:  "SPY",
		},
		Indicators: Indicators{
			RollingWindowDays: 252,
			MinHistoryDays:    60,
			WeightMode:        "fixed",
			FixedWeights:      Weights{Trend: 0.30, Momentum: 0.30, Volume: 0.20, Volatility: 0.20},
			RegimeWeights: map[string]Weights{
				"BULL":     {Trend: 0.35, Momentum: 0.35, Volume: 0.15, Volatility: 0.15},
				"BEAR":     {Trend: 0.25, Momentum: 0.15, Volume: 0.20, Volatility: 0.40},
				"SIDEWAYS": {Trend: 0.20, Momentum: 0.25, Volume: 0.25, Volatility: 0.30},
			},
		},
		News: News{
			BlendWeight:      0.30,
			ShortWindowDays:  3,
			BaselineDays:     30,
			BuzzStdevK:       2.0,
			DedupThreshold:   0.85,
			EventWindowHours: 48,
			DeepTrigger:      0.15,
		},
		Propagation: Propagation{
			Tier1DefaultWeight: 0.5,
			Tier2Weight:        0.2,
			BlendFactor:        0.3,
			MinAbsSentiment:    0.05,
		},
		Regime: Regime{
			MinObservations: 60,
			LongSMADays:     200,
			HMMIterations:   50,
		},
		Policy: Policy{
			KillSwitchMode: "cash",
			SidewaysScale:  0.5,
		},
		Portfolio: Portfolio{
			TopN:    5,
			ATRDays: 14,
		},
		Selector: Selector{
			AdaptiveLookback:   3,
			StrategyLookback:   4,
			BlendCandidates:    []float64{0.0, 0.3, 0.5},
			DefaultBlendWeight: 0.3,
		},
		Backtest: Backtest{
			StopLossFloor:   -0.05,
			FrictionRate:    0.0015,
			TurnoverEpsilon: 0.01,
			RebalanceDays:   5,
		},
		Pipeline: Pipeline{
			DateTimeout: "5m",
		},
	}
}
