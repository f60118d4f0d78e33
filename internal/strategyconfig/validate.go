package strategyconfig

import (
	"fmt"
	"time"
)

// Validate checks the strategy config for internally inconsistent values.
// A run aborts on validation failure.
func Validate(cfg *Config) error {
	if cfg.Meta.StrategyID == "" {
		return fmt.Errorf("meta.strategy_id is required")
	}
	if cfg.Meta.Benchmark == "" {
		return fmt.Errorf("meta.benchmark is required")
	}

	if cfg.Indicators.RollingWindowDays < 20 {
		return fmt.Errorf("indicators.rolling_window_days must be >= 20, got %d", cfg.Indicators.RollingWindowDays)
	}
	if cfg.Indicators.MinHistoryDays < 1 {
		return fmt.Errorf("indicators.min_history_days must be positive")
	}

	switch cfg.Indicators.WeightMode {
	case "fixed", "regime", "rolling", "regressor":
	default:
		return fmt.Errorf("indicators.weight_mode must be one of: fixed, regime, rolling, regressor")
	}

	if s := cfg.Indicators.FixedWeights.Sum(); s <= 0 {
		return fmt.Errorf("indicators.fixed_weights must have a positive sum, got %f", s)
	}
	for regime, w := range cfg.Indicators.RegimeWeights {
		if regime != "BULL" && regime != "BEAR" && regime != "SIDEWAYS" {
			return fmt.Errorf("indicators.regime_weights: unknown regime %q", regime)
		}
		if w.Sum() <= 0 {
			return fmt.Errorf("indicators.regime_weights[%s] must have a positive sum", regime)
		}
	}

	if cfg.News.BlendWeight < 0 || cfg.News.BlendWeight > 1 {
		return fmt.Errorf("news.blend_weight must be in [0,1], got %f", cfg.News.BlendWeight)
	}
	if cfg.News.DedupThreshold <= 0 || cfg.News.DedupThreshold > 1 {
		return fmt.Errorf("news.dedup_threshold must be in (0,1], got %f", cfg.News.DedupThreshold)
	}
	if cfg.News.ShortWindowDays < 1 || cfg.News.BaselineDays < cfg.News.ShortWindowDays {
		return fmt.Errorf("news windows invalid: short=%d baseline=%d", cfg.News.ShortWindowDays, cfg.News.BaselineDays)
	}

	if cfg.Propagation.Tier1DefaultWeight <= 0 || cfg.Propagation.Tier1DefaultWeight >= 1 {
		return fmt.Errorf("propagation.tier1_default_weight must be in (0,1)")
	}
	if cfg.Propagation.Tier2Weight <= 0 || cfg.Propagation.Tier2Weight >= cfg.Propagation.Tier1DefaultWeight {
		return fmt.Errorf("propagation.tier2_weight must be positive and below tier1")
	}
	if cfg.Propagation.BlendFactor < 0 || cfg.Propagation.BlendFactor > 1 {
		return fmt.Errorf("propagation.blend_factor must be in [0,1]")
	}

	if cfg.Regime.MinObservations < 30 {
		return fmt.Errorf("regime.min_observations must be >= 30, got %d", cfg.Regime.MinObservations)
	}
	if cfg.Regime.LongSMADays < 20 {
		return fmt.Errorf("regime.long_sma_days must be >= 20, got %d", cfg.Regime.LongSMADays)
	}

	if cfg.Policy.KillSwitchMode != "cash" && cfg.Policy.KillSwitchMode != "half" {
		return fmt.Errorf("policy.kill_switch_mode must be \"cash\" or \"half\", got %q", cfg.Policy.KillSwitchMode)
	}
	if cfg.Policy.SidewaysScale <= 0 || cfg.Policy.SidewaysScale > 1 {
		return fmt.Errorf("policy.sideways_scale must be in (0,1], got %f", cfg.Policy.SidewaysScale)
	}

	if cfg.Portfolio.TopN < 1 {
		return fmt.Errorf("portfolio.top_n must be positive, got %d", cfg.Portfolio.TopN)
	}
	if cfg.Portfolio.ATRDays < 2 {
		return fmt.Errorf("portfolio.atr_days must be >= 2, got %d", cfg.Portfolio.ATRDays)
	}

	if cfg.Selector.AdaptiveLookback < 1 || cfg.Selector.StrategyLookback < 1 {
		return fmt.Errorf("selector lookbacks must be positive")
	}
	if len(cfg.Selector.BlendCandidates) == 0 {
		return fmt.Errorf("selector.blend_candidates must not be empty")
	}

	if cfg.Backtest.StopLossFloor >= 0 {
		return fmt.Errorf("backtest.stop_loss_floor must be negative, got %f", cfg.Backtest.StopLossFloor)
	}
	if cfg.Backtest.FrictionRate < 0 {
		return fmt.Errorf("backtest.friction_rate must be non-negative")
	}
	if cfg.Backtest.RebalanceDays < 1 {
		return fmt.Errorf("backtest.rebalance_days must be positive")
	}

	if cfg.Pipeline.DateTimeout != "" {
		if _, err := time.ParseDuration(cfg.Pipeline.DateTimeout); err != nil {
			return fmt.Errorf("pipeline.date_timeout invalid: %w", err)
		}
	}

	return nil
}

// DateTimeout parses the per-date budget, defaulting to 5 minutes.
func (c *Config) DateTimeout() time.Duration {
	if c.Pipeline.DateTimeout == "" {
		return 5 * time.Minute
	}
	d, err := time.ParseDuration(c.Pipeline.DateTimeout)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}
