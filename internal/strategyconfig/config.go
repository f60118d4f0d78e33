package strategyconfig

// Config is the full strategy definition. Every tunable the engines consume
// lives here; nothing is hard-coded in the engines themselves.
type Config struct {
	Meta        Meta        `yaml:"meta" json:"meta"`
	Indicators  Indicators  `yaml:"indicators" json:"indicators"`
	News        News        `yaml:"news" json:"news"`
	Propagation Propagation `yaml:"propagation" json:"propagation"`
	Regime      Regime      `yaml:"regime" json:"regime"`
	Policy      Policy      `yaml:"policy" json:"policy"`
	Portfolio   Portfolio   `yaml:"portfolio" json:"portfolio"`
	Selector    Selector    `yaml:"selector" json:"selector"`
	Backtest    Backtest    `yaml:"backtest" json:"backtest"`
	Pipeline    Pipeline    `yaml:"pipeline" json:"pipeline"`
}

// Meta identifies the strategy.
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Benchmark  string `yaml:"benchmark" json:"benchmark"`
}

// Indicators configures the indicator engine.
type Indicators struct {
	RollingWindowDays int `yaml:"rolling_window_days" json:"rolling_window_days"` // min-max normalization window
	MinHistoryDays    int `yaml:"min_history_days" json:"min_history_days"`

	// Master-score weight source: "fixed", "regime", "rolling", "regressor"
	WeightMode string `yaml:"weight_mode" json:"weight_mode"`

	FixedWeights  Weights            `yaml:"fixed_weights" json:"fixed_weights"`
	RegimeWeights map[string]Weights `yaml:"regime_weights" json:"regime_weights"` // keyed BULL/BEAR/SIDEWAYS
}

// Weights holds per-category master-score weights.
type Weights struct {
	Trend      float64 `yaml:"trend" json:"trend"`
	Momentum   float64 `yaml:"momentum" json:"momentum"`
	Volume     float64 `yaml:"volume" json:"volume"`
	Volatility float64 `yaml:"volatility" json:"volatility"`
}

// Sum returns the weight total.
func (w Weights) Sum() float64 {
	return w.Trend + w.Momentum + w.Volume + w.Volatility
}

// News configures the news composite engine.
type News struct {
	BlendWeight      float64 `yaml:"blend_weight" json:"blend_weight"`             // master vs news composite
	ShortWindowDays  int     `yaml:"short_window_days" json:"short_window_days"`   // buzz window
	BaselineDays     int     `yaml:"baseline_days" json:"baseline_days"`           // buzz/surprise baseline
	BuzzStdevK       float64 `yaml:"buzz_stdev_k" json:"buzz_stdev_k"`             // threshold = mean + k*stdev
	DedupThreshold   float64 `yaml:"dedup_threshold" json:"dedup_threshold"`       // Jaccard similarity
	EventWindowHours int     `yaml:"event_window_hours" json:"event_window_hours"` // high-impact lookback
	DeepTrigger      float64 `yaml:"deep_trigger" json:"deep_trigger"`             // |surprise-0.5| gate
}

// Propagation configures the supply-chain sentiment spread.
type Propagation struct {
	Tier1DefaultWeight float64 `yaml:"tier1_default_weight" json:"tier1_default_weight"`
	Tier2Weight        float64 `yaml:"tier2_weight" json:"tier2_weight"`
	BlendFactor        float64 `yaml:"blend_factor" json:"blend_factor"`
	MinAbsSentiment    float64 `yaml:"min_abs_sentiment" json:"min_abs_sentiment"` // skip near-neutral sources
}

// Regime configures the detector.
type Regime struct {
	MinObservations int `yaml:"min_observations" json:"min_observations"`
	LongSMADays     int `yaml:"long_sma_days" json:"long_sma_days"`
	HMMIterations   int `yaml:"hmm_iterations" json:"hmm_iterations"`
}

// Policy configures regime gating.
type Policy struct {
	KillSwitchMode string  `yaml:"kill_switch_mode" json:"kill_switch_mode"` // "cash" or "half"
	SidewaysScale  float64 `yaml:"sideways_scale" json:"sideways_scale"`
}

// Portfolio configures selection and sizing.
type Portfolio struct {
	TopN    int `yaml:"top_n" json:"top_n"`
	ATRDays int `yaml:"atr_days" json:"atr_days"`
}

// Selector configures the ledger-driven parameter selectors.
type Selector struct {
	AdaptiveLookback   int       `yaml:"adaptive_lookback" json:"adaptive_lookback"` // K
	StrategyLookback   int       `yaml:"strategy_lookback" json:"strategy_lookback"` // M
	BlendCandidates    []float64 `yaml:"blend_candidates" json:"blend_candidates"`   // news blend weights to choose among
	DefaultBlendWeight float64   `yaml:"default_blend_weight" json:"default_blend_weight"`
}

// Backtest configures the execution model.
type Backtest struct {
	StopLossFloor   float64 `yaml:"stop_loss_floor" json:"stop_loss_floor"`   // e.g. -0.05
	FrictionRate    float64 `yaml:"friction_rate" json:"friction_rate"`       // charged on rebalance days
	TurnoverEpsilon float64 `yaml:"turnover_epsilon" json:"turnover_epsilon"` // weight-change threshold
	RebalanceDays   int     `yaml:"rebalance_days" json:"rebalance_days"`     // trading days between rebalances
}

// Pipeline configures the per-date decision loop.
type Pipeline struct {
	DateTimeout string `yaml:"date_timeout" json:"date_timeout"` // Go duration, e.g. "5m"
}
