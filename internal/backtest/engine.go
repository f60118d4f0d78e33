package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/pkg/logger"
)

// Engine replays a sequence of intents against historical bars. A
// rebalance takes effect on the bar after the decision date: newly
// selected names earn open-to-close on that bar, carried names stay
// close-to-close. A single-day return at or below the stop-loss floor
// zeroes a name until the next rebalance, and friction is charged
// whenever the held weight vector actually moves, stop exits included.
type Engine struct {
	cfg       strategyconfig.Backtest
	benchmark string
	prices    contracts.PriceSource
	logger    *logger.Logger
}

// Result summarizes one backtest run.
type Result struct {
	Equity      []EquityPoint `json:"equity"`
	TotalReturn float64       `json:"total_return"`
	Sharpe      float64       `json:"sharpe"`
	MaxDrawdown float64       `json:"max_drawdown"`
	Days        int           `json:"days"`
	Stops       int           `json:"stops"`     // stop-loss triggers
	Frictions   int           `json:"frictions"` // rebalances that paid costs
}

// EquityPoint is one day of the equity curve.
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// NewEngine creates a backtest engine. benchmark supplies the trading
// calendar.
func NewEngine(cfg strategyconfig.Backtest, benchmark string, prices contracts.PriceSource, log *logger.Logger) *Engine {
	return &Engine{cfg: cfg, benchmark: benchmark, prices: prices, logger: log}
}

// position tracks one held name within a rebalance period.
type position struct {
	weight  float64
	fresh   bool // newly selected at the last rebalance, enters at the open
	stopped bool
}

// Run replays intents, chronological by date, through the last calendar
// day at or before end.
func (e *Engine) Run(ctx context.Context, intents []*contracts.Intent, end time.Time) (*Result, error) {
	if len(intents) == 0 {
		return nil, contracts.ErrNoUsableInput
	}

	calendar, err := e.calendar(ctx, end)
	if err != nil {
		return nil, err
	}

	bars, err := e.loadBars(ctx, intents)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	equity := 1.0
	var daily []float64

	positions := map[string]*position{}
	prevWeights := map[string]float64{}
	nextIntent := 0

	for di, day := range calendar {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Rebalance decided on a prior day takes effect this bar
		entered := false
		for nextIntent < len(intents) && intents[nextIntent].Date.Before(day) {
			intent := intents[nextIntent]
			nextIntent++

			if !contracts.WeightsEqual(intent.Weights, prevWeights, e.cfg.TurnoverEpsilon) {
				equity *= 1 - e.cfg.FrictionRate
				res.Frictions++
			}
			carried := map[string]bool{}
			for t, pos := range positions {
				if !pos.stopped {
					carried[t] = true
				}
			}
			positions = map[string]*position{}
			for t, w := range intent.Weights {
				if w > 0 {
					positions[t] = &position{weight: w, fresh: !carried[t]}
				}
			}
			prevWeights = intent.Weights
			entered = true
		}

		dayRet := 0.0
		stoppedToday := false
		for ticker, pos := range positions {
			if pos.stopped {
				continue
			}
			bar, ok := bars[ticker][day.Unix()]
			if !ok {
				continue
			}

			var r float64
			if entered && pos.fresh {
				// First held bar of a new name: entry at the open
				if bar.Open <= 0 {
					continue
				}
				r = bar.Close/bar.Open - 1
			} else {
				if di == 0 {
					continue
				}
				prev, ok := bars[ticker][calendar[di-1].Unix()]
				if !ok {
					continue
				}
				r = bar.Close/prev.Close - 1
			}

			dayRet += pos.weight * r

			if r <= e.cfg.StopLossFloor {
				pos.stopped = true
				stoppedToday = true
				res.Stops++
				e.logger.WithFields(map[string]interface{}{
					"ticker": ticker,
					"date":   day.Format("2006-01-02"),
					"ret":    fmt.Sprintf("%.4f", r),
				}).Info("Stop-loss triggered, position flat until next rebalance")
			}
		}

		equity *= 1 + dayRet

		// A stop exit is turnover like any other weight change.
		if stoppedToday {
			current := map[string]float64{}
			for t, pos := range positions {
				if !pos.stopped {
					current[t] = pos.weight
				}
			}
			if !contracts.WeightsEqual(current, prevWeights, e.cfg.TurnoverEpsilon) {
				equity *= 1 - e.cfg.FrictionRate
				res.Frictions++
			}
			prevWeights = current
		}

		daily = append(daily, dayRet)
		res.Equity = append(res.Equity, EquityPoint{Date: day, Value: equity})
	}

	res.Days = len(daily)
	res.TotalReturn = equity - 1
	res.Sharpe = annualizedSharpe(daily)
	res.MaxDrawdown = maxDrawdown(res.Equity)
	return res, nil
}

// calendar returns the benchmark's trading days up to end.
func (e *Engine) calendar(ctx context.Context, end time.Time) ([]time.Time, error) {
	series, err := e.prices.Bars(ctx, e.benchmark)
	if err != nil {
		return nil, fmt.Errorf("failed to load benchmark calendar: %w", err)
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	var days []time.Time
	for _, b := range series.TruncateAt(contracts.Day(end)) {
		days = append(days, b.Date)
	}
	if len(days) == 0 {
		return nil, contracts.ErrNoUsableInput
	}
	return days, nil
}

// loadBars indexes every held ticker's bars by date.
func (e *Engine) loadBars(ctx context.Context, intents []*contracts.Intent) (map[string]map[int64]contracts.PriceBar, error) {
	out := make(map[string]map[int64]contracts.PriceBar)
	for _, intent := range intents {
		for _, ticker := range intent.Tickers {
			if _, ok := out[ticker]; ok {
				continue
			}
			series, err := e.prices.Bars(ctx, ticker)
			if err != nil {
				return nil, fmt.Errorf("failed to load bars for %s: %w", ticker, err)
			}
			if err := series.Validate(); err != nil {
				return nil, err
			}
			idx := make(map[int64]contracts.PriceBar, len(series.Bars))
			for _, b := range series.Bars {
				idx[b.Date.Unix()] = b
			}
			out[ticker] = idx
		}
	}
	return out, nil
}

// annualizedSharpe is mean over stdev of daily returns, scaled by √252.
func annualizedSharpe(daily []float64) float64 {
	if len(daily) < 2 {
		return 0
	}
	m := 0.0
	for _, r := range daily {
		m += r
	}
	m /= float64(len(daily))

	v := 0.0
	for _, r := range daily {
		d := r - m
		v += d * d
	}
	sd := math.Sqrt(v / float64(len(daily)-1))
	if sd == 0 {
		return 0
	}
	return m / sd * math.Sqrt(252)
}

// maxDrawdown is the deepest peak-to-trough loss of the equity curve.
func maxDrawdown(equity []EquityPoint) float64 {
	peak := 0.0
	worst := 0.0
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			dd := p.Value/peak - 1
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}
