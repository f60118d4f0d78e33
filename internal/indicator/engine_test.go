package indicator

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/pkg/logger"
)

func testCfg() strategyconfig.Indicators {
	return strategyconfig.Default().Indicators
}

// syntheticBars builds a deterministic series: closeFn returns the close
// for day index i.
func syntheticBars(ticker string, n int, closeFn func(i int) float64) []contracts.PriceBar {
	bars := make([]contracts.PriceBar, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := closeFn(i)
		bars[i] = contracts.PriceBar{
			Ticker: ticker,
			Date:   start.AddDate(0, 0, i),
			Open:   c * 0.995,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000 + float64(i%7)*10_000,
		}
	}
	return bars
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := testCfg()
	return NewEngine(cfg, NewFixedSource(cfg.FixedWeights), nil, logger.NewNop())
}

func TestComputeScoresInRange(t *testing.T) {
	e := newTestEngine(t)
	bars := syntheticBars("AAPL", 300, func(i int) float64 {
		return 100 + 10*math.Sin(float64(i)/15)
	})

	row, err := e.Compute(context.Background(), bars, contracts.RegimeBull, nil)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	for c, s := range row.CategoryScores {
		if s < 0 || s > 1 {
			t.Errorf("category %s score %f outside [0,1]", c, s)
		}
	}
	if row.MasterScore < 0 || row.MasterScore > 1 {
		t.Errorf("master score %f outside [0,1]", row.MasterScore)
	}
	if row.NormalizedATR <= 0 {
		t.Errorf("expected positive normalized ATR, got %f", row.NormalizedATR)
	}
}

func TestShortHistoryDegradesToNeutral(t *testing.T) {
	e := newTestEngine(t)
	bars := syntheticBars("NEWIPO", 10, func(i int) float64 { return 50 + float64(i) })

	row, err := e.Compute(context.Background(), bars, contracts.RegimeBull, nil)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	for name, v := range row.Normalized {
		if v != 0.5 {
			t.Errorf("indicator %s = %f, want neutral 0.5 on short history", name, v)
		}
	}
	if row.MasterScore != 0.5 {
		t.Errorf("master score %f, want 0.5", row.MasterScore)
	}
}

// Perturbing rows after the decision date must not change the score at the
// decision date.
func TestNoFutureDataLeak(t *testing.T) {
	e := newTestEngine(t)
	full := syntheticBars("AAPL", 320, func(i int) float64 {
		return 100 + 10*math.Sin(float64(i)/10) + float64(i)*0.1
	})

	cut := 300
	row1, err := e.Compute(context.Background(), full[:cut], contracts.RegimeBull, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Mutate everything after the cut, then recompute on the same prefix
	perturbed := make([]contracts.PriceBar, len(full))
	copy(perturbed, full)
	for i := cut; i < len(perturbed); i++ {
		perturbed[i].Close *= 5
		perturbed[i].High *= 5
		perturbed[i].Low *= 5
	}

	row2, err := e.Compute(context.Background(), perturbed[:cut], contracts.RegimeBull, nil)
	if err != nil {
		t.Fatal(err)
	}

	if row1.MasterScore != row2.MasterScore {
		t.Errorf("future rows changed the score: %f vs %f", row1.MasterScore, row2.MasterScore)
	}
	for name := range row1.Normalized {
		if row1.Normalized[name] != row2.Normalized[name] {
			t.Errorf("indicator %s differs: %f vs %f", name, row1.Normalized[name], row2.Normalized[name])
		}
	}
}

// Ninety days of steadily rising closes should produce an upward-trending
// master score. Rolling min-max renormalization pulls steady-state readings
// back toward the window interior, so the trend is measured against the
// flat pre-trend baseline rather than between two points inside the trend.
func TestRisingMarketTrendsUpward(t *testing.T) {
	e := newTestEngine(t)
	bars := syntheticBars("UPUP", 150, func(i int) float64 {
		if i < 60 {
			return 100 // flat warmup
		}
		return 100 * math.Pow(1.004, float64(i-60))
	})

	baseline, err := e.Compute(context.Background(), bars[:60], contracts.RegimeBull, nil)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(baseline.MasterScore-0.5) > 0.1 {
		t.Fatalf("flat-market baseline = %f, want near neutral", baseline.MasterScore)
	}

	for _, cut := range []int{90, 120, 150} {
		row, err := e.Compute(context.Background(), bars[:cut], contracts.RegimeBull, nil)
		if err != nil {
			t.Fatal(err)
		}
		if row.MasterScore <= baseline.MasterScore+0.1 {
			t.Errorf("day %d master = %f, want clearly above baseline %f",
				cut, row.MasterScore, baseline.MasterScore)
		}
	}

	late, err := e.Compute(context.Background(), bars, contracts.RegimeBull, nil)
	if err != nil {
		t.Fatal(err)
	}
	if late.CategoryScores[contracts.CategoryTrend] <= 0.5 {
		t.Errorf("trend score %f, want > 0.5 in a rising market", late.CategoryScores[contracts.CategoryTrend])
	}
}

func TestPriorATRIgnoresDecisionBar(t *testing.T) {
	e := newTestEngine(t)
	bars := syntheticBars("AAPL", 300, func(i int) float64 { return 100 })

	base, err := e.Compute(context.Background(), bars, contracts.RegimeBull, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Blow up the decision bar's range; prior-bar ATR must not move
	spiked := make([]contracts.PriceBar, len(bars))
	copy(spiked, bars)
	spiked[len(spiked)-1].High = 500
	spiked[len(spiked)-1].Low = 10

	withSpike, err := e.Compute(context.Background(), spiked, contracts.RegimeBull, nil)
	if err != nil {
		t.Fatal(err)
	}

	if base.NormalizedATR != withSpike.NormalizedATR {
		t.Errorf("decision-bar spike moved sizing ATR: %f vs %f", base.NormalizedATR, withSpike.NormalizedATR)
	}
}
