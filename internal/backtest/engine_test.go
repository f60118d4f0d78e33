package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/pkg/logger"
)

type fakePrices struct {
	series map[string]*contracts.BarSeries
}

func (f *fakePrices) Bars(_ context.Context, ticker string) (*contracts.BarSeries, error) {
	return f.series[ticker], nil
}

func day(n int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// flatSeries builds bars from explicit closes; opens equal the prior
// close so open-to-close and close-to-close agree except on gaps.
func flatSeries(ticker string, closes []float64) *contracts.BarSeries {
	bars := make([]contracts.PriceBar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = contracts.PriceBar{
			Ticker: ticker,
			Date:   day(i),
			Open:   open,
			High:   math.Max(open, c),
			Low:    math.Min(open, c),
			Close:  c,
			Volume: 1000,
		}
	}
	return &contracts.BarSeries{Ticker: ticker, Bars: bars}
}

func intent(d int, weights map[string]float64) *contracts.Intent {
	tickers := make([]string, 0, len(weights))
	for t := range weights {
		tickers = append(tickers, t)
	}
	return &contracts.Intent{
		Date:    day(d),
		Mode:    contracts.ModeNormal,
		Tickers: tickers,
		Weights: weights,
	}
}

func testEngine(prices *fakePrices) *Engine {
	return NewEngine(strategyconfig.Default().Backtest, "SPY", prices, logger.NewNop())
}

func TestEntryOnNextBar(t *testing.T) {
	// AAA doubles on day 1 (the decision day) then gains 10% on day 2.
	// Only the day-2 move may be earned.
	prices := &fakePrices{series: map[string]*contracts.BarSeries{
		"SPY": flatSeries("SPY", []float64{100, 100, 100, 100}),
		"AAA": flatSeries("AAA", []float64{100, 200, 220, 220}),
	}}
	eng := testEngine(prices)

	res, err := eng.Run(context.Background(), []*contracts.Intent{
		intent(1, map[string]float64{"AAA": 1.0}),
	}, day(3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	gross := res.TotalReturn + 1
	// One friction charge, then the 10% day-2 move
	want := (1 - 0.0015) * 1.10
	if math.Abs(gross-want) > 1e-9 {
		t.Errorf("gross = %f, want %f", gross, want)
	}
}

func TestStopLossZeroesUntilNextRebalance(t *testing.T) {
	// AAA falls 8% the first held day, breaching the -5% floor, then
	// rallies 50%. The rally must not be earned.
	prices := &fakePrices{series: map[string]*contracts.BarSeries{
		"SPY": flatSeries("SPY", []float64{100, 100, 100, 100}),
		"AAA": flatSeries("AAA", []float64{100, 100, 92, 138}),
	}}
	eng := testEngine(prices)

	res, err := eng.Run(context.Background(), []*contracts.Intent{
		intent(1, map[string]float64{"AAA": 1.0}),
	}, day(3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Stops != 1 {
		t.Errorf("stops = %d, want 1", res.Stops)
	}
	if res.Frictions != 2 {
		t.Errorf("frictions = %d, want 2 (stop exit is turnover)", res.Frictions)
	}
	gross := res.TotalReturn + 1
	want := (1 - 0.0015) * 0.92 * (1 - 0.0015)
	if math.Abs(gross-want) > 1e-9 {
		t.Errorf("gross = %f, want %f (stopped position must stay flat)", gross, want)
	}
}

func TestStopLossOnSingleDayMove(t *testing.T) {
	// AAA gains 10% on its first held day, then drops exactly 6% in one
	// day. Cumulative is still +3.4%, but the single-day move breaches
	// the -5% floor; the day-4 rally must not be earned.
	prices := &fakePrices{series: map[string]*contracts.BarSeries{
		"SPY": flatSeries("SPY", []float64{100, 100, 100, 100, 100}),
		"AAA": flatSeries("AAA", []float64{100, 100, 110, 103.4, 120}),
	}}
	eng := testEngine(prices)

	res, err := eng.Run(context.Background(), []*contracts.Intent{
		intent(1, map[string]float64{"AAA": 1.0}),
	}, day(4))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Stops != 1 {
		t.Errorf("stops = %d, want 1", res.Stops)
	}
	gross := res.TotalReturn + 1
	want := (1 - 0.0015) * 1.10 * 0.94 * (1 - 0.0015)
	if math.Abs(gross-want) > 1e-9 {
		t.Errorf("gross = %f, want %f", gross, want)
	}
}

func TestCarriedPositionIgnoresOpenGap(t *testing.T) {
	// AAA is held with the same weight across two intents. Closes are
	// flat, but the second rebalance's effective day opens 10% down.
	// A carried name is priced close-to-close, so the gap earns nothing.
	aaa := flatSeries("AAA", []float64{100, 100, 100, 100, 100})
	aaa.Bars[3].Open = 90
	aaa.Bars[3].Low = 90
	prices := &fakePrices{series: map[string]*contracts.BarSeries{
		"SPY": flatSeries("SPY", []float64{100, 100, 100, 100, 100}),
		"AAA": aaa,
	}}
	eng := testEngine(prices)

	res, err := eng.Run(context.Background(), []*contracts.Intent{
		intent(1, map[string]float64{"AAA": 1.0}),
		intent(2, map[string]float64{"AAA": 1.0}),
	}, day(4))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	gross := res.TotalReturn + 1
	want := 1 - 0.0015
	if math.Abs(gross-want) > 1e-9 {
		t.Errorf("gross = %f, want %f (open gap booked as return)", gross, want)
	}
	if res.Frictions != 1 {
		t.Errorf("frictions = %d, want 1", res.Frictions)
	}
}

func TestNoFrictionWhenWeightsUnchanged(t *testing.T) {
	closes := []float64{100, 100, 101, 102, 103, 104, 105, 106}
	prices := &fakePrices{series: map[string]*contracts.BarSeries{
		"SPY": flatSeries("SPY", closes),
		"AAA": flatSeries("AAA", closes),
	}}
	eng := testEngine(prices)

	res, err := eng.Run(context.Background(), []*contracts.Intent{
		intent(1, map[string]float64{"AAA": 1.0}),
		intent(4, map[string]float64{"AAA": 1.0}),
	}, day(7))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Frictions != 1 {
		t.Errorf("frictions = %d, want 1 (only the initial entry pays)", res.Frictions)
	}
}

func TestFrictionOnWeightChange(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 100}
	prices := &fakePrices{series: map[string]*contracts.BarSeries{
		"SPY": flatSeries("SPY", closes),
		"AAA": flatSeries("AAA", closes),
		"BBB": flatSeries("BBB", closes),
	}}
	eng := testEngine(prices)

	res, err := eng.Run(context.Background(), []*contracts.Intent{
		intent(1, map[string]float64{"AAA": 1.0}),
		intent(3, map[string]float64{"BBB": 1.0}),
	}, day(5))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Frictions != 2 {
		t.Errorf("frictions = %d, want 2", res.Frictions)
	}
	gross := res.TotalReturn + 1
	want := (1 - 0.0015) * (1 - 0.0015)
	if math.Abs(gross-want) > 1e-9 {
		t.Errorf("gross = %f, want %f", gross, want)
	}
}

func TestMaxDrawdown(t *testing.T) {
	equity := []EquityPoint{
		{Value: 1.0}, {Value: 1.2}, {Value: 0.9}, {Value: 1.1},
	}
	got := maxDrawdown(equity)
	want := 0.9/1.2 - 1
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("maxDrawdown = %f, want %f", got, want)
	}
}

func TestNoIntentsRejected(t *testing.T) {
	eng := testEngine(&fakePrices{series: map[string]*contracts.BarSeries{
		"SPY": flatSeries("SPY", []float64{100}),
	}})
	if _, err := eng.Run(context.Background(), nil, day(1)); err == nil {
		t.Error("expected an error for an empty intent sequence")
	}
}
