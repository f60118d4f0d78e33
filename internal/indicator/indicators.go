package indicator

import (
	"math"

	"github.com/jkwon/meridian/internal/contracts"
)

// Raw indicator computations. Every function returns a full series aligned
// with the input bars so that normalization can look back over the trailing
// window without recomputing. A NaN marks "not enough history yet" at that
// index; normalization turns NaN into the neutral midpoint.

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// smaAt computes the simple moving average of closes ending at index i.
func smaAt(bars []contracts.PriceBar, i, period int) float64 {
	if i+1 < period {
		return math.NaN()
	}
	sum := 0.0
	for j := i - period + 1; j <= i; j++ {
		sum += bars[j].Close
	}
	return sum / float64(period)
}

// smaRatioSeries is SMA20/SMA50 - 1: positive when the short trend leads.
func smaRatioSeries(bars []contracts.PriceBar) []float64 {
	out := nanSlice(len(bars))
	for i := range bars {
		short := smaAt(bars, i, 20)
		long := smaAt(bars, i, 50)
		if !math.IsNaN(short) && !math.IsNaN(long) && long > 0 {
			out[i] = short/long - 1
		}
	}
	return out
}

// priceVsSMASeries is close/SMA(period) - 1.
func priceVsSMASeries(bars []contracts.PriceBar, period int) []float64 {
	out := nanSlice(len(bars))
	for i := range bars {
		sma := smaAt(bars, i, period)
		if !math.IsNaN(sma) && sma > 0 {
			out[i] = bars[i].Close/sma - 1
		}
	}
	return out
}

// emaSeries computes an exponential moving average of closes.
func emaSeries(bars []contracts.PriceBar, period int) []float64 {
	out := nanSlice(len(bars))
	if len(bars) < period {
		return out
	}

	// Seed with the SMA of the first period
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += bars[i].Close
	}
	seed /= float64(period)
	out[period-1] = seed

	k := 2.0 / float64(period+1)
	for i := period; i < len(bars); i++ {
		out[i] = bars[i].Close*k + out[i-1]*(1-k)
	}
	return out
}

// macdHistSeries is the MACD(12,26,9) histogram scaled by close.
func macdHistSeries(bars []contracts.PriceBar) []float64 {
	out := nanSlice(len(bars))
	if len(bars) < 26 {
		return out
	}

	fast := emaSeries(bars, 12)
	slow := emaSeries(bars, 26)

	macd := nanSlice(len(bars))
	for i := range bars {
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) {
			macd[i] = fast[i] - slow[i]
		}
	}

	// Signal line: EMA9 of the MACD line
	k := 2.0 / 10.0
	signal := math.NaN()
	for i := range macd {
		if math.IsNaN(macd[i]) {
			continue
		}
		if math.IsNaN(signal) {
			signal = macd[i]
		} else {
			signal = macd[i]*k + signal*(1-k)
		}
		if bars[i].Close > 0 {
			out[i] = (macd[i] - signal) / bars[i].Close
		}
	}
	return out
}

// rsiSeries is the Wilder RSI, bounded 0..100.
func rsiSeries(bars []contracts.PriceBar, period int) []float64 {
	out := nanSlice(len(bars))
	if len(bars) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// rocSeries is the rate of change over period days.
func rocSeries(bars []contracts.PriceBar, period int) []float64 {
	out := nanSlice(len(bars))
	for i := period; i < len(bars); i++ {
		if bars[i-period].Close > 0 {
			out[i] = bars[i].Close/bars[i-period].Close - 1
		}
	}
	return out
}

// stochKSeries is the stochastic %K over period days, bounded 0..100.
func stochKSeries(bars []contracts.PriceBar, period int) []float64 {
	out := nanSlice(len(bars))
	for i := period - 1; i < len(bars); i++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for j := i - period + 1; j <= i; j++ {
			if bars[j].Low < lo {
				lo = bars[j].Low
			}
			if bars[j].High > hi {
				hi = bars[j].High
			}
		}
		if hi > lo {
			out[i] = (bars[i].Close - lo) / (hi - lo) * 100.0
		} else {
			out[i] = 50.0
		}
	}
	return out
}

// obvSlopeSeries is the on-balance-volume change over the trailing window,
// scaled by total window volume.
func obvSlopeSeries(bars []contracts.PriceBar, window int) []float64 {
	out := nanSlice(len(bars))
	if len(bars) < 2 {
		return out
	}

	obv := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			obv[i] = obv[i-1] + bars[i].Volume
		case bars[i].Close < bars[i-1].Close:
			obv[i] = obv[i-1] - bars[i].Volume
		default:
			obv[i] = obv[i-1]
		}
	}

	for i := window; i < len(bars); i++ {
		totalVol := 0.0
		for j := i - window + 1; j <= i; j++ {
			totalVol += bars[j].Volume
		}
		if totalVol > 0 {
			out[i] = (obv[i] - obv[i-window]) / totalVol
		}
	}
	return out
}

// volumeRatioSeries is volume vs its trailing average.
func volumeRatioSeries(bars []contracts.PriceBar, period int) []float64 {
	out := nanSlice(len(bars))
	for i := period; i < len(bars); i++ {
		sum := 0.0
		for j := i - period; j < i; j++ {
			sum += bars[j].Volume
		}
		avg := sum / float64(period)
		if avg > 0 {
			out[i] = bars[i].Volume / avg
		}
	}
	return out
}

// trueRange computes the true range at index i.
func trueRange(bars []contracts.PriceBar, i int) float64 {
	if i == 0 {
		return bars[i].High - bars[i].Low
	}
	hl := bars[i].High - bars[i].Low
	hc := math.Abs(bars[i].High - bars[i-1].Close)
	lc := math.Abs(bars[i].Low - bars[i-1].Close)
	return math.Max(hl, math.Max(hc, lc))
}

// atrPctSeries is the ATR(period) divided by close.
func atrPctSeries(bars []contracts.PriceBar, period int) []float64 {
	out := nanSlice(len(bars))
	if len(bars) < period+1 {
		return out
	}

	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += trueRange(bars, i)
	}
	atr /= float64(period)
	if bars[period].Close > 0 {
		out[period] = atr / bars[period].Close
	}

	for i := period + 1; i < len(bars); i++ {
		atr = (atr*float64(period-1) + trueRange(bars, i)) / float64(period)
		if bars[i].Close > 0 {
			out[i] = atr / bars[i].Close
		}
	}
	return out
}

// returnStdevSeries is the standard deviation of daily returns over the
// trailing window.
func returnStdevSeries(bars []contracts.PriceBar, window int) []float64 {
	out := nanSlice(len(bars))
	for i := window; i < len(bars); i++ {
		rets := make([]float64, 0, window)
		for j := i - window + 1; j <= i; j++ {
			if bars[j-1].Close > 0 {
				rets = append(rets, bars[j].Close/bars[j-1].Close-1)
			}
		}
		out[i] = stdev(rets)
	}
	return out
}

// bollingerWidthSeries is (upper-lower)/middle of Bollinger(period, 2).
func bollingerWidthSeries(bars []contracts.PriceBar, period int) []float64 {
	out := nanSlice(len(bars))
	for i := period - 1; i < len(bars); i++ {
		closes := make([]float64, 0, period)
		for j := i - period + 1; j <= i; j++ {
			closes = append(closes, bars[j].Close)
		}
		mid := mean(closes)
		sd := stdev(closes)
		if mid > 0 {
			out[i] = 4 * sd / mid
		}
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	variance := 0.0
	for _, x := range xs {
		diff := x - m
		variance += diff * diff
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}
