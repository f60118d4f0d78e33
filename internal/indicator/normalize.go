package indicator

import "math"

const neutral = 0.5

// clamp01 clips to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// normalizeBounded rescales a value on a fixed [lo,hi] scale to [0,1] with
// clipping. Oscillators (RSI, stochastic) use lo=0, hi=100.
func normalizeBounded(value, lo, hi float64) float64 {
	if math.IsNaN(value) || hi <= lo {
		return neutral
	}
	return clamp01((value - lo) / (hi - lo))
}

// normalizeRolling min-max rescales series[idx] against the trailing window
// of values ending at idx. Only values at or before idx participate, so the
// result at a date never sees later rows. A degenerate window (max == min)
// or missing history yields the neutral midpoint.
func normalizeRolling(series []float64, idx, window int) float64 {
	if idx < 0 || idx >= len(series) || math.IsNaN(series[idx]) {
		return neutral
	}

	start := idx - window + 1
	if start < 0 {
		start = 0
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for i := start; i <= idx; i++ {
		if math.IsNaN(series[i]) {
			continue
		}
		if series[i] < lo {
			lo = series[i]
		}
		if series[i] > hi {
			hi = series[i]
		}
		n++
	}

	if n < 2 || hi <= lo {
		return neutral
	}
	return clamp01((series[idx] - lo) / (hi - lo))
}
