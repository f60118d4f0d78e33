package indicator

import (
	"context"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
)

// The four master-score weight sources. Each implements
// contracts.WeightSource; returning ok=false declines, and the engine falls
// back to fixed weights. Dynamic sources fit only on the supplied trailing
// history, which the pipeline builds strictly before the decision date.

// fixedWeights converts config weights to CategoryWeights.
func fixedWeights(w strategyconfig.Weights) contracts.CategoryWeights {
	return contracts.CategoryWeights{
		contracts.CategoryTrend:      w.Trend,
		contracts.CategoryMomentum:   w.Momentum,
		contracts.CategoryVolume:     w.Volume,
		contracts.CategoryVolatility: w.Volatility,
	}
}

// FixedSource always returns the configured weights.
type FixedSource struct {
	weights strategyconfig.Weights
}

func NewFixedSource(w strategyconfig.Weights) *FixedSource {
	return &FixedSource{weights: w}
}

func (s *FixedSource) Weights(_ context.Context, _ contracts.RegimeLabel, _ map[contracts.Category][]float64) (contracts.CategoryWeights, bool) {
	return fixedWeights(s.weights), true
}

// RegimeTableSource selects a weight set by regime label. A missing or
// unknown regime declines.
type RegimeTableSource struct {
	table map[string]strategyconfig.Weights
}

func NewRegimeTableSource(table map[string]strategyconfig.Weights) *RegimeTableSource {
	return &RegimeTableSource{table: table}
}

func (s *RegimeTableSource) Weights(_ context.Context, regime contracts.RegimeLabel, _ map[contracts.Category][]float64) (contracts.CategoryWeights, bool) {
	w, ok := s.table[string(regime)]
	if !ok {
		return nil, false
	}
	return fixedWeights(w), true
}

// RollingSource fits inverse-variance (risk parity) weights on trailing
// category strategy returns. Declines when any category has fewer
// observations than minObs.
type RollingSource struct {
	minObs int
}

func NewRollingSource(minObs int) *RollingSource {
	if minObs < 2 {
		minObs = 20
	}
	return &RollingSource{minObs: minObs}
}

func (s *RollingSource) Weights(_ context.Context, _ contracts.RegimeLabel, history map[contracts.Category][]float64) (contracts.CategoryWeights, bool) {
	out := make(contracts.CategoryWeights, 4)
	for _, c := range contracts.AllCategories() {
		rets := history[c]
		if len(rets) < s.minObs {
			return nil, false
		}
		sd := stdev(rets)
		if sd <= 0 {
			return nil, false
		}
		out[c] = 1.0 / (sd * sd)
	}
	return out, true
}

// RegressorSource regresses next-step cross-category mean return on the
// current category returns and uses the absolute coefficients as weights.
// Fit quality is checked on a trailing holdout; non-positive out-of-sample
// R-squared declines.
type RegressorSource struct {
	minObs int
}

func NewRegressorSource(minObs int) *RegressorSource {
	if minObs < 10 {
		minObs = 30
	}
	return &RegressorSource{minObs: minObs}
}

func (s *RegressorSource) Weights(_ context.Context, _ contracts.RegimeLabel, history map[contracts.Category][]float64) (contracts.CategoryWeights, bool) {
	cats := contracts.AllCategories()

	n := -1
	for _, c := range cats {
		if n == -1 || len(history[c]) < n {
			n = len(history[c])
		}
	}
	if n < s.minObs+2 {
		return nil, false
	}

	// Feature matrix: category returns at t; target: mean category return
	// at t+1.
	features := make([][]float64, n-1)
	target := make([]float64, n-1)
	for t := 0; t < n-1; t++ {
		rowFeatures := make([]float64, len(cats))
		next := 0.0
		for ci, c := range cats {
			series := history[c]
			offset := len(series) - n
			rowFeatures[ci] = series[offset+t]
			next += series[offset+t+1]
		}
		features[t] = rowFeatures
		target[t] = next / float64(len(cats))
	}

	// Holdout split: fit on the first 70%, score on the rest
	split := (len(target) * 7) / 10
	if split < len(cats)+1 || len(target)-split < 3 {
		return nil, false
	}

	coeffs, ok := leastSquares(features[:split], target[:split])
	if !ok {
		return nil, false
	}

	if r2 := outOfSampleR2(features[split:], target[split:], coeffs); r2 <= 0 {
		return nil, false
	}

	out := make(contracts.CategoryWeights, len(cats))
	total := 0.0
	for ci, c := range cats {
		w := coeffs[ci]
		if w < 0 {
			w = -w
		}
		out[c] = w
		total += w
	}
	if total <= 0 {
		return nil, false
	}
	return out, true
}

// leastSquares solves the normal equations X'X b = X'y by Gaussian
// elimination. Returns ok=false on a singular system.
func leastSquares(x [][]float64, y []float64) ([]float64, bool) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, false
	}
	p := len(x[0])

	// Build X'X and X'y
	xtx := make([][]float64, p)
	xty := make([]float64, p)
	for i := 0; i < p; i++ {
		xtx[i] = make([]float64, p)
		for t, row := range x {
			xty[i] += row[i] * y[t]
		}
		for j := 0; j < p; j++ {
			sum := 0.0
			for _, row := range x {
				sum += row[i] * row[j]
			}
			xtx[i][j] = sum
		}
	}

	return solveLinear(xtx, xty)
}

// solveLinear solves A b = c with partial pivoting.
func solveLinear(a [][]float64, c []float64) ([]float64, bool) {
	n := len(a)
	for col := 0; col < n; col++ {
		// Pivot
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(a[r][col]) > abs(a[pivot][col]) {
				pivot = r
			}
		}
		if abs(a[pivot][col]) < 1e-12 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		c[col], c[pivot] = c[pivot], c[col]

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			for k := col; k < n; k++ {
				a[r][k] -= factor * a[col][k]
			}
			c[r] -= factor * c[col]
		}
	}

	b := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := c[i]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * b[j]
		}
		b[i] = sum / a[i][i]
	}
	return b, true
}

// outOfSampleR2 computes 1 - SSE/SST on the holdout.
func outOfSampleR2(x [][]float64, y []float64, coeffs []float64) float64 {
	if len(y) == 0 {
		return -1
	}
	yMean := mean(y)

	sse, sst := 0.0, 0.0
	for t, row := range x {
		pred := 0.0
		for i, c := range coeffs {
			pred += c * row[i]
		}
		sse += (y[t] - pred) * (y[t] - pred)
		sst += (y[t] - yMean) * (y[t] - yMean)
	}
	if sst <= 0 {
		return -1
	}
	return 1 - sse/sst
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// NewWeightSource builds the configured weight source variant.
func NewWeightSource(cfg strategyconfig.Indicators) contracts.WeightSource {
	switch cfg.WeightMode {
	case "regime":
		return NewRegimeTableSource(cfg.RegimeWeights)
	case "rolling":
		return NewRollingSource(20)
	case "regressor":
		return NewRegressorSource(30)
	default:
		return NewFixedSource(cfg.FixedWeights)
	}
}
