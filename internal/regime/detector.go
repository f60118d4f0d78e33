package regime

import (
	"context"
	"sort"
	"time"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/pkg/logger"
)

// Detector labels the market regime from benchmark closes. An HMM over
// daily returns is the primary detector; a long SMA cross is the
// fallback when history is too short or the fit degenerates. When both
// would disagree the HMM label wins.
type Detector struct {
	cfg    strategyconfig.Regime
	logger *logger.Logger
}

// NewDetector creates a regime detector.
func NewDetector(cfg strategyconfig.Regime, log *logger.Logger) *Detector {
	return &Detector{cfg: cfg, logger: log}
}

// Detect labels the regime as of date using closes up to and including
// that date. closes must be chronological.
func (d *Detector) Detect(_ context.Context, closes []float64, date time.Time) contracts.RegimeState {
	state := contracts.RegimeState{
		Date:   contracts.Day(date),
		Label:  contracts.RegimeUnknown,
		Source: "sma",
	}
	if len(closes) < 2 {
		return state
	}

	state.BelowLongSMA = d.belowLongSMA(closes)

	returns := dailyReturns(closes)
	if len(returns) >= d.cfg.MinObservations {
		if hmmState, ok := d.detectHMM(returns); ok {
			hmmState.Date = state.Date
			hmmState.BelowLongSMA = state.BelowLongSMA
			return hmmState
		}
		d.logger.Warn("HMM fit degenerated, falling back to SMA cross")
	}

	if state.BelowLongSMA {
		state.Label = contracts.RegimeBear
	} else {
		state.Label = contracts.RegimeBull
	}
	return state
}

// detectHMM fits the 3-state model and maps the terminal state to a
// label by mean rank: lowest mean is BEAR, highest is BULL, the middle
// state is SIDEWAYS.
func (d *Detector) detectHMM(returns []float64) (contracts.RegimeState, bool) {
	model := newHMM(3, returns)
	if !model.fit(returns, d.cfg.HMMIterations) {
		return contracts.RegimeState{}, false
	}

	current := model.viterbi(returns)

	rank := meanRank(model.means)
	labels := map[int]contracts.RegimeLabel{
		0: contracts.RegimeBear,
		1: contracts.RegimeSideways,
		2: contracts.RegimeBull,
	}

	// Re-order the transition matrix BULL, SIDEWAYS, BEAR for callers
	order := []int{indexOfRank(rank, 2), indexOfRank(rank, 1), indexOfRank(rank, 0)}
	trans := make([][]float64, 3)
	for i, si := range order {
		trans[i] = make([]float64, 3)
		for j, sj := range order {
			trans[i][j] = model.transition[si][sj]
		}
	}

	return contracts.RegimeState{
		Label:      labels[rank[current]],
		Mean:       model.means[current],
		Volatility: model.stdevs[current],
		Transition: trans,
		Stable:     model.transition[current][current] > 0.8,
		Source:     "hmm",
	}, true
}

func (d *Detector) belowLongSMA(closes []float64) bool {
	n := d.cfg.LongSMADays
	if len(closes) < n {
		return false
	}
	sum := 0.0
	for _, c := range closes[len(closes)-n:] {
		sum += c
	}
	return closes[len(closes)-1] < sum/float64(n)
}

// meanRank maps each state index to its rank by mean, 0 = lowest.
func meanRank(means []float64) map[int]int {
	idx := make([]int, len(means))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return means[idx[a]] < means[idx[b]] })

	rank := make(map[int]int, len(means))
	for r, i := range idx {
		rank[i] = r
	}
	return rank
}

func indexOfRank(rank map[int]int, want int) int {
	for i, r := range rank {
		if r == want {
			return i
		}
	}
	return 0
}

func dailyReturns(closes []float64) []float64 {
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}
