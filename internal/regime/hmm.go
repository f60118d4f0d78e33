package regime

import (
	"math"
	"sort"
)

// hmm is a 3-state Gaussian hidden Markov model over daily returns,
// fitted with Baum-Welch in log space. States are unordered during
// fitting; labeling by mean rank happens in the detector.
type hmm struct {
	states int

	initial    []float64   // pi
	transition [][]float64 // row-stochastic
	means      []float64
	stdevs     []float64
}

const (
	minStdev     = 1e-6
	emTolerance  = 1e-6
	logZeroFloor = -1e12
)

// newHMM seeds a model from the observations: states are initialized by
// splitting the sorted returns into equal thirds so the low/mid/high
// means are separated from the first iteration.
func newHMM(states int, obs []float64) *hmm {
	m := &hmm{
		states:     states,
		initial:    make([]float64, states),
		transition: make([][]float64, states),
		means:      make([]float64, states),
		stdevs:     make([]float64, states),
	}

	sorted := append([]float64{}, obs...)
	sort.Float64s(sorted)
	chunk := len(sorted) / states

	for i := 0; i < states; i++ {
		m.initial[i] = 1.0 / float64(states)
		m.transition[i] = make([]float64, states)
		for j := 0; j < states; j++ {
			if i == j {
				m.transition[i][j] = 0.8
			} else {
				m.transition[i][j] = 0.2 / float64(states-1)
			}
		}

		lo := i * chunk
		hi := lo + chunk
		if i == states-1 {
			hi = len(sorted)
		}
		m.means[i] = mean(sorted[lo:hi])
		m.stdevs[i] = math.Max(stdev(sorted[lo:hi]), minStdev)
	}

	return m
}

// fit runs Baum-Welch until the log-likelihood plateaus or the iteration
// cap is hit. Returns false when the model degenerates.
func (m *hmm) fit(obs []float64, maxIter int) bool {
	if len(obs) < m.states*2 {
		return false
	}

	prevLL := math.Inf(-1)
	for iter := 0; iter < maxIter; iter++ {
		logAlpha, ll := m.forward(obs)
		if math.IsNaN(ll) || math.IsInf(ll, 0) {
			return false
		}
		logBeta := m.backward(obs)

		m.update(obs, logAlpha, logBeta, ll)

		if ll-prevLL < emTolerance && iter > 0 {
			break
		}
		prevLL = ll
	}
	return true
}

// viterbi returns the most likely terminal state for the observation
// sequence.
func (m *hmm) viterbi(obs []float64) int {
	n := len(obs)
	delta := make([][]float64, n)

	delta[0] = make([]float64, m.states)
	for i := 0; i < m.states; i++ {
		delta[0][i] = safeLog(m.initial[i]) + m.logEmit(i, obs[0])
	}

	for t := 1; t < n; t++ {
		delta[t] = make([]float64, m.states)
		for j := 0; j < m.states; j++ {
			best := math.Inf(-1)
			for i := 0; i < m.states; i++ {
				cand := delta[t-1][i] + safeLog(m.transition[i][j])
				if cand > best {
					best = cand
				}
			}
			delta[t][j] = best + m.logEmit(j, obs[t])
		}
	}

	last := 0
	for i := 1; i < m.states; i++ {
		if delta[n-1][i] > delta[n-1][last] {
			last = i
		}
	}
	return last
}

// forward computes log alpha and the sequence log-likelihood.
func (m *hmm) forward(obs []float64) ([][]float64, float64) {
	n := len(obs)
	logAlpha := make([][]float64, n)

	logAlpha[0] = make([]float64, m.states)
	for i := 0; i < m.states; i++ {
		logAlpha[0][i] = safeLog(m.initial[i]) + m.logEmit(i, obs[0])
	}

	for t := 1; t < n; t++ {
		logAlpha[t] = make([]float64, m.states)
		for j := 0; j < m.states; j++ {
			terms := make([]float64, m.states)
			for i := 0; i < m.states; i++ {
				terms[i] = logAlpha[t-1][i] + safeLog(m.transition[i][j])
			}
			logAlpha[t][j] = logSumExp(terms) + m.logEmit(j, obs[t])
		}
	}

	return logAlpha, logSumExp(logAlpha[n-1])
}

func (m *hmm) backward(obs []float64) [][]float64 {
	n := len(obs)
	logBeta := make([][]float64, n)

	logBeta[n-1] = make([]float64, m.states)

	for t := n - 2; t >= 0; t-- {
		logBeta[t] = make([]float64, m.states)
		for i := 0; i < m.states; i++ {
			terms := make([]float64, m.states)
			for j := 0; j < m.states; j++ {
				terms[j] = safeLog(m.transition[i][j]) + m.logEmit(j, obs[t+1]) + logBeta[t+1][j]
			}
			logBeta[t][i] = logSumExp(terms)
		}
	}

	return logBeta
}

// update is the M-step: re-estimates initial, transition, and Gaussian
// parameters from the smoothed posteriors.
func (m *hmm) update(obs []float64, logAlpha, logBeta [][]float64, ll float64) {
	n := len(obs)

	// gamma[t][i] = P(state_t = i | obs)
	gamma := make([][]float64, n)
	for t := 0; t < n; t++ {
		gamma[t] = make([]float64, m.states)
		for i := 0; i < m.states; i++ {
			gamma[t][i] = math.Exp(logAlpha[t][i] + logBeta[t][i] - ll)
		}
	}

	for i := 0; i < m.states; i++ {
		m.initial[i] = gamma[0][i]
	}

	for i := 0; i < m.states; i++ {
		denom := 0.0
		for t := 0; t < n-1; t++ {
			denom += gamma[t][i]
		}
		if denom <= 0 {
			continue
		}
		for j := 0; j < m.states; j++ {
			num := 0.0
			for t := 0; t < n-1; t++ {
				xi := logAlpha[t][i] + safeLog(m.transition[i][j]) +
					m.logEmit(j, obs[t+1]) + logBeta[t+1][j] - ll
				num += math.Exp(xi)
			}
			m.transition[i][j] = num / denom
		}
	}

	for i := 0; i < m.states; i++ {
		wsum, msum := 0.0, 0.0
		for t := 0; t < n; t++ {
			wsum += gamma[t][i]
			msum += gamma[t][i] * obs[t]
		}
		if wsum <= 0 {
			continue
		}
		m.means[i] = msum / wsum

		vsum := 0.0
		for t := 0; t < n; t++ {
			d := obs[t] - m.means[i]
			vsum += gamma[t][i] * d * d
		}
		m.stdevs[i] = math.Max(math.Sqrt(vsum/wsum), minStdev)
	}
}

func (m *hmm) logEmit(state int, x float64) float64 {
	sd := m.stdevs[state]
	d := (x - m.means[state]) / sd
	return -0.5*d*d - math.Log(sd) - 0.5*math.Log(2*math.Pi)
}

func safeLog(v float64) float64 {
	if v <= 0 {
		return logZeroFloor
	}
	return math.Log(v)
}

func logSumExp(terms []float64) float64 {
	max := math.Inf(-1)
	for _, t := range terms {
		if t > max {
			max = t
		}
	}
	if math.IsInf(max, -1) {
		return max
	}
	sum := 0.0
	for _, t := range terms {
		sum += math.Exp(t - max)
	}
	return max + math.Log(sum)
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}

func stdev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	s := 0.0
	for _, v := range vals {
		d := v - m
		s += d * d
	}
	return math.Sqrt(s / float64(len(vals)-1))
}
