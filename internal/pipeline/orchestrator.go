package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/indicator"
	"github.com/jkwon/meridian/internal/news"
	"github.com/jkwon/meridian/internal/policy"
	"github.com/jkwon/meridian/internal/portfolio"
	"github.com/jkwon/meridian/internal/propagation"
	"github.com/jkwon/meridian/internal/regime"
	"github.com/jkwon/meridian/internal/selector"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/internal/universe"
	"github.com/jkwon/meridian/pkg/logger"
)

// Orchestrator runs the weekly decision loop: indicators, news,
// propagation, regime, policy gate, sizing. One intent per decision
// date; each date sees only data at or before it.
type Orchestrator struct {
	cfg      *strategyconfig.Config
	universe *universe.Universe

	prices  contracts.PriceSource
	newsSrc contracts.NewsSource
	ledger  contracts.LedgerStore

	indicators *indicator.Engine
	newsEng    *news.Engine
	propagator *propagation.Engine
	detector   *regime.Detector
	gate       *policy.Engine
	sizer      *portfolio.Engine
	adaptive   *selector.AdaptiveSelector
	strategy   *selector.StrategySelector

	logger *logger.Logger

	// Decision state carried between dates within one run; mu guards it
	// for concurrent status reads.
	mu         sync.RWMutex
	prevIntent *contracts.Intent
	prevDate   time.Time
	prevRegime contracts.RegimeLabel
	lastState  contracts.RegimeState
	prevParams selector.Params

	// Mean normalized category score per processed date, oldest first;
	// feeds dynamic weight fitting strictly out of the past.
	catScores map[contracts.Category][]float64
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Universe *universe.Universe
	Prices   contracts.PriceSource
	News     contracts.NewsSource
	Ledger   contracts.LedgerStore

	Indicators *indicator.Engine
	NewsEngine *news.Engine
	Propagator *propagation.Engine
	Detector   *regime.Detector
	Policy     *policy.Engine
	Portfolio  *portfolio.Engine
	Adaptive   *selector.AdaptiveSelector
	Strategy   *selector.StrategySelector
}

// NewOrchestrator creates the decision pipeline.
func NewOrchestrator(cfg *strategyconfig.Config, deps Deps, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		universe:   deps.Universe,
		prices:     deps.Prices,
		newsSrc:    deps.News,
		ledger:     deps.Ledger,
		indicators: deps.Indicators,
		newsEng:    deps.NewsEngine,
		propagator: deps.Propagator,
		detector:   deps.Detector,
		gate:       deps.Policy,
		sizer:      deps.Portfolio,
		adaptive:   deps.Adaptive,
		strategy:   deps.Strategy,
		logger:     log,
		catScores:  make(map[contracts.Category][]float64),
	}
}

// Run processes decision dates in order. A date that exceeds its budget
// is skipped with a warning; a hard data failure holds the previous
// intent. After each completed period the realized outcome of the prior
// intent is appended to the ledger.
func (o *Orchestrator) Run(ctx context.Context, dates []time.Time) ([]*contracts.Intent, error) {
	var intents []*contracts.Intent
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return intents, err
		}

		if o.prevIntent != nil {
			o.settle(ctx, date)
		}

		intent, err := o.RunDate(ctx, date)
		if err != nil {
			var te *contracts.TimeoutError
			if errors.As(err, &te) {
				o.logger.WithFields(map[string]interface{}{
					"date":   date.Format("2006-01-02"),
					"budget": te.Budget.String(),
				}).Warn("Decision date exceeded budget, skipping")
				continue
			}
			return intents, err
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

// RunDate produces the intent for one decision date. Timeouts surface as
// *contracts.TimeoutError; hard data failures hold the previous intent.
func (o *Orchestrator) RunDate(ctx context.Context, date time.Time) (*contracts.Intent, error) {
	timeout := o.cfg.DateTimeout()
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runID := uuid.New().String()
	day := contracts.Day(date)
	log := o.logger.WithFields(map[string]interface{}{
		"run_id": runID,
		"date":   day.Format("2006-01-02"),
	})
	log.Info("Decision run started")

	intent, err := o.decide(dctx, day, log)
	if err != nil {
		if errors.Is(dctx.Err(), context.DeadlineExceeded) {
			return nil, &contracts.TimeoutError{Date: day, Budget: timeout}
		}

		var hard *contracts.HardDataError
		if errors.As(err, &hard) {
			log.WithFields(map[string]interface{}{
				"ticker": hard.Ticker,
				"reason": hard.Reason,
			}).Error("Hard data failure, holding previous intent")
			return o.holdPrevious(day), nil
		}
		return nil, err
	}

	intent.Meta["run_id"] = runID

	o.mu.Lock()
	o.prevIntent = intent
	o.prevDate = day
	o.mu.Unlock()
	return intent, nil
}

// LatestIntent returns the most recent intent, or nil before the first
// completed run.
func (o *Orchestrator) LatestIntent() *contracts.Intent {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.prevIntent
}

// LatestRegime returns the most recent regime state.
func (o *Orchestrator) LatestRegime() contracts.RegimeState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastState
}

// decide runs the full engine chain for one date.
func (o *Orchestrator) decide(ctx context.Context, day time.Time, log *logger.Logger) (*contracts.Intent, error) {
	regimeState, err := o.detectRegime(ctx, day)
	if err != nil {
		return nil, err
	}

	blend := o.cfg.News.BlendWeight
	if o.adaptive != nil {
		blend = o.adaptive.BlendWeight(ctx, regimeState.Label)
	}
	params := selector.Params{
		NewsBlendWeight: blend,
		TopN:            o.cfg.Portfolio.TopN,
		KillSwitchMode:  o.cfg.Policy.KillSwitchMode,
	}
	// A qualified historical parameter set overrides the per-knob blend
	// choice.
	if o.strategy != nil {
		if picked, ok := o.strategy.Select(ctx, regimeState.Label, params); ok {
			params = picked
			blend = params.NewsBlendWeight
		}
	}
	o.mu.Lock()
	o.prevRegime = regimeState.Label
	o.lastState = regimeState
	o.prevParams = params
	o.mu.Unlock()

	catHistory := o.categoryHistory()

	results := make(map[string]*tickerResult)
	articlesByTicker := make(map[string][]contracts.Article)

	for _, ticker := range o.universe.Tickers() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		history, err := o.tickerHistory(ctx, ticker, day)
		if err != nil {
			var hard *contracts.HardDataError
			if errors.As(err, &hard) {
				return nil, err
			}
			log.WithFields(map[string]interface{}{
				"ticker": ticker,
				"error":  err.Error(),
			}).Warn("Price fetch failed, excluding ticker this period")
			continue
		}
		if len(history) == 0 {
			continue
		}

		row, err := o.indicators.Compute(ctx, history, regimeState.Label, catHistory)
		if err != nil {
			return nil, err
		}

		articles := o.fetchArticles(ctx, ticker, day, log)
		articlesByTicker[ticker] = articles

		results[ticker] = &tickerResult{row: row}
	}

	// News needs peer sentiment, so composites run after all articles load
	for ticker, res := range results {
		peers := o.peerSentiment(ticker, day, articlesByTicker)
		res.comp = o.newsEng.Compute(ctx, ticker, day, articlesByTicker[ticker], peers)
	}

	o.applyPropagation(ctx, results)
	o.recordCategoryScores(results)

	scores := make([]contracts.GatedScore, 0, len(results))
	atr := make(map[string]float64, len(results))
	for ticker, res := range results {
		final := (1-blend)*res.row.MasterScore + blend*res.comp.Composite
		scores = append(scores, contracts.GatedScore{Ticker: ticker, Score: clamp01(final)})
		if res.row.NormalizedATR > 0 {
			atr[ticker] = res.row.NormalizedATR
		}
	}

	gated := o.gate.Gate(regimeState, scores)
	intent := o.sizer.Build(day, gated, atr)
	if intent.Meta == nil {
		intent.Meta = make(map[string]string)
	}
	intent.Meta["params_id"] = o.prevParams.Encode()
	intent.Meta["regime"] = string(regimeState.Label)
	intent.Meta["regime_source"] = regimeState.Source

	log.WithFields(map[string]interface{}{
		"mode":      string(intent.Mode),
		"positions": len(intent.Tickers),
		"regime":    string(regimeState.Label),
	}).Info("Decision run completed")
	return intent, nil
}

// detectRegime labels the regime from benchmark closes up to the date.
func (o *Orchestrator) detectRegime(ctx context.Context, day time.Time) (contracts.RegimeState, error) {
	series, err := o.prices.Bars(ctx, o.cfg.Meta.Benchmark)
	if err != nil {
		return contracts.RegimeState{}, err
	}
	if err := series.Validate(); err != nil {
		return contracts.RegimeState{}, err
	}
	bars := series.TruncateAt(day)
	return o.detector.Detect(ctx, contracts.Closes(bars), day), nil
}

// tickerHistory loads and truncates one ticker's bars.
func (o *Orchestrator) tickerHistory(ctx context.Context, ticker string, day time.Time) ([]contracts.PriceBar, error) {
	series, err := o.prices.Bars(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series.TruncateAt(day), nil
}

// fetchArticles loads the trailing news window, failing open to no
// articles on source errors.
func (o *Orchestrator) fetchArticles(ctx context.Context, ticker string, day time.Time, log *logger.Logger) []contracts.Article {
	from := day.AddDate(0, 0, -(o.cfg.News.BaselineDays + 30))
	articles, err := o.newsSrc.Articles(ctx, ticker, from, day)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"ticker": ticker,
			"error":  err.Error(),
		}).Warn("News fetch failed, treating as no coverage")
		return nil
	}
	return articles
}

// peerSentiment builds the sector-peer recent sentiment map for one
// ticker from already-loaded articles.
func (o *Orchestrator) peerSentiment(ticker string, day time.Time, byTicker map[string][]contracts.Article) map[string]float64 {
	peers := o.universe.SectorPeers(ticker)
	out := make(map[string]float64, len(peers))
	for _, peer := range peers {
		if s, ok := o.newsEng.RecentSentiment(byTicker[peer], day, o.cfg.News.ShortWindowDays); ok {
			out[peer] = s
		}
	}
	return out
}

// tickerResult pairs one ticker's indicator row with its news composite
// while a date is in flight.
type tickerResult struct {
	row  *contracts.IndicatorRow
	comp contracts.NewsComposite
}

// applyPropagation spreads each ticker's net sentiment and blends
// arriving signals into the targets' composites.
func (o *Orchestrator) applyPropagation(ctx context.Context, results map[string]*tickerResult) {
	incoming := make(map[string][]contracts.PropagatedSignal)
	for ticker, res := range results {
		signals, err := o.propagator.Propagate(ctx, ticker, res.comp.NetSentiment, res.comp.DiscoveredEntities)
		if err != nil {
			o.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"error":  err.Error(),
			}).Warn("Propagation failed for ticker")
			continue
		}
		for _, sig := range signals {
			incoming[sig.Target] = append(incoming[sig.Target], sig)
		}
	}

	for ticker, signals := range incoming {
		res, ok := results[ticker]
		if !ok {
			continue
		}
		res.comp = o.propagator.Blend(res.comp, signals)
	}
}

// recordCategoryScores appends the date's universe-mean category scores
// so later dates can fit dynamic weights out of the past.
func (o *Orchestrator) recordCategoryScores(results map[string]*tickerResult) {
	if len(results) == 0 {
		return
	}
	for _, c := range contracts.AllCategories() {
		sum := 0.0
		for _, res := range results {
			sum += res.row.CategoryScores[c]
		}
		o.catScores[c] = append(o.catScores[c], sum/float64(len(results)))
	}
}

// categoryHistory returns per-category return series derived from
// previously recorded dates only.
func (o *Orchestrator) categoryHistory() map[contracts.Category][]float64 {
	out := make(map[contracts.Category][]float64, len(o.catScores))
	for c, series := range o.catScores {
		if len(series) < 2 {
			continue
		}
		diffs := make([]float64, len(series)-1)
		for i := 1; i < len(series); i++ {
			diffs[i-1] = series[i] - series[i-1]
		}
		out[c] = diffs
	}
	return out
}

// holdPrevious copies the previous intent onto a new date, or an empty
// hold when there is none.
func (o *Orchestrator) holdPrevious(day time.Time) *contracts.Intent {
	if o.prevIntent == nil {
		intent := contracts.EmptyIntent(day, contracts.ModeNormal)
		intent.Meta = map[string]string{"abstained": "true"}
		return intent
	}

	held := &contracts.Intent{
		Date:    day,
		Mode:    o.prevIntent.Mode,
		Tickers: append([]string{}, o.prevIntent.Tickers...),
		Weights: make(map[string]float64, len(o.prevIntent.Weights)),
		Meta:    map[string]string{"abstained": "true"},
	}
	for t, w := range o.prevIntent.Weights {
		held.Weights[t] = w
	}
	return held
}

// settle realizes the previous intent's performance over the completed
// period and appends it to the ledger. Settlement failures are logged
// and skipped; the ledger must never block the decision path.
func (o *Orchestrator) settle(ctx context.Context, until time.Time) {
	ret, dd, err := o.realize(ctx, o.prevIntent, o.prevDate, until)
	if err != nil {
		o.logger.WithFields(map[string]interface{}{
			"from":  o.prevDate.Format("2006-01-02"),
			"to":    until.Format("2006-01-02"),
			"error": err.Error(),
		}).Warn("Period settlement failed, ledger row skipped")
		return
	}

	rec := contracts.LedgerRecord{
		Date:     contracts.Day(until),
		ParamsID: o.prevParams.Encode(),
		Return:   ret,
		Drawdown: dd,
		Regime:   o.prevRegime,
	}
	if err := o.ledger.Append(ctx, rec); err != nil {
		o.logger.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Warn("Ledger append failed")
	}
}

// realize computes the weighted close-to-close return and worst intra-
// period drawdown of an intent between two dates.
func (o *Orchestrator) realize(ctx context.Context, intent *contracts.Intent, from, to time.Time) (float64, float64, error) {
	if intent.IsCash() {
		return 0, 0, nil
	}

	totalRet := 0.0
	worstDD := 0.0
	for ticker, weight := range intent.Weights {
		if weight == 0 {
			continue
		}
		series, err := o.prices.Bars(ctx, ticker)
		if err != nil {
			return 0, 0, err
		}
		window := barsBetween(series.TruncateAt(to), from)
		if len(window) < 2 {
			continue
		}

		start := window[0].Close
		peak := start
		low := 0.0
		for _, b := range window[1:] {
			if b.Close > peak {
				peak = b.Close
			}
			dd := b.Close/peak - 1
			if dd < low {
				low = dd
			}
		}
		totalRet += weight * (window[len(window)-1].Close/start - 1)
		worstDD += weight * low
	}
	return totalRet, worstDD, nil
}

// barsBetween keeps bars dated at or after from.
func barsBetween(bars []contracts.PriceBar, from time.Time) []contracts.PriceBar {
	for i, b := range bars {
		if !b.Date.Before(contracts.Day(from)) {
			return bars[i:]
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
