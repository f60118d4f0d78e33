package news

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/pkg/logger"
)

const neutral = 0.5

// High-impact event categories for the event-priority sub-signal.
var eventKeywords = map[string][]string{
	"earnings":   {"earnings", "quarterly results", "guidance", "eps"},
	"mna":        {"merger", "acquisition", "acquires", "takeover", "buyout"},
	"litigation": {"lawsuit", "litigation", "settlement", "court ruling"},
	"regulatory": {"fda", "antitrust", "regulator", "regulatory decision", "sanction"},
	"leadership": {"ceo", "cfo", "resigns", "appoints", "steps down", "successor"},
}

// Supply-chain keywords that open the deep-analysis gate.
var supplyChainKeywords = []string{
	"supplier", "suppliers", "supply chain", "customer", "customers",
	"component", "components", "shortage", "sourcing", "procurement",
	"contract manufacturer", "foundry",
}

// Engine computes the four news sub-signals and their composite for one
// ticker/date. Articles are deduplicated before any signal computation.
type Engine struct {
	cfg      strategyconfig.News
	analyzer contracts.DeepAnalyzer // optional, gated
	logger   *logger.Logger
}

// NewEngine creates a news composite engine. analyzer may be nil.
func NewEngine(cfg strategyconfig.News, analyzer contracts.DeepAnalyzer, log *logger.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		analyzer: analyzer,
		logger:   log,
	}
}

// Compute builds the NewsComposite for ticker at date. articles is the raw
// (possibly duplicated) collection; only items published at or before the
// end of date participate. peerRecent maps sector peers to their recent
// mean sentiment for the cross-sectional rank; nil means no peer data.
func (e *Engine) Compute(ctx context.Context, ticker string, date time.Time, articles []contracts.Article, peerRecent map[string]float64) contracts.NewsComposite {
	date = contracts.Day(date)
	dayEnd := date.Add(24 * time.Hour)

	// Drop future articles, then dedup
	var visible []contracts.Article
	for _, a := range articles {
		if a.PublishedAt.Before(dayEnd) {
			visible = append(visible, a)
		}
	}
	visible = Dedup(visible, e.cfg.DedupThreshold)

	if len(visible) == 0 {
		return contracts.NeutralComposite(ticker, date)
	}

	comp := contracts.NewsComposite{Ticker: ticker, Date: date}

	shortStart := date.AddDate(0, 0, -(e.cfg.ShortWindowDays - 1))
	var window []contracts.Article // short-window articles, [shortStart, dayEnd)
	for _, a := range visible {
		if !a.PublishedAt.Before(shortStart) {
			window = append(window, a)
		}
	}

	comp.Buzz, comp.BuzzActive = e.buzz(visible, window, shortStart)
	comp.Surprise = e.surprise(visible, window, date)
	comp.SectorRank = e.sectorRank(window, peerRecent)
	comp.EventPriority = e.eventPriority(visible, dayEnd)

	comp.Composite = (comp.Buzz + comp.Surprise + comp.SectorRank + comp.EventPriority) / 4

	comp.NetSentiment = meanSentiment(window)

	e.runDeepAnalysis(ctx, &comp, window)

	return comp
}

// buzz compares the short-window article count against a statistical
// threshold built from the trailing daily-count baseline.
func (e *Engine) buzz(visible, window []contracts.Article, shortStart time.Time) (float64, bool) {
	baselineStart := shortStart.AddDate(0, 0, -e.cfg.BaselineDays)

	counts := make(map[time.Time]int)
	for _, a := range visible {
		day := contracts.Day(a.PublishedAt)
		if !day.Before(baselineStart) && day.Before(shortStart) {
			counts[day]++
		}
	}

	if len(counts) == 0 {
		return neutral, false
	}

	daily := make([]float64, 0, e.cfg.BaselineDays)
	for d := baselineStart; d.Before(shortStart); d = d.AddDate(0, 0, 1) {
		daily = append(daily, float64(counts[contracts.Day(d)]))
	}

	m := meanFloat(daily)
	sd := stdevFloat(daily)
	threshold := float64(e.cfg.ShortWindowDays) * (m + e.cfg.BuzzStdevK*sd)

	current := float64(len(window))
	if threshold <= 0 {
		if current > 0 {
			return 1, true
		}
		return neutral, false
	}

	// 0.5 exactly at the threshold, saturating at twice the threshold
	ratio := current / threshold
	return clamp01(0.5 * ratio), ratio >= 1
}

// surprise is the short-window mean sentiment against a 30-day baseline
// that strictly excludes the current date (lag rule), mapped around 0.5.
func (e *Engine) surprise(visible, window []contracts.Article, date time.Time) float64 {
	baselineStart := date.AddDate(0, 0, -e.cfg.BaselineDays)

	var baseline []contracts.Article
	for _, a := range visible {
		day := contracts.Day(a.PublishedAt)
		// [date-30, date): articles published on the decision date never
		// contaminate their own baseline
		if !day.Before(baselineStart) && day.Before(date) {
			baseline = append(baseline, a)
		}
	}

	if len(baseline) == 0 || len(window) == 0 {
		return neutral
	}

	delta := meanSentiment(window) - meanSentiment(baseline)
	return clamp01(0.5 + delta/2)
}

// sectorRank returns 1 when the ticker's recent sentiment is in the top
// decile of its sector peers, else 0; neutral without peer data.
func (e *Engine) sectorRank(window []contracts.Article, peerRecent map[string]float64) float64 {
	if len(peerRecent) == 0 {
		return neutral
	}

	own := meanSentiment(window)

	peers := make([]float64, 0, len(peerRecent))
	for _, s := range peerRecent {
		peers = append(peers, s)
	}
	sort.Float64s(peers)

	// Position of own sentiment among peers
	below := 0
	for _, s := range peers {
		if s < own {
			below++
		}
	}
	pct := float64(below) / float64(len(peers))

	if pct >= 0.9 {
		return 1
	}
	return 0
}

// eventPriority returns 1 when a high-impact event category appears in
// articles within the trailing event window, else 0.
func (e *Engine) eventPriority(visible []contracts.Article, dayEnd time.Time) float64 {
	cutoff := dayEnd.Add(-time.Duration(e.cfg.EventWindowHours) * time.Hour)

	for _, a := range visible {
		if a.PublishedAt.Before(cutoff) {
			continue
		}
		text := strings.ToLower(a.Title + " " + a.Body)
		for _, keywords := range eventKeywords {
			for _, kw := range keywords {
				if strings.Contains(text, kw) {
					return 1
				}
			}
		}
	}
	return 0
}

// runDeepAnalysis fires the gated external classifier when a supply-chain
// keyword is present or the sentiment surprise exceeds the trigger. Any
// failure contributes nothing.
func (e *Engine) runDeepAnalysis(ctx context.Context, comp *contracts.NewsComposite, window []contracts.Article) {
	if e.analyzer == nil || len(window) == 0 {
		return
	}

	triggered := abs(comp.Surprise-neutral) > e.cfg.DeepTrigger
	if !triggered {
	scan:
		for _, a := range window {
			text := strings.ToLower(a.Title + " " + a.Body)
			for _, kw := range supplyChainKeywords {
				if strings.Contains(text, kw) {
					triggered = true
					break scan
				}
			}
		}
	}
	if !triggered {
		return
	}

	headlines := make([]string, 0, len(window))
	for _, a := range window {
		headlines = append(headlines, a.Title)
	}

	result, err := e.analyzer.Analyze(ctx, comp.Ticker, comp.Date, headlines)
	if err != nil {
		e.logger.WithFields(map[string]interface{}{
			"ticker": comp.Ticker,
			"date":   comp.Date.Format("2006-01-02"),
			"error":  err.Error(),
		}).Warn("Deep analysis failed, contributing nothing")
		return
	}
	if result == nil {
		return
	}

	comp.NetSentiment = clampSigned(comp.NetSentiment + result.SentimentAdjust/2)
	comp.DiscoveredEntities = append(comp.DiscoveredEntities, result.DiscoveredEntities...)
}

// RecentSentiment returns the mean deduplicated sentiment of a ticker's
// articles over the trailing days window ending at date. The pipeline uses
// it to build the sector-peer map.
func (e *Engine) RecentSentiment(articles []contracts.Article, date time.Time, days int) (float64, bool) {
	date = contracts.Day(date)
	dayEnd := date.Add(24 * time.Hour)
	start := date.AddDate(0, 0, -(days - 1))

	var recent []contracts.Article
	for _, a := range articles {
		if !a.PublishedAt.Before(start) && a.PublishedAt.Before(dayEnd) {
			recent = append(recent, a)
		}
	}
	recent = Dedup(recent, e.cfg.DedupThreshold)

	if len(recent) == 0 {
		return 0, false
	}
	return meanSentiment(recent), true
}

func meanSentiment(articles []contracts.Article) float64 {
	if len(articles) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range articles {
		sum += ScoreArticle(a.Title, a.Body)
	}
	return sum / float64(len(articles))
}

func meanFloat(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdevFloat(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := meanFloat(xs)
	v := 0.0
	for _, x := range xs {
		v += (x - m) * (x - m)
	}
	return math.Sqrt(v / float64(len(xs)))
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

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
