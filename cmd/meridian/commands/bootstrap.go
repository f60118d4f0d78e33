package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jkwon/meridian/internal/analysis"
	"github.com/jkwon/meridian/internal/backtest"
	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/indicator"
	"github.com/jkwon/meridian/internal/ingest"
	"github.com/jkwon/meridian/internal/ledger"
	"github.com/jkwon/meridian/internal/news"
	"github.com/jkwon/meridian/internal/pipeline"
	"github.com/jkwon/meridian/internal/policy"
	"github.com/jkwon/meridian/internal/portfolio"
	"github.com/jkwon/meridian/internal/propagation"
	"github.com/jkwon/meridian/internal/regime"
	"github.com/jkwon/meridian/internal/selector"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/internal/universe"
	"github.com/jkwon/meridian/pkg/config"
	"github.com/jkwon/meridian/pkg/database"
	"github.com/jkwon/meridian/pkg/httputil"
	"github.com/jkwon/meridian/pkg/logger"
	"github.com/jkwon/meridian/pkg/redis"
)

// app holds everything a command needs after bootstrap.
type app struct {
	cfg      *config.Config
	strategy *strategyconfig.Config
	logger   *logger.Logger
	universe *universe.Universe

	prices contracts.PriceSource
	ledger contracts.LedgerStore

	orchestrator *pipeline.Orchestrator
	backtester   *backtest.Engine

	closers []func()
}

// bootstrap builds the dependency graph shared by all commands.
func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	strategy, err := loadStrategy()
	if err != nil {
		return nil, err
	}
	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return nil, err
	}
	log.WithFields(map[string]interface{}{
		"strategy": strategy.Meta.StrategyID,
		"hash":     hash[:12],
	}).Info("Strategy loaded")

	u, err := universe.LoadFile(universeFile)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, strategy: strategy, logger: log, universe: u}

	// Data sources: HTTP providers when a base URL is configured, local
	// files otherwise.
	if cfg.Prices.BaseURL != "" {
		a.prices = ingest.NewHTTPPriceSource(cfg.Prices, log)
	} else {
		a.prices = ingest.NewCSVPriceSource(cfg.Prices.DataDir, log)
	}

	var newsSrc contracts.NewsSource
	if cfg.News.BaseURL != "" {
		newsSrc = ingest.NewHTTPNewsSource(cfg.News, log)
	} else {
		newsSrc = ingest.NewFileNewsSource(cfg.News.DataDir, log)
	}

	relations := ingest.NewFileRelationshipSource(
		filepath.Join(filepath.Dir(universeFile), "relationships.json"), log)

	store, err := buildLedger(cfg, log, a)
	if err != nil {
		return nil, err
	}
	a.ledger = store

	analyzer := buildAnalyzer(cfg, log, a)

	weightSrc := indicator.NewWeightSource(strategy.Indicators)
	deps := pipeline.Deps{
		Universe:   u,
		Prices:     a.prices,
		News:       newsSrc,
		Ledger:     store,
		Indicators: indicator.NewEngine(strategy.Indicators, weightSrc, nil, log),
		NewsEngine: news.NewEngine(strategy.News, analyzer, log),
		Propagator: propagation.NewEngine(strategy.Propagation, relations, u, log),
		Detector:   regime.NewDetector(strategy.Regime, log),
		Policy:     policy.NewEngine(strategy.Policy, log),
		Portfolio:  portfolio.NewEngine(strategy.Portfolio, log),
		Adaptive:   selector.NewAdaptiveSelector(strategy.Selector, store, log),
		Strategy:   selector.NewStrategySelector(strategy.Selector, store, log),
	}
	a.orchestrator = pipeline.NewOrchestrator(strategy, deps, log)
	a.backtester = backtest.NewEngine(strategy.Backtest, strategy.Meta.Benchmark, a.prices, log)

	return a, nil
}

// loadStrategy reads the strategy YAML or falls back to the built-in.
func loadStrategy() (*strategyconfig.Config, error) {
	if strategyFile == "" {
		return strategyconfig.Default(), nil
	}
	return strategyconfig.Load(strategyFile)
}

// buildLedger selects the configured ledger backend.
func buildLedger(cfg *config.Config, log *logger.Logger, a *app) (contracts.LedgerStore, error) {
	switch cfg.Ledger.Backend {
	case "postgres":
		db, err := database.New(cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return ledger.NewPostgresStore(ctx, db, log)
	default:
		return ledger.NewFileStore(cfg.Ledger.Path, log)
	}
}

// buildAnalyzer wires the deep-analysis client with a redis-backed cache
// when redis is enabled, an in-memory cache otherwise. Returns nil when
// deep analysis is disabled.
func buildAnalyzer(cfg *config.Config, log *logger.Logger, a *app) contracts.DeepAnalyzer {
	if !cfg.Deep.Enabled {
		return nil
	}

	var store analysis.Store
	if client, err := redis.New(cfg); err == nil && client.Enabled() {
		a.closers = append(a.closers, func() { client.Close() })
		store = analysis.NewRedisStore(client, cfg.Deep.CacheTTL)
	} else {
		store = analysis.NewMemoryStore(cfg.Deep.CacheTTL, time.Now)
	}

	client := httputil.New(log, 1, cfg.Deep.Timeout)
	return analysis.New(cfg.Deep, client, store, log)
}

// close releases held resources in reverse order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
