package propagation

import (
	"context"
	"math"
	"strings"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/internal/universe"
	"github.com/jkwon/meridian/pkg/logger"
)

// Engine spreads one ticker's net sentiment across the supplier/customer/
// competitor graph, up to two hops with decayed weights. The graph is a
// read-only adjacency table consulted per traversal; a visited set keyed by
// (ticker, tier) terminates cycles and prevents double counting.
type Engine struct {
	cfg       strategyconfig.Propagation
	relations contracts.RelationshipSource
	universe  *universe.Universe
	logger    *logger.Logger
}

// NewEngine creates a propagation engine.
func NewEngine(cfg strategyconfig.Propagation, relations contracts.RelationshipSource, u *universe.Universe, log *logger.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		relations: relations,
		universe:  u,
		logger:    log,
	}
}

// queueItem is one frontier node during traversal.
type queueItem struct {
	ticker string
	tier   int
	weight float64 // cumulative decay along the path
	path   []string
}

// Propagate spreads sentiment from origin through the graph. discovered
// holds entity names surfaced by deep analysis that are not yet edges in
// the relationship table; they are resolved and treated as tier-1
// neighbors. Near-neutral sentiment propagates nothing.
func (e *Engine) Propagate(ctx context.Context, origin string, sentiment float64, discovered []contracts.DiscoveredEntity) ([]contracts.PropagatedSignal, error) {
	if math.Abs(sentiment) < e.cfg.MinAbsSentiment {
		return nil, nil
	}

	// visited[ticker] = shallowest tier at which the ticker was settled.
	// Origin sits at tier 0 so it can never receive its own signal.
	visited := map[string]int{origin: 0}

	var signals []contracts.PropagatedSignal
	frontier := []queueItem{{ticker: origin, tier: 0, weight: 1.0, path: []string{origin}}}

	for len(frontier) > 0 {
		item := frontier[0]
		frontier = frontier[1:]

		if item.tier >= 2 {
			continue
		}

		neighbors, err := e.neighbors(ctx, item)
		if err != nil {
			// Missing relationship data propagates nothing for the node
			e.logger.WithFields(map[string]interface{}{
				"ticker": item.ticker,
				"error":  err.Error(),
			}).Warn("Relationship lookup failed, skipping node")
			continue
		}

		// Discovered entities extend only the origin's direct edges
		if item.tier == 0 {
			neighbors = append(neighbors, e.resolveDiscovered(discovered)...)
		}

		for _, n := range neighbors {
			nextTier := item.tier + 1

			// A node already settled at an equal-or-shallower tier is
			// skipped; revisiting deeper is a no-op.
			if prev, seen := visited[n.ticker]; seen && prev <= nextTier {
				continue
			}
			visited[n.ticker] = nextTier

			edgeWeight := n.weight
			if nextTier == 2 {
				edgeWeight = e.cfg.Tier2Weight
			}

			cumWeight := item.weight * edgeWeight
			path := append(append([]string{}, item.path...), n.ticker)

			signals = append(signals, contracts.PropagatedSignal{
				Target:       n.ticker,
				Source:       origin,
				Sentiment:    sentiment * cumWeight,
				Relationship: n.relationship,
				Tier:         nextTier,
				Weight:       cumWeight,
				Path:         path,
			})

			frontier = append(frontier, queueItem{
				ticker: n.ticker,
				tier:   nextTier,
				weight: cumWeight,
				path:   path,
			})
		}
	}

	return signals, nil
}

// neighbor is one resolved outgoing edge.
type neighbor struct {
	ticker       string
	relationship contracts.Relationship
	weight       float64
}

// neighbors resolves the adjacency entries of a node to in-universe
// tickers with tier-1 base weights.
func (e *Engine) neighbors(ctx context.Context, item queueItem) ([]neighbor, error) {
	set, err := e.relations.Relationships(ctx, item.ticker)
	if err != nil {
		return nil, err
	}

	var out []neighbor
	appendEntries := func(entries []contracts.RelationshipEntry, rel contracts.Relationship) {
		for _, entry := range entries {
			ticker, ok := e.universe.Resolve(entry.Name)
			if !ok {
				e.logger.WithFields(map[string]interface{}{
					"name": entry.Name,
					"from": item.ticker,
				}).Debug("Unresolvable relationship entry dropped")
				continue
			}
			out = append(out, neighbor{
				ticker:       ticker,
				relationship: rel,
				weight:       e.tier1Weight(entry),
			})
		}
	}

	appendEntries(set.Suppliers, contracts.RelSupplier)
	appendEntries(set.Customers, contracts.RelCustomer)
	appendEntries(set.Competitors, contracts.RelCompetitor)

	return out, nil
}

// tier1Weight derives the base decay weight from relationship confidence
// or revenue concentration metadata.
func (e *Engine) tier1Weight(entry contracts.RelationshipEntry) float64 {
	switch strings.ToLower(entry.Confidence) {
	case "high":
		return 0.7
	case "medium":
		return 0.5
	case "low":
		return 0.3
	}

	if entry.RevenuePct > 0 {
		w := entry.RevenuePct / 100.0
		if w < 0.1 {
			w = 0.1
		}
		if w > 0.9 {
			w = 0.9
		}
		return w
	}

	return e.cfg.Tier1DefaultWeight
}

// resolveDiscovered maps deep-analysis entity names to tier-1 neighbors;
// unresolvable names are dropped.
func (e *Engine) resolveDiscovered(discovered []contracts.DiscoveredEntity) []neighbor {
	var out []neighbor
	for _, d := range discovered {
		ticker, ok := e.universe.Resolve(d.Name)
		if !ok {
			e.logger.WithFields(map[string]interface{}{
				"name": d.Name,
			}).Debug("Discovered entity unresolvable, dropped")
			continue
		}
		out = append(out, neighbor{
			ticker:       ticker,
			relationship: d.Relationship,
			weight:       e.cfg.Tier1DefaultWeight,
		})
	}
	return out
}

// Blend folds incoming propagated signals for one target into its news
// composite. Multiple signals average; the blend factor controls how far
// the composite moves toward the propagated consensus.
func (e *Engine) Blend(comp contracts.NewsComposite, incoming []contracts.PropagatedSignal) contracts.NewsComposite {
	if len(incoming) == 0 {
		return comp
	}

	sum := 0.0
	for _, sig := range incoming {
		sum += sig.Sentiment
	}
	avg := sum / float64(len(incoming))

	// Map signed sentiment onto the [0,1] composite scale
	shift := e.cfg.BlendFactor * avg / 2
	comp.Composite = clamp01(comp.Composite + shift)
	comp.NetSentiment = clampSigned(comp.NetSentiment + e.cfg.BlendFactor*avg)
	return comp
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

func clampSigned(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
