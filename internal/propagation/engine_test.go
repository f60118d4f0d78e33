package propagation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/strategyconfig"
	"github.com/jkwon/meridian/internal/universe"
	"github.com/jkwon/meridian/pkg/logger"
)

type stubRelations struct {
	sets map[string]contracts.RelationshipSet
}

func (s *stubRelations) Relationships(_ context.Context, ticker string) (contracts.RelationshipSet, error) {
	return s.sets[ticker], nil
}

func testUniverse() *universe.Universe {
	return universe.New([]universe.Entry{
		{Ticker: "AAA", Name: "Alpha Corp", Sector: "tech"},
		{Ticker: "BBB", Name: "Beta Inc", Sector: "tech"},
		{Ticker: "CCC", Name: "Gamma Ltd", Sector: "tech"},
		{Ticker: "DDD", Name: "Delta Co", Sector: "industrials"},
	}, nil)
}

func testEngine(rel contracts.RelationshipSource) *Engine {
	cfg := strategyconfig.Default().Propagation
	return NewEngine(cfg, rel, testUniverse(), logger.NewNop())
}

func TestHighConfidenceSupplierTierOne(t *testing.T) {
	rel := &stubRelations{sets: map[string]contracts.RelationshipSet{
		"AAA": {Suppliers: []contracts.RelationshipEntry{
			{Name: "BBB", Confidence: "high"},
		}},
	}}
	eng := testEngine(rel)

	signals, err := eng.Propagate(context.Background(), "AAA", 0.8, nil)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}

	sig := signals[0]
	if sig.Target != "BBB" || sig.Tier != 1 {
		t.Errorf("unexpected signal target/tier: %+v", sig)
	}
	if math.Abs(sig.Sentiment-0.56) > 1e-9 {
		t.Errorf("expected sentiment 0.56, got %f", sig.Sentiment)
	}
}

func TestTierTwoWeightDecays(t *testing.T) {
	rel := &stubRelations{sets: map[string]contracts.RelationshipSet{
		"AAA": {Customers: []contracts.RelationshipEntry{{Name: "BBB", Confidence: "high"}}},
		"BBB": {Customers: []contracts.RelationshipEntry{{Name: "CCC", Confidence: "high"}}},
	}}
	eng := testEngine(rel)

	signals, err := eng.Propagate(context.Background(), "AAA", 1.0, nil)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}

	byTarget := map[string]contracts.PropagatedSignal{}
	for _, s := range signals {
		byTarget[s.Target] = s
	}

	t1, ok := byTarget["BBB"]
	if !ok {
		t.Fatal("missing tier-1 signal for BBB")
	}
	t2, ok := byTarget["CCC"]
	if !ok {
		t.Fatal("missing tier-2 signal for CCC")
	}
	if t2.Tier != 2 {
		t.Errorf("expected CCC at tier 2, got %d", t2.Tier)
	}
	if t2.Weight >= t1.Weight {
		t.Errorf("tier-2 weight %f should be below tier-1 weight %f", t2.Weight, t1.Weight)
	}
	if math.Abs(t2.Weight-0.7*0.2) > 1e-9 {
		t.Errorf("expected tier-2 cumulative weight 0.14, got %f", t2.Weight)
	}
}

func TestOriginNeverReceivesOwnSignal(t *testing.T) {
	// AAA -> BBB -> AAA cycle
	rel := &stubRelations{sets: map[string]contracts.RelationshipSet{
		"AAA": {Competitors: []contracts.RelationshipEntry{{Name: "BBB", Confidence: "medium"}}},
		"BBB": {Competitors: []contracts.RelationshipEntry{{Name: "AAA", Confidence: "medium"}}},
	}}
	eng := testEngine(rel)

	signals, err := eng.Propagate(context.Background(), "AAA", 0.9, nil)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	for _, s := range signals {
		if s.Target == "AAA" {
			t.Errorf("origin received its own signal: %+v", s)
		}
	}
}

func TestDeeperRevisitIsNoOp(t *testing.T) {
	// BBB reachable directly (tier 1) and through CCC (tier 2); only the
	// shallow visit should emit.
	rel := &stubRelations{sets: map[string]contracts.RelationshipSet{
		"AAA": {Suppliers: []contracts.RelationshipEntry{
			{Name: "BBB", Confidence: "high"},
			{Name: "CCC", Confidence: "high"},
		}},
		"CCC": {Suppliers: []contracts.RelationshipEntry{{Name: "BBB", Confidence: "high"}}},
	}}
	eng := testEngine(rel)

	signals, err := eng.Propagate(context.Background(), "AAA", 1.0, nil)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}

	count := 0
	for _, s := range signals {
		if s.Target == "BBB" {
			count++
			if s.Tier != 1 {
				t.Errorf("BBB settled at tier %d, want 1", s.Tier)
			}
		}
	}
	if count != 1 {
		t.Errorf("BBB received %d signals, want 1", count)
	}
}

func TestNeutralSentimentPropagatesNothing(t *testing.T) {
	rel := &stubRelations{sets: map[string]contracts.RelationshipSet{
		"AAA": {Suppliers: []contracts.RelationshipEntry{{Name: "BBB", Confidence: "high"}}},
	}}
	eng := testEngine(rel)

	signals, err := eng.Propagate(context.Background(), "AAA", 0.01, nil)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("near-neutral sentiment should not propagate, got %d signals", len(signals))
	}
}

func TestRevenuePctWeightClamped(t *testing.T) {
	eng := testEngine(&stubRelations{})

	cases := []struct {
		pct  float64
		want float64
	}{
		{5, 0.1},
		{40, 0.4},
		{95, 0.9},
	}
	for _, c := range cases {
		got := eng.tier1Weight(contracts.RelationshipEntry{Name: "BBB", RevenuePct: c.pct})
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("RevenuePct %f: weight %f, want %f", c.pct, got, c.want)
		}
	}

	// No metadata falls back to the configured default
	got := eng.tier1Weight(contracts.RelationshipEntry{Name: "BBB"})
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("default weight %f, want 0.5", got)
	}
}

func TestDiscoveredEntityResolvedAsTierOne(t *testing.T) {
	eng := testEngine(&stubRelations{})

	discovered := []contracts.DiscoveredEntity{
		{Name: "Delta Co", Relationship: contracts.RelSupplier},
		{Name: "Nonexistent Widgets", Relationship: contracts.RelCustomer},
	}
	signals, err := eng.Propagate(context.Background(), "AAA", 0.6, discovered)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	if signals[0].Target != "DDD" || signals[0].Tier != 1 {
		t.Errorf("unexpected signal: %+v", signals[0])
	}
}

func TestBlendShiftsComposite(t *testing.T) {
	eng := testEngine(&stubRelations{})

	comp := contracts.NeutralComposite("BBB", time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC))
	blended := eng.Blend(comp, []contracts.PropagatedSignal{
		{Target: "BBB", Sentiment: 0.56},
	})
	if blended.Composite <= comp.Composite {
		t.Errorf("positive propagated sentiment should raise composite: %f -> %f", comp.Composite, blended.Composite)
	}

	unchanged := eng.Blend(comp, nil)
	if unchanged.Composite != comp.Composite {
		t.Errorf("no incoming signals should leave composite unchanged")
	}
}
