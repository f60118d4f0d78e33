package contracts

import "time"

// Article is one news item for a ticker.
type Article struct {
	Ticker      string    `json:"ticker"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
}

// NewsComposite holds the four news sub-signals and their aggregate for one
// ticker/date. Each sub-signal is in [0,1]; 0.5 is neutral.
type NewsComposite struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`

	Buzz          float64 `json:"buzz"`
	Surprise      float64 `json:"surprise"`
	SectorRank    float64 `json:"sector_rank"`
	EventPriority float64 `json:"event_priority"`

	Composite  float64 `json:"composite"`
	BuzzActive bool    `json:"buzz_active"`

	// Net signed sentiment in [-1,1] behind the sub-signals; feeds the
	// propagation engine.
	NetSentiment float64 `json:"net_sentiment"`

	// Supplier/customer names surfaced by deep analysis, pending
	// resolution against the universe.
	DiscoveredEntities []DiscoveredEntity `json:"discovered_entities,omitempty"`
}

// NeutralComposite returns the cold-start composite for a ticker/date.
func NeutralComposite(ticker string, date time.Time) NewsComposite {
	return NewsComposite{
		Ticker:        ticker,
		Date:          date,
		Buzz:          0.5,
		Surprise:      0.5,
		SectorRank:    0.5,
		EventPriority: 0.5,
		Composite:     0.5,
	}
}

// Relationship is the edge type in the supply-chain graph.
type Relationship string

const (
	RelSupplier   Relationship = "supplier"
	RelCustomer   Relationship = "customer"
	RelCompetitor Relationship = "competitor"
)

// RelationshipEntry is one edge from a ticker to a counterparty.
type RelationshipEntry struct {
	Name string `json:"name"` // counterparty name or ticker

	// Confidence label: "high", "medium", "low"; empty when the revenue
	// concentration percentage is supplied instead.
	Confidence string `json:"confidence,omitempty"`

	// Revenue concentration in percent (0-100); 0 when unknown.
	RevenuePct float64 `json:"revenue_pct,omitempty"`
}

// RelationshipSet groups a ticker's categorized relationships.
type RelationshipSet struct {
	Suppliers   []RelationshipEntry `json:"suppliers"`
	Customers   []RelationshipEntry `json:"customers"`
	Competitors []RelationshipEntry `json:"competitors"`
}

// DiscoveredEntity is a supplier/customer name surfaced by deep analysis.
type DiscoveredEntity struct {
	Name         string       `json:"name"`
	Relationship Relationship `json:"relationship"`
}

// PropagatedSignal is a transient traversal result: sentiment arriving at a
// target ticker through the relationship graph. Recomputed per date, never
// persisted.
type PropagatedSignal struct {
	Target       string       `json:"target"`
	Source       string       `json:"source"`
	Sentiment    float64      `json:"sentiment"` // signed, already decayed
	Relationship Relationship `json:"relationship"`
	Tier         int          `json:"tier"`   // 1 or 2
	Weight       float64      `json:"weight"` // cumulative decay along the path
	Path         []string     `json:"path"`   // provenance, origin first
}
