package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jkwon/meridian/pkg/logger"
)

func TestCSVPriceSourceParsesAndCaches(t *testing.T) {
	dir := t.TempDir()
	csv := `date,open,high,low,close,volume
2025-01-02,100,102,99,101,50000
2025-01-03,101,105,100,104,60000
2025-01-06,104,,,103,
`
	if err := os.WriteFile(filepath.Join(dir, "AAA.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewCSVPriceSource(dir, logger.NewNop())
	series, err := src.Bars(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("Bars: %v", err)
	}
	if len(series.Bars) != 3 {
		t.Fatalf("parsed %d bars, want 3", len(series.Bars))
	}
	if series.Bars[1].Close != 104 || series.Bars[1].High != 105 {
		t.Errorf("bar 1 = %+v", series.Bars[1])
	}

	// Empty OHLV fields default from the close
	last := series.Bars[2]
	if last.High != 103 || last.Low != 103 {
		t.Errorf("expected high/low filled from close, got %+v", last)
	}
	if err := series.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	again, err := src.Bars(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("cached Bars: %v", err)
	}
	if again != series {
		t.Error("expected the cached series pointer")
	}
}

func TestCSVPriceSourceRejectsBadRows(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"BAD1.csv": "open,high\n1,2\n",
		"BAD2.csv": "date,close\nnot-a-date,100\n",
		"BAD3.csv": "date,close\n2025-01-02,abc\n",
	}
	for name, content := range cases {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	src := NewCSVPriceSource(dir, logger.NewNop())
	for name := range cases {
		ticker := strings.TrimSuffix(name, ".csv")
		if _, err := src.Bars(context.Background(), ticker); err == nil {
			t.Errorf("%s: expected a parse error", name)
		}
	}
}

func TestFileNewsSourceFiltersRange(t *testing.T) {
	dir := t.TempDir()
	archive := `[
		{"ticker":"AAA","title":"old story","published_at":"2024-12-01T09:00:00Z"},
		{"ticker":"AAA","title":"in range","published_at":"2025-01-03T09:00:00Z"},
		{"ticker":"AAA","title":"future story","published_at":"2025-02-01T09:00:00Z"}
	]`
	if err := os.WriteFile(filepath.Join(dir, "AAA.json"), []byte(archive), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFileNewsSource(dir, logger.NewNop())
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	articles, err := src.Articles(context.Background(), "AAA", from, to)
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "in range" {
		t.Errorf("filtered articles = %+v", articles)
	}

	// No archive means no coverage
	none, err := src.Articles(context.Background(), "ZZZ", from, to)
	if err != nil {
		t.Fatalf("missing archive: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no articles for unknown ticker, got %d", len(none))
	}
}

func TestParseNewsHTML(t *testing.T) {
	page := `<html><body>
		<article class="news-item" data-published="2025-01-03T14:30:00Z">
			<h2 class="headline">Alpha Corp beats earnings estimates</h2>
			<p class="summary">Quarterly profit rose sharply.</p>
			<span class="source">Newswire</span>
		</article>
		<article class="news-item">
			<h2 class="headline">No timestamp, dropped</h2>
		</article>
		<article class="news-item" data-published="bogus">
			<h2 class="headline">Bad timestamp, dropped</h2>
		</article>
	</body></html>`

	articles, err := ParseNewsHTML(strings.NewReader(page), "AAA")
	if err != nil {
		t.Fatalf("ParseNewsHTML: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("parsed %d articles, want 1", len(articles))
	}
	a := articles[0]
	if a.Title != "Alpha Corp beats earnings estimates" {
		t.Errorf("title = %q", a.Title)
	}
	if a.Source != "Newswire" {
		t.Errorf("source = %q", a.Source)
	}
	if !a.PublishedAt.Equal(time.Date(2025, 1, 3, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("published = %s", a.PublishedAt)
	}
}

func TestFileRelationshipSource(t *testing.T) {
	dir := t.TempDir()
	table := `{
		"AAA": {"suppliers":[{"name":"Beta Inc","confidence":"high"}]},
		"BBB": {"customers":[{"name":"AAA","revenue_pct":35}]}
	}`
	path := filepath.Join(dir, "relationships.json")
	if err := os.WriteFile(path, []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFileRelationshipSource(path, logger.NewNop())
	set, err := src.Relationships(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("Relationships: %v", err)
	}
	if len(set.Suppliers) != 1 || set.Suppliers[0].Confidence != "high" {
		t.Errorf("set = %+v", set)
	}

	empty, err := src.Relationships(context.Background(), "ZZZ")
	if err != nil {
		t.Fatalf("unknown ticker: %v", err)
	}
	if len(empty.Suppliers)+len(empty.Customers)+len(empty.Competitors) != 0 {
		t.Errorf("unknown ticker should get an empty set, got %+v", empty)
	}

	missing := NewFileRelationshipSource(filepath.Join(dir, "nope.json"), logger.NewNop())
	if _, err := missing.Relationships(context.Background(), "AAA"); err != nil {
		t.Errorf("missing table should be empty, not an error: %v", err)
	}
}
