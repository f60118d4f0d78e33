package news

import (
	"testing"
	"time"

	"github.com/jkwon/meridian/internal/contracts"
)

func TestDedupCollapsesNearDuplicates(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	articles := []contracts.Article{
		{Title: "Acme Corp beats earnings expectations", PublishedAt: base},
		{Title: "Acme Corp Beats Earnings Expectations!", PublishedAt: base.Add(2 * time.Hour)},
		{Title: "acme corp beats earnings expectations.", PublishedAt: base.Add(4 * time.Hour)},
		{Title: "Acme announces new factory in Ohio", PublishedAt: base.Add(1 * time.Hour)},
	}

	got := Dedup(articles, 0.85)
	if len(got) != 2 {
		t.Fatalf("expected 2 unique stories, got %d", len(got))
	}

	// Earliest of the duplicate cluster survives
	if !got[0].PublishedAt.Equal(base) {
		t.Errorf("expected earliest duplicate kept, got %v", got[0].PublishedAt)
	}
}

func TestDedupKeepsDistinctStories(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	articles := []contracts.Article{
		{Title: "Acme beats earnings", PublishedAt: base},
		{Title: "Acme CEO steps down amid probe", PublishedAt: base.Add(time.Hour)},
		{Title: "Acme supplier reports shortage", PublishedAt: base.Add(2 * time.Hour)},
	}

	if got := Dedup(articles, 0.85); len(got) != 3 {
		t.Errorf("expected 3 distinct stories, got %d", len(got))
	}
}

func TestJaccard(t *testing.T) {
	a := headlineTokens("acme beats earnings")
	b := headlineTokens("acme beats earnings expectations")

	sim := jaccard(a, b)
	if sim != 0.75 {
		t.Errorf("expected 0.75, got %f", sim)
	}

	if jaccard(a, a) != 1 {
		t.Error("identical sets should have similarity 1")
	}
	if jaccard(a, headlineTokens("completely different words")) != 0 {
		t.Error("disjoint sets should have similarity 0")
	}
}
