package news

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jkwon/meridian/internal/contracts"
)

// Fuzzy headline deduplication. Wire stories get reprinted with minor
// headline edits; counting them separately inflates buzz and double-counts
// sentiment, so near-duplicates collapse to the earliest publication.

// headlineTokens lowercases a title and splits it into a token set.
func headlineTokens(title string) map[string]struct{} {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(b.String()) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

// jaccard computes token-set similarity in [0,1].
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Dedup removes near-duplicate articles, keeping the earliest of each
// cluster. threshold is the Jaccard similarity above which two headlines
// are considered the same story.
func Dedup(articles []contracts.Article, threshold float64) []contracts.Article {
	if len(articles) < 2 {
		return articles
	}

	sorted := make([]contracts.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.Before(sorted[j].PublishedAt)
	})

	kept := make([]contracts.Article, 0, len(sorted))
	keptTokens := make([]map[string]struct{}, 0, len(sorted))

	for _, art := range sorted {
		tokens := headlineTokens(art.Title)
		dup := false
		for _, prev := range keptTokens {
			if jaccard(tokens, prev) >= threshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, art)
			keptTokens = append(keptTokens, tokens)
		}
	}

	return kept
}
