package news

import (
	"strings"
	"unicode"
)

// Lexicon sentiment scoring over headline and body text. Deliberately
// small: the heavy lifting belongs to the gated deep-analysis step; this
// scorer only needs a stable sign and rough magnitude.

var positiveWords = map[string]float64{
	"beat": 1, "beats": 1, "surge": 1, "surges": 1, "soar": 1, "soars": 1,
	"record": 0.5, "strong": 0.5, "growth": 0.5, "profit": 0.5, "profits": 0.5,
	"upgrade": 1, "upgraded": 1, "outperform": 1, "rally": 1, "rallies": 1,
	"gain": 0.5, "gains": 0.5, "jump": 1, "jumps": 1, "exceed": 1, "exceeds": 1,
	"raise": 0.5, "raises": 0.5, "buyback": 0.5, "dividend": 0.25,
	"win": 0.5, "wins": 0.5, "approval": 0.5, "approved": 0.5, "expands": 0.5,
	"bullish": 1, "breakthrough": 1, "partnership": 0.5,
}

var negativeWords = map[string]float64{
	"miss": 1, "misses": 1, "plunge": 1, "plunges": 1, "fall": 0.5, "falls": 0.5,
	"weak": 0.5, "loss": 0.5, "losses": 0.5, "downgrade": 1, "downgraded": 1,
	"underperform": 1, "drop": 0.5, "drops": 0.5, "cut": 0.5, "cuts": 0.5,
	"lawsuit": 1, "litigation": 1, "probe": 0.75, "investigation": 0.75,
	"recall": 1, "bankruptcy": 1, "default": 1, "warns": 0.75, "warning": 0.75,
	"layoff": 0.75, "layoffs": 0.75, "decline": 0.5, "declines": 0.5,
	"bearish": 1, "fraud": 1, "halt": 0.75, "halted": 0.75, "delays": 0.5,
}

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "without": {}, "fails": {}, "failed": {},
}

func tokenize(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// ScoreText returns a signed sentiment in [-1,1] for a piece of text.
// A negation immediately before a sentiment word flips its sign.
func ScoreText(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	score := 0.0
	hits := 0.0
	for i, tok := range tokens {
		var v float64
		if w, ok := positiveWords[tok]; ok {
			v = w
		} else if w, ok := negativeWords[tok]; ok {
			v = -w
		} else {
			continue
		}

		if i > 0 {
			if _, neg := negations[tokens[i-1]]; neg {
				v = -v
			}
		}

		score += v
		hits++
	}

	if hits == 0 {
		return 0
	}

	// Dampen single-hit headlines, saturate on many hits
	norm := score / (hits + 2)
	if norm > 1 {
		norm = 1
	}
	if norm < -1 {
		norm = -1
	}
	return norm
}

// ScoreArticle scores title and body together; the title counts double
// since headlines carry the signal.
func ScoreArticle(title, body string) float64 {
	t := ScoreText(title)
	if body == "" {
		return t
	}
	b := ScoreText(body)
	return clampSigned((2*t + b) / 3)
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
