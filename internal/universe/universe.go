package universe

import (
	"sort"
	"strings"
	"unicode"
)

// Entry describes one tradable ticker.
type Entry struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// Universe is the fixed set of tradable tickers plus the alias table used
// to resolve free-text company names (e.g. from deep analysis) to tickers.
// It is read-only after construction.
type Universe struct {
	entries map[string]Entry  // ticker -> entry
	aliases map[string]string // normalized alias -> ticker
	byName  map[string]string // normalized company name -> ticker
	order   []string          // tickers in insertion order
}

// New builds a universe from entries and an alias map (alias -> ticker).
func New(entries []Entry, aliases map[string]string) *Universe {
	u := &Universe{
		entries: make(map[string]Entry, len(entries)),
		aliases: make(map[string]string, len(aliases)),
		byName:  make(map[string]string, len(entries)),
		order:   make([]string, 0, len(entries)),
	}

	for _, e := range entries {
		if _, dup := u.entries[e.Ticker]; dup {
			continue
		}
		u.entries[e.Ticker] = e
		u.order = append(u.order, e.Ticker)
		if e.Name != "" {
			u.byName[NormalizeName(e.Name)] = e.Ticker
		}
	}

	for alias, ticker := range aliases {
		u.aliases[NormalizeName(alias)] = ticker
	}

	return u
}

// Tickers returns all tickers in insertion order. The slice is a copy.
func (u *Universe) Tickers() []string {
	out := make([]string, len(u.order))
	copy(out, u.order)
	return out
}

// Contains reports whether the ticker is in the universe.
func (u *Universe) Contains(ticker string) bool {
	_, ok := u.entries[ticker]
	return ok
}

// Sector returns the ticker's sector, or "" when unknown.
func (u *Universe) Sector(ticker string) string {
	return u.entries[ticker].Sector
}

// SectorPeers returns the tickers sharing a sector with the given ticker,
// excluding the ticker itself, sorted for determinism.
func (u *Universe) SectorPeers(ticker string) []string {
	sector := u.Sector(ticker)
	if sector == "" {
		return nil
	}

	var peers []string
	for t, e := range u.entries {
		if t != ticker && e.Sector == sector {
			peers = append(peers, t)
		}
	}
	sort.Strings(peers)
	return peers
}

// Resolve maps a free-text entity name to a ticker. The alias map wins;
// otherwise a normalized-name match against the known universe is tried.
// ok=false means the name is unresolvable and the caller drops it.
func (u *Universe) Resolve(name string) (string, bool) {
	norm := NormalizeName(name)
	if norm == "" {
		return "", false
	}

	// Exact ticker symbols pass through
	upper := strings.ToUpper(strings.TrimSpace(name))
	if u.Contains(upper) {
		return upper, true
	}

	if ticker, ok := u.aliases[norm]; ok && u.Contains(ticker) {
		return ticker, true
	}
	if ticker, ok := u.byName[norm]; ok {
		return ticker, true
	}

	return "", false
}

// legal suffixes stripped during name normalization
var nameSuffixes = []string{
	"incorporated", "corporation", "company", "holdings", "limited",
	"inc", "corp", "co", "ltd", "plc", "llc", "sa", "ag", "nv",
}

// NormalizeName lowercases, strips punctuation and trailing legal-form
// suffixes, and collapses whitespace.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '.' || r == ',' || r == '&':
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	for len(fields) > 1 {
		last := fields[len(fields)-1]
		stripped := false
		for _, suffix := range nameSuffixes {
			if last == suffix {
				fields = fields[:len(fields)-1]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}

	return strings.Join(fields, " ")
}
