package universe

import "testing"

func testUniverse() *Universe {
	entries := []Entry{
		{Ticker: "AAPL", Name: "Apple Inc.", Sector: "Technology"},
		{Ticker: "MSFT", Name: "Microsoft Corporation", Sector: "Technology"},
		{Ticker: "TSM", Name: "Taiwan Semiconductor Manufacturing Company", Sector: "Semiconductors"},
		{Ticker: "XOM", Name: "Exxon Mobil Corporation", Sector: "Energy"},
	}
	aliases := map[string]string{
		"TSMC": "TSM",
	}
	return New(entries, aliases)
}

func TestResolveByTicker(t *testing.T) {
	u := testUniverse()

	ticker, ok := u.Resolve("aapl")
	if !ok || ticker != "AAPL" {
		t.Errorf("expected AAPL, got %q ok=%v", ticker, ok)
	}
}

func TestResolveByAlias(t *testing.T) {
	u := testUniverse()

	ticker, ok := u.Resolve("TSMC")
	if !ok || ticker != "TSM" {
		t.Errorf("expected TSM via alias, got %q ok=%v", ticker, ok)
	}
}

func TestResolveByNormalizedName(t *testing.T) {
	u := testUniverse()

	tests := []struct {
		name string
		want string
	}{
		{"Apple Inc.", "AAPL"},
		{"apple", "AAPL"},
		{"Microsoft Corp", "MSFT"},
		{"Exxon Mobil", "XOM"},
	}

	for _, tt := range tests {
		got, ok := u.Resolve(tt.name)
		if !ok || got != tt.want {
			t.Errorf("Resolve(%q) = %q ok=%v, want %q", tt.name, got, ok, tt.want)
		}
	}
}

func TestResolveUnknownDropped(t *testing.T) {
	u := testUniverse()

	if _, ok := u.Resolve("Unheard Of Widgets GmbH"); ok {
		t.Error("unknown name should not resolve")
	}
	if _, ok := u.Resolve(""); ok {
		t.Error("empty name should not resolve")
	}
}

func TestSectorPeers(t *testing.T) {
	u := testUniverse()

	peers := u.SectorPeers("AAPL")
	if len(peers) != 1 || peers[0] != "MSFT" {
		t.Errorf("expected [MSFT], got %v", peers)
	}

	if peers := u.SectorPeers("UNKNOWN"); peers != nil {
		t.Errorf("expected nil peers for unknown ticker, got %v", peers)
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("Exxon-Mobil, Corp."); got != "exxon mobil" {
		t.Errorf("got %q", got)
	}
	if got := NormalizeName("Apple Incorporated"); got != "apple" {
		t.Errorf("got %q", got)
	}
}
