package strategyconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestHashDeterministic(t *testing.T) {
	cfg := Default()

	h1, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	h2, _ := Hash(cfg)
	assert.Equal(t, h1, h2, "hash not deterministic")

	cfg.Portfolio.TopN = 7
	h3, _ := Hash(cfg)
	assert.NotEqual(t, h1, h3, "changed config produced identical hash")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strategy.yaml")

	yaml := `
meta:
  strategy_id: test
  benchmark: SPY
  not_a_field: 1
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	_, err := Load(path)
	assert.Error(t, err, "unknown YAML field should be rejected")
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad weight mode", func(c *Config) { c.Indicators.WeightMode = "quantum" }},
		{"blend weight out of range", func(c *Config) { c.News.BlendWeight = 1.5 }},
		{"tier2 above tier1", func(c *Config) { c.Propagation.Tier2Weight = 0.9 }},
		{"bad kill switch", func(c *Config) { c.Policy.KillSwitchMode = "maybe" }},
		{"positive stop loss", func(c *Config) { c.Backtest.StopLossFloor = 0.05 }},
		{"zero top n", func(c *Config) { c.Portfolio.TopN = 0 }},
		{"unknown regime key", func(c *Config) { c.Indicators.RegimeWeights["CRAB"] = Weights{Trend: 1} }},
		{"bad timeout", func(c *Config) { c.Pipeline.DateTimeout = "soon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestDateTimeout(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5.0, cfg.DateTimeout().Minutes())

	cfg.Pipeline.DateTimeout = "90s"
	assert.Equal(t, 90.0, cfg.DateTimeout().Seconds())
}
