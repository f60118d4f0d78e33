package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	universeFile string
	verbose      bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "meridian",
	Short: "Meridian - weekly rebalance decision engine",
	Long: `Meridian turns daily prices and news into one weekly portfolio
intent: indicator scores, news composites, sentiment propagation,
regime gating and inverse-volatility sizing.

Usage:
  go run ./cmd/meridian [command]

Examples:
  go run ./cmd/meridian run --date 2025-03-07
  go run ./cmd/meridian backtest --from 2024-01-05 --to 2025-03-07
  go run ./cmd/meridian regime
  go run ./cmd/meridian api`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default: built-in)")
	rootCmd.PersistentFlags().StringVar(&universeFile, "universe", "config/universe.json", "universe JSON file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
