package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkwon/meridian/internal/contracts"
	"github.com/jkwon/meridian/internal/regime"
)

var regimeDate string

// regimeCmd labels the market regime as of a date.
var regimeCmd = &cobra.Command{
	Use:   "regime",
	Short: "Detect the market regime from benchmark history",
	Long: `Loads the benchmark price series up to the given date and prints the
detected regime label, detector source, and state estimates.

Example:
  go run ./cmd/meridian regime --date 2025-03-07`,
	RunE: runRegime,
}

func init() {
	rootCmd.AddCommand(regimeCmd)
	regimeCmd.Flags().StringVar(&regimeDate, "date", "", "as-of date (YYYY-MM-DD, default: today)")
}

func runRegime(cmd *cobra.Command, args []string) error {
	date := time.Now().UTC()
	if regimeDate != "" {
		var err error
		date, err = time.Parse("2006-01-02", regimeDate)
		if err != nil {
			return fmt.Errorf("invalid date: %w", err)
		}
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	series, err := a.prices.Bars(ctx, a.strategy.Meta.Benchmark)
	if err != nil {
		return fmt.Errorf("failed to load benchmark bars: %w", err)
	}
	if err := series.Validate(); err != nil {
		return err
	}
	bars := series.TruncateAt(contracts.Day(date))

	detector := regime.NewDetector(a.strategy.Regime, a.logger)
	state := detector.Detect(ctx, contracts.Closes(bars), date)

	fmt.Printf("Regime as of %s (%s, %d bars)\n",
		state.Date.Format("2006-01-02"), a.strategy.Meta.Benchmark, len(bars))
	fmt.Printf("  label          %s\n", state.Label)
	fmt.Printf("  source         %s\n", state.Source)
	fmt.Printf("  below SMA-%d   %v\n", a.strategy.Regime.LongSMADays, state.BelowLongSMA)
	if state.Source == "hmm" {
		fmt.Printf("  daily mean     %+.4f%%\n", state.Mean*100)
		fmt.Printf("  daily vol      %.4f%%\n", state.Volatility*100)
		fmt.Printf("  stable         %v\n", state.Stable)
	}
	return nil
}
