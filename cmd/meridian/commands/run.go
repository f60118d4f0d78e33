package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var runDate string

// runCmd produces one rebalance intent.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Produce a rebalance intent for one date",
	Long: `Runs the full decision pipeline for a single date and prints the
resulting intent.

Example:
  go run ./cmd/meridian run --date 2025-03-07
  go run ./cmd/meridian run                      (defaults to today)`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDate, "date", "", "decision date (YYYY-MM-DD, default: today)")
}

func runOnce(cmd *cobra.Command, args []string) error {
	date := time.Now().UTC()
	if runDate != "" {
		parsed, err := time.Parse("2006-01-02", runDate)
		if err != nil {
			return fmt.Errorf("invalid date: %w", err)
		}
		date = parsed
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	intent, err := a.orchestrator.RunDate(context.Background(), date)
	if err != nil {
		return err
	}

	fmt.Printf("Intent for %s (%s)\n", intent.Date.Format("2006-01-02"), intent.Mode)
	if intent.IsCash() {
		fmt.Println("  all cash")
		return nil
	}

	tickers := append([]string{}, intent.Tickers...)
	sort.SliceStable(tickers, func(i, j int) bool {
		return intent.Weights[tickers[i]] > intent.Weights[tickers[j]]
	})
	for _, t := range tickers {
		fmt.Printf("  %-8s %6.2f%%\n", t, intent.Weights[t]*100)
	}
	fmt.Printf("  total  %7.2f%%\n", intent.TotalWeight()*100)
	return nil
}
