package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkwon/meridian/internal/contracts"
)

var (
	backtestFrom string
	backtestTo   string
)

// backtestCmd replays the weekly pipeline over a historical range.
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay the weekly pipeline over a date range",
	Long: `Runs the decision pipeline on each weekly rebalance date in the
range, then replays the resulting intents through the execution model.

Example:
  go run ./cmd/meridian backtest --from 2024-01-05 --to 2025-03-07`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "start date (YYYY-MM-DD, required)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	backtestCmd.MarkFlagRequired("from")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	from, err := time.Parse("2006-01-02", backtestFrom)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	to := time.Now().UTC()
	if backtestTo != "" {
		to, err = time.Parse("2006-01-02", backtestTo)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}
	if !from.Before(to) {
		return fmt.Errorf("start date must be before end date")
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	dates := rebalanceDates(from, to, a.strategy.Backtest.RebalanceDays)

	fmt.Printf("Backtest %s .. %s (%d rebalance dates)\n",
		from.Format("2006-01-02"), to.Format("2006-01-02"), len(dates))

	intents, err := a.orchestrator.Run(ctx, dates)
	if err != nil {
		return err
	}

	result, err := a.backtester.Run(ctx, intents, to)
	if err != nil {
		return err
	}

	fmt.Printf("\nResults over %d trading days\n", result.Days)
	fmt.Printf("  total return   %8.2f%%\n", result.TotalReturn*100)
	fmt.Printf("  sharpe         %8.2f\n", result.Sharpe)
	fmt.Printf("  max drawdown   %8.2f%%\n", result.MaxDrawdown*100)
	fmt.Printf("  stop-losses    %8d\n", result.Stops)
	fmt.Printf("  paid turnovers %8d\n", result.Frictions)
	return nil
}

// rebalanceDates generates decision dates on a fixed calendar step. The
// default 5-trading-day interval maps to one calendar week.
func rebalanceDates(from, to time.Time, interval int) []time.Time {
	step := 7
	if interval != 5 {
		step = interval
	}

	var dates []time.Time
	for d := contracts.Day(from); !d.After(contracts.Day(to)); d = d.AddDate(0, 0, step) {
		dates = append(dates, d)
	}
	return dates
}
