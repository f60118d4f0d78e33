package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var ledgerLimit int

// ledgerCmd lists recent performance ledger rows.
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "List recent performance ledger rows",
	Long: `Prints the most recent rows of the append-only performance ledger,
newest last.

Example:
  go run ./cmd/meridian ledger --limit 20`,
	RunE: runLedger,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.Flags().IntVar(&ledgerLimit, "limit", 20, "maximum rows to print")
}

func runLedger(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	records, err := a.ledger.Records(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("Ledger is empty")
		return nil
	}
	if ledgerLimit > 0 && len(records) > ledgerLimit {
		records = records[len(records)-ledgerLimit:]
	}

	fmt.Printf("%-12s %-10s %9s %9s  %s\n", "DATE", "REGIME", "RETURN", "DRAWDOWN", "PARAMS")
	for _, rec := range records {
		fmt.Printf("%-12s %-10s %8.2f%% %8.2f%%  %s\n",
			rec.Date.Format("2006-01-02"), rec.Regime,
			rec.Return*100, rec.Drawdown*100, rec.ParamsID)
	}
	return nil
}
