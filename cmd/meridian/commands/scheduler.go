package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jkwon/meridian/internal/scheduler"
	"github.com/jkwon/meridian/internal/scheduler/jobs"
)

var runImmediately bool

// schedulerCmd runs the weekly rebalance on a cron schedule.
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the weekly rebalance on a cron schedule",
	Long: `Registers the rebalance job on the configured cron expression
(REBALANCE_CRON, default Friday 16:10 UTC) and blocks until
SIGINT/SIGTERM.

Example:
  go run ./cmd/meridian scheduler --now`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.Flags().BoolVar(&runImmediately, "now", false, "trigger the rebalance job once at startup")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	sched := scheduler.New(a.logger)
	job := jobs.NewRebalanceJob(a.orchestrator, a.cfg.RebalanceCron, a.logger)
	if err := sched.AddJob(job); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	if runImmediately {
		if err := sched.RunJob(job.Name()); err != nil {
			return err
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	a.logger.WithField("signal", sig.String()).Info("Shutting down scheduler")
	return nil
}
