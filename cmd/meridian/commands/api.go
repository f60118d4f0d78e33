package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkwon/meridian/internal/api"
	"github.com/jkwon/meridian/internal/api/handlers"
)

// apiCmd serves the read-only status API.
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the read-only status API",
	Long: `Starts an HTTP server exposing the latest intent, the current
regime, and the performance ledger. Shuts down gracefully on
SIGINT/SIGTERM.

Example:
  go run ./cmd/meridian api`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	status := handlers.NewStatusHandler(a.orchestrator, a.ledger, a.logger)
	router := api.NewRouter(status, a.logger)
	server := api.New(a.cfg, a.logger, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.logger.WithField("signal", sig.String()).Info("Shutting down API server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
