package jobs

import (
	"context"
	"time"

	"github.com/jkwon/meridian/internal/pipeline"
	"github.com/jkwon/meridian/pkg/logger"
)

// RebalanceJob runs the weekly decision pipeline for the current date.
type RebalanceJob struct {
	orchestrator *pipeline.Orchestrator
	schedule     string
	logger       *logger.Logger
}

// NewRebalanceJob creates the weekly rebalance job. schedule is a
// six-field cron expression.
func NewRebalanceJob(o *pipeline.Orchestrator, schedule string, log *logger.Logger) *RebalanceJob {
	return &RebalanceJob{orchestrator: o, schedule: schedule, logger: log}
}

func (j *RebalanceJob) Name() string { return "weekly_rebalance" }

func (j *RebalanceJob) Schedule() string { return j.schedule }

// Run settles the previous period and produces today's intent. Going
// through the full loop keeps the performance ledger current between
// scheduled runs.
func (j *RebalanceJob) Run(ctx context.Context) error {
	intents, err := j.orchestrator.Run(ctx, []time.Time{time.Now().UTC()})
	if err != nil {
		return err
	}
	if len(intents) == 0 {
		return nil
	}

	intent := intents[0]
	j.logger.WithFields(map[string]interface{}{
		"date":      intent.Date.Format("2006-01-02"),
		"mode":      string(intent.Mode),
		"positions": len(intent.Tickers),
	}).Info("Rebalance intent produced")
	return nil
}
