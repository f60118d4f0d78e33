package scheduler

import (
	"context"
	"time"
)

// Job is a scheduled unit of work.
type Job interface {
	// Name returns the job name.
	Name() string

	// Run executes the job.
	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds field included.
	// Example: "0 10 16 * * FRI" (Fridays at 16:10:00).
	Schedule() string
}

// JobResult is one execution's outcome.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps the trailing execution results of one job.
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, keeping the last 100.
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > 100 {
		h.Results = h.Results[len(h.Results)-100:]
	}
}

// Latest returns the newest n results.
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n == 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}
