package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jkwon/meridian/pkg/logger"
)

// Scheduler runs registered jobs on cron schedules with bounded retry.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]Job
	history map[string]*JobHistory
	mu      sync.RWMutex

	maxRetries int
	retryDelay time.Duration
}

// New creates a scheduler.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		logger:     log,
		jobs:       make(map[string]Job),
		history:    make(map[string]*JobHistory),
		maxRetries: 2,
		retryDelay: time.Minute,
	}
}

// AddJob registers a job. Duplicate names are rejected.
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	if _, err := s.cron.AddFunc(job.Schedule(), func() { s.runJob(job) }); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.history[name] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")
	return nil
}

// Start begins running schedules.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop waits for in-flight jobs and halts the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// RunJob triggers one job immediately, outside its schedule.
func (s *Scheduler) RunJob(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	go s.runJob(job)
	return nil
}

// Jobs lists registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// History returns one job's trailing results.
func (s *Scheduler) History(name string, n int) []JobResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.history[name]
	if !ok {
		return nil
	}
	return h.Latest(n)
}

// runJob executes one job with retry and records the result.
func (s *Scheduler) runJob(job Job) {
	name := job.Name()
	start := time.Now()

	s.logger.WithField("job", name).Info("Job started")

	var lastErr error
	success := false
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.retryDelay)
		}

		if err := job.Run(context.Background()); err != nil {
			lastErr = err
			s.logger.WithFields(map[string]interface{}{
				"job":     name,
				"attempt": attempt + 1,
				"error":   err.Error(),
			}).Warn("Job execution failed")
			continue
		}
		success = true
		break
	}

	end := time.Now()
	result := JobResult{
		JobName:   name,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Success:   success,
	}
	if !success && lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	s.history[name].AddResult(result)
	s.mu.Unlock()

	if success {
		s.logger.WithFields(map[string]interface{}{
			"job":         name,
			"duration_ms": result.Duration.Milliseconds(),
		}).Info("Job completed")
	} else {
		s.logger.WithFields(map[string]interface{}{
			"job":   name,
			"error": result.Error,
		}).Error("Job failed after retries")
	}
}
