// Package scheduler tracks due recurring automations and fires the pipeline
// runner when their next occurrence passes.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/voxhq/automata/pkg/automation"
	"github.com/voxhq/automata/pkg/models"
	"github.com/voxhq/automata/pkg/pipeline"
)

// DefaultPollInterval keeps firing lag well under the hourly granularity.
const DefaultPollInterval = 30 * time.Second

// Starter is the slice of the pipeline runner the scheduler needs.
type Starter interface {
	Start(ctx context.Context, automationID string) (string, error)
}

type Scheduler struct {
	repository *automation.Repository
	runner     Starter
	interval   time.Duration
	logger     *slog.Logger

	mu      sync.RWMutex
	jobs    map[string]*models.ScheduledJob
	ticker  *time.Ticker
	done    chan struct{}
	started bool
}

func NewScheduler(repository *automation.Repository, runner Starter, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Scheduler{
		repository: repository,
		runner:     runner,
		interval:   interval,
		logger:     logger.With("module", "scheduler"),
		jobs:       make(map[string]*models.ScheduledJob),
	}
}

// Start syncs jobs from the registry and begins the poll loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.started {
		s.mu.Unlock()

		return nil
	}

	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})
	s.started = true
	s.mu.Unlock()

	s.syncJobs(ctx)

	go s.poll(ctx)

	s.logger.Info("Scheduler started", "poll_interval", s.interval)

	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.ticker.Stop()
	close(s.done)
	s.started = false

	s.logger.Info("Scheduler stopped")
}

// GetJob returns the tracked job for an automation, or nil when none exists
// (manual trigger, inactive, or deleted). The UI uses this to display the
// next run time.
func (s *Scheduler) GetJob(automationID string) *models.ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[automationID]
	if !ok {
		return nil
	}

	out := *job

	return &out
}

// Jobs returns a snapshot of every tracked job.
func (s *Scheduler) Jobs() []*models.ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		copied := *job
		out = append(out, &copied)
	}

	return out
}

// Refresh recomputes or removes the automation's job immediately, without
// waiting for the next poll tick. Call after activate, deactivate, trigger
// edits, and delete.
func (s *Scheduler) Refresh(ctx context.Context, automationID string) {
	auto, err := s.repository.GetByID(ctx, automationID)
	if err != nil {
		s.removeJob(automationID)

		return
	}

	s.reconcile(auto, time.Now())
}

func (s *Scheduler) poll(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-s.ticker.C:
			s.syncJobs(ctx)
			s.fireDue(ctx)
		}
	}
}

// syncJobs reconciles the job table against the registry so UI mutations are
// visible by the next tick without a restart.
func (s *Scheduler) syncJobs(ctx context.Context) {
	scheduled, err := s.repository.ListScheduled(ctx)
	if err != nil {
		s.logger.Error("Failed to list scheduled automations", "error", err)

		return
	}

	now := time.Now()
	seen := make(map[string]bool, len(scheduled))

	for _, auto := range scheduled {
		seen[auto.ID] = true
		s.reconcile(auto, now)
	}

	s.mu.Lock()
	for id := range s.jobs {
		if !seen[id] {
			delete(s.jobs, id)
			s.logger.Info("Removed scheduled job", "automation_id", id)
		}
	}
	s.mu.Unlock()
}

// reconcile creates the automation's job if missing, or recomputes it when
// the trigger was edited. An unchanged trigger keeps its pending next run.
func (s *Scheduler) reconcile(auto *models.Automation, now time.Time) {
	if !auto.IsActive || auto.Trigger.Type != models.TriggerTypeSchedule || auto.Trigger.Schedule == nil {
		s.removeJob(auto.ID)

		return
	}

	cronSpec := auto.Trigger.Schedule.CronSpec()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.jobs[auto.ID]
	if ok && existing.CronSpec == cronSpec {
		return
	}

	next := auto.Trigger.NextOccurrence(now)
	if next == nil {
		delete(s.jobs, auto.ID)

		return
	}

	s.jobs[auto.ID] = &models.ScheduledJob{
		AutomationID: auto.ID,
		NextRun:      *next,
		CronSpec:     cronSpec,
	}

	s.logger.Info("Scheduled job", "automation_id", auto.ID, "next_run", *next)
}

// fireDue starts a run for every job whose next occurrence has passed. Firing
// never blocks the poll loop, and the next run is always recomputed from now
// rather than the missed timestamp, so a sleeping process wakes up without a
// catch-up storm.
func (s *Scheduler) fireDue(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	due := make([]*models.ScheduledJob, 0)

	for _, job := range s.jobs {
		if !job.NextRun.After(now) {
			due = append(due, job)
		}
	}
	s.mu.Unlock()

	for _, job := range due {
		automationID := job.AutomationID

		go func() {
			runID, err := s.runner.Start(ctx, automationID)

			switch {
			case errors.Is(err, pipeline.ErrAlreadyRunning):
				// A slow run must not accumulate backlogged fires; skip this
				// occurrence silently.
				s.logger.Debug("Skipping occurrence, run already in flight", "automation_id", automationID)
			case err != nil:
				s.logger.Error("Failed to start scheduled run", "automation_id", automationID, "error", err)
			default:
				s.logger.Info("Fired scheduled run", "automation_id", automationID, "run_id", runID)
			}
		}()

		s.recompute(ctx, automationID, now)
	}
}

func (s *Scheduler) recompute(ctx context.Context, automationID string, now time.Time) {
	auto, err := s.repository.GetByID(ctx, automationID)
	if err != nil {
		s.removeJob(automationID)

		return
	}

	next := auto.Trigger.NextOccurrence(now)
	if next == nil {
		s.removeJob(automationID)

		return
	}

	s.mu.Lock()
	if job, ok := s.jobs[automationID]; ok {
		job.NextRun = *next
	}
	s.mu.Unlock()
}

func (s *Scheduler) removeJob(automationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, automationID)
}
