package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxhq/automata/pkg/automation"
	"github.com/voxhq/automata/pkg/eventbus"
	"github.com/voxhq/automata/pkg/events"
	"github.com/voxhq/automata/pkg/models"
)

// Runner executes automation pipelines. It enforces at most one in-flight run
// per automation while letting different automations run concurrently.
type Runner struct {
	repository *automation.Repository
	executor   *Executor
	bus        eventbus.EventPublisher
	logger     *slog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu      sync.Mutex
	active  map[string]*run             // keyed by automation id
	byRunID map[string]*run             // keyed by run id
	last    map[string]*models.RunState // last terminal state per automation
}

type run struct {
	state         *models.RunState
	cancel        context.CancelFunc
	stopRequested bool
}

func NewRunner(
	repository *automation.Repository,
	executor *Executor,
	bus eventbus.EventPublisher,
	logger *slog.Logger,
) *Runner {
	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		repository: repository,
		executor:   executor,
		bus:        bus,
		logger:     logger.With("module", "pipeline_runner"),
		baseCtx:    ctx,
		baseCancel: cancel,
		active:     make(map[string]*run),
		byRunID:    make(map[string]*run),
		last:       make(map[string]*models.RunState),
	}
}

// Start begins executing the automation's pipeline and returns the run id.
// It fails before any step executes when the automation is unknown, its
// pipeline is empty or not executable, or a run is already in flight.
func (r *Runner) Start(ctx context.Context, automationID string) (string, error) {
	auto, err := r.repository.GetByID(ctx, automationID)
	if err != nil {
		return "", err
	}

	if err := auto.Validate(r.executor.Defaults()); err != nil {
		return "", fmt.Errorf("automation %s is not runnable: %w", automationID, err)
	}

	// Snapshot before the run goroutine starts: concurrent edits to the
	// definition must not alter an in-flight run.
	steps := auto.SnapshotPipeline()

	runID := "run-" + uuid.New().String()[:8]

	state := &models.RunState{
		AutomationID:     automationID,
		RunID:            runID,
		CurrentStepIndex: 0,
		TotalSteps:       len(steps),
		Status:           models.RunStatusRunning,
		StartedAt:        time.Now(),
	}

	r.mu.Lock()

	if _, inFlight := r.active[automationID]; inFlight {
		r.mu.Unlock()

		return "", fmt.Errorf("%w: %s", ErrAlreadyRunning, automationID)
	}

	runCtx, cancel := context.WithCancel(r.baseCtx)
	handle := &run{state: state, cancel: cancel}
	r.active[automationID] = handle
	r.byRunID[runID] = handle
	r.mu.Unlock()

	go r.execute(runCtx, handle, steps)

	return runID, nil
}

// Stop requests cooperative cancellation of a run. An in-flight collaborator
// call is not interrupted (a wait step is), but no further step will start.
func (r *Runner) Stop(runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.byRunID[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	handle.stopRequested = true
	handle.cancel()

	return nil
}

// StopByAutomation stops the automation's in-flight run, if any.
func (r *Runner) StopByAutomation(automationID string) error {
	r.mu.Lock()
	handle, ok := r.active[automationID]
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: no active run for automation %s", ErrRunNotFound, automationID)
	}

	return r.Stop(handle.state.RunID)
}

// RunStateFor returns the automation's in-flight run state, falling back to
// its last terminal state. Nil when the automation never ran.
func (r *Runner) RunStateFor(automationID string) *models.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle, ok := r.active[automationID]; ok {
		return handle.state.Clone()
	}

	if state, ok := r.last[automationID]; ok {
		return state.Clone()
	}

	return nil
}

// ActiveRuns returns the states of all in-flight runs.
func (r *Runner) ActiveRuns() []*models.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make([]*models.RunState, 0, len(r.active))
	for _, handle := range r.active {
		states = append(states, handle.state.Clone())
	}

	return states
}

// Shutdown cancels every in-flight run and prevents new ones from executing.
func (r *Runner) Shutdown() {
	r.baseCancel()
}

func (r *Runner) execute(ctx context.Context, handle *run, steps []models.PipelineStep) {
	state := handle.state
	logger := r.logger.With("automation_id", state.AutomationID, "run_id", state.RunID)

	executionCtx := models.NewExecutionContext(state.RunID, state.AutomationID)

	logger.Info("Starting run", "total_steps", state.TotalSteps)
	r.publish(ctx, state.AutomationID, events.RunStarted{
		BaseEvent:  events.FromRunState(r.newEventID(), events.RunStartedEvent, state),
		TotalSteps: state.TotalSteps,
	})

	for i, step := range steps {
		if r.stopRequested(handle) {
			r.finish(ctx, handle, executionCtx, models.RunStatusStopped, nil, i)

			return
		}

		r.setStepIndex(handle, i)

		result, err := r.executor.ExecuteStep(ctx, step, i, executionCtx)
		if err != nil {
			if r.stopRequested(handle) || errors.Is(err, context.Canceled) {
				r.finish(ctx, handle, executionCtx, models.RunStatusStopped, nil, i)
			} else {
				r.finish(ctx, handle, executionCtx, models.RunStatusFailed, err, i)
			}

			return
		}

		outputName := step.OutputName(i)
		executionCtx.Set(outputName, result)

		logger.Info("Step completed", "step_index", i, "output", outputName)
		r.publish(ctx, state.AutomationID, events.RunStepCompleted{
			BaseEvent:  events.FromRunState(r.newEventID(), events.RunStepCompletedEvent, state),
			StepIndex:  i,
			StepID:     step.ID,
			OutputName: outputName,
			TotalSteps: state.TotalSteps,
		})
	}

	r.finish(ctx, handle, executionCtx, models.RunStatusDone, nil, len(steps))
}

func (r *Runner) finish(ctx context.Context, handle *run, executionCtx *models.ExecutionContext, status models.RunStatus, runErr error, stepIndex int) {
	now := time.Now()

	r.mu.Lock()
	state := handle.state
	state.Status = status
	state.FinishedAt = &now

	if status != models.RunStatusDone {
		state.CurrentStepIndex = stepIndex
	}

	if runErr != nil {
		state.Error = runErr.Error()
	}

	delete(r.active, state.AutomationID)
	delete(r.byRunID, state.RunID)
	r.last[state.AutomationID] = state
	r.mu.Unlock()

	handle.cancel()

	duration := now.Sub(state.StartedAt)
	logger := r.logger.With("automation_id", state.AutomationID, "run_id", state.RunID)

	// The variable context dies with the run; surface what it held for
	// diagnostics before it goes.
	switch status {
	case models.RunStatusDone:
		logger.Info("Run finished", "duration", duration)

		if err := r.repository.TouchLastRun(context.WithoutCancel(ctx), state.AutomationID, now); err != nil {
			logger.Error("Failed to record last run time", "error", err)
		}

		r.publish(ctx, state.AutomationID, events.RunFinished{
			BaseEvent: events.FromRunState(r.newEventID(), events.RunFinishedEvent, state),
			Duration:  duration,
		})
	case models.RunStatusFailed:
		logger.Error("Run failed",
			"step_index", stepIndex,
			"error", runErr,
			"outputs", executionCtx.Names(),
			"duration", duration,
		)
		r.publish(ctx, state.AutomationID, events.RunFailed{
			BaseEvent: events.FromRunState(r.newEventID(), events.RunFailedEvent, state),
			StepIndex: stepIndex,
			Error:     state.Error,
			Duration:  duration,
		})
	case models.RunStatusStopped:
		logger.Info("Run stopped",
			"step_index", stepIndex,
			"outputs", executionCtx.Names(),
			"duration", duration,
		)
		r.publish(ctx, state.AutomationID, events.RunStopped{
			BaseEvent: events.FromRunState(r.newEventID(), events.RunStoppedEvent, state),
			StepIndex: stepIndex,
			Duration:  duration,
		})
	}
}

func (r *Runner) publish(ctx context.Context, key string, event eventbus.Event) {
	if r.bus == nil {
		return
	}

	if err := r.bus.Publish(context.WithoutCancel(ctx), key, event); err != nil {
		r.logger.Error("Failed to publish run event", "event_type", event.GetType(), "error", err)
	}
}

func (r *Runner) setStepIndex(handle *run, index int) {
	r.mu.Lock()
	handle.state.CurrentStepIndex = index
	r.mu.Unlock()
}

func (r *Runner) stopRequested(handle *run) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return handle.stopRequested
}

func (r *Runner) newEventID() string {
	return uuid.New().String()
}

