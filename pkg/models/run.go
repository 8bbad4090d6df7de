package models

import "time"

// RunStatus is the lifecycle state of one pipeline run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusFailed  RunStatus = "failed"
	RunStatusStopped RunStatus = "stopped"
)

// Terminal reports whether the status is an end state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusDone || s == RunStatusFailed || s == RunStatusStopped
}

// RunState is the observable progress of one run; the authoritative source for
// any progress UI. CurrentStepIndex is the index of the step being executed, or
// of the failing step once the run has terminated abnormally.
type RunState struct {
	AutomationID     string     `json:"automation_id"`
	RunID            string     `json:"run_id"`
	CurrentStepIndex int        `json:"current_step_index"`
	TotalSteps       int        `json:"total_steps"`
	Status           RunStatus  `json:"status"`
	Error            string     `json:"error,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// Clone returns a copy safe to hand to observers while the run mutates.
func (r *RunState) Clone() *RunState {
	out := *r

	return &out
}

// ScheduledJob tracks the next due firing for one active schedule-triggered
// automation.
type ScheduledJob struct {
	AutomationID string    `json:"automation_id"`
	NextRun      time.Time `json:"next_run"`

	// CronSpec records the expression the job was computed from so trigger
	// edits can be detected without recomputing on every poll tick.
	CronSpec string `json:"-"`
}
