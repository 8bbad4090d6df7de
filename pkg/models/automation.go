// Package models defines the core domain models for the automation engine.
package models

import (
	"errors"
	"time"
)

var (
	// ErrEmptyPipeline is returned when an automation with no steps is activated or run.
	ErrEmptyPipeline = errors.New("automation pipeline is empty")

	// ErrStepNotExecutable is returned when a step is missing a field it cannot run without.
	ErrStepNotExecutable = errors.New("step is not executable")
)

// Automation is a user-authored workflow: a trigger plus an ordered pipeline of steps.
type Automation struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Trigger     Trigger        `json:"trigger"`
	Pipeline    []PipelineStep `json:"pipeline"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	LastRunAt   *time.Time     `json:"last_run_at,omitempty"`
}

// Validate checks that the automation is structurally sound for execution.
// It is called at activation and run time, not only when edited: a definition
// that was saved as a draft may still be missing required step fields.
func (a *Automation) Validate(defaults ExecutionDefaults) error {
	if len(a.Pipeline) == 0 {
		return ErrEmptyPipeline
	}

	for i := range a.Pipeline {
		if err := a.Pipeline[i].Validate(defaults); err != nil {
			return err
		}
	}

	return a.Trigger.Validate()
}

// SnapshotPipeline returns a copy of the step list so an in-flight run is not
// affected by concurrent edits to the definition.
func (a *Automation) SnapshotPipeline() []PipelineStep {
	steps := make([]PipelineStep, len(a.Pipeline))
	copy(steps, a.Pipeline)

	return steps
}
