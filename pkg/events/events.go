// Package events defines the run lifecycle events the engine publishes for
// progress observers.
package events

import (
	"time"

	"github.com/voxhq/automata/pkg/models"
)

type EventType string

// Topic carries every run lifecycle event.
const Topic = "automata.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent       EventType = "run.started"
	RunStepCompletedEvent EventType = "run.step.completed"
	RunFinishedEvent      EventType = "run.finished"
	RunFailedEvent        EventType = "run.failed"
	RunStoppedEvent       EventType = "run.stopped"
)

type BaseEvent struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	AutomationID string    `json:"automation_id"`
	RunID        string    `json:"run_id"`
}

// RunStarted is published once, before the first step executes.
type RunStarted struct {
	BaseEvent

	TotalSteps int `json:"total_steps"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

// RunStepCompleted is published after every successful step.
type RunStepCompleted struct {
	BaseEvent

	StepIndex  int    `json:"step_index"`
	StepID     string `json:"step_id"`
	OutputName string `json:"output_name"`
	TotalSteps int    `json:"total_steps"`
}

func (e RunStepCompleted) GetType() EventType {
	return RunStepCompletedEvent
}

type RunFinished struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e RunFinished) GetType() EventType {
	return RunFinishedEvent
}

type RunFailed struct {
	BaseEvent

	StepIndex int           `json:"step_index"`
	Error     string        `json:"error"`
	Duration  time.Duration `json:"duration"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

type RunStopped struct {
	BaseEvent

	StepIndex int           `json:"step_index"`
	Duration  time.Duration `json:"duration"`
}

func (e RunStopped) GetType() EventType {
	return RunStoppedEvent
}

// FromRunState builds the shared event fields for a run.
func FromRunState(id string, eventType EventType, state *models.RunState) BaseEvent {
	return BaseEvent{
		ID:           id,
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		AutomationID: state.AutomationID,
		RunID:        state.RunID,
	}
}
