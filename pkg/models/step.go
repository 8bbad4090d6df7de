package models

import (
	"fmt"
	"strings"
	"time"
)

// StepType discriminates the pipeline step variants.
type StepType string

const (
	StepTypeAgentAction       StepType = "agent_action"
	StepTypeSaveToVault       StepType = "save_to_vault"
	StepTypeIntegrationAction StepType = "integration_action"
	StepTypeWait              StepType = "wait"
)

// WriteMode controls how a save_to_vault step writes its destination.
type WriteMode string

const (
	WriteModeOverwrite WriteMode = "overwrite"
	WriteModeAppend    WriteMode = "append"
)

// DefaultWaitDuration is used when a wait step carries no (or an invalid) duration.
const DefaultWaitDuration = 1000 * time.Millisecond

// ExecutionDefaults carries the engine-wide fallbacks executability checking
// must respect: an agent_action step may omit agent_id when a default agent
// is configured.
type ExecutionDefaults struct {
	AgentID string
}

// PipelineStep is one unit of work in an automation pipeline. The field set is
// a tagged union over Type; fields not belonging to the step's type are ignored.
type PipelineStep struct {
	ID             string   `json:"id"`
	Type           StepType `json:"type" validate:"required,oneof=agent_action save_to_vault integration_action wait"`
	OutputVariable string   `json:"output_variable,omitempty"`

	// agent_action
	AgentID          string `json:"agent_id,omitempty"`
	Prompt           string `json:"prompt,omitempty"`
	PreferredModelID string `json:"preferred_model_id,omitempty"`

	// save_to_vault
	VaultPath      string    `json:"vault_path,omitempty"`
	SourceVariable string    `json:"source_variable,omitempty"`
	WriteMode      WriteMode `json:"write_mode,omitempty"`

	// integration_action
	IntegrationID     string            `json:"integration_id,omitempty"`
	IntegrationAction string            `json:"integration_action,omitempty"`
	IntegrationArgs   map[string]string `json:"integration_args,omitempty"`

	// wait
	WaitDurationMS int64 `json:"wait_duration_ms,omitempty"`
}

// Validate enforces the executability invariants for the step's type.
func (s *PipelineStep) Validate(defaults ExecutionDefaults) error {
	switch s.Type {
	case StepTypeAgentAction:
		if strings.TrimSpace(s.AgentID) == "" && strings.TrimSpace(defaults.AgentID) == "" {
			return fmt.Errorf("%w: agent_action step %s has no agent_id and no default agent is configured", ErrStepNotExecutable, s.ID)
		}
	case StepTypeSaveToVault:
		if strings.TrimSpace(s.VaultPath) == "" {
			return fmt.Errorf("%w: save_to_vault step %s has no vault_path", ErrStepNotExecutable, s.ID)
		}
	case StepTypeIntegrationAction:
		if s.IntegrationID == "" || s.IntegrationAction == "" {
			return fmt.Errorf("%w: integration_action step %s is missing integration_id or action", ErrStepNotExecutable, s.ID)
		}
	case StepTypeWait:
		// wait steps are always executable; invalid durations fall back to the default
	default:
		return fmt.Errorf("%w: step %s has unknown type %q", ErrStepNotExecutable, s.ID, s.Type)
	}

	return nil
}

// OutputName returns the name this step's result is published under. Steps with
// no declared output variable get a positional name so consumers reading by
// position still find the value.
func (s *PipelineStep) OutputName(index int) string {
	if name := strings.TrimSpace(s.OutputVariable); name != "" {
		return name
	}

	return fmt.Sprintf("step%d_output", index+1)
}

// WaitDuration returns the pause duration for a wait step, defaulting when the
// configured value is missing or invalid.
func (s *PipelineStep) WaitDuration() time.Duration {
	if s.WaitDurationMS <= 0 {
		return DefaultWaitDuration
	}

	return time.Duration(s.WaitDurationMS) * time.Millisecond
}
