package pipeline

import "errors"

var (
	// ErrAlreadyRunning is returned when a run is started for an automation
	// that already has one in flight. Callers retry explicitly; runs are never
	// queued.
	ErrAlreadyRunning = errors.New("automation already has a run in flight")

	// ErrRunNotFound is returned by Stop for an unknown or already terminated run.
	ErrRunNotFound = errors.New("run not found")

	// ErrNoAgent is returned when an agent_action step has no agent id and no
	// default agent is configured.
	ErrNoAgent = errors.New("agent_action step has no agent to invoke")

	// ErrEmptyPrompt is returned when a prompt resolves to nothing.
	ErrEmptyPrompt = errors.New("agent_action prompt resolved to an empty string")

	// ErrNoDestination is returned when a vault path resolves to nothing.
	ErrNoDestination = errors.New("save_to_vault destination resolved to an empty path")
)
