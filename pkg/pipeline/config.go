package pipeline

// Config carries the runner-wide defaults that used to live in ambient
// settings. It is passed in explicitly so the runner stays independently
// testable.
type Config struct {
	// DefaultAgentID is used by agent_action steps that name no agent.
	DefaultAgentID string

	// DefaultModelID is passed to the agent when a step states no preference.
	DefaultModelID string

	// AutoNoteDir is the vault subdirectory for auto-named saves.
	AutoNoteDir string
}
