// Package protocol defines the collaborator contracts the engine consumes.
// Implementations live elsewhere; the engine only depends on these interfaces.
package protocol

import "context"

// AgentInvoker invokes an AI agent with a resolved prompt and returns its full
// text result. modelID may be empty, in which case the agent's default applies.
type AgentInvoker interface {
	Invoke(ctx context.Context, agentID, prompt, modelID string) (string, error)
}
