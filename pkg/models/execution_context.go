package models

import "strings"

// ExecutionContext is the per-run variable context: an append-only, ordered
// mapping from step output names to produced text values. It is owned by
// exactly one run and never persisted.
type ExecutionContext struct {
	RunID        string
	AutomationID string

	order  []string
	values map[string]string
}

func NewExecutionContext(runID, automationID string) *ExecutionContext {
	return &ExecutionContext{
		RunID:        runID,
		AutomationID: automationID,
		values:       make(map[string]string),
	}
}

// Set publishes a step output. Re-publishing an existing name replaces the
// value but keeps its original position.
func (ec *ExecutionContext) Set(name, value string) {
	if _, exists := ec.values[name]; !exists {
		ec.order = append(ec.order, name)
	}

	ec.values[name] = value
}

// Get returns the value for name and whether it was ever published.
func (ec *ExecutionContext) Get(name string) (string, bool) {
	value, ok := ec.values[name]

	return value, ok
}

// Names returns the output names in publication order.
func (ec *ExecutionContext) Names() []string {
	out := make([]string, len(ec.order))
	copy(out, ec.order)

	return out
}

// Concatenated joins all published outputs in order, separated by a blank
// line. Used by save_to_vault steps with no source variable.
func (ec *ExecutionContext) Concatenated() string {
	parts := make([]string, 0, len(ec.order))
	for _, name := range ec.order {
		parts = append(parts, ec.values[name])
	}

	return strings.Join(parts, "\n\n")
}

// Len returns the number of published outputs.
func (ec *ExecutionContext) Len() int {
	return len(ec.order)
}
