package mocks

import (
	"context"
	"sync"

	"github.com/voxhq/automata/pkg/eventbus"
	"github.com/voxhq/automata/pkg/events"
)

// RecordingEventBus captures published events for assertions.
type RecordingEventBus struct {
	mu     sync.Mutex
	Events []eventbus.Event
}

func (b *RecordingEventBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Events = append(b.Events, event)

	return nil
}

// TypesSeen returns the event types in publication order.
func (b *RecordingEventBus) TypesSeen() []events.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()

	types := make([]events.EventType, 0, len(b.Events))
	for _, event := range b.Events {
		types = append(types, event.GetType())
	}

	return types
}
