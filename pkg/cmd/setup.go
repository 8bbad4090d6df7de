// Package cmd provides shared initialization for the automata binaries.
package cmd

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/voxhq/automata/pkg/channels/gochannel"
	"github.com/voxhq/automata/pkg/eventbus"
	"github.com/voxhq/automata/pkg/persistence"
	"github.com/voxhq/automata/pkg/persistence/file"
)

// NewPersistence selects the persistence backend from the database URL. Only
// the file scheme is wired today; the interface keeps the door open.
func NewPersistence(databaseURL string) persistence.Persistence {
	return file.NewPersistence(databaseURL)
}

// NewEventBus creates the in-process run event bus.
func NewEventBus(logger *slog.Logger) eventbus.EventBus {
	pub, sub := gochannel.CreateChannel(watermill.NewSlogLogger(logger))

	return eventbus.NewWatermillEventBus(pub, sub)
}
