// Package persistence provides the storage abstraction for automation definitions.
package persistence

import (
	"context"

	"github.com/voxhq/automata/pkg/models"
)

type Persistence interface {
	Automations(ctx context.Context) ([]*models.Automation, error)
	AutomationByID(ctx context.Context, id string) (*models.Automation, error)
	SaveAutomation(ctx context.Context, automation *models.Automation) error
	DeleteAutomation(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
