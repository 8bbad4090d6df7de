// Package automation provides the registry of automation definitions: the only
// surface the UI edits directly.
package automation

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/voxhq/automata/pkg/models"
	"github.com/voxhq/automata/pkg/persistence"
)

type Repository struct {
	persistence persistence.Persistence
	defaults    models.ExecutionDefaults
	validate    *validator.Validate
}

// NewRepository creates the registry. The execution defaults are the same ones
// the step executor falls back to, so executability checks agree with what a
// run would actually do.
func NewRepository(p persistence.Persistence, defaults models.ExecutionDefaults) *Repository {
	return &Repository{
		persistence: p,
		defaults:    defaults,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (r *Repository) HealthCheck(ctx context.Context) (string, bool) {
	if err := r.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (r *Repository) List(ctx context.Context) ([]*models.Automation, error) {
	return r.persistence.Automations(ctx)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Automation, error) {
	return r.persistence.AutomationByID(ctx, id)
}

// ListScheduled returns active automations carrying a schedule trigger; the
// set the scheduler keeps jobs for.
func (r *Repository) ListScheduled(ctx context.Context) ([]*models.Automation, error) {
	all, err := r.persistence.Automations(ctx)
	if err != nil {
		return nil, err
	}

	scheduled := make([]*models.Automation, 0)

	for _, a := range all {
		if a.IsActive && a.Trigger.Type == models.TriggerTypeSchedule {
			scheduled = append(scheduled, a)
		}
	}

	return scheduled, nil
}

func (r *Repository) Create(ctx context.Context, automation *models.Automation) (*models.Automation, error) {
	if err := r.validate.Struct(automation); err != nil {
		return nil, err
	}

	if automation.IsActive {
		if err := automation.Validate(r.defaults); err != nil {
			return nil, err
		}
	}

	if automation.ID == "" {
		automation.ID = uuid.New().String()
	}

	now := time.Now()
	automation.CreatedAt = now
	automation.UpdatedAt = now
	automation.LastRunAt = nil

	if err := r.persistence.SaveAutomation(ctx, automation); err != nil {
		return nil, err
	}

	return automation, nil
}

// Update performs a full-field replace, preserving identity and creation time.
func (r *Repository) Update(ctx context.Context, id string, automation *models.Automation) (*models.Automation, error) {
	existing, err := r.persistence.AutomationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.validate.Struct(automation); err != nil {
		return nil, err
	}

	if automation.IsActive {
		if err := automation.Validate(r.defaults); err != nil {
			return nil, err
		}
	}

	automation.ID = existing.ID
	automation.CreatedAt = existing.CreatedAt
	automation.LastRunAt = existing.LastRunAt
	automation.UpdatedAt = time.Now()

	if err := r.persistence.SaveAutomation(ctx, automation); err != nil {
		return nil, err
	}

	return automation, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.persistence.DeleteAutomation(ctx, id)
}

// SetActive flips the activation flag. Activation re-checks executability:
// an empty pipeline or a step missing required fields rejects activation even
// when the definition saved fine as a draft.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) (*models.Automation, error) {
	automation, err := r.persistence.AutomationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if active {
		if err := automation.Validate(r.defaults); err != nil {
			return nil, err
		}
	}

	automation.IsActive = active
	automation.UpdatedAt = time.Now()

	if err := r.persistence.SaveAutomation(ctx, automation); err != nil {
		return nil, err
	}

	return automation, nil
}

// TouchLastRun records the completion time of a successful run.
func (r *Repository) TouchLastRun(ctx context.Context, id string, finishedAt time.Time) error {
	automation, err := r.persistence.AutomationByID(ctx, id)
	if err != nil {
		return err
	}

	automation.LastRunAt = &finishedAt

	return r.persistence.SaveAutomation(ctx, automation)
}
