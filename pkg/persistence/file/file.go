// Package file provides file-based persistence for automation definitions,
// one JSON document per automation under <root>/automations.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/voxhq/automata/pkg/models"
	"github.com/voxhq/automata/pkg/persistence"
)

type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a file persistence rooted at the given directory.
// Accepts a plain path or a file:// URL.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.TrimPrefix(root, "file://")

	return &Persistence{root: cleanRoot}
}

func (p *Persistence) automationsDir() string {
	return filepath.Join(p.root, "automations")
}

func (p *Persistence) automationPath(id string) string {
	return filepath.Join(p.automationsDir(), id+".json")
}

func (p *Persistence) Automations(_ context.Context) ([]*models.Automation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := os.ReadDir(p.automationsDir())
	if errors.Is(err, fs.ErrNotExist) {
		return []*models.Automation{}, nil
	}

	if err != nil {
		return nil, persistence.NewAutomationError("List", "", err)
	}

	automations := make([]*models.Automation, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		automation, err := p.read(filepath.Join(p.automationsDir(), entry.Name()))
		if err != nil {
			return nil, persistence.NewAutomationError("List", strings.TrimSuffix(entry.Name(), ".json"), err)
		}

		automations = append(automations, automation)
	}

	return automations, nil
}

func (p *Persistence) AutomationByID(_ context.Context, id string) (*models.Automation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	automation, err := p.read(p.automationPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
	}

	if err != nil {
		return nil, persistence.NewAutomationError("GetByID", id, err)
	}

	return automation, nil
}

func (p *Persistence) SaveAutomation(_ context.Context, automation *models.Automation) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(p.automationsDir(), 0o755); err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	payload, err := json.MarshalIndent(automation, "", "  ")
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	// Write through a temp file so a crash mid-write cannot corrupt the document.
	tmp := p.automationPath(automation.ID) + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	if err := os.Rename(tmp, p.automationPath(automation.ID)); err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteAutomation(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := os.Remove(p.automationPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewAutomationError("Delete", id, persistence.ErrAutomationNotFound)
	}

	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	return nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return fmt.Errorf("persistence root %s does not exist: %w", p.root, err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) read(path string) (*models.Automation, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var automation models.Automation
	if err := json.Unmarshal(payload, &automation); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return &automation, nil
}
