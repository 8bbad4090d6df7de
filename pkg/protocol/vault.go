package protocol

import (
	"context"

	"github.com/voxhq/automata/pkg/models"
)

// VaultStore is the persistent note store save_to_vault steps write into.
type VaultStore interface {
	Write(ctx context.Context, path, content string, mode models.WriteMode) error
	List(ctx context.Context, subdirectory string) ([]string, error)
}
