// Package vault implements the note store on the local file system, rooted at
// the companion's vault directory.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/voxhq/automata/pkg/models"
)

var ErrPathOutsideVault = errors.New("path escapes the vault root")

type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: strings.TrimPrefix(root, "file://")}
}

func (v *FileStore) Write(_ context.Context, path, content string, mode models.WriteMode) error {
	fullPath, err := v.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create vault directory for %s: %w", path, err)
	}

	if mode == models.WriteModeAppend {
		f, err := os.OpenFile(fullPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open %s for append: %w", path, err)
		}
		defer f.Close()

		if _, err := f.WriteString(content); err != nil {
			return fmt.Errorf("failed to append to %s: %w", path, err)
		}

		return nil
	}

	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func (v *FileStore) List(_ context.Context, subdirectory string) ([]string, error) {
	dir, err := v.resolve(subdirectory)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list vault directory %s: %w", subdirectory, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names, nil
}

// resolve joins the relative vault path onto the root, rejecting traversal
// out of the vault.
func (v *FileStore) resolve(path string) (string, error) {
	fullPath := filepath.Join(v.root, filepath.FromSlash(path))

	rel, err := filepath.Rel(v.root, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideVault, path)
	}

	return fullPath, nil
}
