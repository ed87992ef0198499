package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "maiblog/internal/errors"
)

// FSStore keeps content under a root directory on local disk.
type FSStore struct {
	root string
}

// NewFSStore creates a store rooted at dir.
func NewFSStore(dir string) *FSStore {
	return &FSStore{root: dir}
}

func (s *FSStore) resolve(key string) (string, error) {
	rel, err := normalizeKey(key)
	if err != nil {
		return "", err
	}
	rel = filepath.FromSlash(rel)
	if !filepath.IsLocal(rel) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, rel), nil
}

// Read returns the text stored at key.
func (s *FSStore) Read(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", key, apperrors.ErrContentMissing)
		}
		return "", fmt.Errorf("read content %s: %w", key, err)
	}
	return string(data), nil
}

// Write stores text at key, creating parent directories.
func (s *FSStore) Write(ctx context.Context, key, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}
	if err := os.WriteFile(full, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write content %s: %w", key, err)
	}
	return nil
}
