package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileStore keeps each slot as a JSON file under a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates a file-backed store rooted at the given directory.
// A file:// prefix on root is accepted and stripped.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: strings.Replace(root, "file://", "", 1)}
}

func (fs *FileStore) slotPath(key string) string {
	return filepath.Clean(path.Join(fs.root, key+".json"))
}

// ReadItem returns the slot file contents, or ErrKeyNotFound when absent.
func (fs *FileStore) ReadItem(_ context.Context, key string) ([]byte, error) {
	body, err := os.ReadFile(fs.slotPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}

		return nil, fmt.Errorf("failed to read slot %s: %w", key, err)
	}

	return body, nil
}

// WriteItem replaces the slot file, creating the root directory on demand.
func (fs *FileStore) WriteItem(_ context.Context, key string, value []byte) error {
	if err := os.MkdirAll(fs.root, 0750); err != nil {
		return fmt.Errorf("failed to create storage root: %w", err)
	}

	if err := os.WriteFile(fs.slotPath(key), value, 0600); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}

	return nil
}

// RemoveItem deletes the slot file.
func (fs *FileStore) RemoveItem(_ context.Context, key string) error {
	err := os.Remove(fs.slotPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrKeyNotFound
		}

		return fmt.Errorf("failed to remove slot %s: %w", key, err)
	}

	return nil
}

// HealthCheck verifies the root directory exists or can be created.
func (fs *FileStore) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fs.root); os.IsNotExist(err) {
		return os.MkdirAll(fs.root, 0750)
	} else if err != nil {
		return fmt.Errorf("storage root unavailable: %w", err)
	}

	return nil
}

// Close is a no-op for file storage.
func (fs *FileStore) Close(_ context.Context) error {
	return nil
}
