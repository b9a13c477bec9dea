// Package cmd wires shared infrastructure for the BOS binaries.
package cmd

import (
	"context"
	"strings"

	"github.com/bosmethod/bos/pkg/storage"
)

// NewStore selects a storage backend from the URL scheme. file:// paths and
// bare paths use the filesystem store; redis:// and rediss:// use Redis;
// postgres:// and postgresql:// use PostgreSQL.
func NewStore(ctx context.Context, storageURL string) (storage.Store, error) {
	scheme, _, found := strings.Cut(storageURL, "://")
	if !found {
		return storage.NewFileStore(storageURL), nil
	}

	switch scheme {
	case "redis", "rediss":
		return storage.NewRedisStore(storageURL, "bos")
	case "postgres", "postgresql":
		return storage.NewPostgresStore(ctx, storageURL)
	default:
		return storage.NewFileStore(storageURL), nil
	}
}
