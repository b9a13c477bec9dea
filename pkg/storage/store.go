// Package storage provides the key/value slot abstraction backing the BOS
// dataset, its backups, and recovery flags.
package storage

import (
	"context"
	"errors"
)

// ErrKeyNotFound indicates the requested slot has never been written or was
// removed. First-run reads are expected to hit this.
var ErrKeyNotFound = errors.New("storage key not found")

// Store models a small set of named storage slots, each replaced atomically
// as a whole on write. There are no partial updates and no transactions
// across slots.
type Store interface {
	// ReadItem returns the raw contents of a slot, or ErrKeyNotFound.
	ReadItem(ctx context.Context, key string) ([]byte, error)

	// WriteItem replaces the slot contents.
	WriteItem(ctx context.Context, key string, value []byte) error

	// RemoveItem deletes a slot. Removing an absent slot returns
	// ErrKeyNotFound.
	RemoveItem(ctx context.Context, key string) error

	// HealthCheck verifies the backing medium is reachable and writable.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}

// IsKeyNotFound reports whether err indicates an absent slot.
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
