// Package persistence orchestrates save, load, export, and import of the
// live dataset across the storage, backup, migration, and validation layers.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNoImportData indicates an empty or whitespace-only import payload.
	ErrNoImportData = errors.New("no data provided for import")

	// ErrDatasetUnreadable indicates the primary slot exists but could not
	// be loaded even after migration and recovery attempts.
	ErrDatasetUnreadable = errors.New("stored dataset unreadable")
)

// DatasetError wraps dataset operations with context.
type DatasetError struct {
	Op  string // Operation being performed (e.g., "LoadData", "SaveData")
	Key string // Storage key involved
	Err error
}

func (e *DatasetError) Error() string {
	return fmt.Sprintf("%s failed for slot %s: %v", e.Op, e.Key, e.Err)
}

func (e *DatasetError) Unwrap() error {
	return e.Err
}

func (e *DatasetError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDatasetError creates a dataset error with operation context.
func NewDatasetError(op, key string, err error) *DatasetError {
	return &DatasetError{Op: op, Key: key, Err: err}
}

// IsDatasetUnreadable reports whether err wraps ErrDatasetUnreadable.
func IsDatasetUnreadable(err error) bool {
	return errors.Is(err, ErrDatasetUnreadable)
}
