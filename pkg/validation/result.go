// Package validation converts arbitrary, possibly malformed import data into
// typed flows. Validation never panics and never returns a Go error for bad
// input; every outcome is expressed through Result.
//
// The repair rules are deliberately asymmetric: a missing required field is
// repaired with a generated default and recorded as a warning, while a field
// that is present but has the wrong type is a hard error that aborts the
// containing entity. Sibling entities continue independently.
package validation

import "github.com/bosmethod/bos/pkg/models"

// Result is the aggregate outcome of validating import data.
//
// Valid is true iff at least one flow validated fully. Data holds fully
// valid flows. RecoveredData holds best-effort flows that carried errors but
// could be partially rebuilt; callers are expected to offer the user the
// choice of accepting them.
type Result struct {
	Valid         bool          `json:"valid"`
	Data          []models.Flow `json:"data,omitempty"`
	RecoveredData []models.Flow `json:"recoveredData,omitempty"`
	Errors        []string      `json:"errors,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// entityOutcome is the shared shape of the per-entity validators. Data is set
// only when the entity accumulated zero errors; Recovered is set when the
// entity itself was repairable even though children contributed errors.
type entityOutcome[T any] struct {
	valid     bool
	data      *T
	recovered *T
	errors    []string
	warnings  []string
}

func invalidEntity[T any](errs ...string) entityOutcome[T] {
	return entityOutcome[T]{valid: false, errors: errs}
}
