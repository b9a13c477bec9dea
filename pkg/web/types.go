// Package web provides HTTP request and response types for the BOS API.
package web

// CreateFlowRequest represents the request body for creating a new flow.
type CreateFlowRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"                  validate:"required,min=1"`
	Description string `json:"description,omitempty"`
}

// UpdateFlowRequest represents the request body for updating an existing
// flow. All fields are optional to support partial updates; stages are
// replaced wholesale when provided.
type UpdateFlowRequest struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,min=1"`
	Description *string `json:"description,omitempty"`
}

// ImportRequest carries a raw dataset payload. The payload is kept as a
// string so malformed JSON still reaches the import pipeline and triggers
// the pre-import backup. AcceptRecovered opts in to persisting a partially
// recovered dataset instead of rejecting it.
type ImportRequest struct {
	Data            string `json:"data" validate:"required"`
	AcceptRecovered bool   `json:"acceptRecovered"`
}

// CreateBackupRequest represents the request body for a manual backup.
type CreateBackupRequest struct {
	Label string `json:"label,omitempty"`
}

// RecoveryRequest asks for a recovery plan to be built and executed.
type RecoveryRequest struct {
	Category string `json:"category" validate:"required"`
	Severity string `json:"severity" validate:"required,oneof=low medium high critical"`
	Force    bool   `json:"force"`
	DryRun   bool   `json:"dryRun"`
}
