package models

import "time"

// Backup operation tags recorded on each snapshot.
const (
	BackupOperationImport      = "import"
	BackupOperationManual      = "manual_backup"
	BackupOperationScheduled   = "scheduled_backup"
	BackupOperationPreRecovery = "pre_recovery"
)

// BackupMetadata carries optional user-facing context for a snapshot.
type BackupMetadata struct {
	Description string `json:"description,omitempty"`
}

// Backup is a full-dataset snapshot captured before a destructive operation.
// Data is a deep copy, never aliased with the live flow array.
type Backup struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Operation string          `json:"operation"`
	Metadata  *BackupMetadata `json:"metadata,omitempty"`
	Data      []Flow          `json:"data"`
}

// FlowCount returns the number of flows captured in the snapshot.
func (b Backup) FlowCount() int {
	return len(b.Data)
}
