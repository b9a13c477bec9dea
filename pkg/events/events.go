// Package events defines event types for dataset lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every dataset lifecycle event.
const Topic = "bos.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Dataset lifecycle events.
	DatasetSavedEvent        EventType = "dataset.saved"
	DatasetImportedEvent     EventType = "dataset.imported"
	DatasetImportFailedEvent EventType = "dataset.import.failed"

	// Backup lifecycle events.
	BackupCreatedEvent  EventType = "backup.created"
	BackupRestoredEvent EventType = "backup.restored"
	BackupDeletedEvent  EventType = "backup.deleted"

	// Recovery events.
	RecoveryExecutedEvent EventType = "recovery.executed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps an event with a fresh ID and the current time.
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

type DatasetSaved struct {
	BaseEvent

	FlowCount int    `json:"flow_count"`
	Source    string `json:"source"`
}

func (e DatasetSaved) GetType() EventType { return DatasetSavedEvent }

type DatasetImported struct {
	BaseEvent

	FlowCount    int    `json:"flow_count"`
	WarningCount int    `json:"warning_count"`
	BackupID     string `json:"backup_id,omitempty"`
}

func (e DatasetImported) GetType() EventType { return DatasetImportedEvent }

type DatasetImportFailed struct {
	BaseEvent

	Reason    string `json:"reason"`
	Recovered bool   `json:"recovered"`
	BackupID  string `json:"backup_id,omitempty"`
}

func (e DatasetImportFailed) GetType() EventType { return DatasetImportFailedEvent }

type BackupCreated struct {
	BaseEvent

	BackupID  string `json:"backup_id"`
	Operation string `json:"operation"`
	FlowCount int    `json:"flow_count"`
	Evicted   int    `json:"evicted,omitempty"`
}

func (e BackupCreated) GetType() EventType { return BackupCreatedEvent }

type BackupRestored struct {
	BaseEvent

	BackupID  string `json:"backup_id"`
	FlowCount int    `json:"flow_count"`
}

func (e BackupRestored) GetType() EventType { return BackupRestoredEvent }

type BackupDeleted struct {
	BaseEvent

	BackupID string `json:"backup_id,omitempty"`
	All      bool   `json:"all,omitempty"`
}

func (e BackupDeleted) GetType() EventType { return BackupDeletedEvent }

type RecoveryExecuted struct {
	BaseEvent

	PlanID    string `json:"plan_id"`
	Category  string `json:"category"`
	Severity  string `json:"severity"`
	Succeeded bool   `json:"succeeded"`
	Actions   int    `json:"actions"`
}

func (e RecoveryExecuted) GetType() EventType { return RecoveryExecutedEvent }
