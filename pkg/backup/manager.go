// Package backup maintains rotating full-dataset snapshots in a storage slot
// of its own, independent of the live dataset.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bosmethod/bos/pkg/events"
	"github.com/bosmethod/bos/pkg/eventbus"
	"github.com/bosmethod/bos/pkg/identifier"
	"github.com/bosmethod/bos/pkg/models"
	"github.com/bosmethod/bos/pkg/storage"
)

const (
	// DefaultStorageKey is the dedicated slot for the backup list.
	DefaultStorageKey = "bos_backups"

	// DefaultMaxBackups bounds retention; the oldest snapshots are evicted
	// once the cap is exceeded.
	DefaultMaxBackups = 10
)

// Config tunes a Manager. Zero values fall back to the defaults above.
type Config struct {
	StorageKey string
	MaxBackups int
}

// Manager owns the backup slot. It never panics and never propagates storage
// failures as Go errors on the snapshot paths; results carry success flags
// the way the import pipeline expects.
type Manager struct {
	store      storage.Store
	publisher  eventbus.EventPublisher
	storageKey string
	maxBackups int
	logger     *slog.Logger
}

// NewManager creates a backup manager on top of store. publisher may be nil;
// event delivery is best-effort and never blocks a snapshot.
func NewManager(store storage.Store, publisher eventbus.EventPublisher, cfg Config) *Manager {
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}

	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}

	return &Manager{
		store:      store,
		publisher:  publisher,
		storageKey: cfg.StorageKey,
		maxBackups: cfg.MaxBackups,
		logger:     slog.With("module", "backup"),
	}
}

// CreateResult reports the outcome of a snapshot attempt.
type CreateResult struct {
	Success        bool   `json:"success"`
	BackupID       string `json:"backupId,omitempty"`
	BackupsRemoved int    `json:"backupsRemoved,omitempty"`
	Error          string `json:"error,omitempty"`
}

// RestoreResult reports the outcome of a restore.
type RestoreResult struct {
	Success bool          `json:"success"`
	Data    []models.Flow `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// OpResult reports the outcome of a delete or clear.
type OpResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CreateBackup snapshots data under a fresh ID, most recent first, trimming
// the oldest entries beyond the retention cap. The snapshot is a deep copy;
// later mutation of data does not affect it.
func (m *Manager) CreateBackup(ctx context.Context, data []models.Flow, operation, description string) CreateResult {
	record := models.Backup{
		ID:        identifier.NewBackupID(),
		Timestamp: time.Now().UTC(),
		Operation: operation,
		Data:      models.CloneFlows(data),
	}
	if record.Data == nil {
		record.Data = []models.Flow{}
	}

	if description != "" {
		record.Metadata = &models.BackupMetadata{Description: description}
	}

	backups := append([]models.Backup{record}, m.loadAll(ctx)...)

	removed := 0
	if len(backups) > m.maxBackups {
		removed = len(backups) - m.maxBackups
		backups = backups[:m.maxBackups]
	}

	if err := m.persist(ctx, backups); err != nil {
		m.logger.Error("Failed to persist backup", "backup_id", record.ID, "error", err)

		return CreateResult{Success: false, Error: "failed to persist backup: " + err.Error()}
	}

	m.publish(ctx, record.ID, events.BackupCreated{
		BaseEvent: events.NewBaseEvent(events.BackupCreatedEvent),
		BackupID:  record.ID,
		Operation: operation,
		FlowCount: record.FlowCount(),
		Evicted:   removed,
	})

	return CreateResult{Success: true, BackupID: record.ID, BackupsRemoved: removed}
}

// GetAllBackups returns the retained snapshots, most recent first. A missing
// or corrupted backup slot yields an empty list, never an error.
func (m *Manager) GetAllBackups(ctx context.Context) []models.Backup {
	return m.loadAll(ctx)
}

// GetBackup returns the snapshot with the given ID, or nil.
func (m *Manager) GetBackup(ctx context.Context, id string) *models.Backup {
	for _, backup := range m.loadAll(ctx) {
		if backup.ID == id {
			return &backup
		}
	}

	return nil
}

// RestoreFromBackup returns a deep copy of the snapshot's data. The stored
// record is untouched; repeated restores are idempotent.
func (m *Manager) RestoreFromBackup(ctx context.Context, id string) RestoreResult {
	backup := m.GetBackup(ctx, id)
	if backup == nil {
		return RestoreResult{Success: false, Error: fmt.Sprintf("backup %s not found", id)}
	}

	m.publish(ctx, id, events.BackupRestored{
		BaseEvent: events.NewBaseEvent(events.BackupRestoredEvent),
		BackupID:  id,
		FlowCount: backup.FlowCount(),
	})

	return RestoreResult{Success: true, Data: models.CloneFlows(backup.Data)}
}

// DeleteBackup removes one snapshot. A missing ID is a reported failure.
func (m *Manager) DeleteBackup(ctx context.Context, id string) OpResult {
	backups := m.loadAll(ctx)

	remaining := make([]models.Backup, 0, len(backups))
	found := false

	for _, backup := range backups {
		if backup.ID == id {
			found = true

			continue
		}

		remaining = append(remaining, backup)
	}

	if !found {
		return OpResult{Success: false, Error: fmt.Sprintf("backup %s not found", id)}
	}

	if err := m.persist(ctx, remaining); err != nil {
		return OpResult{Success: false, Error: "failed to persist backup list: " + err.Error()}
	}

	m.publish(ctx, id, events.BackupDeleted{
		BaseEvent: events.NewBaseEvent(events.BackupDeletedEvent),
		BackupID:  id,
	})

	return OpResult{Success: true}
}

// ClearAllBackups removes every snapshot. Clearing an already-empty slot
// succeeds.
func (m *Manager) ClearAllBackups(ctx context.Context) OpResult {
	err := m.store.RemoveItem(ctx, m.storageKey)
	if err != nil && !storage.IsKeyNotFound(err) {
		return OpResult{Success: false, Error: "failed to clear backups: " + err.Error()}
	}

	m.publish(ctx, "all", events.BackupDeleted{
		BaseEvent: events.NewBaseEvent(events.BackupDeletedEvent),
		All:       true,
	})

	return OpResult{Success: true}
}

// HealthStatus tiers reported by CheckStorageHealth.
const (
	HealthStatusHealthy     = "healthy"
	HealthStatusDegraded    = "degraded"
	HealthStatusUnavailable = "unavailable"
)

// HealthReport summarizes the state of the backup slot.
type HealthReport struct {
	Status         string `json:"status"`
	Summary        string `json:"summary"`
	BackupCount    int    `json:"backupCount"`
	EstimatedBytes int    `json:"estimatedBytes"`
}

// CheckStorageHealth reports a status tier plus a human-readable summary of
// the backup slot.
func (m *Manager) CheckStorageHealth(ctx context.Context) HealthReport {
	if err := m.store.HealthCheck(ctx); err != nil {
		return HealthReport{
			Status:  HealthStatusUnavailable,
			Summary: "backup storage unreachable: " + err.Error(),
		}
	}

	body, err := m.store.ReadItem(ctx, m.storageKey)
	if err != nil {
		if storage.IsKeyNotFound(err) {
			return HealthReport{Status: HealthStatusHealthy, Summary: "no backups stored yet"}
		}

		return HealthReport{Status: HealthStatusDegraded, Summary: "backup slot unreadable: " + err.Error()}
	}

	var backups []models.Backup
	if err := json.Unmarshal(body, &backups); err != nil {
		return HealthReport{
			Status:         HealthStatusDegraded,
			Summary:        "backup slot holds unparseable data; next backup will overwrite it",
			EstimatedBytes: len(body),
		}
	}

	return HealthReport{
		Status:         HealthStatusHealthy,
		Summary:        fmt.Sprintf("%d backup(s) using approximately %d bytes", len(backups), len(body)),
		BackupCount:    len(backups),
		EstimatedBytes: len(body),
	}
}

// FormatBackupInfo renders a snapshot for display: description or operation
// tag, flow count, and a localized timestamp.
func (m *Manager) FormatBackupInfo(backup models.Backup) string {
	label := backup.Operation
	if backup.Metadata != nil && backup.Metadata.Description != "" {
		label = backup.Metadata.Description
	}

	return fmt.Sprintf("%s (%d flows) - %s",
		label, backup.FlowCount(), backup.Timestamp.Local().Format("Jan 2, 2006 3:04 PM"))
}

func (m *Manager) loadAll(ctx context.Context) []models.Backup {
	body, err := m.store.ReadItem(ctx, m.storageKey)
	if err != nil {
		if !storage.IsKeyNotFound(err) {
			m.logger.Warn("Failed to read backup slot", "error", err)
		}

		return []models.Backup{}
	}

	var backups []models.Backup
	if err := json.Unmarshal(body, &backups); err != nil {
		m.logger.Warn("Backup slot corrupted, treating as empty", "error", err)

		return []models.Backup{}
	}

	return backups
}

func (m *Manager) persist(ctx context.Context, backups []models.Backup) error {
	body, err := json.Marshal(backups)
	if err != nil {
		return err
	}

	return m.store.WriteItem(ctx, m.storageKey, body)
}

func (m *Manager) publish(ctx context.Context, key string, event eventbus.Event) {
	if m.publisher == nil {
		return
	}

	if err := m.publisher.Publish(ctx, key, event); err != nil {
		m.logger.Warn("Failed to publish backup event", "event_type", event.GetType(), "error", err)
	}
}
