package persistence

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bosmethod/bos/pkg/backup"
	"github.com/bosmethod/bos/pkg/events"
	"github.com/bosmethod/bos/pkg/eventbus"
	"github.com/bosmethod/bos/pkg/migration"
	"github.com/bosmethod/bos/pkg/models"
	"github.com/bosmethod/bos/pkg/otelhelper"
	"github.com/bosmethod/bos/pkg/storage"
)

// DefaultStorageKey is the primary dataset slot.
const DefaultStorageKey = "bos_data"

// Config tunes a Manager.
type Config struct {
	// StorageKey overrides the primary slot name.
	StorageKey string

	// Source tags saved and exported envelopes with their producer
	// (e.g. "bos-api", "bosctl").
	Source string
}

// Manager is the single surface consumed by the API and CLI layers. All
// methods are synchronous; storage failures are reported through return
// values, never panics.
type Manager struct {
	store      storage.Store
	backups    *backup.Manager
	publisher  eventbus.EventPublisher
	tracer     trace.Tracer
	storageKey string
	source     string
	logger     *slog.Logger
}

// NewManager wires the persistence manager. publisher may be nil.
func NewManager(store storage.Store, backups *backup.Manager, publisher eventbus.EventPublisher, cfg Config) *Manager {
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}

	if cfg.Source == "" {
		cfg.Source = "bos"
	}

	return &Manager{
		store:      store,
		backups:    backups,
		publisher:  publisher,
		tracer:     otel.Tracer("github.com/bosmethod/bos/pkg/persistence"),
		storageKey: cfg.StorageKey,
		source:     cfg.Source,
		logger:     slog.With("module", "persistence"),
	}
}

// Backups exposes the backup manager for callers that share this instance.
func (m *Manager) Backups() *backup.Manager {
	return m.backups
}

// SaveData writes flows to the primary slot inside a metadata envelope.
// Returns false on any storage failure; the failure is logged, not raised.
func (m *Manager) SaveData(ctx context.Context, flows []models.Flow) bool {
	envelope := models.StoredDataset{
		Flows:    flows,
		Metadata: models.NewDatasetMetadata(m.source),
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		m.logger.Error("Failed to marshal dataset", "error", err)

		return false
	}

	if err := m.store.WriteItem(ctx, m.storageKey, body); err != nil {
		m.logger.Error("Failed to write dataset", "error", err)

		return false
	}

	m.publish(ctx, m.storageKey, events.DatasetSaved{
		BaseEvent: events.NewBaseEvent(events.DatasetSavedEvent),
		FlowCount: len(flows),
		Source:    m.source,
	})

	return true
}

// LoadData reads the primary slot. An absent slot is the expected first-run
// state and returns (nil, nil). Stored data passes through migration so old
// formats upgrade transparently. Unparseable stored JSON is treated as
// absent rather than fatal.
func (m *Manager) LoadData(ctx context.Context) ([]models.Flow, error) {
	body, err := m.store.ReadItem(ctx, m.storageKey)
	if err != nil {
		if storage.IsKeyNotFound(err) {
			return nil, nil
		}

		return nil, NewDatasetError("LoadData", m.storageKey, err)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		m.logger.Warn("Stored dataset corrupted, starting fresh", "error", err)

		return nil, nil
	}

	flows, err := migration.MigrateData(raw)
	if err != nil {
		return nil, NewDatasetError("LoadData", m.storageKey, ErrDatasetUnreadable)
	}

	return flows, nil
}

// ExportData renders flows as a pretty-printed envelope for clipboard or
// file export. No side effects.
func (m *Manager) ExportData(flows []models.Flow) (string, error) {
	envelope := models.StoredDataset{
		Flows:    flows,
		Metadata: models.NewDatasetMetadata(m.source),
	}

	body, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", NewDatasetError("ExportData", m.storageKey, err)
	}

	return string(body), nil
}

// ImportResult is the structured outcome of ImportData. When Success is
// false but RecoveredData is present, the caller is expected to offer the
// user the choice of accepting the recovered flows. BackupID is surfaced
// whenever a pre-import backup was captured, regardless of outcome.
type ImportResult struct {
	Success       bool          `json:"success"`
	Data          []models.Flow `json:"data,omitempty"`
	RecoveredData []models.Flow `json:"recoveredData,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
	Error         string        `json:"error,omitempty"`
	BackupID      string        `json:"backupId,omitempty"`
}

// ImportData runs the import pipeline: snapshot the current dataset, parse,
// migrate, validate. The backup-before-parse ordering is the safety
// invariant of the whole subsystem; the user's pre-import data is never
// lost to a bad import.
//
// A backup failure does not abort the import - the pipeline proceeds
// without a safety net and the caller learns of it from the absent BackupID.
func (m *Manager) ImportData(ctx context.Context, jsonString string, currentFlows []models.Flow) ImportResult {
	trimmed := strings.TrimSpace(jsonString)
	if trimmed == "" {
		return ImportResult{Success: false, Error: "No data provided for import"}
	}

	ctx, span := otelhelper.StartSpan(ctx, m.tracer, "persistence.import",
		attribute.Int(otelhelper.ImportSizeKey, len(trimmed)),
		attribute.Int(otelhelper.FlowCountKey, len(currentFlows)),
	)
	defer span.End()

	backupID := m.backupCurrent(ctx, currentFlows)
	if backupID != "" {
		span.SetAttributes(attribute.String(otelhelper.BackupIDKey, backupID))
	}

	var raw any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		otelhelper.SetError(span, err)
		m.publishImportFailed(ctx, "invalid JSON", false, backupID)

		return ImportResult{
			Success:  false,
			Error:    "Invalid JSON format: " + err.Error(),
			BackupID: backupID,
		}
	}

	result := migration.MigrateDataWithValidation(raw)
	span.SetAttributes(
		attribute.Int(otelhelper.WarningCountKey, len(result.Warnings)),
		attribute.Bool(otelhelper.RecoveredKey, len(result.RecoveredData) > 0),
	)

	if result.Valid {
		m.publish(ctx, m.storageKey, events.DatasetImported{
			BaseEvent:    events.NewBaseEvent(events.DatasetImportedEvent),
			FlowCount:    len(result.Data),
			WarningCount: len(result.Warnings),
			BackupID:     backupID,
		})

		return ImportResult{
			Success:  true,
			Data:     result.Data,
			Warnings: result.Warnings,
			BackupID: backupID,
		}
	}

	errorMessage := strings.Join(result.Errors, "; ")
	m.publishImportFailed(ctx, errorMessage, len(result.RecoveredData) > 0, backupID)

	if len(result.RecoveredData) > 0 {
		return ImportResult{
			Success:       false,
			Error:         errorMessage,
			RecoveredData: result.RecoveredData,
			Warnings:      result.Warnings,
			BackupID:      backupID,
		}
	}

	return ImportResult{Success: false, Error: errorMessage, BackupID: backupID}
}

func (m *Manager) backupCurrent(ctx context.Context, currentFlows []models.Flow) string {
	if len(currentFlows) == 0 || m.backups == nil {
		return ""
	}

	result := m.backups.CreateBackup(ctx, currentFlows, models.BackupOperationImport, "Automatic backup before import")
	if !result.Success {
		// Import continues without a safety net; the caller sees the
		// absent backup id.
		m.logger.Warn("Pre-import backup failed", "error", result.Error)

		return ""
	}

	return result.BackupID
}

func (m *Manager) publishImportFailed(ctx context.Context, reason string, recovered bool, backupID string) {
	m.publish(ctx, m.storageKey, events.DatasetImportFailed{
		BaseEvent: events.NewBaseEvent(events.DatasetImportFailedEvent),
		Reason:    reason,
		Recovered: recovered,
		BackupID:  backupID,
	})
}

func (m *Manager) publish(ctx context.Context, key string, event eventbus.Event) {
	if m.publisher == nil {
		return
	}

	if err := m.publisher.Publish(ctx, key, event); err != nil {
		m.logger.Warn("Failed to publish dataset event", "event_type", event.GetType(), "error", err)
	}
}
