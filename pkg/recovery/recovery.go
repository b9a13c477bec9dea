// Package recovery reacts to flagged critical errors by building and
// executing ordered recovery plans over the backup and persistence layers.
package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bosmethod/bos/pkg/backup"
	"github.com/bosmethod/bos/pkg/events"
	"github.com/bosmethod/bos/pkg/eventbus"
	"github.com/bosmethod/bos/pkg/migration"
	"github.com/bosmethod/bos/pkg/persistence"
	"github.com/bosmethod/bos/pkg/storage"
)

// ActionType enumerates the recovery steps a plan can carry.
type ActionType string

const (
	ActionDataRestore       ActionType = "data_restore"
	ActionDataRepair        ActionType = "data_repair"
	ActionFeatureDisable    ActionType = "feature_disable"
	ActionFallbackMode      ActionType = "fallback_mode"
	ActionEmergencyFallback ActionType = "emergency_fallback"
)

// Status is the lifecycle state of a plan.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Error severities accepted by BuildPlan.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Error categories with dedicated plans.
const (
	CategoryDataCorruption    = "data_corruption"
	CategoryStorageFailure    = "storage_failure"
	CategoryValidationFailure = "validation_failure"
)

// DefaultFallbackKey stores the degraded-capability flag.
const DefaultFallbackKey = "bos_fallback_mode"

// Action is one typed recovery step. Non-automatic actions require explicit
// confirmation and are skipped unless the plan executes with force.
type Action struct {
	Type        ActionType `json:"type"`
	Description string     `json:"description"`
	Automatic   bool       `json:"automatic"`
}

// Plan is an ordered list of recovery actions for one flagged error.
type Plan struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Severity  string    `json:"severity"`
	Status    Status    `json:"status"`
	Actions   []Action  `json:"actions"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExecuteResult reports a plan run. Success requires every attempted action
// to have succeeded; skipped manual actions do not count against it.
type ExecuteResult struct {
	Success   bool     `json:"success"`
	Attempted int      `json:"attempted"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// Manager builds and executes recovery plans.
type Manager struct {
	persistence *persistence.Manager
	backups     *backup.Manager
	store       storage.Store
	publisher   eventbus.EventPublisher
	datasetKey  string
	fallbackKey string
	logger      *slog.Logger
}

// Config tunes a recovery manager.
type Config struct {
	// DatasetKey is the primary dataset slot repaired by data_repair.
	DatasetKey string

	// FallbackKey stores the degraded-capability flag.
	FallbackKey string
}

// NewManager wires the recovery manager. publisher may be nil.
func NewManager(pm *persistence.Manager, backups *backup.Manager, store storage.Store, publisher eventbus.EventPublisher, cfg Config) *Manager {
	if cfg.DatasetKey == "" {
		cfg.DatasetKey = persistence.DefaultStorageKey
	}

	if cfg.FallbackKey == "" {
		cfg.FallbackKey = DefaultFallbackKey
	}

	return &Manager{
		persistence: pm,
		backups:     backups,
		store:       store,
		publisher:   publisher,
		datasetKey:  cfg.DatasetKey,
		fallbackKey: cfg.FallbackKey,
		logger:      slog.With("module", "recovery"),
	}
}

// BuildPlan selects the ordered actions for an error category. Critical
// severity always appends an emergency fallback so the system degrades to a
// minimal state instead of becoming unusable.
func (m *Manager) BuildPlan(category, severity string) *Plan {
	plan := &Plan{
		ID:        fmt.Sprintf("recovery_%d", time.Now().UnixMilli()),
		Category:  category,
		Severity:  severity,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	switch category {
	case CategoryDataCorruption:
		plan.Actions = []Action{
			{Type: ActionDataRestore, Description: "Restore the most recent backup", Automatic: true},
			{Type: ActionDataRepair, Description: "Attempt partial recovery of the stored dataset", Automatic: true},
			{Type: ActionFallbackMode, Description: "Switch to read-only fallback mode", Automatic: false},
		}
	case CategoryStorageFailure:
		plan.Actions = []Action{
			{Type: ActionFeatureDisable, Description: "Disable automatic persistence features", Automatic: true},
			{Type: ActionFallbackMode, Description: "Switch to in-memory fallback mode", Automatic: false},
		}
	case CategoryValidationFailure:
		plan.Actions = []Action{
			{Type: ActionDataRepair, Description: "Re-validate and repair the stored dataset", Automatic: true},
		}
	default:
		plan.Actions = []Action{
			{Type: ActionFallbackMode, Description: "Switch to fallback mode", Automatic: false},
		}
	}

	if severity == SeverityCritical {
		plan.Actions = append(plan.Actions, Action{
			Type:        ActionEmergencyFallback,
			Description: "Degrade to minimal functionality",
			Automatic:   true,
		})
	}

	return plan
}

// ExecutePlan runs the plan's automatic actions, or every action when force
// is set. The plan moves pending -> executing -> completed or failed.
func (m *Manager) ExecutePlan(ctx context.Context, plan *Plan, force bool) ExecuteResult {
	plan.Status = StatusExecuting

	result := ExecuteResult{Success: true}

	for _, action := range plan.Actions {
		if !action.Automatic && !force {
			result.Skipped++

			continue
		}

		result.Attempted++

		if err := m.runAction(ctx, action); err != nil {
			m.logger.Error("Recovery action failed", "plan_id", plan.ID, "action", action.Type, "error", err)
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", action.Type, err))

			continue
		}

		m.logger.Info("Recovery action completed", "plan_id", plan.ID, "action", action.Type)
	}

	if result.Success {
		plan.Status = StatusCompleted
	} else {
		plan.Status = StatusFailed
	}

	m.publish(ctx, plan, result)

	return result
}

func (m *Manager) runAction(ctx context.Context, action Action) error {
	switch action.Type {
	case ActionDataRestore:
		return m.restoreLatestBackup(ctx)
	case ActionDataRepair:
		return m.repairStoredDataset(ctx)
	case ActionFeatureDisable:
		return m.writeFlag(ctx, m.fallbackKey+"_features", "persistence")
	case ActionFallbackMode:
		return m.writeFlag(ctx, m.fallbackKey, "fallback")
	case ActionEmergencyFallback:
		return m.writeFlag(ctx, m.fallbackKey, "emergency")
	default:
		return fmt.Errorf("unknown recovery action %q", action.Type)
	}
}

// restoreLatestBackup applies the most recent snapshot as the live dataset.
func (m *Manager) restoreLatestBackup(ctx context.Context) error {
	backups := m.backups.GetAllBackups(ctx)
	if len(backups) == 0 {
		return errors.New("no backups available to restore")
	}

	restored := m.backups.RestoreFromBackup(ctx, backups[0].ID)
	if !restored.Success {
		return errors.New(restored.Error)
	}

	if !m.persistence.SaveData(ctx, restored.Data) {
		return errors.New("failed to persist restored dataset")
	}

	return nil
}

// repairStoredDataset re-runs migration and validation over the raw stored
// blob, accepting recovered flows when full validity is out of reach.
func (m *Manager) repairStoredDataset(ctx context.Context) error {
	body, err := m.store.ReadItem(ctx, m.datasetKey)
	if err != nil {
		if storage.IsKeyNotFound(err) {
			return errors.New("no stored dataset to repair")
		}

		return err
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("stored dataset unparseable: %w", err)
	}

	result := migration.MigrateDataWithValidation(raw)

	flows := result.Data
	if !result.Valid {
		if len(result.RecoveredData) == 0 {
			return errors.New("stored dataset beyond repair")
		}

		flows = result.RecoveredData
	}

	if !m.persistence.SaveData(ctx, flows) {
		return errors.New("failed to persist repaired dataset")
	}

	return nil
}

type fallbackFlag struct {
	Enabled bool      `json:"enabled"`
	Mode    string    `json:"mode"`
	Since   time.Time `json:"since"`
}

func (m *Manager) writeFlag(ctx context.Context, key, mode string) error {
	body, err := json.Marshal(fallbackFlag{Enabled: true, Mode: mode, Since: time.Now().UTC()})
	if err != nil {
		return err
	}

	return m.store.WriteItem(ctx, key, body)
}

// InFallbackMode reports whether a prior recovery degraded the system.
// Other components consult this before enabling non-essential features.
func (m *Manager) InFallbackMode(ctx context.Context) bool {
	body, err := m.store.ReadItem(ctx, m.fallbackKey)
	if err != nil {
		return false
	}

	var flag fallbackFlag
	if err := json.Unmarshal(body, &flag); err != nil {
		return false
	}

	return flag.Enabled
}

// ClearFallbackMode removes the degraded-capability flag.
func (m *Manager) ClearFallbackMode(ctx context.Context) error {
	err := m.store.RemoveItem(ctx, m.fallbackKey)
	if err != nil && !storage.IsKeyNotFound(err) {
		return err
	}

	return nil
}

func (m *Manager) publish(ctx context.Context, plan *Plan, result ExecuteResult) {
	if m.publisher == nil {
		return
	}

	event := events.RecoveryExecuted{
		BaseEvent: events.NewBaseEvent(events.RecoveryExecutedEvent),
		PlanID:    plan.ID,
		Category:  plan.Category,
		Severity:  plan.Severity,
		Succeeded: result.Success,
		Actions:   result.Attempted,
	}

	if err := m.publisher.Publish(ctx, plan.ID, event); err != nil {
		m.logger.Warn("Failed to publish recovery event", "error", err)
	}
}
