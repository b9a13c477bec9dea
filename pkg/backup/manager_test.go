package backup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosmethod/bos/pkg/models"
	"github.com/bosmethod/bos/pkg/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	return NewManager(storage.NewFileStore(t.TempDir()), nil, Config{})
}

func sampleFlows() []models.Flow {
	return []models.Flow{
		{ID: "flow-a", Name: "Flow A"},
		{ID: "flow-b", Name: "Flow B"},
	}
}

func TestCreateAndRestoreBackup(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	created := manager.CreateBackup(ctx, sampleFlows(), models.BackupOperationImport, "Pre-import")
	require.True(t, created.Success)
	require.NotEmpty(t, created.BackupID)
	assert.Zero(t, created.BackupsRemoved)

	restored := manager.RestoreFromBackup(ctx, created.BackupID)
	require.True(t, restored.Success)
	require.Len(t, restored.Data, 2)
	assert.Equal(t, "Flow A", restored.Data[0].Name)
	assert.Equal(t, "Flow B", restored.Data[1].Name)
}

func TestBackupIsolation(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	flows := sampleFlows()
	created := manager.CreateBackup(ctx, flows, models.BackupOperationManual, "")
	require.True(t, created.Success)

	// Mutating the input after the snapshot must not change the stored copy.
	flows[0].Name = "mutated"

	restored := manager.RestoreFromBackup(ctx, created.BackupID)
	require.True(t, restored.Success)
	assert.Equal(t, "Flow A", restored.Data[0].Name)

	// Mutating a restored copy must not change the stored record either.
	restored.Data[0].Name = "mutated again"

	again := manager.RestoreFromBackup(ctx, created.BackupID)
	require.True(t, again.Success)
	assert.Equal(t, "Flow A", again.Data[0].Name)
}

func TestBackupRetention(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	var firstID string

	for i := range DefaultMaxBackups {
		result := manager.CreateBackup(ctx, sampleFlows(), models.BackupOperationManual, "")
		require.True(t, result.Success)
		assert.Zero(t, result.BackupsRemoved)

		if i == 0 {
			firstID = result.BackupID
		}
	}

	eleventh := manager.CreateBackup(ctx, sampleFlows(), models.BackupOperationManual, "")
	require.True(t, eleventh.Success)
	assert.Equal(t, 1, eleventh.BackupsRemoved)

	backups := manager.GetAllBackups(ctx)
	assert.Len(t, backups, DefaultMaxBackups)
	// Most recent first; the very first backup was evicted.
	assert.Equal(t, eleventh.BackupID, backups[0].ID)
	assert.Nil(t, manager.GetBackup(ctx, firstID))
}

func TestRestoreUnknownBackup(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	result := manager.RestoreFromBackup(ctx, "backup_0_missing")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")
}

func TestDeleteBackup(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	created := manager.CreateBackup(ctx, sampleFlows(), models.BackupOperationManual, "")
	require.True(t, created.Success)

	deleted := manager.DeleteBackup(ctx, created.BackupID)
	assert.True(t, deleted.Success)
	assert.Nil(t, manager.GetBackup(ctx, created.BackupID))

	again := manager.DeleteBackup(ctx, created.BackupID)
	assert.False(t, again.Success)
	assert.Contains(t, again.Error, "not found")
}

func TestClearAllBackups(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	// Clearing an empty slot is fine.
	assert.True(t, manager.ClearAllBackups(ctx).Success)

	manager.CreateBackup(ctx, sampleFlows(), models.BackupOperationManual, "")
	manager.CreateBackup(ctx, sampleFlows(), models.BackupOperationManual, "")

	assert.True(t, manager.ClearAllBackups(ctx).Success)
	assert.Empty(t, manager.GetAllBackups(ctx))
}

func TestCorruptedBackupSlotTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewFileStore(t.TempDir())
	require.NoError(t, store.WriteItem(ctx, DefaultStorageKey, []byte("{{{ not json")))

	manager := NewManager(store, nil, Config{})

	assert.Empty(t, manager.GetAllBackups(ctx))

	health := manager.CheckStorageHealth(ctx)
	assert.Equal(t, HealthStatusDegraded, health.Status)

	// A fresh backup overwrites the corrupted slot.
	created := manager.CreateBackup(ctx, sampleFlows(), models.BackupOperationManual, "")
	require.True(t, created.Success)
	assert.Len(t, manager.GetAllBackups(ctx), 1)
	assert.Equal(t, HealthStatusHealthy, manager.CheckStorageHealth(ctx).Status)
}

func TestFormatBackupInfo(t *testing.T) {
	manager := newTestManager(t)

	withDescription := models.Backup{
		Operation: models.BackupOperationImport,
		Metadata:  &models.BackupMetadata{Description: "Before big import"},
		Data:      sampleFlows(),
	}
	assert.Contains(t, manager.FormatBackupInfo(withDescription), "Before big import")
	assert.Contains(t, manager.FormatBackupInfo(withDescription), "2 flows")

	withoutDescription := models.Backup{Operation: models.BackupOperationScheduled}
	assert.Contains(t, manager.FormatBackupInfo(withoutDescription), models.BackupOperationScheduled)
}
