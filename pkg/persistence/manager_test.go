package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosmethod/bos/pkg/backup"
	"github.com/bosmethod/bos/pkg/models"
	"github.com/bosmethod/bos/pkg/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	store := storage.NewFileStore(t.TempDir())
	backups := backup.NewManager(store, nil, backup.Config{})

	return NewManager(store, backups, nil, Config{Source: "test"})
}

func sampleFlows() []models.Flow {
	return []models.Flow{
		{
			ID:   "flow-1",
			Name: "Payments",
			Stages: []models.Stage{
				{ID: "stage-1", Name: "Capture", Steps: []models.Step{
					{
						ID:           "step-1",
						Name:         "Authorize",
						Stakeholders: []models.Stakeholder{{Name: "Ops", Role: "Operator", Type: models.StakeholderTypePeople}},
						Dependencies: map[string]string{"gateway": "Payment gateway"},
						Services:     []models.Service{{Name: "auth-svc", TechnicalDescription: "d", TechnicalFlow: "f"}},
						Score:        75,
					},
				}},
			},
		},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	require.True(t, manager.SaveData(ctx, sampleFlows()))

	loaded, err := manager.LoadData(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleFlows(), loaded)
}

func TestLoadDataFirstRun(t *testing.T) {
	manager := newTestManager(t)

	loaded, err := manager.LoadData(context.Background())

	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadDataCorruptedSlotTreatedAsFirstRun(t *testing.T) {
	ctx := context.Background()
	store := storage.NewFileStore(t.TempDir())
	require.NoError(t, store.WriteItem(ctx, DefaultStorageKey, []byte("}} definitely not json")))

	manager := NewManager(store, backup.NewManager(store, nil, backup.Config{}), nil, Config{})

	loaded, err := manager.LoadData(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestExportImportRoundTripLaw(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)
	flows := sampleFlows()

	exported, err := manager.ExportData(flows)
	require.NoError(t, err)

	result := manager.ImportData(ctx, exported, nil)

	require.True(t, result.Success, "errors: %v", result.Error)
	assert.Equal(t, flows, result.Data)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.BackupID, "no backup without current data")
}

func TestImportDataEmptyInput(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	for _, input := range []string{"", "   ", "\n\t "} {
		result := manager.ImportData(ctx, input, sampleFlows())

		assert.False(t, result.Success)
		assert.Equal(t, "No data provided for import", result.Error)
		assert.Empty(t, result.BackupID, "blank input must not trigger backup")
	}

	assert.Empty(t, manager.Backups().GetAllBackups(ctx))
}

func TestImportDataBacksUpBeforeParsing(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	result := manager.ImportData(ctx, "{invalid json", sampleFlows())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "Invalid JSON format")
	// The pre-import snapshot exists even though parsing failed.
	require.NotEmpty(t, result.BackupID)

	restored := manager.Backups().RestoreFromBackup(ctx, result.BackupID)
	require.True(t, restored.Success)
	assert.Equal(t, "Payments", restored.Data[0].Name)
}

func TestImportDataRecoveredOutcome(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	payload := `[{"id": "flow-x", "name": "Damaged", "stages": [{"id": "s", "name": "Bad", "steps": false}]}]`

	result := manager.ImportData(ctx, payload, sampleFlows())

	assert.False(t, result.Success)
	require.Len(t, result.RecoveredData, 1)
	assert.Equal(t, "Damaged", result.RecoveredData[0].Name)
	assert.Contains(t, result.Error, "No valid flows found")
	assert.NotEmpty(t, result.BackupID)
}

func TestImportDataUnrecoverableOutcome(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	result := manager.ImportData(ctx, `"just a string"`, nil)

	assert.False(t, result.Success)
	assert.Empty(t, result.RecoveredData)
	assert.Contains(t, result.Error, "Unrecognized data format")
}

func TestImportDataRepairsAndWarns(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t)

	result := manager.ImportData(ctx, `[{"stages": []}]`, nil)

	require.True(t, result.Success)
	require.Len(t, result.Data, 1)
	assert.Regexp(t, `^flow-\d+-\w+$`, result.Data[0].ID)
	assert.Equal(t, "Untitled Flow", result.Data[0].Name)
	assert.NotEmpty(t, result.Warnings)
}

func TestLoadDataMigratesLegacyStoredShape(t *testing.T) {
	ctx := context.Background()
	store := storage.NewFileStore(t.TempDir())
	legacy := `{"methodology": {"flows": [{"id": "flow-1", "name": "Old Format", "stages": []}]}}`
	require.NoError(t, store.WriteItem(ctx, DefaultStorageKey, []byte(legacy)))

	manager := NewManager(store, backup.NewManager(store, nil, backup.Config{}), nil, Config{})

	loaded, err := manager.LoadData(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Old Format", loaded[0].Name)
}
