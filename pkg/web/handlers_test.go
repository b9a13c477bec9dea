package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosmethod/bos/pkg/backup"
	"github.com/bosmethod/bos/pkg/models"
	"github.com/bosmethod/bos/pkg/persistence"
	"github.com/bosmethod/bos/pkg/recovery"
	"github.com/bosmethod/bos/pkg/services"
	"github.com/bosmethod/bos/pkg/storage"
	"github.com/bosmethod/bos/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, *services.Dataset) {
	t.Helper()

	store := storage.NewFileStore(t.TempDir())
	backups := backup.NewManager(store, nil, backup.Config{})
	persistenceManager := persistence.NewManager(store, backups, nil, persistence.Config{Source: "test"})
	datasetService := services.NewDataset(persistenceManager)
	recoveryManager := recovery.NewManager(persistenceManager, backups, store, nil, recovery.Config{})
	validate := validator.New(validator.WithRequiredStructEnabled())

	handlers := web.NewAPIHandlers(datasetService, persistenceManager, backups, recoveryManager, validate)

	app := fiber.New()

	f := app.Group("/flows")
	f.Get("/", handlers.GetFlows)
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Patch("/:id", handlers.UpdateFlow)
	f.Delete("/:id", handlers.DeleteFlow)

	app.Post("/import", handlers.ImportData)
	app.Get("/export", handlers.ExportData)

	b := app.Group("/backups")
	b.Get("/", handlers.GetBackups)
	b.Get("/:id", handlers.GetBackup)
	b.Post("/", handlers.CreateBackup)
	b.Post("/:id/restore", handlers.RestoreBackup)
	b.Delete("/:id", handlers.DeleteBackup)
	b.Delete("/", handlers.ClearBackups)

	app.Get("/health", handlers.HealthCheck)
	app.Post("/recovery", handlers.ExecuteRecovery)
	app.Delete("/recovery/fallback", handlers.ClearFallbackMode)

	return app, datasetService
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body []byte

	if payload != nil {
		if str, ok := payload.(string); ok {
			body = []byte(str)
		} else {
			var err error

			body, err = json.Marshal(payload)
			require.NoError(t, err)
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func TestAPIHandlers_CreateFlow(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name:           "successful creation",
			requestBody:    web.CreateFlowRequest{Name: "Order to Cash", Description: "Revenue flow"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "validation error - missing name",
			requestBody:    web.CreateFlowRequest{Description: "No name"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := setupTestApp(t)

			resp, raw := doJSON(t, app, http.MethodPost, "/flows/", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				var flow models.Flow

				require.NoError(t, json.Unmarshal(raw, &flow))
				assert.Equal(t, "Order to Cash", flow.Name)
				assert.NotEmpty(t, flow.ID)
				assert.NotNil(t, flow.Stages)
			}
		})
	}
}

func TestAPIHandlers_FlowLifecycle(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodPost, "/flows/", web.CreateFlowRequest{Name: "First"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Flow

	require.NoError(t, json.Unmarshal(raw, &created))

	resp, raw = doJSON(t, app, http.MethodPatch, "/flows/"+created.ID, fiber.Map{"name": "Renamed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Flow

	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, "Renamed", updated.Name)

	// The only flow cannot be deleted.
	resp, _ = doJSON(t, app, http.MethodDelete, "/flows/"+created.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/flows/", web.CreateFlowRequest{Name: "Second"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/flows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/flows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_ImportData(t *testing.T) {
	app, svc := setupTestApp(t)

	dataset := `{"flows":[{"id":"flow-1-abc","name":"Imported","stages":[]}]}`

	resp, raw := doJSON(t, app, http.MethodPost, "/import", web.ImportRequest{Data: dataset})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result persistence.ImportResult

	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.Success)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "Imported", result.Data[0].Name)

	flows, err := svc.ListFlows(context.Background())
	require.NoError(t, err)
	assert.Len(t, flows, 1)
}

func TestAPIHandlers_ImportDataInvalidJSON(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodPost, "/import", web.ImportRequest{Data: "{not json"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var result persistence.ImportResult

	require.NoError(t, json.Unmarshal(raw, &result))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "Invalid JSON format")
}

func TestAPIHandlers_ImportDataRecovered(t *testing.T) {
	app, svc := setupTestApp(t)

	// Second flow has a wrong-typed stages field so only the first survives.
	dataset := `{"flows":[
		{"id":"flow-1-abc","name":"Good","stages":[]},
		{"id":"flow-2-def","name":123,"stages":"broken"}
	]}`

	resp, raw := doJSON(t, app, http.MethodPost, "/import", web.ImportRequest{Data: dataset})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var result persistence.ImportResult

	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.Success)
	assert.Len(t, result.Data, 1)

	flows, err := svc.ListFlows(context.Background())
	require.NoError(t, err)
	assert.Len(t, flows, 1)
}

func TestAPIHandlers_ImportDataRecoveredOnly(t *testing.T) {
	app, svc := setupTestApp(t)

	// The only flow has a broken stage, so the flow is demoted to
	// recovered and nothing imports cleanly.
	dataset := `{"flows":[{"id":"flow-1-abc","name":"Partial","stages":[{"name":"Intake","steps":"broken"}]}]}`

	resp, raw := doJSON(t, app, http.MethodPost, "/import", web.ImportRequest{Data: dataset})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(raw))

	var result persistence.ImportResult

	require.NoError(t, json.Unmarshal(raw, &result))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.RecoveredData)

	flows, err := svc.ListFlows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, flows)

	resp, raw = doJSON(t, app, http.MethodPost, "/import", web.ImportRequest{Data: dataset, AcceptRecovered: true})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.Success)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "Partial", result.Data[0].Name)

	flows, err = svc.ListFlows(context.Background())
	require.NoError(t, err)
	assert.Len(t, flows, 1)
}

func TestAPIHandlers_ExportRoundTrip(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/flows/", web.CreateFlowRequest{Name: "Exported"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/export", nil)

	exportResp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = exportResp.Body.Close() }()

	require.Equal(t, http.StatusOK, exportResp.StatusCode)

	raw, err := io.ReadAll(exportResp.Body)
	require.NoError(t, err)

	var envelope models.StoredDataset

	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.Len(t, envelope.Flows, 1)
	assert.Equal(t, "Exported", envelope.Flows[0].Name)
	assert.Equal(t, models.SchemaVersion, envelope.Metadata.Version)
}

func TestAPIHandlers_Backups(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/flows/", web.CreateFlowRequest{Name: "Snapshot me"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := doJSON(t, app, http.MethodPost, "/backups/", web.CreateBackupRequest{Label: "Before edits"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created backup.CreateResult

	require.NoError(t, json.Unmarshal(raw, &created))
	assert.NotEmpty(t, created.BackupID)

	resp, raw = doJSON(t, app, http.MethodGet, "/backups/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Backups    []map[string]any `json:"backups"`
		TotalCount int              `json:"total_count"`
	}

	require.NoError(t, json.Unmarshal(raw, &listing))
	assert.Equal(t, 1, listing.TotalCount)

	resp, raw = doJSON(t, app, http.MethodGet, "/backups/"+created.BackupID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.Backup

	require.NoError(t, json.Unmarshal(raw, &fetched))
	assert.Equal(t, created.BackupID, fetched.ID)
	assert.Equal(t, 1, fetched.FlowCount())

	resp, _ = doJSON(t, app, http.MethodPost, "/backups/"+created.BackupID+"/restore", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/backups/"+created.BackupID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/backups/"+created.BackupID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_RestoreBackupSnapshotsCurrent(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/flows/", web.CreateFlowRequest{Name: "Original"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := doJSON(t, app, http.MethodPost, "/backups/", web.CreateBackupRequest{Label: "Checkpoint"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created backup.CreateResult

	require.NoError(t, json.Unmarshal(raw, &created))

	resp, _ = doJSON(t, app, http.MethodPost, "/flows/", web.CreateFlowRequest{Name: "Added after checkpoint"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw = doJSON(t, app, http.MethodPost, "/backups/"+created.BackupID+"/restore", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var restored struct {
		Success            bool   `json:"success"`
		PreRestoreBackupID string `json:"preRestoreBackupId"`
	}

	require.NoError(t, json.Unmarshal(raw, &restored))
	assert.True(t, restored.Success)
	require.NotEmpty(t, restored.PreRestoreBackupID)
	assert.NotEqual(t, created.BackupID, restored.PreRestoreBackupID)

	// The pre-restore snapshot preserves the dataset as it was, including
	// the flow added after the checkpoint.
	resp, raw = doJSON(t, app, http.MethodGet, "/backups/"+restored.PreRestoreBackupID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot models.Backup

	require.NoError(t, json.Unmarshal(raw, &snapshot))
	assert.Equal(t, models.BackupOperationPreRecovery, snapshot.Operation)
	assert.Equal(t, 2, snapshot.FlowCount())
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var health map[string]any

	require.NoError(t, json.Unmarshal(raw, &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, false, health["fallback_mode"])
}

func TestAPIHandlers_Recovery(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, raw := doJSON(t, app, http.MethodPost, "/recovery", web.RecoveryRequest{
		Category: "validation",
		Severity: "medium",
		DryRun:   true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dry struct {
		Plan recovery.Plan `json:"plan"`
	}

	require.NoError(t, json.Unmarshal(raw, &dry))
	assert.Equal(t, recovery.StatusPending, dry.Plan.Status)
	assert.NotEmpty(t, dry.Plan.Actions)

	resp, _ = doJSON(t, app, http.MethodPost, "/recovery", web.RecoveryRequest{
		Category: "validation",
		Severity: "bogus",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
