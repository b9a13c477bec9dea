// Package web provides HTTP handlers and REST API endpoints for BOS dataset
// management.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/bosmethod/bos/pkg/backup"
	"github.com/bosmethod/bos/pkg/models"
	"github.com/bosmethod/bos/pkg/persistence"
	"github.com/bosmethod/bos/pkg/recovery"
	"github.com/bosmethod/bos/pkg/services"
)

type APIHandlers struct {
	datasetService *services.Dataset
	persistence    *persistence.Manager
	backups        *backup.Manager
	recovery       *recovery.Manager
	validator      *validator.Validate
	logger         *slog.Logger
}

func NewAPIHandlers(
	datasetService *services.Dataset,
	persistenceManager *persistence.Manager,
	backups *backup.Manager,
	recoveryManager *recovery.Manager,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		datasetService: datasetService,
		persistence:    persistenceManager,
		backups:        backups,
		recovery:       recoveryManager,
		validator:      validator,
		logger:         slog.With("module", "web"),
	}
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	flows, err := h.datasetService.ListFlows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"flows":       flows,
		"total_count": len(flows),
	})
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.datasetService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flow := models.Flow{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Stages:      []models.Stage{},
	}

	created, err := h.datasetService.Create(c.Context(), flow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req UpdateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.datasetService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	updated, err := h.datasetService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	if err := h.datasetService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ImportData runs the import pipeline against the stored dataset. A clean
// import persists and returns 200. A recovered-only import returns 422 with
// the recovered flows unless the caller opted in with acceptRecovered, and
// an unrecoverable one returns 400. The pre-import backup id is included in
// every outcome that produced one.
func (h *APIHandlers) ImportData(c fiber.Ctx) error {
	var req ImportRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	current, err := h.datasetService.ListFlows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	result := h.persistence.ImportData(c.Context(), req.Data, current)

	switch {
	case result.Success:
		if err := h.datasetService.ReplaceAll(c.Context(), result.Data); err != nil {
			return internalError(c, err)
		}

		return c.JSON(result)

	case len(result.RecoveredData) > 0 && req.AcceptRecovered:
		if err := h.datasetService.ReplaceAll(c.Context(), result.RecoveredData); err != nil {
			return internalError(c, err)
		}

		result.Data = result.RecoveredData
		result.RecoveredData = nil
		result.Success = true

		return c.JSON(result)

	case len(result.RecoveredData) > 0:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)

	default:
		return c.Status(fiber.StatusBadRequest).JSON(result)
	}
}

func (h *APIHandlers) ExportData(c fiber.Ctx) error {
	flows, err := h.datasetService.ListFlows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	body, err := h.persistence.ExportData(flows)
	if err != nil {
		return internalError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	return c.SendString(body)
}

func (h *APIHandlers) GetBackups(c fiber.Ctx) error {
	backups := h.backups.GetAllBackups(c.Context())

	summaries := make([]fiber.Map, 0, len(backups))
	for _, b := range backups {
		summaries = append(summaries, fiber.Map{
			"id":        b.ID,
			"timestamp": b.Timestamp,
			"operation": b.Operation,
			"flowCount": b.FlowCount(),
			"label":     h.backups.FormatBackupInfo(b),
		})
	}

	return c.JSON(fiber.Map{
		"backups":     summaries,
		"total_count": len(summaries),
	})
}

func (h *APIHandlers) GetBackup(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Backup ID is required")
	}

	b := h.backups.GetBackup(c.Context(), id)
	if b == nil {
		return notFound(c, "Backup not found")
	}

	return c.JSON(b)
}

func (h *APIHandlers) CreateBackup(c fiber.Ctx) error {
	var req CreateBackupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if req.Label == "" {
		req.Label = "Manual backup"
	}

	flows, err := h.datasetService.ListFlows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	result := h.backups.CreateBackup(c.Context(), flows, models.BackupOperationManual, req.Label)
	if !result.Success {
		return c.Status(fiber.StatusInternalServerError).JSON(result)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// RestoreBackup replaces the stored dataset with a backup snapshot. The
// current dataset is snapshotted first so a restore is itself reversible.
func (h *APIHandlers) RestoreBackup(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Backup ID is required")
	}

	current, err := h.datasetService.ListFlows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	var preRestoreBackupID string

	if len(current) > 0 {
		pre := h.backups.CreateBackup(c.Context(), current, models.BackupOperationPreRecovery, "Automatic backup before restore")
		if pre.Success {
			preRestoreBackupID = pre.BackupID
		} else {
			h.logger.WarnContext(c.Context(), "Failed to snapshot dataset before restore", "backup_id", id, "error", pre.Error)
		}
	}

	result := h.backups.RestoreFromBackup(c.Context(), id)
	if !result.Success {
		return notFound(c, result.Error)
	}

	if err := h.datasetService.ReplaceAll(c.Context(), result.Data); err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":            result.Success,
		"data":               result.Data,
		"preRestoreBackupId": preRestoreBackupID,
	})
}

func (h *APIHandlers) DeleteBackup(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Backup ID is required")
	}

	result := h.backups.DeleteBackup(c.Context(), id)
	if !result.Success {
		return notFound(c, result.Error)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ClearBackups(c fiber.Ctx) error {
	result := h.backups.ClearAllBackups(c.Context())
	if !result.Success {
		return c.Status(fiber.StatusInternalServerError).JSON(result)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	datasetCheck, datasetOk := h.datasetService.HealthCheck(c.Context())
	storageReport := h.backups.CheckStorageHealth(c.Context())

	status := "unhealthy"
	message := "BOS API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if datasetOk && storageReport.Status != "unavailable" {
		status = "healthy"
		message = "BOS API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"dataset": datasetCheck,
			"storage": storageReport,
		},
		"fallback_mode": h.recovery.InFallbackMode(c.Context()),
		"timestamp":     time.Now().UTC(),
	})
}

// ExecuteRecovery builds a plan for the reported error category and runs it.
// DryRun returns the plan without executing.
func (h *APIHandlers) ExecuteRecovery(c fiber.Ctx) error {
	var req RecoveryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	plan := h.recovery.BuildPlan(req.Category, req.Severity)
	if req.DryRun {
		return c.JSON(fiber.Map{"plan": plan})
	}

	result := h.recovery.ExecutePlan(c.Context(), plan, req.Force)

	return c.JSON(fiber.Map{
		"plan":   plan,
		"result": result,
	})
}

func (h *APIHandlers) ClearFallbackMode(c fiber.Ctx) error {
	if err := h.recovery.ClearFallbackMode(c.Context()); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
