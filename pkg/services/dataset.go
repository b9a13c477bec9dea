package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/bosmethod/bos/pkg/identifier"
	"github.com/bosmethod/bos/pkg/models"
	"github.com/bosmethod/bos/pkg/persistence"
)

// Dataset exposes flow-level operations over the single stored dataset.
// The dataset lives in one storage slot, so every mutation is a
// load-modify-save cycle serialized by a mutex.
type Dataset struct {
	persistence *persistence.Manager
	validate    *validator.Validate

	mu sync.Mutex
}

// NewDataset creates a new dataset service.
func NewDataset(p *persistence.Manager) *Dataset {
	return &Dataset{
		persistence: p,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HealthCheck checks the health of the persistence layer.
func (d *Dataset) HealthCheck(ctx context.Context) (string, bool) {
	if d.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if _, err := d.persistence.LoadData(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListFlows returns every flow in the stored dataset.
func (d *Dataset) ListFlows(ctx context.Context) ([]models.Flow, error) {
	flows, err := d.persistence.LoadData(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	if flows == nil {
		flows = []models.Flow{}
	}

	return flows, nil
}

// FetchByID retrieves a flow by its ID.
func (d *Dataset) FetchByID(ctx context.Context, id string) (models.Flow, error) {
	flows, err := d.persistence.LoadData(ctx)
	if err != nil {
		return models.Flow{}, fmt.Errorf("failed to load flows: %w", err)
	}

	for _, flow := range flows {
		if flow.ID == id {
			return flow, nil
		}
	}

	return models.Flow{}, ErrFlowNotFound
}

// Create adds a new flow to the dataset. A missing ID is generated; stages
// default to an empty list so downstream consumers never see nil.
func (d *Dataset) Create(ctx context.Context, flow models.Flow) (models.Flow, error) {
	if err := d.validateFlow("Create", &flow); err != nil {
		return models.Flow{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	flows, err := d.persistence.LoadData(ctx)
	if err != nil {
		return models.Flow{}, fmt.Errorf("failed to load flows: %w", err)
	}

	if flow.ID == "" {
		flow.ID = identifier.New("flow")
	}

	for _, existing := range flows {
		if existing.ID == flow.ID {
			return models.Flow{}, &ServiceError{
				Op:      "Create",
				Message: fmt.Sprintf("flow %q already exists", flow.ID),
				Err:     ErrFlowIDTaken,
			}
		}
	}

	flows = append(flows, flow)

	if !d.persistence.SaveData(ctx, flows) {
		return models.Flow{}, ErrStorageFailed
	}

	return flow, nil
}

// Update modifies an existing flow by its ID.
func (d *Dataset) Update(ctx context.Context, id string, flow models.Flow) (models.Flow, error) {
	if err := d.validateFlow("Update", &flow); err != nil {
		return models.Flow{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	flows, err := d.persistence.LoadData(ctx)
	if err != nil {
		return models.Flow{}, fmt.Errorf("failed to load flows: %w", err)
	}

	for i, existing := range flows {
		if existing.ID != id {
			continue
		}

		flow.ID = id
		flows[i] = flow

		if !d.persistence.SaveData(ctx, flows) {
			return models.Flow{}, ErrStorageFailed
		}

		return flow, nil
	}

	return models.Flow{}, ErrFlowNotFound
}

// Delete removes a flow by its ID. The last remaining flow cannot be
// deleted; consumers always have at least one flow to render.
func (d *Dataset) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	flows, err := d.persistence.LoadData(ctx)
	if err != nil {
		return fmt.Errorf("failed to load flows: %w", err)
	}

	index := -1

	for i, existing := range flows {
		if existing.ID == id {
			index = i

			break
		}
	}

	if index == -1 {
		return ErrFlowNotFound
	}

	if len(flows) == 1 {
		return &ServiceError{
			Op:      "Delete",
			Message: "at least one flow must remain",
			Err:     ErrLastFlow,
		}
	}

	flows = append(flows[:index], flows[index+1:]...)

	if !d.persistence.SaveData(ctx, flows) {
		return ErrStorageFailed
	}

	return nil
}

// ReplaceAll swaps the entire dataset, typically after an accepted import.
func (d *Dataset) ReplaceAll(ctx context.Context, flows []models.Flow) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.persistence.SaveData(ctx, flows) {
		return ErrStorageFailed
	}

	return nil
}

func (d *Dataset) validateFlow(op string, flow *models.Flow) error {
	flow.Name = strings.TrimSpace(flow.Name)
	if flow.Name == "" {
		return &ServiceError{
			Op:      op,
			Message: "flow name is required",
			Err:     ErrFlowNameRequired,
		}
	}

	if flow.Stages == nil {
		flow.Stages = []models.Stage{}
	}

	if err := d.validate.Struct(flow); err != nil {
		return &ServiceError{Op: op, Message: err.Error(), Err: ErrInvalidRequest}
	}

	return nil
}
