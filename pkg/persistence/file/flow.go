package file

import (
	"context"
	"errors"
	"os"
	"sort"
	"time"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/persistence"
)

const flowsDir = "flows"

// FlowRepository handles flow-related file operations.
type FlowRepository struct {
	store *store
}

// GetAll returns every flow ordered by creation time.
func (r *FlowRepository) GetAll(_ context.Context) ([]*models.Flow, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	flows, err := readAll[models.Flow](r.store, flowsDir)
	if err != nil {
		return nil, persistence.NewRecordError("GetAll", "flow", "", err)
	}

	sort.Slice(flows, func(i, j int) bool {
		return flows[i].CreatedAt.Before(flows[j].CreatedAt)
	})

	return flows, nil
}

func (r *FlowRepository) GetByID(_ context.Context, id string) (*models.Flow, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var flow models.Flow

	err := r.store.read(flowsDir, id, &flow)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.NewRecordError("GetByID", "flow", id, persistence.ErrFlowNotFound)
	}

	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "flow", id, err)
	}

	return &flow, nil
}

func (r *FlowRepository) Save(_ context.Context, flow *models.Flow) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	if err := r.store.write(flowsDir, flow.ID, flow); err != nil {
		return persistence.NewRecordError("Save", "flow", flow.ID, err)
	}

	return nil
}

func (r *FlowRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.store.remove(flowsDir, id); err != nil {
		return persistence.NewRecordError("Delete", "flow", id, err)
	}

	return nil
}
