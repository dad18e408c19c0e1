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

const executionsDir = "executions"

// ExecutionRepository handles execution instance file operations.
type ExecutionRepository struct {
	store *store
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.ExecutionInstance, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var execution models.ExecutionInstance

	err := r.store.read(executionsDir, id, &execution)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.NewRecordError("GetByID", "execution", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "execution", id, err)
	}

	return &execution, nil
}

func (r *ExecutionRepository) Save(_ context.Context, execution *models.ExecutionInstance) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now().UTC()
	}

	if err := r.store.write(executionsDir, execution.ID, execution); err != nil {
		return persistence.NewRecordError("Save", "execution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByFlow(_ context.Context, flowID string) ([]*models.ExecutionInstance, error) {
	return r.filter("GetByFlow", func(e *models.ExecutionInstance) bool {
		return e.FlowID == flowID
	})
}

func (r *ExecutionRepository) DueExecutions(_ context.Context, now time.Time) ([]*models.ExecutionInstance, error) {
	due, err := r.filter("DueExecutions", func(e *models.ExecutionInstance) bool {
		return e.IsDue(now)
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].ResumeAt.Before(*due[j].ResumeAt)
	})

	return due, nil
}

func (r *ExecutionRepository) filter(op string, match func(*models.ExecutionInstance) bool) ([]*models.ExecutionInstance, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all, err := readAll[models.ExecutionInstance](r.store, executionsDir)
	if err != nil {
		return nil, persistence.NewRecordError(op, "execution", "", err)
	}

	executions := make([]*models.ExecutionInstance, 0, len(all))

	for _, execution := range all {
		if match(execution) {
			executions = append(executions, execution)
		}
	}

	return executions, nil
}
