package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/persistence"
)

// ExecutionRepository handles execution instance database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id
  , flow_id
  , lead_id
  , current_node_id
  , status
  , resume_at
  , last_error
  , created_at
  , updated_at
  , completed_at
`

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.ExecutionInstance, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+executionColumns+" FROM executions WHERE id = $1", id)

	execution, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRecordError("GetByID", "execution", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "execution", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) Save(ctx context.Context, execution *models.ExecutionInstance) error {
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO executions (id, flow_id, lead_id, current_node_id, status, resume_at,
			last_error, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			current_node_id = EXCLUDED.current_node_id,
			status = EXCLUDED.status,
			resume_at = EXCLUDED.resume_at,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.FlowID,
		execution.LeadID,
		execution.CurrentNodeID,
		string(execution.Status),
		nullTime(execution.ResumeAt),
		nullString(execution.LastError),
		execution.CreatedAt.UTC(),
		execution.UpdatedAt.UTC(),
		nullTime(execution.CompletedAt),
	)
	if err != nil {
		return persistence.NewRecordError("Save", "execution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByFlow(ctx context.Context, flowID string) ([]*models.ExecutionInstance, error) {
	return r.query(ctx, "GetByFlow",
		"SELECT "+executionColumns+" FROM executions WHERE flow_id = $1 ORDER BY created_at", flowID)
}

// DueExecutions returns waiting instances whose resume instant is at or before now,
// earliest first.
func (r *ExecutionRepository) DueExecutions(ctx context.Context, now time.Time) ([]*models.ExecutionInstance, error) {
	return r.query(ctx, "DueExecutions",
		"SELECT "+executionColumns+` FROM executions
		WHERE status = 'waiting' AND resume_at IS NOT NULL AND resume_at <= $1
		ORDER BY resume_at`, now.UTC())
}

func (r *ExecutionRepository) query(ctx context.Context, op, query string, args ...any) ([]*models.ExecutionInstance, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewRecordError(op, "execution", "", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.ExecutionInstance, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewRecordError(op, "execution", "", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRecordError(op, "execution", "", err)
	}

	return executions, nil
}

func scanExecution(row scanner) (*models.ExecutionInstance, error) {
	var (
		execution   models.ExecutionInstance
		status      string
		resumeAt    sql.NullTime
		lastError   sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.FlowID,
		&execution.LeadID,
		&execution.CurrentNodeID,
		&status,
		&resumeAt,
		&lastError,
		&execution.CreatedAt,
		&execution.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)
	execution.ResumeAt = timePtr(resumeAt)
	execution.LastError = lastError.String
	execution.CompletedAt = timePtr(completedAt)

	return &execution, nil
}
