package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/leadflow/pkg/models"
)

// DefaultMaxSteps bounds how many nodes a single Drive call may process.
const DefaultMaxSteps = 100

// Runner is the caller-side loop that invokes Step until an execution parks or finishes.
type Runner struct {
	executor *Executor
	maxSteps int
	logger   *slog.Logger
}

func NewRunner(executor *Executor, maxSteps int, logger *slog.Logger) *Runner {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	return &Runner{
		executor: executor,
		maxSteps: maxSteps,
		logger:   logger.With("module", "flow_runner"),
	}
}

// Drive steps the execution until it is waiting, completed or failed. Each iteration is
// a separate Step, so a crash between iterations leaves a resumable instance. An
// execution that exceeds the step budget is failed.
func (r *Runner) Drive(ctx context.Context, executionID string) (*models.ExecutionInstance, error) {
	for range r.maxSteps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		execution, err := r.executor.Step(ctx, executionID)
		if err != nil {
			return execution, err
		}

		if execution.Status.IsTerminal() || execution.Status == models.ExecutionStatusWaiting {
			return execution, nil
		}
	}

	r.logger.WarnContext(ctx, "Execution exceeded step limit",
		"execution_id", executionID,
		"max_steps", r.maxSteps)

	reason := fmt.Sprintf("%s: %d", ErrStepLimit.Error(), r.maxSteps)

	execution, err := r.executor.Fail(ctx, executionID, reason)
	if errors.Is(err, ErrExecutionTerminal) {
		return execution, nil
	}

	if err != nil {
		return execution, err
	}

	return execution, fmt.Errorf("execution %s: %w", executionID, ErrStepLimit)
}

// StartAndDrive fires the trigger for a lead and drives the new execution.
func (r *Runner) StartAndDrive(ctx context.Context, flowID, leadID string) (*models.ExecutionInstance, error) {
	execution, err := r.executor.Start(ctx, flowID, leadID)
	if err != nil {
		return nil, err
	}

	return r.Drive(ctx, execution.ID)
}
