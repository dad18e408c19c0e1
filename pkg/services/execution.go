package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/leadflow/pkg/eventbus"
	"github.com/dukex/leadflow/pkg/events"
	"github.com/dukex/leadflow/pkg/flow"
	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/persistence"
)

var (
	// ErrExecutionNotFound is returned when an execution is not found.
	ErrExecutionNotFound = persistence.ErrExecutionNotFound
)

// Execution starts, inspects and cancels flow executions.
type Execution struct {
	executor   *flow.Executor
	runner     *flow.Runner
	executions persistence.ExecutionRepository
	leads      persistence.LeadRepository
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewExecution(
	executor *flow.Executor,
	runner *flow.Runner,
	p persistence.Persistence,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Execution {
	return &Execution{
		executor:   executor,
		runner:     runner,
		executions: p.ExecutionRepository(),
		leads:      p.LeadRepository(),
		publisher:  publisher,
		logger:     logger.With("module", "execution_service"),
		now:        time.Now,
	}
}

// Trigger starts the lead on the flow and drives it until it parks or finishes.
func (s *Execution) Trigger(ctx context.Context, flowID, leadID string) (*models.ExecutionInstance, error) {
	if _, err := s.leads.GetLead(ctx, leadID); err != nil {
		return nil, err
	}

	execution, err := s.runner.StartAndDrive(ctx, flowID, leadID)
	if err != nil && execution == nil {
		return nil, err
	}

	s.publishOutcome(ctx, execution)

	return execution, err
}

// Enqueue publishes lead.triggered so a worker starts the execution.
func (s *Execution) Enqueue(ctx context.Context, flowID, leadID string) error {
	if _, err := s.leads.GetLead(ctx, leadID); err != nil {
		return err
	}

	event := events.LeadTriggered{
		BaseEvent: events.NewBaseEvent(events.LeadTriggeredEvent, s.now()),
		FlowID:    flowID,
		LeadID:    leadID,
	}

	if err := s.publisher.Publish(ctx, leadID, event); err != nil {
		return fmt.Errorf("failed to publish lead triggered: %w", err)
	}

	return nil
}

// HandleLeadTriggered is the event bus handler for lead.triggered.
func (s *Execution) HandleLeadTriggered(ctx context.Context, event any) error {
	triggered, ok := event.(*events.LeadTriggered)
	if !ok {
		return fmt.Errorf("%w: unexpected event %T", ErrInvalidRequest, event)
	}

	execution, err := s.Trigger(ctx, triggered.FlowID, triggered.LeadID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to start triggered execution",
			"flow_id", triggered.FlowID,
			"lead_id", triggered.LeadID,
			"error", err)

		// Missing flows or leads will never succeed on redelivery.
		if persistence.IsNotFound(err) {
			return nil
		}

		return err
	}

	s.logger.InfoContext(ctx, "Triggered execution driven",
		"execution_id", execution.ID,
		"status", execution.Status)

	return nil
}

func (s *Execution) FetchByID(ctx context.Context, id string) (*models.ExecutionInstance, error) {
	return s.executions.GetByID(ctx, id)
}

func (s *Execution) ListByFlow(ctx context.Context, flowID string) ([]*models.ExecutionInstance, error) {
	return s.executions.GetByFlow(ctx, flowID)
}

// Cancel fails a live execution with the given reason.
func (s *Execution) Cancel(ctx context.Context, id, reason string) (*models.ExecutionInstance, error) {
	execution, err := s.executor.Cancel(ctx, id, reason)
	if err != nil {
		return execution, err
	}

	s.publishOutcome(ctx, execution)

	return execution, nil
}

func (s *Execution) publishOutcome(ctx context.Context, execution *models.ExecutionInstance) {
	if s.publisher == nil || execution == nil {
		return
	}

	event, ok := events.ExecutionOutcome(execution, s.now())
	if !ok {
		return
	}

	if err := s.publisher.Publish(ctx, execution.ID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish execution outcome",
			"execution_id", execution.ID,
			"error", err)
	}
}
