// Package flow advances execution instances through a flow graph, one node per step.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/leadflow/pkg/log"
	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/otelhelper"
	"github.com/dukex/leadflow/pkg/persistence"
	"github.com/dukex/leadflow/pkg/schedule"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ConditionEvaluator resolves the predicate of a condition node.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, lead *models.Lead, config map[string]any) (bool, error)
}

// ActionRunner performs the operation configured on an action node.
type ActionRunner interface {
	ExecuteConfig(ctx context.Context, lead *models.Lead, config map[string]any) error
}

// LeadLoader reads the lead an execution belongs to.
type LeadLoader interface {
	GetLead(ctx context.Context, id string) (*models.Lead, error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// WithTracer sets the tracer used for step spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithWaitCalculator overrides the wait resume calculator.
func WithWaitCalculator(calc *schedule.Calculator) Option {
	return func(e *Executor) {
		e.waits = calc
	}
}

// Executor is the flow graph state machine. It is stateless between calls: every Step
// reloads the execution, so any process may advance any instance. Callers must
// serialize Steps on the same execution.
type Executor struct {
	flows      persistence.FlowRepository
	executions persistence.ExecutionRepository
	leads      LeadLoader
	conditions ConditionEvaluator
	actions    ActionRunner
	waits      *schedule.Calculator
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

func NewExecutor(
	flows persistence.FlowRepository,
	executions persistence.ExecutionRepository,
	leads LeadLoader,
	conditions ConditionEvaluator,
	actions ActionRunner,
	logger *slog.Logger,
	opts ...Option,
) *Executor {
	e := &Executor{
		flows:      flows,
		executions: executions,
		leads:      leads,
		conditions: conditions,
		actions:    actions,
		waits:      schedule.NewCalculator(schedule.DefaultFieldRecheck),
		tracer:     otelhelper.NewNoopTracer(),
		logger:     logger.With("module", "flow_executor"),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Start creates a pending execution for the lead positioned on the flow's trigger node.
func (e *Executor) Start(ctx context.Context, flowID, leadID string) (*models.ExecutionInstance, error) {
	flow, err := e.flows.GetByID(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow %s: %w", flowID, err)
	}

	trigger, ok := flow.TriggerNode()
	if !ok {
		return nil, fmt.Errorf("flow %s: %w", flowID, ErrNoTrigger)
	}

	now := e.now()
	execution := &models.ExecutionInstance{
		ID:            uuid.NewString(),
		FlowID:        flowID,
		LeadID:        leadID,
		CurrentNodeID: trigger.ID,
		Status:        models.ExecutionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := e.executions.Save(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to save execution: %w", err)
	}

	e.logger.InfoContext(ctx, "Execution started",
		"execution_id", execution.ID,
		"flow_id", flowID,
		"lead_id", leadID)

	return execution, nil
}

// Cancel marks a non-terminal execution as failed. A subsequent Step is a no-op.
func (e *Executor) Cancel(ctx context.Context, executionID, reason string) (*models.ExecutionInstance, error) {
	message := reasonCancelled
	if reason != "" {
		message = reasonCancelled + ": " + reason
	}

	return e.Fail(ctx, executionID, message)
}

// Fail records reason on a non-terminal execution and marks it failed. Terminal
// executions are returned unchanged with ErrExecutionTerminal.
func (e *Executor) Fail(ctx context.Context, executionID, reason string) (*models.ExecutionInstance, error) {
	execution, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status.IsTerminal() {
		return execution, fmt.Errorf("execution %s: %w", executionID, ErrExecutionTerminal)
	}

	return execution, e.fail(ctx, execution, reason)
}

// Step processes exactly one node of the execution and returns its new state.
//
// Node-level failures (bad config, action errors, missing branches) are recorded on the
// execution with status failed and a nil error. Errors are returned only when the
// execution could not be loaded or saved, in which case nothing was advanced.
func (e *Executor) Step(ctx context.Context, executionID string) (*models.ExecutionInstance, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "flow.step",
		attribute.String(otelhelper.ExecutionIDKey, executionID))
	defer span.End()

	execution, err := e.step(ctx, executionID, span)
	if err != nil {
		otelhelper.SetError(span, err)

		return execution, err
	}

	if execution.Status == models.ExecutionStatusFailed {
		span.SetAttributes(attribute.String("leadflow.execution.last_error", execution.LastError))
	}

	return execution, nil
}

func (e *Executor) step(ctx context.Context, executionID string, span trace.Span) (*models.ExecutionInstance, error) {
	execution, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution %s: %w", executionID, err)
	}

	logger := log.FromContext(ctx, e.logger).With(
		"execution_id", execution.ID,
		"flow_id", execution.FlowID,
		"lead_id", execution.LeadID,
	)
	ctx = log.WithLogger(ctx, logger)

	span.SetAttributes(
		attribute.String(otelhelper.FlowIDKey, execution.FlowID),
		attribute.String(otelhelper.LeadIDKey, execution.LeadID),
	)

	// Status is re-checked on every invocation: an external actor may have cancelled
	// the execution since it was scheduled.
	if execution.Status.IsTerminal() {
		logger.DebugContext(ctx, "Execution already finished", "status", execution.Status)

		return execution, nil
	}

	flow, err := e.flows.GetByID(ctx, execution.FlowID)
	if err != nil {
		if persistence.IsFlowNotFound(err) {
			return execution, e.fail(ctx, execution, reasonFlowNotFound)
		}

		return execution, fmt.Errorf("failed to load flow %s: %w", execution.FlowID, err)
	}

	node, ok := flow.Node(execution.CurrentNodeID)
	if !ok {
		return execution, e.fail(ctx, execution, fmt.Sprintf("%s: %s", reasonNodeNotFound, execution.CurrentNodeID))
	}

	span.SetAttributes(
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)

	if execution.Status == models.ExecutionStatusWaiting {
		return execution, e.resume(ctx, flow, execution)
	}

	logger.DebugContext(ctx, "Processing node", "node_id", node.ID, "node_type", node.Type)

	switch node.Type {
	case models.NodeTypeTrigger:
		return execution, e.advance(ctx, flow, execution)

	case models.NodeTypeEnd:
		return execution, e.complete(ctx, execution)

	case models.NodeTypeWait:
		return execution, e.park(ctx, node, execution)

	case models.NodeTypeAction:
		return execution, e.runAction(ctx, flow, node, execution)

	case models.NodeTypeCondition:
		return execution, e.branch(ctx, flow, node, execution)

	default:
		return execution, e.fail(ctx, execution, fmt.Sprintf("unsupported node type %q", node.Type))
	}
}

// resume releases a parked execution once its resume instant has passed, moving it
// past the wait node. Before that instant it is a no-op.
func (e *Executor) resume(ctx context.Context, flow *models.Flow, execution *models.ExecutionInstance) error {
	if execution.ResumeAt == nil {
		return e.fail(ctx, execution, reasonMissingResume)
	}

	if !execution.IsDue(e.now()) {
		log.FromContext(ctx, e.logger).DebugContext(ctx, "Execution not due yet", "resume_at", execution.ResumeAt)

		return nil
	}

	return e.advance(ctx, flow, execution)
}

func (e *Executor) park(ctx context.Context, node *models.FlowNode, execution *models.ExecutionInstance) error {
	config, err := schedule.ParseWaitConfig(node.Config)
	if err != nil {
		return e.failNode(ctx, node, execution, err)
	}

	now := e.now()

	resumeAt, err := e.waits.ResumeAt(config, now)
	if err != nil {
		return e.failNode(ctx, node, execution, err)
	}

	execution.Park(resumeAt, now)

	log.FromContext(ctx, e.logger).InfoContext(ctx, "Execution parked",
		"node_id", node.ID,
		"wait_type", config.Mode,
		"resume_at", resumeAt)

	return e.save(ctx, execution)
}

func (e *Executor) runAction(ctx context.Context, flow *models.Flow, node *models.FlowNode, execution *models.ExecutionInstance) error {
	lead, err := e.loadLead(ctx, execution)
	if lead == nil {
		return err
	}

	if err := e.actions.ExecuteConfig(ctx, lead, node.Config); err != nil {
		return e.failNode(ctx, node, execution, err)
	}

	return e.advance(ctx, flow, execution)
}

func (e *Executor) branch(ctx context.Context, flow *models.Flow, node *models.FlowNode, execution *models.ExecutionInstance) error {
	lead, err := e.loadLead(ctx, execution)
	if lead == nil {
		return err
	}

	result, err := e.conditions.Evaluate(ctx, lead, node.Config)
	if err != nil {
		return e.failNode(ctx, node, execution, err)
	}

	label := models.BranchFor(result)

	target, ok := flow.BranchTarget(node.ID, label)
	if !ok {
		return e.fail(ctx, execution, fmt.Sprintf("%s %q at node %s", reasonNoBranchPrefix, label, node.ID))
	}

	log.FromContext(ctx, e.logger).InfoContext(ctx, "Condition evaluated",
		"node_id", node.ID,
		"result", result,
		"next_node_id", target)

	execution.MoveTo(target, e.now())

	return e.save(ctx, execution)
}

// advance follows the first edge leaving the current node. A node without an outgoing
// edge completes the execution.
func (e *Executor) advance(ctx context.Context, flow *models.Flow, execution *models.ExecutionInstance) error {
	target, ok := flow.NextNodeID(execution.CurrentNodeID)
	if !ok {
		return e.complete(ctx, execution)
	}

	execution.MoveTo(target, e.now())

	return e.save(ctx, execution)
}

func (e *Executor) complete(ctx context.Context, execution *models.ExecutionInstance) error {
	execution.Complete(e.now())

	log.FromContext(ctx, e.logger).InfoContext(ctx, "Execution completed")

	return e.save(ctx, execution)
}

// loadLead returns the execution's lead. When it returns nil the caller must stop and
// return the accompanying error; a missing lead has already failed the execution.
func (e *Executor) loadLead(ctx context.Context, execution *models.ExecutionInstance) (*models.Lead, error) {
	lead, err := e.leads.GetLead(ctx, execution.LeadID)
	if err == nil {
		return lead, nil
	}

	if persistence.IsLeadNotFound(err) {
		return nil, e.fail(ctx, execution, reasonLeadNotFound)
	}

	return nil, fmt.Errorf("failed to load lead %s: %w", execution.LeadID, err)
}

func (e *Executor) failNode(ctx context.Context, node *models.FlowNode, execution *models.ExecutionInstance, cause error) error {
	var cfgErr *models.ConfigurationError
	if errors.As(cause, &cfgErr) && cfgErr.NodeID == "" {
		cfgErr.NodeID = node.ID
	}

	return e.fail(ctx, execution, cause.Error())
}

func (e *Executor) fail(ctx context.Context, execution *models.ExecutionInstance, reason string) error {
	execution.Fail(reason, e.now())

	log.FromContext(ctx, e.logger).WarnContext(ctx, "Execution failed",
		"node_id", execution.CurrentNodeID,
		"error", reason)

	return e.save(ctx, execution)
}

func (e *Executor) save(ctx context.Context, execution *models.ExecutionInstance) error {
	if err := e.executions.Save(ctx, execution); err != nil {
		return fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	return nil
}
