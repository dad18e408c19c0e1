// Package poller periodically resumes due executions and fires due campaigns.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/leadflow/pkg/claim"
	"github.com/dukex/leadflow/pkg/eventbus"
	"github.com/dukex/leadflow/pkg/events"
	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/otelhelper"
	"github.com/dukex/leadflow/pkg/persistence"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSchedule is the sweep cadence.
const DefaultSchedule = "@every 30s"

// Driver advances one execution until it parks or finishes.
type Driver interface {
	Drive(ctx context.Context, executionID string) (*models.ExecutionInstance, error)
}

// CampaignFirer fires one due campaign and stores its next run.
type CampaignFirer interface {
	Fire(ctx context.Context, campaign *models.RecurringCampaign) error
}

// Config holds the poller collaborators.
type Config struct {
	Executions persistence.ExecutionRepository
	Campaigns  persistence.CampaignRepository
	Driver     Driver
	Firer      CampaignFirer
	Claimer    claim.Claimer
	Publisher  eventbus.EventPublisher
	Tracer     trace.Tracer

	Schedule string
	ClaimTTL time.Duration
}

// Poller is the external driver of the flow engine: nothing in the engine sleeps, so a
// parked execution only moves when a sweep finds it due.
type Poller struct {
	config Config
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func New(config Config, logger *slog.Logger) (*Poller, error) {
	if config.Schedule == "" {
		config.Schedule = DefaultSchedule
	}

	if _, err := cron.ParseStandard(config.Schedule); err != nil {
		return nil, fmt.Errorf("invalid poll schedule '%s': %w", config.Schedule, err)
	}

	if config.ClaimTTL <= 0 {
		config.ClaimTTL = claim.DefaultTTL
	}

	if config.Tracer == nil {
		config.Tracer = otelhelper.NewNoopTracer()
	}

	return &Poller{
		config: config,
		logger: logger.With("module", "poller"),
		now:    time.Now,
	}, nil
}

// Start schedules the sweeps. Overlapping runs are skipped.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil {
		return nil
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(p.logger.Handler(), slog.LevelWarn))

	p.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	if _, err := p.cron.AddFunc(p.config.Schedule, func() { p.Sweep(ctx) }); err != nil {
		p.cron = nil

		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	p.cron.Start()
	p.logger.InfoContext(ctx, "Poller started", "schedule", p.config.Schedule)

	return nil
}

// Stop waits for a running sweep to finish or ctx to expire.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		p.logger.InfoContext(ctx, "Poller stopped")

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep runs both sweeps once.
func (p *Poller) Sweep(ctx context.Context) {
	if p.config.Executions != nil && p.config.Driver != nil {
		if _, err := p.SweepExecutions(ctx); err != nil {
			p.logger.ErrorContext(ctx, "Execution sweep failed", "error", err)
		}
	}

	if p.config.Campaigns != nil && p.config.Firer != nil {
		if _, err := p.SweepCampaigns(ctx); err != nil {
			p.logger.ErrorContext(ctx, "Campaign sweep failed", "error", err)
		}
	}
}

// SweepExecutions drives every due execution this worker can claim and returns how many
// it drove.
func (p *Poller) SweepExecutions(ctx context.Context) (int, error) {
	due, err := p.config.Executions.DueExecutions(ctx, p.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list due executions: %w", err)
	}

	driven := 0

	for _, execution := range due {
		if err := ctx.Err(); err != nil {
			return driven, err
		}

		if p.driveClaimed(ctx, execution.ID) {
			driven++
		}
	}

	if len(due) > 0 {
		p.logger.InfoContext(ctx, "Execution sweep finished", "due", len(due), "driven", driven)
	}

	return driven, nil
}

func (p *Poller) driveClaimed(ctx context.Context, executionID string) bool {
	logger := p.logger.With("execution_id", executionID)

	lease, err := p.config.Claimer.Acquire(ctx, claim.ExecutionKey(executionID), p.config.ClaimTTL)
	if errors.Is(err, claim.ErrHeld) {
		logger.DebugContext(ctx, "Execution claimed by another worker")

		return false
	}

	if err != nil {
		logger.ErrorContext(ctx, "Failed to claim execution", "error", err)

		return false
	}

	defer func() {
		if err := p.config.Claimer.Release(context.WithoutCancel(ctx), lease); err != nil {
			logger.WarnContext(ctx, "Failed to release execution claim", "error", err)
		}
	}()

	ctx, span := otelhelper.StartSpan(ctx, p.config.Tracer, "poller.drive_execution",
		attribute.String(otelhelper.ExecutionIDKey, executionID))
	defer span.End()

	execution, err := p.config.Driver.Drive(ctx, executionID)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to drive execution", "error", err)
	}

	if execution == nil {
		return false
	}

	p.publishOutcome(ctx, execution)

	return true
}

func (p *Poller) publishOutcome(ctx context.Context, execution *models.ExecutionInstance) {
	if p.config.Publisher == nil {
		return
	}

	event, ok := events.ExecutionOutcome(execution, p.now())
	if !ok {
		return
	}

	if err := p.config.Publisher.Publish(ctx, execution.ID, event); err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish execution outcome",
			"execution_id", execution.ID,
			"event_type", event.GetType(),
			"error", err)
	}
}

// SweepCampaigns fires every due campaign this worker can claim and returns how many
// fired.
func (p *Poller) SweepCampaigns(ctx context.Context) (int, error) {
	due, err := p.config.Campaigns.DueCampaigns(ctx, p.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list due campaigns: %w", err)
	}

	fired := 0

	for _, campaign := range due {
		if err := ctx.Err(); err != nil {
			return fired, err
		}

		if p.fireClaimed(ctx, campaign) {
			fired++
		}
	}

	return fired, nil
}

func (p *Poller) fireClaimed(ctx context.Context, campaign *models.RecurringCampaign) bool {
	logger := p.logger.With("campaign_id", campaign.ID)

	lease, err := p.config.Claimer.Acquire(ctx, claim.CampaignKey(campaign.ID), p.config.ClaimTTL)
	if err != nil {
		if !errors.Is(err, claim.ErrHeld) {
			logger.ErrorContext(ctx, "Failed to claim campaign", "error", err)
		}

		return false
	}

	defer func() {
		if err := p.config.Claimer.Release(context.WithoutCancel(ctx), lease); err != nil {
			logger.WarnContext(ctx, "Failed to release campaign claim", "error", err)
		}
	}()

	ctx, span := otelhelper.StartSpan(ctx, p.config.Tracer, "poller.fire_campaign",
		attribute.String(otelhelper.CampaignIDKey, campaign.ID))
	defer span.End()

	if err := p.config.Firer.Fire(ctx, campaign); err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to fire campaign", "error", err)

		return false
	}

	return true
}
