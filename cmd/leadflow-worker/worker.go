package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/leadflow/pkg/claim"
	"github.com/dukex/leadflow/pkg/cmd"
	"github.com/dukex/leadflow/pkg/eventbus"
	"github.com/dukex/leadflow/pkg/events"
	"github.com/dukex/leadflow/pkg/persistence"
	"github.com/dukex/leadflow/pkg/poller"
	"go.opentelemetry.io/otel/trace"
)

const shutdownTimeout = 30 * time.Second

type WorkerConfig struct {
	Schedule     string
	ClaimTTL     time.Duration
	MaxSteps     int
	FieldRecheck time.Duration
}

type WorkerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	engine      *cmd.Engine
	poller      *poller.Poller
}

func NewWorkerManager(
	id string,
	config WorkerConfig,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	claimer claim.Claimer,
	tracer trace.Tracer,
	logger *slog.Logger,
) (*WorkerManager, error) {
	logger = logger.With("module", "leadflow-worker", "worker_id", id)

	engine := cmd.NewEngine(persistence, eventBus, tracer, cmd.EngineConfig{
		MaxSteps:     config.MaxSteps,
		FieldRecheck: config.FieldRecheck,
	}, logger)

	sweeper, err := poller.New(poller.Config{
		Executions: persistence.ExecutionRepository(),
		Campaigns:  persistence.CampaignRepository(),
		Driver:     engine.Runner,
		Firer:      engine.Campaign,
		Claimer:    claimer,
		Publisher:  eventBus,
		Tracer:     tracer,
		Schedule:   config.Schedule,
		ClaimTTL:   config.ClaimTTL,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &WorkerManager{
		id:          id,
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		engine:      engine,
		poller:      sweeper,
	}, nil
}

// Start registers the event handlers, subscribes and schedules the sweeps.
func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	err := w.eventBus.Handle(events.LeadTriggeredEvent, w.engine.Execution.HandleLeadTriggered)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	err = w.poller.Start(ctx)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	return nil
}

// Run starts the worker and blocks until ctx is cancelled.
func (w *WorkerManager) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	w.logger.InfoContext(ctx, "Shutting down worker...")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	return w.Stop(stopCtx)
}

// Stop waits for an in-flight sweep to finish.
func (w *WorkerManager) Stop(ctx context.Context) error {
	return w.poller.Stop(ctx)
}
