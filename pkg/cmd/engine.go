package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/leadflow/pkg/actions"
	"github.com/dukex/leadflow/pkg/conditions"
	"github.com/dukex/leadflow/pkg/config"
	"github.com/dukex/leadflow/pkg/dispatch"
	"github.com/dukex/leadflow/pkg/eventbus"
	"github.com/dukex/leadflow/pkg/flow"
	"github.com/dukex/leadflow/pkg/persistence"
	"github.com/dukex/leadflow/pkg/schedule"
	"github.com/dukex/leadflow/pkg/services"
	"go.opentelemetry.io/otel/trace"
)

// EngineConfig tunes the flow engine.
type EngineConfig struct {
	// MaxSteps bounds one drive of an execution. Zero uses flow.DefaultMaxSteps.
	MaxSteps int
	// FieldRecheck is the until_field wait horizon. Zero uses schedule.DefaultFieldRecheck.
	FieldRecheck time.Duration
}

// Engine bundles the flow executor, its runner and the services built on them.
type Engine struct {
	Executor  *flow.Executor
	Runner    *flow.Runner
	Flow      *services.Flow
	Execution *services.Execution
	Campaign  *services.Campaign
	Lead      *services.Lead
}

// NewEngine wires the flow engine to persistence. Message actions are published on the
// event bus as dispatch requests.
func NewEngine(
	p persistence.Persistence,
	bus eventbus.EventBus,
	tracer trace.Tracer,
	config EngineConfig,
	logger *slog.Logger,
) *Engine {
	leads := p.LeadRepository()

	executor := flow.NewExecutor(
		p.FlowRepository(),
		p.ExecutionRepository(),
		leads,
		conditions.NewEvaluator(leads, logger),
		actions.NewExecutor(leads, dispatch.NewEventChannel(bus, logger), logger),
		logger,
		flow.WithTracer(tracer),
		flow.WithWaitCalculator(schedule.NewCalculator(config.FieldRecheck)),
	)

	runner := flow.NewRunner(executor, config.MaxSteps, logger)

	return &Engine{
		Executor:  executor,
		Runner:    runner,
		Flow:      services.NewFlow(p),
		Execution: services.NewExecution(executor, runner, p, bus, logger),
		Campaign:  services.NewCampaign(p.CampaignRepository(), bus, schedule.NewRecurrence(nil), logger),
		Lead:      services.NewLead(leads),
	}
}

// SeedFlows stores the flows defined in a YAML file. Flows with an existing id are
// replaced.
func SeedFlows(ctx context.Context, logger *slog.Logger, flows *services.Flow, path string) error {
	definitions, err := config.LoadFlows(path)
	if err != nil {
		return err
	}

	for _, definition := range definitions {
		if _, err := flows.Save(ctx, definition); err != nil {
			return fmt.Errorf("failed to seed flow %s: %w", definition.ID, err)
		}
	}

	logger.InfoContext(ctx, "Seeded flows", "path", path, "count", len(definitions))

	return nil
}
