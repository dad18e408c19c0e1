package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/leadflow/pkg/claim"
	"github.com/dukex/leadflow/pkg/cmd"
	"github.com/dukex/leadflow/pkg/log"
	"github.com/dukex/leadflow/pkg/otelhelper"
	"github.com/dukex/leadflow/pkg/poller"
	"github.com/dukex/leadflow/pkg/schedule"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "leadflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Start triggered executions and resume due executions and campaigns",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka broker addresses",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for claims shared between workers",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "poll-schedule",
				Usage:   "Cron expression of the due executions and campaigns sweep",
				Value:   poller.DefaultSchedule,
				Sources: cli.EnvVars("POLL_SCHEDULE"),
			},
			&cli.DurationFlag{
				Name:    "claim-ttl",
				Usage:   "Lifetime of an execution or campaign claim",
				Value:   claim.DefaultTTL,
				Sources: cli.EnvVars("CLAIM_TTL"),
			},
			&cli.IntFlag{
				Name:    "max-steps",
				Usage:   "Maximum steps driven per execution in one pass",
				Value:   0,
				Sources: cli.EnvVars("MAX_STEPS"),
			},
			&cli.DurationFlag{
				Name:    "field-recheck",
				Usage:   "How long an until_field wait parks before it is checked again",
				Value:   schedule.DefaultFieldRecheck,
				Sources: cli.EnvVars("FIELD_RECHECK"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("leadflow-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Leadflow Worker")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tracer, shutdown, err := otelhelper.Setup(ctx, "leadflow-worker", command.Bool("tracing"))
			if err != nil {
				return err
			}

			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()

				if err := shutdown(shutdownCtx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), command.StringSlice("kafka-brokers"), "leadflow-worker", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(context.WithoutCancel(ctx))
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			worker, err := NewWorkerManager(
				workerID,
				WorkerConfig{
					Schedule:     command.String("poll-schedule"),
					ClaimTTL:     command.Duration("claim-ttl"),
					MaxSteps:     command.Int("max-steps"),
					FieldRecheck: command.Duration("field-recheck"),
				},
				persistence,
				eventBus,
				cmd.NewClaimer(ctx, logger, command.String("redis-url")),
				tracer,
				logger,
			)
			if err != nil {
				return err
			}

			err = worker.Run(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Worker stopped with error", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
