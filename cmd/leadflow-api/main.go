package main

import (
	"context"
	"os"
	"time"

	"github.com/dukex/leadflow/pkg/cmd"
	"github.com/dukex/leadflow/pkg/log"
	"github.com/dukex/leadflow/pkg/otelhelper"
	"github.com/dukex/leadflow/pkg/schedule"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("leadflow-api")

	command := &cli.Command{
		Name:                  "leadflow-api",
		Usage:                 "Manage flows, leads and campaigns over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
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
				Name:     "registry-url",
				Usage:    "Base URL of the messaging registry used to confirm numbers",
				Required: true,
				Sources:  cli.EnvVars("REGISTRY_URL"),
			},
			&cli.StringFlag{
				Name:    "registry-instance",
				Usage:   "Registry instance name",
				Value:   "default",
				Sources: cli.EnvVars("REGISTRY_INSTANCE"),
			},
			&cli.StringFlag{
				Name:    "registry-api-key",
				Usage:   "Registry API key",
				Sources: cli.EnvVars("REGISTRY_API_KEY"),
			},
			&cli.DurationFlag{
				Name:    "registry-timeout",
				Usage:   "Timeout of a single registry call",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("REGISTRY_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "country-code",
				Usage:   "Default country code prepended to national numbers",
				Value:   "55",
				Sources: cli.EnvVars("COUNTRY_CODE"),
			},
			&cli.BoolFlag{
				Name:    "regional",
				Usage:   "Require +-prefixed Latin-American numbers",
				Sources: cli.EnvVars("REGIONAL_NUMBERS"),
			},
			&cli.IntFlag{
				Name:    "max-steps",
				Usage:   "Maximum steps a synchronous trigger may run",
				Value:   0,
				Sources: cli.EnvVars("MAX_STEPS"),
			},
			&cli.StringFlag{
				Name:    "flows-file",
				Usage:   "YAML file with flow definitions stored at startup",
				Sources: cli.EnvVars("FLOWS_FILE"),
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

			logger.InfoContext(ctx, "Initializing Leadflow API")

			tracer, shutdown, err := otelhelper.Setup(ctx, "leadflow-api", command.Bool("tracing"))
			if err != nil {
				return err
			}

			defer func() {
				err := shutdown(context.WithoutCancel(ctx))
				if err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), command.StringSlice("kafka-brokers"), "leadflow-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			engine := cmd.NewEngine(persistence, eventBus, tracer, cmd.EngineConfig{
				MaxSteps:     command.Int("max-steps"),
				FieldRecheck: command.Duration("field-recheck"),
			}, logger)

			if path := command.String("flows-file"); path != "" {
				if err := cmd.SeedFlows(ctx, logger, engine.Flow, path); err != nil {
					return err
				}
			}

			pipeline := cmd.NewValidationPipeline(cmd.ValidationConfig{
				RegistryURL:      command.String("registry-url"),
				RegistryInstance: command.String("registry-instance"),
				RegistryAPIKey:   command.String("registry-api-key"),
				RegistryTimeout:  command.Duration("registry-timeout"),
				CountryCode:      command.String("country-code"),
				Regional:         command.Bool("regional"),
			}, tracer, logger)

			api := NewAPI(logger, engine, pipeline)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
