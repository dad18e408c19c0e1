package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dukex/leadflow/pkg/cmd"
	"github.com/dukex/leadflow/pkg/log"
	"github.com/dukex/leadflow/pkg/validation"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("leadflow-validate")

	command := &cli.Command{
		Name:                  "leadflow-validate",
		Usage:                 "Confirm a list of phone numbers against the messaging registry",
		ArgsUsage:             "[file]",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "registry-url",
				Usage:    "Base URL of the messaging registry",
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
				Name:  "regional",
				Usage: "Require +-prefixed Latin-American numbers",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Numbers per registry call",
				Value: validation.DefaultBatchSize,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, json)",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			input, err := readInput(command.Args().First())
			if err != nil {
				return err
			}

			pipeline := cmd.NewValidationPipeline(cmd.ValidationConfig{
				RegistryURL:      command.String("registry-url"),
				RegistryInstance: command.String("registry-instance"),
				RegistryAPIKey:   command.String("registry-api-key"),
				RegistryTimeout:  command.Duration("registry-timeout"),
				CountryCode:      command.String("country-code"),
				Regional:         command.Bool("regional"),
				BatchSize:        command.Int("batch-size"),
			}, nil, logger)

			report, err := pipeline.ValidateText(ctx, input)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			return printReport(os.Stdout, report, command.String("format"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readInput reads the named file, or stdin when the name is empty or "-".
func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}

		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return string(data), nil
}
