package cmd

import (
	"log/slog"
	"time"

	"github.com/dukex/leadflow/pkg/validation"
	"go.opentelemetry.io/otel/trace"
)

// ValidationConfig selects the normalizer and the registry endpoint of a pipeline.
type ValidationConfig struct {
	RegistryURL      string
	RegistryInstance string
	RegistryAPIKey   string
	RegistryTimeout  time.Duration
	CountryCode      string
	// Regional switches to the "+"-prefixed Latin-American normalizer.
	Regional  bool
	BatchSize int
}

// NewValidationPipeline builds the number validation pipeline against the HTTP registry.
func NewValidationPipeline(config ValidationConfig, tracer trace.Tracer, logger *slog.Logger) *validation.Pipeline {
	var normalizer validation.Normalizer = validation.NewPrimaryNormalizer(config.CountryCode)
	if config.Regional {
		normalizer = validation.NewRegionalNormalizer(nil)
	}

	registry := validation.NewHTTPRegistry(
		config.RegistryURL,
		config.RegistryInstance,
		config.RegistryAPIKey,
		validation.WithTimeout(config.RegistryTimeout),
	)

	return validation.NewPipeline(normalizer, registry, logger,
		validation.WithBatchSize(config.BatchSize),
		validation.WithTracer(tracer),
	)
}
