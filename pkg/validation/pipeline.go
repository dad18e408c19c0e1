package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Report is the outcome of a validation run. Every input contact lands in exactly
// one bucket.
type Report struct {
	Confirmed  []models.ReconciledResult `json:"confirmed"`
	Rejected   []models.ReconciledResult `json:"rejected"`
	Invalid    []models.Contact          `json:"invalid"`
	Duplicates []models.Contact          `json:"duplicates"`
	// Degraded is set when the registry could not check some batches and their
	// contacts were accepted without confirmation.
	Degraded      bool `json:"degraded"`
	RegistryCalls int  `json:"registry_calls"`
}

// Total is the number of contacts accounted for.
func (r *Report) Total() int {
	return len(r.Confirmed) + len(r.Rejected) + len(r.Invalid) + len(r.Duplicates)
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithBatchSize sets the maximum numbers per registry call.
func WithBatchSize(size int) PipelineOption {
	return func(p *Pipeline) {
		if size > 0 {
			p.batchSize = size
		}
	}
}

// WithTracer sets the tracer used for batch spans.
func WithTracer(tracer trace.Tracer) PipelineOption {
	return func(p *Pipeline) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// Pipeline normalizes, deduplicates and confirms contacts against a registry.
type Pipeline struct {
	normalizer Normalizer
	registry   Registry
	batchSize  int
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewPipeline(normalizer Normalizer, registry Registry, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		normalizer: normalizer,
		registry:   registry,
		batchSize:  DefaultBatchSize,
		tracer:     otelhelper.NewNoopTracer(),
		logger:     logger.With("module", "validation_pipeline"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ValidateText parses free text into contacts and validates them.
func (p *Pipeline) ValidateText(ctx context.Context, input string) (*Report, error) {
	return p.Validate(ctx, ParseContacts(input))
}

// Validate runs the contacts through normalization and the registry. Batches are
// checked sequentially. ErrMethodNotSupported accepts the remaining batches without
// confirmation; any other registry error aborts the run.
func (p *Pipeline) Validate(ctx context.Context, contacts []models.Contact) (*Report, error) {
	normalized := make([]models.Contact, len(contacts))
	for i, contact := range contacts {
		normalized[i] = Normalize(p.normalizer, contact)
	}

	unique, invalid, duplicates := Partition(normalized)

	report := &Report{
		Invalid:    invalid,
		Duplicates: duplicates,
	}

	batches := Batches(unique, p.batchSize)

	p.logger.InfoContext(ctx, "Validating contacts",
		"total", len(contacts),
		"unique", len(unique),
		"invalid", len(invalid),
		"duplicates", len(duplicates),
		"batches", len(batches))

	for i, batch := range batches {
		if report.Degraded {
			report.addResults(acceptUnchecked(batch))

			continue
		}

		results, err := p.checkBatch(ctx, batch)
		report.RegistryCalls++

		if errors.Is(err, models.ErrMethodNotSupported) {
			p.logger.WarnContext(ctx, "Registry existence check not supported, accepting contacts without confirmation",
				"batch", i,
				"remaining", countContacts(batches[i:]),
				"error", err)

			report.Degraded = true
			report.addResults(acceptUnchecked(batch))

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("registry check failed on batch %d of %d: %w", i+1, len(batches), err)
		}

		report.addResults(results)
	}

	p.logger.InfoContext(ctx, "Validation finished",
		"confirmed", len(report.Confirmed),
		"rejected", len(report.Rejected),
		"degraded", report.Degraded)

	return report, nil
}

func (p *Pipeline) checkBatch(ctx context.Context, batch []models.Contact) ([]models.ReconciledResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "validation.check_batch",
		attribute.Int(otelhelper.BatchSizeKey, len(batch)))
	defer span.End()

	numbers := make([]string, len(batch))
	for i, contact := range batch {
		numbers[i] = contact.NormalizedPhone
	}

	records, err := p.registry.Check(ctx, numbers)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return Reconcile(batch, records), nil
}

func (r *Report) addResults(results []models.ReconciledResult) {
	for _, result := range results {
		if result.Confirmed {
			r.Confirmed = append(r.Confirmed, result)
		} else {
			r.Rejected = append(r.Rejected, result)
		}
	}
}

func acceptUnchecked(batch []models.Contact) []models.ReconciledResult {
	results := make([]models.ReconciledResult, len(batch))
	for i, contact := range batch {
		results[i] = models.ReconciledResult{
			Contact:   contact,
			Confirmed: true,
			Reason:    ReasonCheckSkipped,
		}
	}

	return results
}

func countContacts(batches [][]models.Contact) int {
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}

	return total
}
