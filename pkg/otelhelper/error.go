package otelhelper

import (
	"github.com/dukex/leadflow/pkg/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks the span failed and records the error kind next to attrs.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}

	attrs = append(attrs, attribute.String(ErrorKindKey, errorKind(err)))

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}

func errorKind(err error) string {
	switch {
	case models.IsConfigurationError(err):
		return "configuration"
	case models.IsValidationError(err):
		return "validation"
	case models.IsTimeout(err):
		return "timeout"
	case models.IsTransport(err):
		return "transport"
	default:
		return "internal"
	}
}
