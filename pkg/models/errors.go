package models

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates a node config is missing or has an invalid required field.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation indicates malformed input, such as an unparsable phone string.
	ErrValidation = errors.New("validation error")

	// ErrExternalService indicates a registry or dispatch-channel call failed.
	ErrExternalService = errors.New("external service error")

	// ErrMethodNotSupported is reported by the registry when the existence check is
	// unavailable on the channel. It is the only error that triggers degrade-open.
	ErrMethodNotSupported = errors.New("method not supported by registry")
)

// ConfigurationError is fatal for the step that raised it and is never retried.
type ConfigurationError struct {
	NodeID  string
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	target := "config"
	if e.NodeID != "" {
		target = "node " + e.NodeID
	}

	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s': %s", target, e.Field, e.Message)
	}

	return fmt.Sprintf("%s: %s", target, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// NewConfigurationError creates a configuration error for a missing or invalid field.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// ValidationError flags one malformed item. The surrounding batch continues.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ExternalErrorKind distinguishes a bounded-time expiry from other transport failures.
type ExternalErrorKind string

const (
	ExternalErrorTimeout   ExternalErrorKind = "timeout"
	ExternalErrorTransport ExternalErrorKind = "transport"
)

// ExternalServiceError wraps a failed call to the registry or a dispatch channel.
type ExternalServiceError struct {
	Service string
	Kind    ExternalErrorKind
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s failure: %v", e.Service, e.Kind, e.Err)
}

func (e *ExternalServiceError) Unwrap() []error {
	return []error{ErrExternalService, e.Err}
}

// NewTimeoutError creates an external service error of kind timeout.
func NewTimeoutError(service string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Kind: ExternalErrorTimeout, Err: err}
}

// NewTransportError creates an external service error of kind transport.
func NewTransportError(service string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Kind: ExternalErrorTransport, Err: err}
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTimeout checks if an error is an external service timeout.
func IsTimeout(err error) bool {
	var extErr *ExternalServiceError

	return errors.As(err, &extErr) && extErr.Kind == ExternalErrorTimeout
}

// IsTransport checks if an error is a non-timeout external service failure.
func IsTransport(err error) bool {
	var extErr *ExternalServiceError

	return errors.As(err, &extErr) && extErr.Kind == ExternalErrorTransport
}
