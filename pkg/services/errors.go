// Package services implements the use cases behind the HTTP API and the worker.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/leadflow/pkg/flow"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest      = errors.New("invalid request")
	ErrFlowNil             = errors.New("flow cannot be nil")
	ErrNodesRequired       = errors.New("flow must have at least one node")
	ErrTriggerNodeRequired = errors.New("flow must have exactly one trigger node")
	ErrDuplicateNodeID     = errors.New("duplicate node id")
	ErrInvalidEdge         = errors.New("edge refers to an unknown node")
	ErrInvalidBranch       = errors.New("invalid condition branches")
	ErrInvalidNodeConfig   = errors.New("invalid node config")
	ErrInvalidCampaign     = errors.New("invalid campaign")

	// Business Logic Conflicts (409 Conflict).
	ErrExecutionFinished = flow.ErrExecutionTerminal
	ErrCampaignFinished  = errors.New("campaign has no further runs")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrFlowNil) ||
		errors.Is(err, ErrNodesRequired) ||
		errors.Is(err, ErrTriggerNodeRequired) ||
		errors.Is(err, ErrDuplicateNodeID) ||
		errors.Is(err, ErrInvalidEdge) ||
		errors.Is(err, ErrInvalidBranch) ||
		errors.Is(err, ErrInvalidNodeConfig) ||
		errors.Is(err, ErrInvalidCampaign)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrExecutionFinished) ||
		errors.Is(err, ErrCampaignFinished)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
