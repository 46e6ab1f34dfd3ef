// Package services provides the catalog, workflow and progress business operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/opsplan/pkg/graph"
	"github.com/dukex/opsplan/pkg/persistence"
	"github.com/dukex/opsplan/pkg/progress"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrValidation        = errors.New("validation failed")
	ErrDanglingReference = graph.ErrDanglingReference
	ErrUnknownOperation  = errors.New("operation is not in the catalog of the project organization")

	// Conflicts (409 Conflict).
	ErrDuplicateCode  = errors.New("operation code already used in organization")
	ErrOperationInUse = errors.New("operation is referenced by workflow nodes")
	ErrDuplicateEdge  = graph.ErrDuplicateEdge
	ErrSelfLoop       = graph.ErrSelfLoop
	ErrCycle          = graph.ErrCycle

	// Not Found (404).
	ErrNotFound = persistence.ErrNotFound

	// ErrPersistenceFailure marks storage failures the caller may retry (500).
	ErrPersistenceFailure = errors.New("persistence failure")
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
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDanglingReference) ||
		errors.Is(err, ErrUnknownOperation) ||
		errors.Is(err, graph.ErrInvalidNode) ||
		errors.Is(err, graph.ErrInvalidEdge) ||
		errors.Is(err, progress.ErrInvalidSprintTarget)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrDuplicateCode) ||
		errors.Is(err, ErrOperationInUse) ||
		errors.Is(err, ErrDuplicateEdge) ||
		errors.Is(err, ErrSelfLoop) ||
		errors.Is(err, ErrCycle) ||
		errors.Is(err, graph.ErrDuplicateNode) ||
		errors.Is(err, persistence.ErrAlreadyExists)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPersistenceFailure reports whether err is a storage failure worth retrying.
func IsPersistenceFailure(err error) bool {
	return errors.Is(err, ErrPersistenceFailure)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     fmt.Errorf("%w: %w", ErrValidation, err),
	}
}

// storageError passes not-found and uniqueness errors through and marks everything
// else as a persistence failure.
func storageError(op string, err error) error {
	if persistence.IsNotFound(err) || persistence.IsAlreadyExists(err) {
		return &ServiceError{Op: op, Err: err}
	}

	return &ServiceError{
		Op:   op,
		Code: "persistence_failure",
		Err:  fmt.Errorf("%w: %w", ErrPersistenceFailure, err),
	}
}
