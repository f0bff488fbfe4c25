// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Storage errors
	ErrPersistence = errors.New("persistence failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "code", "content"
	Op      string // Operation that failed, e.g., "SelectProject", "Decode"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progress domain errors
var (
	ErrInvalidProject     = NewDomainError("progress", "SelectProject", ErrInvalidInput, "invalid project type")
	ErrUnknownSkill       = NewDomainError("progress", "UpdateSkill", ErrInvalidInput, "unknown skill")
	ErrNegativeXP         = NewDomainError("progress", "AddXP", ErrNegativeValue, "xp amount must be non-negative")
	ErrXPOverflow         = NewDomainError("progress", "AddXP", ErrValueOutOfRange, "xp total would exceed the maximum")
	ErrPositionOutOfRange = NewDomainError("progress", "Validate", ErrValueOutOfRange, "position outside the curriculum")
	ErrAlreadyCompleted   = NewDomainError("progress", "Complete", ErrAlreadyProcessed, "already completed")
	ErrResetNotConfirmed  = NewDomainError("progress", "Reset", ErrInvalidState, "reset requires explicit confirmation")
	ErrUnknownChallenge   = NewDomainError("progress", "CompleteChallenge", ErrInvalidInput, "challenge is not offered today")
)

// Progress code errors
var (
	ErrInvalidCodeFormat   = NewDomainError("code", "Parse", ErrInvalidFormat, "invalid code format")
	ErrInvalidCodePosition = NewDomainError("code", "Parse", ErrInvalidFormat, "invalid week/module or day/lesson format")
	ErrChecksumMismatch    = NewDomainError("code", "Verify", ErrValidation, "checksum does not match code")
)

// Storage errors
var (
	ErrStateNotFound = NewDomainError("store", "Load", ErrNotFound, "no saved progress")
	ErrStaleRevision = NewDomainError("store", "Save", ErrConcurrentModification, "progress was modified by another writer")
)

// Content errors
var (
	ErrContentUnavailable = NewDomainError("content", "Fetch", ErrServiceUnavailable, "content source is unavailable")
	ErrContentInvalid     = NewDomainError("content", "Normalize", ErrValidation, "content failed validation")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsPersistence reports whether err came from the durable store.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
