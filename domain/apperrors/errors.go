// Package apperrors defines the engine's error taxonomy. NotFound and
// Validation are deterministic and never retried; Conflict surfaces only
// after optimistic retries are exhausted under contention.
package apperrors

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a referenced record does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFound creates a NotFoundError.
func NewNotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError indicates a business-rule violation: bad status for a
// transition, wager out of bounds, duplicate active bet, insufficient
// balance, and the like.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation creates a ValidationError.
func NewValidation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError indicates optimistic retries were exhausted; the caller may
// resubmit.
type ConflictError struct {
	Attempts int
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("operation conflicted after %d attempts", e.Attempts)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// NewConflict creates a ConflictError.
func NewConflict(attempts int, err error) error {
	return &ConflictError{Attempts: attempts, Err: err}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
