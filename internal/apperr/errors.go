package apperr

import (
	"context"
	"errors"
	"fmt"
)

// ValidationError is returned when caller input is rejected.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError is returned when a product with the given ID does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ID)
}

// DuplicateIDError represents a primary key violation on insert.
// Callers may retry with a freshly generated identifier.
type DuplicateIDError struct {
	ID     string
	Detail string
}

func (e *DuplicateIDError) Error() string {
	return "product id must be unique: " + e.ID
}

// InfrastructureError wraps failures of the relational store or the object store.
type InfrastructureError struct {
	Op      string
	Timeout bool
	Err     error
}

// Infrastructure wraps err into an InfrastructureError. Deadline errors mark the error as a timeout.
// Errors that already carry a typed classification are returned unchanged.
func Infrastructure(op string, err error) error {
	if err == nil {
		return nil
	}
	var infraErr *InfrastructureError
	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var duplicateErr *DuplicateIDError
	if errors.As(err, &infraErr) || errors.As(err, &validationErr) ||
		errors.As(err, &notFoundErr) || errors.As(err, &duplicateErr) {
		return err
	}
	return &InfrastructureError{
		Op:      op,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}

func (e *InfrastructureError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsDuplicateID reports whether err is a DuplicateIDError.
func IsDuplicateID(err error) bool {
	var target *DuplicateIDError
	return errors.As(err, &target)
}

// IsInfrastructure reports whether err is an InfrastructureError.
func IsInfrastructure(err error) bool {
	var target *InfrastructureError
	return errors.As(err, &target)
}

// IsTimeout reports whether err is an InfrastructureError caused by a deadline.
func IsTimeout(err error) bool {
	var target *InfrastructureError
	return errors.As(err, &target) && target.Timeout
}
