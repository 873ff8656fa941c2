package service

import (
	"errors"
	"fmt"

	"student-violation-service/internal/model"
)

var ErrNotFound = errors.New("violation not found")

// PreconditionError reports a status guard failure, carrying the actual
// current status so the caller can react.
type PreconditionError struct {
	Action        string
	CurrentStatus model.ViolationStatus
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("action %s not allowed while status is %s", e.Action, e.CurrentStatus)
}

// ValidationError carries field-level detail for malformed input that survived
// request binding, e.g. cross-field rules.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

func newValidationError(field, detail string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: detail}}
}
