package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned for rows that do not exist or are owned by a
// different user. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("resource not found")

// Sprint operation failures.
var (
	ErrActiveSprintExists = errors.New("another sprint is already active")
	ErrSprintNotActive    = errors.New("sprint is not active")
	ErrSprintCompleted    = errors.New("sprint is already completed")
)

// DuplicateError reports a unique-constraint violation.
type DuplicateError struct {
	Resource string
	Field    string
	Value    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Resource, e.Field, e.Value)
}

// WorkflowTransitionError reports an illegal issue status change.
type WorkflowTransitionError struct {
	From Status
	To   Status
}

func (e *WorkflowTransitionError) Error() string {
	return fmt.Sprintf("invalid workflow transition from %s to %s", e.From, e.To)
}

// ValidationError collects per-field validation messages.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for a field, keeping the first message per field.
func (e *ValidationError) Add(field, message string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// OrNil returns the error itself if any field failed, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Fields[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
