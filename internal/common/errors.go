// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Input errors.
	ErrValidation = errors.New("validation failed")

	// Taxonomy errors.
	ErrInvalidMerge   = errors.New("invalid merge")
	ErrTagReferenced  = errors.New("tag is referenced by transactions")
	ErrPartialFailure = errors.New("operation partially applied")
	ErrPartialImport  = errors.New("import partially applied")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError reports malformed input to a calculator or a record decoder.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// DuplicateNameError reports a case-insensitive name collision.
type DuplicateNameError struct {
	Name     string
	Existing string
}

func (e *DuplicateNameError) Error() string {
	if e.Existing != "" && e.Existing != e.Name {
		return fmt.Sprintf("tag %q already exists as %q", e.Name, e.Existing)
	}
	return fmt.Sprintf("tag %q already exists", e.Name)
}

func (e *DuplicateNameError) Unwrap() error {
	return ErrDuplicateEntry
}

// InvalidMergeError reports a merge request whose preconditions do not hold.
type InvalidMergeError struct {
	Tag    string
	Reason string
}

func (e *InvalidMergeError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("invalid merge: %s", e.Reason)
	}
	return fmt.Sprintf("invalid merge: %s: %s", e.Tag, e.Reason)
}

func (e *InvalidMergeError) Unwrap() error {
	return ErrInvalidMerge
}

// ReferentialError reports a deletion blocked by transactions still carrying the tag.
type ReferentialError struct {
	Tag          string
	Transactions int
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("tag %q is used by %d transaction(s)", e.Tag, e.Transactions)
}

func (e *ReferentialError) Unwrap() error {
	return ErrTagReferenced
}

// RecordError describes why a single record of a batch was rejected.
type RecordError struct {
	Key    string
	Reason string
	Line   int
}

func (r RecordError) String() string {
	switch {
	case r.Line > 0 && r.Key != "":
		return fmt.Sprintf("line %d (%s): %s", r.Line, r.Key, r.Reason)
	case r.Line > 0:
		return fmt.Sprintf("line %d: %s", r.Line, r.Reason)
	case r.Key != "":
		return fmt.Sprintf("%s: %s", r.Key, r.Reason)
	default:
		return r.Reason
	}
}

// PartialImportError is returned by batch operations where some records failed.
// The batch is never aborted; Succeeded counts the records that went through.
type PartialImportError struct {
	Failures  []RecordError
	Succeeded int
}

func (e *PartialImportError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("%d record(s) succeeded, %d failed: %s",
		e.Succeeded, len(e.Failures), strings.Join(parts, "; "))
}

func (e *PartialImportError) Unwrap() error {
	return ErrPartialImport
}

// PartialFailureError is returned when a multi-step mutation stopped midway.
// UpdatedIDs lists the records already migrated so the caller can retry.
type PartialFailureError struct {
	Err        error
	Operation  string
	UpdatedIDs []string
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s stopped after updating %d record(s): %v", e.Operation, len(e.UpdatedIDs), e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
