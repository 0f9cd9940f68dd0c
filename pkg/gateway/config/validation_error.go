package config

import (
	"fmt"
	"strings"
)

// FieldError is a validation problem tied to a config field
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ValidationError collects every validation problem of a configuration
type ValidationError struct {
	Errors []error
}

// NewValidationError creates an empty ValidationError
func NewValidationError() *ValidationError {
	return &ValidationError{Errors: make([]error, 0)}
}

// Add records err against field; nil errors are ignored
func (v *ValidationError) Add(field string, err error) {
	if err != nil {
		v.Errors = append(v.Errors, &FieldError{Field: field, Err: err})
	}
}

// HasErrors returns true if there are any validation errors
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationError) Error() string {
	switch len(v.Errors) {
	case 0:
		return ""
	case 1:
		return v.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "found %d validation errors:", len(v.Errors))
	for i, err := range v.Errors {
		fmt.Fprintf(&sb, "\n  %d. %v", i+1, err)
	}
	return sb.String()
}

// Unwrap exposes every collected error to errors.Is and errors.As
func (v *ValidationError) Unwrap() []error {
	return v.Errors
}

// ErrorOrNil returns v if it holds errors, otherwise nil
func (v *ValidationError) ErrorOrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}
