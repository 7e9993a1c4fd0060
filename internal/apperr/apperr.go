// Package apperr defines the domain error taxonomy shared by the engine, repositories and handlers.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced meeting, location, chat or user id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrRole is returned when the principal lacks the required profile capability.
	ErrRole = errors.New("missing role")
	// ErrUnauthenticated is returned when no principal could be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// NotFound wraps ErrNotFound with the kind and id that failed to resolve.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Role wraps ErrRole with the missing capability ("student", "host").
func Role(capability string) error {
	return fmt.Errorf("user is not a %s: %w", capability, ErrRole)
}

// ValidationError captures field level validation issues.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for f := range v.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v.FieldErrors[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a field level validation error.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// OrNil returns v as an error when it holds field errors, nil otherwise.
func (v *ValidationError) OrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
