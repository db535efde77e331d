package model

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound  = errors.New("event not found")
	ErrForbidden = errors.New("not permitted")

	ErrInvalidReminder = errors.New("invalid reminder format")
)

// ValidationError collects per-field messages so callers can surface each
// one next to the offending field.
type ValidationError struct {
	FieldErrors map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{FieldErrors: map[string]string{}}
}

// Add records msg for field, keeping the first message per field.
func (v *ValidationError) Add(field, msg string) {
	if _, ok := v.FieldErrors[field]; !ok {
		v.FieldErrors[field] = msg
	}
}

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

// OrNil returns nil when nothing was recorded, so the result can be returned
// directly as an error.
func (v *ValidationError) OrNil() error {
	if v == nil || len(v.FieldErrors) == 0 {
		return nil
	}
	return v
}
