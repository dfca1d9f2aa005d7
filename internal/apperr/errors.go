// Package apperr holds the sentinel errors shared across folio packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
	ErrSerialization     = errors.New("serialization failed")
	ErrInvalidID         = errors.New("invalid identifier")
	ErrNoProjectSelected = errors.New("no project selected")
)

// Validation returns an ErrValidation wrapped with the offending field.
func Validation(field, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, msg)
}

// WrapValidation marks err (typically from ozzo-validation) as a validation failure.
func WrapValidation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// NotFound returns an ErrNotFound naming the missing entity.
func NotFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}
