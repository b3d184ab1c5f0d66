package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrLocationNotFound: the resolver found no sufficiently confident
	// match. A normal, reportable outcome — not a service failure.
	ErrLocationNotFound = errors.New("location not found")

	// ErrStoreUnavailable: cache/catalog/place-store connectivity failure.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrValidation: malformed request, rejected before resolution.
	ErrValidation = errors.New("invalid request")
)

// ValidationError carries enough detail for the caller to self-correct.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
