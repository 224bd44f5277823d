package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
)

// Deck import errors. Unit-level errors (one card, one asset) are logged and
// skipped by the pipeline; deck-level errors abort the deck.
var (
	// ErrMissingDownloadKey marks a deck that can never be downloaded. The
	// downloader drops its ledger entry instead of retrying.
	ErrMissingDownloadKey = errors.New("missing k query parameter")

	ErrArchiveUnpack      = errors.New("archive unpack failed")
	ErrDeckNotFound       = errors.New("deck not found in collection")
	ErrCardNotFound       = errors.New("cannot find card for note")
	ErrModelNotFound      = errors.New("cannot find model for note")
	ErrTemplateNotFound   = errors.New("cannot find template for card ord")
	ErrEmptyCardSide      = errors.New("one of the card sides is empty")
	ErrUnknownContentType = errors.New("unknown content type")
	ErrRemoteWrite        = errors.New("remote write failed")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}
