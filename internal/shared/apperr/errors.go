package apperr

import (
	"errors"
	"fmt"
)

// Pipeline-level failure kinds. Callers match them with errors.Is.
var (
	// ErrMissingInput indicates required text was absent or blank.
	ErrMissingInput = errors.New("missing input")

	// ErrGeneration indicates the text-generation capability failed or returned implausible output.
	ErrGeneration = errors.New("generation failed")

	// ErrAttachmentNotFound indicates the resume file to attach does not exist.
	ErrAttachmentNotFound = errors.New("attachment not found")

	// ErrNotConnected indicates the send capability is unavailable or expired.
	ErrNotConnected = errors.New("mail provider not connected")

	// ErrDispatch indicates a transport-level failure from the send capability.
	ErrDispatch = errors.New("dispatch failed")
)

// GenerationError wraps the provider error returned by a generation call.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrGeneration)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrGeneration, e.Err)
}

// Unwrap exposes both the sentinel and the provider cause.
func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGeneration}
	}
	return []error{ErrGeneration, e.Err}
}

// DispatchError wraps a send-capability failure for a given action.
type DispatchError struct {
	Action string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Action, ErrDispatch, e.Err)
}

// Unwrap exposes both the sentinel and the transport cause.
func (e *DispatchError) Unwrap() []error {
	return []error{ErrDispatch, e.Err}
}

// Missing returns ErrMissingInput annotated with the absent field.
func Missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingInput, field)
}
