package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the capture pipeline. Handlers branch on these
// with errors.Is, never on error strings.
var (
	ErrValidation       = errors.New("validation failed")
	ErrDuplicate        = errors.New("link already saved")
	ErrNotFound         = errors.New("link not found")
	ErrNetwork          = errors.New("network failure")
	ErrConflict         = errors.New("remote conflict")
	ErrExhaustedRetries = errors.New("metadata retries exhausted")
)

// ValidationError carries the offending field alongside ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NetworkError wraps a transient remote failure so callers can retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}
