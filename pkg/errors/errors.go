// Package errors provides custom error types for the ttsync system.
// These errors enable programmatic error checking across the scrape
// pipeline: transient upstream failures, extraction failures, merge
// rejections, and store-level fatal errors each have a distinct shape.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As are aliases for the standard library equivalents so callers
// need only one errors import.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the ttsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates that a task of the same kind is already running
	ErrConflict = errors.New("task already running")

	// ErrNotRunning indicates a cancel request for a task that is not running
	ErrNotRunning = errors.New("task not running")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable indicates the upstream catalog is temporarily unavailable
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrStoreUnavailable indicates the durable store cannot be reached.
	// Errors matching this sentinel abort a whole task.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// TransientError represents an upstream failure that survived every retry
// attempt. It carries the last underlying cause; callers treat it as a
// per-unit failure, not fatal to the whole task.
type TransientError struct {
	Endpoint string
	Attempts int
	Err      error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransientError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// NewTransientError creates a new TransientError
func NewTransientError(endpoint string, attempts int, err error) *TransientError {
	return &TransientError{Endpoint: endpoint, Attempts: attempts, Err: err}
}

// ExtractionError represents a document whose shape was not recognized by
// any known layout, or a record dropped for lacking its natural key.
type ExtractionError struct {
	Kind       string // entity kind being extracted
	Diagnostic string // raw diagnostic, e.g. the offending line
	Err        error
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("extraction failed for %s: %s", e.Kind, e.Diagnostic)
	}
	return fmt.Sprintf("extraction failed for %s: %v", e.Kind, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new ExtractionError
func NewExtractionError(kind, diagnostic string) *ExtractionError {
	return &ExtractionError{Kind: kind, Diagnostic: diagnostic}
}

// RejectError represents a single record rejected by the reconciliation
// store, e.g. for a malformed natural key. Other records in the same unit
// are still applied.
type RejectError struct {
	Kind   string
	Key    string
	Reason string
}

// Error implements the error interface
func (e *RejectError) Error() string {
	return fmt.Sprintf("%s %q rejected: %s", e.Kind, e.Key, e.Reason)
}

// Is implements errors.Is support
func (e *RejectError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewRejectError creates a new RejectError
func NewRejectError(kind, key, reason string) *RejectError {
	return &RejectError{Kind: kind, Key: key, Reason: reason}
}

// StoreError represents a durable-store failure. Store errors are the only
// class of error that aborts a running task.
type StoreError struct {
	Operation string // "merge", "read", "ledger"
	Table     string
	Err       error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store error during %s of %s: %v", e.Operation, e.Table, e.Err)
	}
	return fmt.Sprintf("store error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// WrapStore wraps an error as a StoreError
func WrapStore(operation, table string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Operation: operation, Table: table, Err: err}
}

// UpstreamError represents a single failed exchange with the upstream
// catalog before retry classification.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream error from %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error from %s: %s", e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *UpstreamError) Is(target error) bool {
	if e.StatusCode >= 500 {
		return target == ErrUpstreamUnavailable
	}
	return false
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is a duplicate-start conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsTransient reports whether an error is a retriable upstream failure
func IsTransient(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrTimeout)
}

// IsFatal reports whether an error must abort a whole task
func IsFatal(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}
