// Package errors provides error handling for restock.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Structured details that survive wrapping (used in scan run records)
//
// Usage:
//
//	if err := src.Fetch(ctx); err != nil {
//	    return errors.Wrapf(err, "fetch %s", src.ID())
//	}
//
//	// Classify a failure for the scan report
//	return errors.Mark(err, errors.ErrSourceFailed)
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Common sentinel errors. Use with errors.Is(); wrap or Mark to add context
// while preserving the identity.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the input was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = New("operation timed out")
)

// Scan failure taxonomy. None of these is fatal to the watch loop.
var (
	// ErrSourceFailed marks a fetch or parse failure for a whole source.
	// The source is skipped for the current cycle.
	ErrSourceFailed = New("source failed")

	// ErrMalformedObservation marks a single record missing required data.
	// The record is dropped.
	ErrMalformedObservation = New("malformed observation")

	// ErrCorruptSnapshot marks an unreadable state snapshot.
	// The cycle continues from empty state.
	ErrCorruptSnapshot = New("corrupt state snapshot")

	// ErrDeliveryFailed marks a notification that could not be delivered.
	// The state transition that triggered it stays committed.
	ErrDeliveryFailed = New("notification delivery failed")

	// ErrBackupFailed marks a failed snapshot backup sync.
	ErrBackupFailed = New("backup sync failed")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}
