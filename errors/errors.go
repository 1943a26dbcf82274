// Package errors provides error handling for loam.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Cause-chain inspection for import error classification
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrDuplicateID) {
//	    // handle duplicate identity
//	}
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
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapOnce    = crdb.UnwrapOnce
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// GetStack is an alias for GetReportableStackTrace for convenience.
var GetStack = crdb.GetReportableStackTrace

// Mark attaches a reference error's identity so errors.Is matches both chains.
var Mark = crdb.Mark

// Sentinel errors forming the import failure taxonomy.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrConfiguration indicates a bad input description, detected before any
	// streaming or resource acquisition begins
	ErrConfiguration = New("invalid import configuration")

	// ErrDataQualityExceeded indicates the bad-entry tolerance cap was breached
	ErrDataQualityExceeded = New("too many bad entries")

	// ErrDuplicateID indicates an input identity clashed with an earlier one
	// in the same id space
	ErrDuplicateID = New("duplicate input id")

	// ErrMissingData indicates a relationship record missing a mandatory
	// endpoint or type field
	ErrMissingData = New("missing mandatory relationship data")

	// ErrMultilineField indicates a quoted field spanning multiple lines was
	// found in an import where multiline fields are disabled
	ErrMultilineField = New("multiline field")

	// ErrBadInput indicates malformed input data not covered by a more
	// specific sentinel
	ErrBadInput = New("bad input data")
)

// IsConfigurationError checks if an error is or wraps ErrConfiguration
func IsConfigurationError(err error) bool {
	return err != nil && Is(err, ErrConfiguration)
}

// IsDataQualityError checks if an error is or wraps ErrDataQualityExceeded
func IsDataQualityError(err error) bool {
	return err != nil && Is(err, ErrDataQualityExceeded)
}

// NewConfigurationError creates a configuration error with a formatted message
func NewConfigurationError(format string, args ...interface{}) error {
	return Wrapf(ErrConfiguration, format, args...)
}

// NewBadInputError creates a generic bad-input error with a formatted message
func NewBadInputError(format string, args ...interface{}) error {
	return Wrapf(ErrBadInput, format, args...)
}
