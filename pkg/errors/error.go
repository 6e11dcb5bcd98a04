// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Configuration errors (100-199): Invalid parameters, date ranges, schema mismatches
//   - Data errors (200-299): Missing historical data, data source and query failures
//   - Collaborator errors (300-399): Strategy and fee calculator failures
//   - Ledger errors (400-499): Position and order bookkeeping misuse
//   - Backtest run errors (500-599): Engine initialization and run preconditions
//   - Results persistence errors (600-699): Result reading and writing failures
//   - Analysis errors (700-799): Walk-forward and Monte Carlo failures
//   - Market data errors (800-899): Market data fetching and writing errors
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeNoHistoricalData, "no bars for symbol %s", symbol)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to execute query", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeNoHistoricalData) { ... }
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// NoHistoricalDataError represents an error when a simulation window contains
// no price bars at all. The simulation must never silently run on zero bars.
type NoHistoricalDataError struct {
	Symbols []string  // Symbols the run asked for
	Start   time.Time // Requested window start
	End     time.Time // Requested window end
	Message string    // Human-readable message
}

// NewNoHistoricalDataError creates a new NoHistoricalDataError.
func NewNoHistoricalDataError(symbols []string, start, end time.Time, message string) *NoHistoricalDataError {
	return &NoHistoricalDataError{
		Symbols: symbols,
		Start:   start,
		End:     end,
		Message: message,
	}
}

// NewNoHistoricalDataErrorf creates a new NoHistoricalDataError with a formatted message.
func NewNoHistoricalDataErrorf(symbols []string, start, end time.Time, format string, args ...any) *NoHistoricalDataError {
	return &NoHistoricalDataError{
		Symbols: symbols,
		Start:   start,
		End:     end,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *NoHistoricalDataError) Error() string {
	return e.Message
}

// IsNoHistoricalDataError checks if an error is a NoHistoricalDataError.
// It uses errors.As to check the error chain.
func IsNoHistoricalDataError(err error) bool {
	var noDataErr *NoHistoricalDataError

	return errors.As(err, &noDataErr)
}
