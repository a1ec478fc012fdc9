// Package errors provides the unified error type and factory functions for
// the CashFlow-Sentinel platform. Every layer (domain, intelligence,
// application, infrastructure, interfaces) uses AppError as the single
// carrier for structured error information, enabling consistent HTTP
// responses, logging, and monitoring.
package errors

import (
	"errors"
	"fmt"
)

// AppError is the single structured error type used throughout the platform.
// It satisfies the standard error interface and supports Go 1.13+ error
// wrapping so that errors.Is / errors.As / errors.Unwrap work transparently
// across all layers.
//
// Usage:
//
//	return errors.New(errors.ErrCodeModelNotTrained, "model must be trained before scoring")
//	return errors.Wrap(repoErr, errors.ErrCodeDatabaseError, "failed to load actions")
//	return errors.Validation("due_date precedes issue_date").WithDetail("invoice_id=" + id)
type AppError struct {
	// Code is the typed error code that uniquely identifies the failure
	// category.
	Code ErrorCode

	// Message is the primary human-readable description of the error,
	// suitable for inclusion in API responses returned to callers.
	Message string

	// Detail carries supplementary context, almost always the identifier of
	// the offending entity (invoice_id, customer_id, attempt number), that
	// aids debugging without leaking internals to end users.
	Detail string

	// Cause is the underlying error that triggered this AppError, enabling
	// errors.Is / errors.As traversal of the full error chain.
	Cause error
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>"; the detail segment is omitted when
// Detail is empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error, enabling errors.Is and
// errors.As to traverse the full error chain.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.
// It is safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf constructs a fresh AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an AppError that wraps an existing error. If err is nil,
// Wrap returns nil so it can be used inline on repository calls.
//
// When err is already an *AppError and code is CodeUnknown the original code
// is preserved, preventing loss of the original classification during
// cross-layer propagation.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError found in err's
// chain. If no *AppError is present, CodeUnknown is returned.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// IsValidation reports whether err is a data validation failure
// (malformed record or generic validation).
func IsValidation(err error) bool {
	return IsCode(err, ErrCodeValidation) || IsCode(err, ErrCodeRecordInvalid)
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}

// IsModelNotTrained reports whether err marks scoring/saving before training.
func IsModelNotTrained(err error) bool {
	return IsCode(err, ErrCodeModelNotTrained)
}

// IsInsufficientData reports whether err marks training on too few rows.
func IsInsufficientData(err error) bool {
	return IsCode(err, ErrCodeInsufficientData)
}

// IsContractMismatch reports whether err marks a feature-contract
// disagreement between a persisted model and the feature engine.
func IsContractMismatch(err error) bool {
	return IsCode(err, ErrCodeFeatureContractMismatch)
}

// Validation constructs an ErrCodeRecordInvalid AppError.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeRecordInvalid, Message: message}
}

// NotFound constructs an ErrCodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// InvalidParam constructs an ErrCodeBadRequest AppError.
func InvalidParam(message string) *AppError {
	return &AppError{Code: ErrCodeBadRequest, Message: message}
}

// Internal constructs an ErrCodeInternal AppError. Use for unexpected
// failures where no more specific code applies.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}
