// Package errors provides application-level error types and utilities.
// It defines the error taxonomy returned by the request core: validation,
// not found, conflict, persistence and authorization errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypePersistence  ErrorType = "persistence_error"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeInternal     ErrorType = "internal_error"
)

// FieldError is a single field-level failure reason.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	return f.Field + ": " + f.Message
}

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType    `json:"type"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
	Timeout bool         `json:"timeout,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches the error that triggered this one.
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func firstDetail(details []string) string {
	if len(details) > 0 {
		return details[0]
	}
	return ""
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: firstDetail(details),
	}
}

// NewFieldValidationError creates a validation error carrying ordered field failures.
// The message is the first failure so callers that only print the error still
// see the most relevant reason.
func NewFieldValidationError(fields []FieldError) *AppError {
	msg := "validation failed"
	if len(fields) > 0 {
		msg = fields[0].Message
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.String())
	}
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: msg,
		Details: strings.Join(parts, "; "),
		Fields:  fields,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Details: firstDetail(details),
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
		Details: firstDetail(details),
	}
}

// NewPersistenceError creates a new persistence error wrapping the store failure.
func NewPersistenceError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypePersistence,
		Message: message,
		cause:   cause,
	}
}

// NewTimeoutError creates a persistence error for a store round trip that exceeded its budget.
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypePersistence,
		Message: message,
		Details: "timeout",
		Timeout: true,
		cause:   cause,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
		Details: firstDetail(details),
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Message: message,
		Details: firstDetail(details),
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Details: firstDetail(details),
	}
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func isType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return isType(err, ErrorTypeConflict)
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsPersistenceError checks if the error is a persistence error
func IsPersistenceError(err error) bool {
	return isType(err, ErrorTypePersistence)
}

// IsTimeoutError checks if the error is a persistence error caused by a timeout
func IsTimeoutError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypePersistence && appErr.Timeout
}

// IsAuthorizationError reports missing identity as well as insufficient rights.
func IsAuthorizationError(err error) bool {
	return isType(err, ErrorTypeUnauthorized) || isType(err, ErrorTypeForbidden)
}

// IsDuplicateError checks if the error is a database duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// MySQL / PostgreSQL
	if strings.Contains(errStr, "Duplicate entry") || strings.Contains(errStr, "duplicate key") {
		return true
	}
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// SQL Server
	if strings.Contains(errStr, "Cannot insert duplicate key") || strings.Contains(errStr, "unique constraint") {
		return true
	}
	return false
}
