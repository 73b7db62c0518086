package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeFileNotFound   ErrorType = "FILE_NOT_FOUND"
	ErrTypeParsing        ErrorType = "PARSING"
	ErrTypeDataFormat     ErrorType = "DATA_FORMAT"
	ErrTypeSchemaMismatch ErrorType = "SCHEMA_MISMATCH"
	ErrTypeDBConnection   ErrorType = "DB_CONNECTION"
	ErrTypeDBConstraint   ErrorType = "DB_CONSTRAINT"
	ErrTypeDatabase       ErrorType = "DATABASE"
	ErrTypeConfig         ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Helper functions for common error types

// NewFileNotFoundError creates an error for a missing input file
func NewFileNotFoundError(path string, cause error) *AppError {
	return NewAppError(ErrTypeFileNotFound, fmt.Sprintf("file %s not found", path), cause).
		WithContext("path", path)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewDataFormatError creates an error for a value that cannot be coerced to its column type
func NewDataFormatError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDataFormat, message, cause)
}

// NewSchemaMismatchError creates an error for a column set that differs from the expected one
func NewSchemaMismatchError(message string) *AppError {
	return NewAppError(ErrTypeSchemaMismatch, message, nil)
}

// NewDBConnectionError creates a database connection error
func NewDBConnectionError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDBConnection, message, cause)
}

// NewDBConstraintError creates an error for a row rejected by the table's constraints
func NewDBConstraintError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDBConstraint, message, cause)
}

// NewDatabaseError creates a generic database error
func NewDatabaseError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDatabase, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the type of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err's chain contains an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}
