package datamimic

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeTooLarge   ErrorType = "too_large"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeInternal   ErrorType = "internal"
)

// DatamimicError is the structured error returned by every public operation.
type DatamimicError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Handle  DatasetHandle  `json:"handle,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *DatamimicError) Error() string {
	if e.Handle != "" {
		return fmt.Sprintf("[%s:%s] dataset %s: %s", e.Type, e.Code, e.Handle, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *DatamimicError) Unwrap() error {
	return e.Cause
}

// Is matches another DatamimicError by code, so sentinel comparisons work with errors.Is.
func (e *DatamimicError) Is(target error) bool {
	var t *DatamimicError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail adds a single detail
func (e *DatamimicError) WithDetail(key string, value any) *DatamimicError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause
func (e *DatamimicError) WithCause(cause error) *DatamimicError {
	e.Cause = cause
	return e
}

// WithField adds field context
func (e *DatamimicError) WithField(field string) *DatamimicError {
	e.Field = field
	return e
}

// WithHandle adds dataset context
func (e *DatamimicError) WithHandle(handle DatasetHandle) *DatamimicError {
	e.Handle = handle
	return e
}

// Error codes
const (
	// Generation
	ErrCodeUnknownSchema          = "UNKNOWN_SCHEMA"
	ErrCodeUnsupportedLocality    = "UNSUPPORTED_LOCALITY"
	ErrCodeInvalidFieldDefinition = "INVALID_FIELD_DEFINITION"

	// Registry
	ErrCodeHandleNotFound = "HANDLE_NOT_FOUND"

	// Operations
	ErrCodeInvalidParameter  = "INVALID_PARAMETER"
	ErrCodeMissingParameter  = "MISSING_PARAMETER"
	ErrCodeColumnNotFound    = "COLUMN_NOT_FOUND"
	ErrCodeInvalidColumnType = "INVALID_COLUMN_TYPE"
	ErrCodeUnknownAction     = "UNKNOWN_ACTION"

	// Per-cell, recovered locally and only logged
	ErrCodeConversionFailure = "CONVERSION_FAILURE"

	// Upload / download
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeEmptyDataset      = "EMPTY_DATASET"
	ErrCodeMalformedInput    = "MALFORMED_INPUT"
	ErrCodeContentTooLarge   = "CONTENT_TOO_LARGE"

	// Collaborators
	ErrCodeExportFailed  = "EXPORT_FAILED"
	ErrCodeCounterFailed = "COUNTER_FAILED"
	ErrCodeSchemaLoad    = "SCHEMA_LOAD_FAILED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Sentinels for errors.Is comparisons.
var (
	ErrUnknownSchema          = &DatamimicError{Type: ErrorTypeNotFound, Code: ErrCodeUnknownSchema}
	ErrUnsupportedLocality    = &DatamimicError{Type: ErrorTypeValidation, Code: ErrCodeUnsupportedLocality}
	ErrInvalidFieldDefinition = &DatamimicError{Type: ErrorTypeValidation, Code: ErrCodeInvalidFieldDefinition}
	ErrHandleNotFound         = &DatamimicError{Type: ErrorTypeNotFound, Code: ErrCodeHandleNotFound}
	ErrInvalidParameter       = &DatamimicError{Type: ErrorTypeValidation, Code: ErrCodeInvalidParameter}
	ErrMissingParameter       = &DatamimicError{Type: ErrorTypeValidation, Code: ErrCodeMissingParameter}
	ErrColumnNotFound         = &DatamimicError{Type: ErrorTypeNotFound, Code: ErrCodeColumnNotFound}
	ErrInvalidColumnType      = &DatamimicError{Type: ErrorTypeValidation, Code: ErrCodeInvalidColumnType}
	ErrUnknownAction          = &DatamimicError{Type: ErrorTypeValidation, Code: ErrCodeUnknownAction}
	ErrConversionFailure      = &DatamimicError{Type: ErrorTypeValidation, Code: ErrCodeConversionFailure}
	ErrUnsupportedFormat      = &DatamimicError{Type: ErrorTypeValidation, Code: ErrCodeUnsupportedFormat}
	ErrEmptyDataset           = &DatamimicError{Type: ErrorTypeValidation, Code: ErrCodeEmptyDataset}
)

// ============================================================================
// DatamimicError Constructors
// ============================================================================

// NewDatamimicError creates a new error
func NewDatamimicError(errorType ErrorType, code, message string) *DatamimicError {
	return &DatamimicError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

func NewUnknownSchemaError(name string) *DatamimicError {
	return NewDatamimicError(ErrorTypeNotFound, ErrCodeUnknownSchema,
		fmt.Sprintf("unknown schema %q", name)).WithDetail("schema", name)
}

func NewUnsupportedLocalityError(locality string) *DatamimicError {
	return NewDatamimicError(ErrorTypeValidation, ErrCodeUnsupportedLocality,
		fmt.Sprintf("unsupported locality %q", locality)).WithDetail("locality", locality)
}

// NewInvalidFieldDefinitionError names the offending column and the reason.
func NewInvalidFieldDefinitionError(column, reason string) *DatamimicError {
	return NewDatamimicError(ErrorTypeValidation, ErrCodeInvalidFieldDefinition, reason).WithField(column)
}

func NewHandleNotFoundError(handle DatasetHandle) *DatamimicError {
	return NewDatamimicError(ErrorTypeNotFound, ErrCodeHandleNotFound,
		"dataset not found").WithHandle(handle)
}

func NewInvalidParameterError(param, message string) *DatamimicError {
	return NewDatamimicError(ErrorTypeValidation, ErrCodeInvalidParameter, message).WithField(param)
}

func NewMissingParameterError(param string) *DatamimicError {
	return NewDatamimicError(ErrorTypeValidation, ErrCodeMissingParameter,
		fmt.Sprintf("parameter %q is required", param)).WithField(param)
}

func NewColumnNotFoundError(column string) *DatamimicError {
	return NewDatamimicError(ErrorTypeNotFound, ErrCodeColumnNotFound, "column does not exist").WithField(column)
}

func NewInvalidColumnTypeError(column string, want, got ColumnType) *DatamimicError {
	return NewDatamimicError(ErrorTypeValidation, ErrCodeInvalidColumnType,
		fmt.Sprintf("expected %s column, found %s", want, got)).
		WithField(column).
		WithDetail("expected", string(want)).
		WithDetail("actual", string(got))
}

func NewUnknownActionError(action string) *DatamimicError {
	return NewDatamimicError(ErrorTypeValidation, ErrCodeUnknownAction,
		fmt.Sprintf("unknown action %q", action)).WithDetail("action", action)
}

func NewConversionFailureError(column string, value Value, target string) *DatamimicError {
	return NewDatamimicError(ErrorTypeValidation, ErrCodeConversionFailure,
		fmt.Sprintf("cannot convert %q to %s", value.String(), target)).WithField(column)
}

func NewUnsupportedFormatError(format string) *DatamimicError {
	return NewDatamimicError(ErrorTypeValidation, ErrCodeUnsupportedFormat,
		fmt.Sprintf("unsupported format %q", format)).WithDetail("format", format)
}

func NewEmptyDatasetError() *DatamimicError {
	return NewDatamimicError(ErrorTypeValidation, ErrCodeEmptyDataset, "the uploaded file contains no rows")
}

func NewMalformedInputError(message string, cause error) *DatamimicError {
	return NewDatamimicError(ErrorTypeValidation, ErrCodeMalformedInput, message).WithCause(cause)
}

func NewContentTooLargeError(limit int64) *DatamimicError {
	return NewDatamimicError(ErrorTypeTooLarge, ErrCodeContentTooLarge,
		fmt.Sprintf("content exceeds %d bytes", limit)).WithDetail("limit", limit)
}

func NewExportError(message string, cause error) *DatamimicError {
	return NewDatamimicError(ErrorTypeStorage, ErrCodeExportFailed, message).WithCause(cause)
}

func NewCounterError(message string, cause error) *DatamimicError {
	return NewDatamimicError(ErrorTypeStorage, ErrCodeCounterFailed, message).WithCause(cause)
}

func NewInternalError(message string, cause error) *DatamimicError {
	return NewDatamimicError(ErrorTypeInternal, ErrCodeInternalError, message).WithCause(cause)
}

// AsDatamimicError unwraps err into a DatamimicError, wrapping unknown errors as internal.
func AsDatamimicError(err error) *DatamimicError {
	if err == nil {
		return nil
	}
	var de *DatamimicError
	if errors.As(err, &de) {
		return de
	}
	return NewInternalError(err.Error(), err)
}
