package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeUnauthorized indicates unauthorized access
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeForbidden indicates the caller does not own the resource
	ErrorTypeForbidden ErrorType = "FORBIDDEN"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeImageProcessing indicates the photo could not be read or re-encoded
	ErrorTypeImageProcessing ErrorType = "IMAGE_PROCESSING"

	// ErrorTypeRecognitionUnavailable indicates a transport or timeout failure talking to the recognition API
	ErrorTypeRecognitionUnavailable ErrorType = "RECOGNITION_UNAVAILABLE"

	// ErrorTypePlantNotRecognized indicates a valid response without usable suggestions
	ErrorTypePlantNotRecognized ErrorType = "PLANT_NOT_RECOGNIZED"

	// ErrorTypeRecognitionProtocol indicates an unexpected response shape from the recognition API
	ErrorTypeRecognitionProtocol ErrorType = "RECOGNITION_PROTOCOL"

	// ErrorTypeRecordSubmission indicates the record store rejected a request
	ErrorTypeRecordSubmission ErrorType = "RECORD_SUBMISSION"

	// ErrorTypeAuthRequired indicates a missing or expired client token
	ErrorTypeAuthRequired ErrorType = "AUTH_REQUIRED"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	// StatusCode is the HTTP status returned by a remote service, when there was one.
	StatusCode int
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// NewImageProcessingError creates a new image processing error
func NewImageProcessingError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeImageProcessing,
		Message: message,
		Err:     err,
	}
}

// NewRecognitionUnavailableError creates a new recognition transport error
func NewRecognitionUnavailableError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeRecognitionUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewPlantNotRecognizedError creates a new not-recognized error
func NewPlantNotRecognizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypePlantNotRecognized,
		Message: message,
	}
}

// NewRecognitionProtocolError creates a new recognition protocol error
func NewRecognitionProtocolError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeRecognitionProtocol,
		Message: message,
		Err:     err,
	}
}

// NewRecordSubmissionError creates a new record submission error carrying the store's status code
func NewRecordSubmissionError(message string, statusCode int) *AppError {
	return &AppError{
		Type:       ErrorTypeRecordSubmission,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewAuthRequiredError creates a new auth required error
func NewAuthRequiredError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeAuthRequired,
		Message: message,
	}
}
