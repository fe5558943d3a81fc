package errors

import (
	stderrors "errors"
	"fmt"
)

// Application error types organized by the stage of a run that produced them

type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota

	// Startup Errors - missing or invalid configuration, fatal before the loop starts
	ErrorTypeConfiguration

	// Run Errors - abort the current scheduled invocation only
	ErrorTypeRequest
	ErrorTypeValidation
	ErrorTypeSMTP
)

// String returns the string representation of error type
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeConfiguration:
		return "CONFIGURATION_ERROR"
	case ErrorTypeRequest:
		return "REQUEST_ERROR"
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeSMTP:
		return "SMTP_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Short aliases used across the code base
const (
	ConfigurationError = ErrorTypeConfiguration
	RequestError       = ErrorTypeRequest
	ValidationError    = ErrorTypeValidation
	SMTPError          = ErrorTypeSMTP
)

type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type.String(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type.String(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

func Wrap(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

func NewConfigurationError(message string, cause error) *AppError {
	return Wrap(ConfigurationError, message, cause)
}

func NewRequestError(message string, cause error) *AppError {
	return Wrap(RequestError, message, cause)
}

func NewValidationError(message string) *AppError {
	return New(ValidationError, message)
}

// WrapValidationError keeps the decoder or validator error as the cause
func WrapValidationError(message string, cause error) *AppError {
	return Wrap(ValidationError, message, cause)
}

func NewSMTPError(message string, cause error) *AppError {
	return Wrap(SMTPError, message, cause)
}

// TypeOf returns the type of the first AppError in the chain
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

func IsConfigurationError(err error) bool {
	return TypeOf(err) == ConfigurationError
}

func IsRequestError(err error) bool {
	return TypeOf(err) == RequestError
}

func IsValidationError(err error) bool {
	return TypeOf(err) == ValidationError
}

func IsSMTPError(err error) bool {
	return TypeOf(err) == SMTPError
}
