package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Webhook pipeline
	ErrCodeValidation     ErrorCode = "VALIDATION_ERROR"
	ErrCodeDuplicateEvent ErrorCode = "DUPLICATE_EVENT"
	ErrCodeStaleEvent     ErrorCode = "STALE_EVENT"
	ErrCodeUnsupported    ErrorCode = "UNSUPPORTED_EVENT"

	// Persistence
	ErrCodePersistence ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeNotFound    ErrorCode = "NOT_FOUND"

	// AI and commands
	ErrCodeAIParse          ErrorCode = "AI_PARSE_FAILURE"
	ErrCodeCommandExecution ErrorCode = "COMMAND_EXECUTION_ERROR"
	ErrCodeIncompleteOrder  ErrorCode = "INCOMPLETE_ORDER"

	// External collaborators
	ErrCodeExternal        ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeExternalTimeout ErrorCode = "EXTERNAL_TIMEOUT"

	// Rate limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func DuplicateEvent(messageID string) *AppError {
	return New(ErrCodeDuplicateEvent, fmt.Sprintf("message %s was already processed", messageID))
}

func StaleEvent(messageID string) *AppError {
	return New(ErrCodeStaleEvent, fmt.Sprintf("message %s is older than the sender's latest message", messageID))
}

func UnsupportedEvent(detail string) *AppError {
	return New(ErrCodeUnsupported, detail)
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Persistence(cause error) *AppError {
	return Wrap(ErrCodePersistence, "Persistence error", cause)
}

func CommandExecution(commandType string, cause error) *AppError {
	return Wrap(ErrCodeCommandExecution, fmt.Sprintf("Command %s failed", commandType), cause)
}

func IncompleteOrder(missing []string) *AppError {
	return New(ErrCodeIncompleteOrder, "Order is missing required fields").WithDetails(missing)
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
}

func ExternalTimeout(service string, cause error) *AppError {
	return Wrap(ErrCodeExternalTimeout, fmt.Sprintf("External service timeout: %s", service), cause)
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
