package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Validation errors
	ErrInvalidArchitecture = errors.New("invalid network architecture")
	ErrInvalidLayerConfig  = errors.New("invalid layer configuration")
	ErrInvalidShape        = errors.New("tensor shape mismatch")
	ErrLengthMismatch      = errors.New("output and target lengths differ")
	ErrInvalidLossFunction = errors.New("invalid loss function")
	ErrInvalidActivation   = errors.New("invalid activation function")
	ErrInvalidParameters   = errors.New("invalid training parameters")

	// Training errors
	ErrNotInitialized      = errors.New("network not initialized")
	ErrAlreadyTraining     = errors.New("training already in progress")
	ErrTrainingStopped     = errors.New("training stopped")
	ErrTrainingCancelled   = errors.New("training cancelled")
	ErrInsufficientData    = errors.New("insufficient training data")
	ErrNumericInstability  = errors.New("numeric instability detected")
	ErrResetBudgetExceeded = errors.New("instability reset budget exceeded")

	// Replay buffer errors
	ErrBufferEmpty    = errors.New("experience buffer is empty")
	ErrBufferCapacity = errors.New("experience buffer at capacity")

	// External data errors
	ErrExternalData = errors.New("external data fetch failed")
	ErrFetchTimeout = errors.New("data fetch timeout")
	ErrNoFeatures   = errors.New("no feature vectors available")

	// Storage errors
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrModelNotFound      = errors.New("model not found")
	ErrStorageWriteFailed = errors.New("storage write failed")
	ErrStorageReadFailed  = errors.New("storage read failed")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing configuration")

	// Internal errors
	ErrInternal       = errors.New("internal error")
	ErrNotImplemented = errors.New("not implemented")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeInstability   ErrorType = "instability"
	ErrorTypeCapacity      ErrorType = "capacity"
	ErrorTypeExternalData  ErrorType = "external_data"
	ErrorTypeStorage       ErrorType = "storage"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type      ErrorType              `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:      errType,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:      errType,
		Code:      code,
		Message:   message,
		Cause:     err,
		Retryable: errType == ErrorTypeExternalData,
	}
}

// NewValidationError creates a validation error. Validation errors are
// fatal and must surface before any weight is touched.
func NewValidationError(code, message string) *AppError {
	return NewAppError(ErrorTypeValidation, code, message)
}

// NewInstabilityError creates a numeric-instability error. These are
// recovered internally by the watchdog until its reset budget runs out.
func NewInstabilityError(code, message string) *AppError {
	return NewAppError(ErrorTypeInstability, code, message)
}

// NewCapacityError creates a replay-buffer capacity error. Never fatal;
// resolved by eviction.
func NewCapacityError(message string) *AppError {
	return NewAppError(ErrorTypeCapacity, "BUFFER_CAPACITY", message)
}

// NewExternalDataError creates a retryable external-data error
func NewExternalDataError(code, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeExternalData,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// NewStorageError creates a storage error
func NewStorageError(code, message string) *AppError {
	return NewAppError(ErrorTypeStorage, code, message)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(code, message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, code, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, "INTERNAL_ERROR", message)
}

// IsRetryable reports whether err (or anything it wraps) is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// IsValidationError reports whether err is a validation error
func IsValidationError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == ErrorTypeValidation
	}
	return false
}

// IsInstabilityError reports whether err is a numeric-instability error
func IsInstabilityError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == ErrorTypeInstability
	}
	return false
}
