package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Source errors
	ErrSourceNotFound   = errors.New("source not found")
	ErrSourceUnreadable = errors.New("source unreadable")
	ErrEmptySource      = errors.New("source contains no records")
	ErrInvalidLocation  = errors.New("invalid source location")

	// Stage errors
	ErrStageFailed      = errors.New("stage failed")
	ErrRetriesExhausted = errors.New("stage retries exhausted")
	ErrUnknownStage     = errors.New("unknown stage")

	// Orchestration errors
	ErrJobAlreadyRunning   = errors.New("job already running")
	ErrJobAlreadyCompleted = errors.New("job already completed")
	ErrInvalidTransition   = errors.New("invalid job status transition")
	ErrPipelineCancelled   = errors.New("pipeline cancelled")

	// Quality errors
	ErrQualityBelowThreshold = errors.New("data quality below threshold")
	ErrErrorRateExceeded     = errors.New("validation error rate exceeded")

	// Reasoning errors
	ErrMalformedSuggestion  = errors.New("malformed reasoning suggestion")
	ErrReasoningUnavailable = errors.New("reasoning service unavailable")

	// Storage errors
	ErrStorageConnectionFailed = errors.New("storage connection failed")
	ErrStorageWriteFailed      = errors.New("storage write failed")
	ErrStorageReadFailed       = errors.New("storage read failed")
	ErrJobNotFound             = errors.New("job not found")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing configuration")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeStage         ErrorType = "stage"
	ErrorTypeOrchestration ErrorType = "orchestration"
	ErrorTypeSource        ErrorType = "source"
	ErrorTypeStorage       ErrorType = "storage"
	ErrorTypeReasoning     ErrorType = "reasoning"
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
		Retryable: errType == ErrorTypeStage || errType == ErrorTypeStorage,
	}
}

// NewValidationError creates a per-record data error. Validation errors are
// recorded on the job and never abort the pipeline on their own.
func NewValidationError(code, message string) *AppError {
	return NewAppError(ErrorTypeValidation, code, message)
}

// NewStageError creates a retryable stage failure
func NewStageError(code, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeStage,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// NewOrchestrationError creates a fatal infrastructure-level error
func NewOrchestrationError(code, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeOrchestration,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// NewSourceError creates a record-source error
func NewSourceError(code, message string) *AppError {
	return NewAppError(ErrorTypeSource, code, message)
}

// NewStorageError creates a storage error
func NewStorageError(code, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeStorage,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// NewReasoningError creates a reasoning-adapter error
func NewReasoningError(code, message string) *AppError {
	return NewAppError(ErrorTypeReasoning, code, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeInternalError,
		Message: message,
	}
}

// AsAppError unwraps err to the first AppError in its chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsRetryable reports whether err may succeed on a repeat attempt.
// Stage and storage errors retry; validation and orchestration errors never do.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// Error codes for different error scenarios
const (
	// Validation error codes
	CodeInvalidInput  = "INVALID_INPUT"
	CodeMissingField  = "MISSING_FIELD"
	CodeInvalidFormat = "INVALID_FORMAT"
	CodeOutOfRange    = "OUT_OF_RANGE"

	// Source error codes
	CodeSourceNotFound   = "SOURCE_NOT_FOUND"
	CodeSourceUnreadable = "SOURCE_UNREADABLE"
	CodeInvalidLocation  = "INVALID_LOCATION"

	// Stage error codes
	CodeStageFailed      = "STAGE_FAILED"
	CodeRetriesExhausted = "RETRIES_EXHAUSTED"
	CodeInferenceFailed  = "INFERENCE_FAILED"
	CodeMappingFailed    = "MAPPING_FAILED"
	CodeTransformFailed  = "TRANSFORM_FAILED"
	CodeLoadFailed       = "LOAD_FAILED"
	CodeAuditFailed      = "AUDIT_FAILED"

	// Orchestration error codes
	CodeRolledBack        = "ROLLED_BACK"
	CodePipelineCancelled = "PIPELINE_CANCELLED"
	CodeInvalidTransition = "INVALID_TRANSITION"

	// Storage error codes
	CodeStorageError     = "STORAGE_ERROR"
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeWriteFailed      = "WRITE_FAILED"
	CodeReadFailed       = "READ_FAILED"
	CodeJobNotFound      = "JOB_NOT_FOUND"

	// Reasoning error codes
	CodeMalformedSuggestion  = "MALFORMED_SUGGESTION"
	CodeReasoningUnavailable = "REASONING_UNAVAILABLE"

	// Quality error codes
	CodeQualityBelowThreshold = "QUALITY_BELOW_THRESHOLD"
	CodeErrorRateExceeded     = "ERROR_RATE_EXCEEDED"

	// Internal error codes
	CodeInternalError = "INTERNAL_ERROR"
)
