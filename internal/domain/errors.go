package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError carrying the same code, so
// errors.Is(err, ErrExtractionFailed) matches any extraction failure.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return de.Code == e.Code
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeInternalError  = "INTERNAL_ERROR"

	ErrCodeExtractionFailed  = "EXTRACTION_FAILED"
	ErrCodeReasoningFailed   = "REASONING_FAILED"
	ErrCodeIndexFailed       = "INDEX_FAILED"
	ErrCodePersistenceFailed = "PERSISTENCE_FAILED"
)

// Request errors
var (
	ErrInvalidRequest       = NewDomainError(ErrCodeInvalidRequest, "at least one file is required")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidLimit         = NewDomainError(ErrCodeValidation, "limit out of range")
	ErrInvalidCursor        = NewDomainError(ErrCodeValidation, "invalid cursor")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Collaborator failures. Adapters wrap their causes with the constructors
// below; these sentinels exist for errors.Is comparisons.
var (
	ErrExtractionFailed  = NewDomainError(ErrCodeExtractionFailed, "text extraction failed")
	ErrReasoningFailed   = NewDomainError(ErrCodeReasoningFailed, "reasoning request failed")
	ErrIndexFailed       = NewDomainError(ErrCodeIndexFailed, "vector index operation failed")
	ErrPersistenceFailed = NewDomainError(ErrCodePersistenceFailed, "audit persistence failed")
)

// ExtractionFailure wraps err as an EXTRACTION_FAILED error.
func ExtractionFailure(err error) error {
	return NewDomainErrorWithCause(ErrCodeExtractionFailed, ErrExtractionFailed.Message, err)
}

// ReasoningFailure wraps err as a REASONING_FAILED error.
func ReasoningFailure(err error) error {
	return NewDomainErrorWithCause(ErrCodeReasoningFailed, ErrReasoningFailed.Message, err)
}

// IndexFailure wraps err as an INDEX_FAILED error.
func IndexFailure(err error) error {
	return NewDomainErrorWithCause(ErrCodeIndexFailed, ErrIndexFailed.Message, err)
}

// PersistenceFailure wraps err as a PERSISTENCE_FAILED error.
func PersistenceFailure(err error) error {
	return NewDomainErrorWithCause(ErrCodePersistenceFailed, ErrPersistenceFailed.Message, err)
}
