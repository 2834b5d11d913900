package domain

import "fmt"

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
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeSourceNotFound      = "SOURCE_NOT_FOUND"
	ErrCodeMalformedInput      = "MALFORMED_INPUT"
	ErrCodeInvalidEmbedding    = "INVALID_EMBEDDING"
	ErrCodeOutOfRange          = "OUT_OF_RANGE"
	ErrCodeIndexCorruption     = "INDEX_CORRUPTION"
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
)

// Ingestion errors
var (
	// ErrSourceNotFound is recoverable: a rebuild against a missing source
	// directory is a no-op and the existing store stays untouched.
	ErrSourceNotFound = NewDomainError(ErrCodeSourceNotFound, "ingestion source directory not found")
	ErrMalformedInput = NewDomainError(ErrCodeMalformedInput, "ingestion file missing required fields or length-mismatched")
)

// Embedding errors
var (
	ErrInvalidEmbedding = NewDomainError(ErrCodeInvalidEmbedding, "embedding has wrong dimension or non-finite values")
	ErrEmptyText        = NewDomainError(ErrCodeValidation, "text cannot be empty")
)

// Store errors
var (
	ErrOutOfRange      = NewDomainError(ErrCodeOutOfRange, "chunk position out of range")
	ErrIndexCorruption = NewDomainError(ErrCodeIndexCorruption, "persisted index and chunk store are inconsistent")
)

// Provider errors
var (
	// ErrProviderUnavailable signals an unreachable embedding, reranking or
	// answer backend. The core never retries; retry policy belongs to the
	// caller.
	ErrProviderUnavailable = NewDomainError(ErrCodeProviderUnavailable, "model provider unavailable")
)

// Catalog errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
)
