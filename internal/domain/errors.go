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

// Is matches on code and message so wrapped sentinels compare equal.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
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
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeConfig        = "CONFIG_ERROR"
	ErrCodeService       = "SERVICE_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// Validation errors
var (
	ErrEmptyText          = NewDomainError(ErrCodeValidation, "text cannot be empty")
	ErrEmptyQuestion      = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrDimensionMismatch  = NewDomainError(ErrCodeValidation, "embedding dimension mismatch")
	ErrNonFiniteVector    = NewDomainError(ErrCodeValidation, "embedding contains non-finite values")
	ErrInvalidChunkConfig = NewDomainError(ErrCodeValidation, "invalid chunk configuration")
	ErrInvalidSearch      = NewDomainError(ErrCodeValidation, "invalid search options")
)

// Not found errors
var (
	ErrCollectionNotFound = NewDomainError(ErrCodeNotFound, "collection not found")
)

// Storage errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

// ConfigError reports missing or invalid configuration. It is fatal and is
// raised before any remote call is made.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] invalid configuration: %v", ErrCodeConfig, e.Err)
	}
	return fmt.Sprintf("[%s] invalid configuration for %s: %v", ErrCodeConfig, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}

// ServiceError reports a network, auth or protocol failure from a remote
// model service.
type ServiceError struct {
	Service    string
	Op         string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] %s %s failed (status %d): %v", ErrCodeService, e.Service, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("[%s] %s %s failed: %v", ErrCodeService, e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// RateLimitError is a ServiceError signalling that the caller should back
// off and retry. errors.As with a *ServiceError target also matches it.
type RateLimitError struct {
	Cause *ServiceError
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("[%s] %v", ErrCodeRateLimited, e.Cause)
}

func (e *RateLimitError) Unwrap() error {
	return e.Cause
}

// NewServiceError builds a ServiceError, or a RateLimitError when the
// remote service throttled the request.
func NewServiceError(service, op string, statusCode int, err error) error {
	svcErr := &ServiceError{Service: service, Op: op, StatusCode: statusCode, Err: err}
	if statusCode == 429 {
		return &RateLimitError{Cause: svcErr}
	}
	return svcErr
}

// IsRateLimit reports whether err is, or wraps, a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsServiceError reports whether err is, or wraps, a ServiceError.
func IsServiceError(err error) bool {
	var svc *ServiceError
	return errors.As(err, &svc)
}

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var cfg *ConfigError
	return errors.As(err, &cfg)
}
