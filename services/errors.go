package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeUnauthenticated ErrorType = "unauthenticated"
	ErrorTypeForbidden       ErrorType = "forbidden"
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeUnavailable     ErrorType = "unavailable"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeInternal        ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

var (
	// Authentication errors (no or bad identity, 401)
	ErrMissingToken       = NewDomainError(ErrorTypeUnauthenticated, "missing access token", nil)
	ErrInvalidToken       = NewDomainError(ErrorTypeUnauthenticated, "invalid or expired access token", nil)
	ErrInvalidCredentials = NewDomainError(ErrorTypeUnauthenticated, "invalid credentials", nil)
	ErrInvalidRefresh     = NewDomainError(ErrorTypeUnauthenticated, "invalid or expired refresh token", nil)
	ErrProfileNotFound    = NewDomainError(ErrorTypeUnauthenticated, "no profile for subject", nil)

	// Authorization errors (identity established, access refused, 403)
	ErrPermissionDenied = NewDomainError(ErrorTypeForbidden, "insufficient permissions", nil)
	ErrRoleDenied       = NewDomainError(ErrorTypeForbidden, "role not allowed", nil)

	// Throttling (429)
	ErrRateLimited = NewDomainError(ErrorTypeRateLimit, "rate limit exceeded", nil)

	// Upstream collaborators
	ErrIdentityUnavailable = NewDomainError(ErrorTypeUnavailable, "identity store unavailable", nil)
	ErrPolicyUnavailable   = NewDomainError(ErrorTypeUnavailable, "policy store unavailable", nil)

	// Validation
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	// Internal
	ErrInternal = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// IsUnauthenticatedError checks if an error is an authentication error
func IsUnauthenticatedError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeUnauthenticated
	}
	return false
}

// IsForbiddenError checks if an error is an authorization error
func IsForbiddenError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeForbidden
	}
	return false
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeRateLimit
	}
	return false
}

// IsUnavailableError checks if an error is an upstream availability error
func IsUnavailableError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeUnavailable
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}
