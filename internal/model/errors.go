package model

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError is a business error carrying a stable code.
// Codes have the form AREA-NNNN; the numeric part follows the HTTP status it maps to.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of the error with details attached.
func (e *DomainError) WithDetails(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: fmt.Sprintf(format, args...),
		Cause:   e.Cause,
	}
}

// Wrap returns a copy of the error with cause as the underlying error.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

func newDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

var (
	ErrUserNotFound       = newDomainError("USER-4040", "user not found")
	ErrDuplicateUsername  = newDomainError("USER-4090", "username already registered")
	ErrTaskNotFound       = newDomainError("TASK-4040", "task not found")
	ErrInvalidToken       = newDomainError("AUTH-4010", "could not validate credentials")
	ErrInvalidCredentials = newDomainError("AUTH-4011", "incorrect username or password")
	ErrInactiveUser       = newDomainError("AUTH-4001", "inactive user")
	ErrForbidden          = newDomainError("AUTH-4030", "operation not permitted for this user")
	ErrRateLimited        = newDomainError("AUTH-4290", "too many requests")
	ErrValidation         = newDomainError("ARG-4000", "validation failed")
)

// ErrorCode returns the code of a DomainError in err's chain, or "".
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsNotFound reports whether err is any of the not-found domain errors.
func IsNotFound(err error) bool {
	return strings.HasSuffix(ErrorCode(err), "-4040")
}

func validationError(format string, args ...any) error {
	return ErrValidation.WithDetails(format, args...)
}
