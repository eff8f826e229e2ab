package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced to callers.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicate          = "DUPLICATE"
	CodeLockedByOther      = "LOCKED_BY_OTHER"
	CodeStorageError       = "STORAGE_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewInvalidCredentials is the single error for both unknown-user and
// wrong-password, so usernames cannot be enumerated from the response.
func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "invalid username or password", http.StatusUnauthorized, nil)
}

func NewAccountInactive() error {
	return NewDomainError(CodeAccountInactive, "account is deactivated", http.StatusForbidden, nil)
}

func NewAccountLocked(retryAfterSeconds int) error {
	return NewDomainError(CodeAccountLocked, "account temporarily locked after repeated failures", http.StatusForbidden,
		map[string]any{"retry_after_seconds": retryAfterSeconds})
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewDuplicate(message string, details map[string]any) error {
	return NewDomainError(CodeDuplicate, message, http.StatusConflict, details)
}

// NewLockedByOther reports a held advisory lock, naming the holder so the
// caller can decide whether to retry later.
func NewLockedByOther(holder string) error {
	return NewDomainError(CodeLockedByOther, fmt.Sprintf("ticket is being edited by %s", holder), http.StatusConflict,
		map[string]any{"locked_by": holder})
}

// NewStorageError wraps an underlying I/O or transaction failure. The cause
// is kept for logging but not surfaced to callers.
func NewStorageError(err error) error {
	return &DomainError{
		Code:       CodeStorageError,
		Message:    "storage operation failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError. Raw storage errors
// never escape: anything unrecognized becomes a STORAGE_ERROR.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewStorageError(err).(*DomainError)
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
