package service

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrorKind classifies service failures; handlers map kinds to HTTP statuses
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindInvalidToken
	KindExpiredOrReusedToken
	KindNotFound
	KindUpload
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidToken:
		return "invalid_token"
	case KindExpiredOrReusedToken:
		return "expired_or_reused_token"
	case KindNotFound:
		return "not_found"
	case KindUpload:
		return "upload"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error is the error type returned by every service operation.
// Message is safe to show to clients; Err is for logs only.
// RetryAfter is set on KindRateLimited errors.
type Error struct {
	Kind       ErrorKind
	Message    string
	Err        error
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func validationError(message string) error {
	return newError(KindValidation, message, nil)
}

func conflictError(message string, err error) error {
	return newError(KindConflict, message, err)
}

func unauthorizedError(message string) error {
	return newError(KindUnauthorized, message, nil)
}

func notFoundError(message string, err error) error {
	return newError(KindNotFound, message, err)
}

func uploadError(message string, err error) error {
	return newError(KindUpload, message, err)
}

// rateLimitedError rounds retryAfter up to whole seconds, never below one
func rateLimitedError(retryAfter time.Duration) error {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("Too many requests, try again in %ds", seconds),
		RetryAfter: time.Duration(seconds) * time.Second,
	}
}

func internalError(message string, err error) error {
	return newError(KindInternal, message, err)
}

// KindOf returns the kind of a service error, or KindInternal for anything else
func KindOf(err error) ErrorKind {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Kind
	}
	return KindInternal
}
