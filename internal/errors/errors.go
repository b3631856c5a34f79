package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
)

// Error is the structured error type for augment-lite-mcp.
// It carries a stable public code, optional key-value details, and the
// underlying cause for error chain support.
type Error struct {
	// Code is the stable public error code.
	Code Code

	// Message is the human-readable error message.
	Message string

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message.
// The retryable flag is derived from the code.
func New(code Code, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates an Error from an existing error, classifying context
// cancellation and deadline errors into their dedicated codes.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) {
		code = CodeCancelled
	} else if stderrors.Is(err, context.DeadlineExceeded) {
		code = CodeTimeout
	}
	return New(code, err.Error(), err)
}

// InvalidInput creates an input validation error.
func InvalidInput(message string) *Error {
	return New(CodeInvalidInput, message, nil)
}

// Upstream creates a model provider or embedding API error.
func Upstream(message string, cause error) *Error {
	return New(CodeUpstreamFailure, message, cause)
}

// IndexUnavailable creates a missing-or-unloadable index error.
func IndexUnavailable(message string, cause error) *Error {
	return New(CodeIndexUnavailable, message, cause)
}

// NotFound creates a missing-entity error.
func NotFound(message string) *Error {
	return New(CodeNotFound, message, nil)
}

// Internal creates an internal error.
func Internal(message string, cause error) *Error {
	return New(CodeInternal, message, cause)
}

// IsRetryable reports whether an error is worth retrying. Structured
// errors carry the flag explicitly; for plain errors, timeouts and
// connection failures are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *Error
	if stderrors.As(err, &se) {
		return se.Retryable
	}
	if stderrors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	return stderrors.As(err, &opErr)
}

// CodeOf extracts the public code from an error chain.
// Plain errors map to INTERNAL; context errors map to their codes.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var se *Error
	if stderrors.As(err, &se) {
		return se.Code
	}
	if stderrors.Is(err, context.Canceled) {
		return CodeCancelled
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeInternal
}
