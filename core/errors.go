package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies an error into one of the failure categories callers
// can act on. It replaces type-switching on concrete error types: match on
// Kind instead.
type ErrorKind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown ErrorKind = iota

	// KindAuthentication is an invalid or missing credential. Never retried.
	KindAuthentication

	// KindValidation is a malformed request detected before or by the
	// service. Never retried. Fields names the offending parameters.
	KindValidation

	// KindRateLimited is a service-side 429. Retryable; RetryAfter carries
	// the server's hint when present.
	KindRateLimited

	// KindTransient is a 5xx, a network-level failure, or a single-attempt
	// timeout. Retryable up to the configured maximum.
	KindTransient

	// KindNotFound is a missing resource. Never retried.
	KindNotFound

	// KindStreamProtocol is malformed SSE framing or a non-JSON,
	// non-sentinel payload mid-stream. Terminal; the stream is closed.
	KindStreamProtocol

	// KindCanceled is a caller-initiated abort. Terminal by definition and
	// suppresses any further retry.
	KindCanceled
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindStreamProtocol:
		return "stream_protocol"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is the classified error surfaced by every pipeline operation.
type Error struct {
	// Kind is the failure category.
	Kind ErrorKind

	// Status is the HTTP status code, or 0 when the failure never produced
	// a response.
	Status int

	// Code is the structured error code from the service body, if any.
	Code string

	// Message is a human-readable description.
	Message string

	// RequestID is the service-assigned request identifier, if any.
	RequestID string

	// RetryAfter is the server's backoff hint for rate-limited responses.
	RetryAfter time.Duration

	// Fields names the offending parameters for validation failures.
	Fields []string

	// Attempts is the number of attempts made before the error surfaced.
	// Zero means the error was terminal on the first attempt.
	Attempts int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("venice: ")
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status=%d", e.Status)
		if e.Code != "" {
			fmt.Fprintf(&b, ", code=%s", e.Code)
		}
		if e.RequestID != "" {
			fmt.Fprintf(&b, ", request_id=%s", e.RequestID)
		}
		b.WriteString(")")
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, " [fields: %s]", strings.Join(e.Fields, ", "))
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chaining.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError builds a validation failure naming the offending fields.
func NewValidationError(message string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// KindOf extracts the ErrorKind from err, unwrapping as needed.
// Returns KindUnknown for nil or unclassified errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err may be retried. Rate-limited and transient
// failures are retryable; everything else, including cancellation, is
// terminal.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTransient:
		return true
	}
	return false
}
