package domain

import (
	"errors"
	"fmt"
	"time"
)

// Application error codes
const (
	EINVALID      = "invalid"      // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized" // Authentication or signature failure
	EFORBIDDEN    = "forbidden"    // Permission denied
	ENOTFOUND     = "not_found"    // Resource not found
	ECONFLICT     = "conflict"     // Resource conflict (e.g., illegal transition)
	ERATELIMIT    = "rate_limit"   // Per-minute request limit exceeded
	EPAYMENT      = "payment"      // Daily quota exhausted; upgrade required
	EUNAVAILABLE  = "unavailable"  // Upstream dependency unavailable
	EINTERNAL     = "internal"     // Internal server error
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "quota.try_reserve")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var d *Denial
	if errors.As(err, &d) {
		return d.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		// For internal errors, return generic message
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	var d *Denial
	if errors.As(err, &d) {
		return d.Message()
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	var d *Denial
	if errors.As(err, &d) {
		return d.Op
	}
	return ""
}

// Convenience constructors for common error types

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s with ID %q not found", resource, id),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Unauthorized creates an authentication error.
func Unauthorized(op, message string) *Error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Forbidden creates a permission error.
func Forbidden(op, message string) *Error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Unavailable creates an upstream-unavailable error, wrapping the underlying error.
func Unavailable(err error, op, message string) *Error {
	return &Error{
		Code:    EUNAVAILABLE,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Denial is an admission rejection carrying structured retry data.
// The HTTP layer depends on RetryAfter to emit Retry-After headers,
// so denials are a distinct type rather than a formatted Error message.
type Denial struct {
	Code       string        // ERATELIMIT or EPAYMENT
	Op         string        // Operation that denied (e.g., "admission.admit")
	Plan       PlanCode      // Plan governing the denied user
	Limit      int           // Ceiling that was hit
	RetryAfter time.Duration // Time until the window or quota day resets
}

func (d *Denial) Error() string {
	if d.Op != "" {
		return fmt.Sprintf("%s: %s", d.Op, d.Message())
	}
	return d.Message()
}

// Message returns the human-readable denial message.
func (d *Denial) Message() string {
	switch d.Code {
	case ERATELIMIT:
		return fmt.Sprintf("Too many requests. Try again in %d seconds.", retrySeconds(d.RetryAfter))
	case EPAYMENT:
		return fmt.Sprintf("Daily limit of %d analyses reached on the %s plan. Resets in %s.",
			d.Limit, d.Plan.DisplayName(), d.RetryAfter.Round(time.Minute))
	default:
		return "Request denied."
	}
}

// RateLimited creates a per-minute window denial.
func RateLimited(op string, plan PlanCode, limit int, retryAfter time.Duration) *Denial {
	return &Denial{
		Code:       ERATELIMIT,
		Op:         op,
		Plan:       plan,
		Limit:      limit,
		RetryAfter: retryAfter,
	}
}

// QuotaExhausted creates a daily quota denial.
func QuotaExhausted(op string, plan PlanCode, limit int, retryAfter time.Duration) *Denial {
	return &Denial{
		Code:       EPAYMENT,
		Op:         op,
		Plan:       plan,
		Limit:      limit,
		RetryAfter: retryAfter,
	}
}

// RetrySeconds returns the denial's retry hint rounded up to whole
// seconds, suitable for a Retry-After header. Never less than 1.
func (d *Denial) RetrySeconds() int {
	return retrySeconds(d.RetryAfter)
}

func retrySeconds(dur time.Duration) int {
	secs := int((dur + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
