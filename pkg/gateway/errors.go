package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies gateway failures so callers can choose retry vs. abort.
type ErrorKind string

const (
	// KindUnreachable covers timeouts and connection failures. Transient;
	// safe to retry.
	KindUnreachable ErrorKind = "unreachable"
	// KindNotFound means the target object does not exist at the gateway.
	// Generally not retryable; signals a data-linkage problem.
	KindNotFound ErrorKind = "not_found"
	// KindValidation means caller-supplied data is malformed (e.g. a bad tax
	// ID format). Fix the input and resubmit.
	KindValidation ErrorKind = "validation"
	// KindRejected is a business-rule rejection by the gateway, carrying a
	// reason code (e.g. "missing_cpf").
	KindRejected ErrorKind = "rejected"
)

// Error is the typed failure returned by all gateway operations.
type Error struct {
	Kind       ErrorKind
	Op         string // operation that failed, e.g. "CreateSubscription"
	ReasonCode string // gateway reason code, set for rejections/validation
	Message    string // human-readable detail from the gateway, if any
	Err        error  // underlying transport error, if any
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gateway: %s: %s", e.Op, e.Kind)
	if e.ReasonCode != "" {
		msg += " (" + e.ReasonCode + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnreachable reports whether err is a transient transport failure.
func IsUnreachable(err error) bool {
	return kindOf(err) == KindUnreachable
}

// IsNotFound reports whether err means the object is absent at the gateway.
func IsNotFound(err error) bool {
	return kindOf(err) == KindNotFound
}

// IsValidation reports whether err is a malformed-input failure.
func IsValidation(err error) bool {
	return kindOf(err) == KindValidation
}

// IsRejected reports whether err is a business-rule rejection.
func IsRejected(err error) bool {
	return kindOf(err) == KindRejected
}

// ReasonCode extracts the gateway reason code from err, or "" when err is not
// a gateway error or carries no code.
func ReasonCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.ReasonCode
	}
	return ""
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
