package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether to retry, re-authenticate or surface it.
type Kind string

const (
	KindUnknown             Kind = ""
	KindAuthRequired        Kind = "AUTH_REQUIRED"
	KindValidation          Kind = "VALIDATION_ERROR"
	KindNetwork             Kind = "NETWORK_ERROR"
	KindVerification        Kind = "VERIFICATION_ERROR"
	KindOrderCreationFailed Kind = "ORDER_CREATION_FAILED"
	KindCheckoutFailed      Kind = "CHECKOUT_FAILED"
	KindPaymentRejected     Kind = "PAYMENT_REJECTED"
	KindRejected            Kind = "REJECTED"
	KindConflict            Kind = "CONFLICT"
	KindNotFound            Kind = "NOT_FOUND"
)

// Retryable reports whether the same step may safely be attempted again.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindVerification, KindPaymentRejected:
		return true
	default:
		return false
	}
}

func (k Kind) String() string { return string(k) }

// Error is the error type returned across component boundaries.
type Error struct {
	Kind    Kind
	Op      string // e.g. "commerce.CreateOrder"
	Message string // server-supplied or user-facing message, may be empty
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindNetwork}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// E builds an *Error.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds an *Error carrying a formatted message and no cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the first non-empty message found in err's *Error chain.
func Message(err error) string {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return ""
		}
		if e.Message != "" {
			return e.Message
		}
		err = e.Err
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
