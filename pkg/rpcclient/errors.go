package rpcclient

import (
	"errors"
	"fmt"
)

// Error is the rpcclient package's tagged error type: every failure path is
// one of two kinds, never a runtime-dispatched hierarchy (spec.md §9).
// Modeled on the teacher's accumulate-lite-client-2/liteclient/errors
// package, which uses a small tagged ErrorCode enum rather than bespoke
// Go error types per failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Kind distinguishes chain-side rejection from transport/internal failure,
// per spec.md §4.2 "Error taxonomy".
type Kind int

const (
	// KindAttestationFailed is a chain-side rejection, carrying the message
	// produced by unpackExecutionError or the fee-estimation failure text.
	KindAttestationFailed Kind = iota
	// KindOther is a transport or internal error.
	KindOther
)

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// AttestationFailed builds a chain-rejection error.
func AttestationFailed(msg string) error {
	return &Error{Kind: KindAttestationFailed, Message: msg}
}

// Other builds a transport/internal error, wrapping cause.
func Other(context string, cause error) error {
	return &Error{Kind: KindOther, Message: context, Cause: cause}
}

// IsAttestationFailed reports whether err is, or wraps, a chain-side
// rejection. Uses errors.As rather than a bare type assertion so that an
// *Error wrapped with fmt.Errorf("%w", ...) is still recognised.
func IsAttestationFailed(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindAttestationFailed
}
