// Package errs defines the typed error kinds shared by handlers, the core
// executor and both transports. Handlers return these instead of throwing
// across layer boundaries; the executor translates them to the transport's
// native form.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable classification of an error.
type Kind string

const (
	// KindInvalidParams marks caller input that failed validation.
	KindInvalidParams Kind = "InvalidParams"

	// KindNotFound marks a reference to an entity that does not exist.
	KindNotFound Kind = "NotFound"

	// KindConflict marks a uniqueness or state conflict.
	KindConflict Kind = "Conflict"

	// KindResourceExhausted marks pool or quota exhaustion.
	KindResourceExhausted Kind = "ResourceExhausted"

	// KindTransient marks a retryable infrastructure failure.
	KindTransient Kind = "Transient"

	// KindInternal marks an unexpected program failure.
	KindInternal Kind = "Internal"

	// KindPreSwitchValidationFailed marks a project switch rejected before
	// any state changed.
	KindPreSwitchValidationFailed Kind = "PreSwitchValidationFailed"

	// KindAtomicSwitchFailed marks a project switch that failed during or
	// after the atomic update and was rolled back.
	KindAtomicSwitchFailed Kind = "AtomicSwitchFailed"
)

// Error is a typed error carrying a kind, a human-readable message and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a typed error with a formatted message.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error. A nil err
// returns nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind of err. Untyped errors are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the error kind is worth retrying.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindResourceExhausted:
		return true
	}
	return false
}
