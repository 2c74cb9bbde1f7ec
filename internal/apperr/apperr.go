package apperr

import (
	"errors"
)

// Kind classifies an error so the HTTP layer can map it to a response without
// inspecting message strings.
type Kind int

const (
	// KindValidation marks bad input shape; messages are surfaced verbatim.
	KindValidation Kind = iota
	// KindAuthentication marks a missing, invalid or expired session. Always
	// rendered as an opaque "unauthorized" regardless of the internal cause.
	KindAuthentication
	// KindAuthorization marks an authenticated caller forbidden for the
	// target role or school.
	KindAuthorization
	// KindNotFound marks a referenced entity that does not exist.
	KindNotFound
	// KindConflict marks uniqueness violations, capacity overruns and
	// inactive-parent violations.
	KindConflict
	// KindAllocation marks identifier allocator exhaustion. A transient
	// server fault, not a client error.
	KindAllocation
	// KindIntegrity marks an unexpected store failure mid-mutation. Logged
	// with full detail, returned to the caller as a generic failure.
	KindIntegrity
)

// Error is the error type every engine and authz operation returns.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error    { return &Error{Kind: KindValidation, Message: msg} }
func Authentication() *Error          { return &Error{Kind: KindAuthentication, Message: "unauthorized"} }
func Authorization(msg string) *Error { return &Error{Kind: KindAuthorization, Message: msg} }
func NotFound(msg string) *Error      { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error      { return &Error{Kind: KindConflict, Message: msg} }
func Allocation(msg string) *Error    { return &Error{Kind: KindAllocation, Message: msg} }

// Integrity wraps a store failure that left a mutation in an unknown state.
func Integrity(msg string, err error) *Error {
	return &Error{Kind: KindIntegrity, Message: msg, Err: err}
}

// KindOf extracts the Kind from err. Unclassified errors count as integrity
// faults so they are never shown to callers in detail.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIntegrity
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
