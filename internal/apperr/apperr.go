// Package apperr defines the error taxonomy shared by the store, compiler,
// revision manager and API layers.
package apperr

import "fmt"

// Kind identifies one of the error categories from the service's error
// handling design.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindConflict             Kind = "conflict"
	KindInvalid              Kind = "invalid"
	KindReferentialInUse     Kind = "referential_in_use"
	KindCycleDetected        Kind = "cycle_detected"
	KindInsufficientCoverage Kind = "insufficient_coverage"
	KindNoDeployers          Kind = "no_deployers"
	KindUnauthorized         Kind = "unauthorized"
	KindForbidden            Kind = "forbidden"
	KindRemoteConnectFailed  Kind = "remote_connect_failed"
	KindRemoteCommandFailed  Kind = "remote_command_failed"
)

// Error is the concrete error type carried through the system. Handlers map
// Kind to an HTTP status and render Fields as a {field: message} map.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	// Actual is used by InsufficientCoverage to report the measured ratio.
	Actual float64
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

func Conflict(field, value string) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: fmt.Sprintf("%s %q already in use", field, value),
		Fields:  map[string]string{field: "already exists"},
	}
}

func Invalid(field, reason string) *Error {
	return &Error{
		Kind:    KindInvalid,
		Message: reason,
		Fields:  map[string]string{field: reason},
	}
}

func ReferentialInUse(resource, id string) *Error {
	return &Error{Kind: KindReferentialInUse, Message: fmt.Sprintf("%s %s is still referenced", resource, id)}
}

func CycleDetected() *Error {
	return &Error{Kind: KindCycleDetected, Message: "cycle detected in nested reference graph"}
}

func InsufficientCoverage(actual float64) *Error {
	return &Error{
		Kind:    KindInsufficientCoverage,
		Message: fmt.Sprintf("test coverage %.0f%% is lower than the required 100%%", actual*100),
		Actual:  actual,
	}
}

func NoDeployers() *Error {
	return &Error{Kind: KindNoDeployers, Message: "no deployers matched any target of this revision"}
}

func Unauthorized(reason string) *Error {
	return &Error{Kind: KindUnauthorized, Message: reason}
}

func Forbidden(reason string) *Error {
	return &Error{Kind: KindForbidden, Message: reason}
}

func RemoteConnectFailed(reason string) *Error {
	return &Error{Kind: KindRemoteConnectFailed, Message: reason}
}

func RemoteCommandFailed(stderr string) *Error {
	return &Error{Kind: KindRemoteCommandFailed, Message: stderr}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	ae, ok := err.(*Error)
	return ok && ae.Kind == kind
}
