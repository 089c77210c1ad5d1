// Package gatewayerr defines goblin's error taxonomy: a single struct keyed
// by a Kind string constant rather than one Go type per error class. Every
// layer of the gateway returns or wraps a *gatewayerr.Error so callers can
// branch on Kind without type assertions, and the gateway server can turn
// any error into a structured JSON-RPC error reply.
package gatewayerr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of gateway error. These correspond to the error
// taxonomy named in the gateway's protocol design, not to individual Go types.
type Kind string

const (
	KindConfigInvalid        Kind = "ConfigInvalid"
	KindTransportError       Kind = "TransportError"
	KindProtocolError        Kind = "ProtocolError"
	KindTimeout              Kind = "Timeout"
	KindBackendUnavailable   Kind = "BackendUnavailable"
	KindUnknownCapability    Kind = "UnknownCapability"
	KindOutputTooLarge       Kind = "OutputTooLarge"
	KindSessionNotFound      Kind = "SessionNotFound"
	KindSessionOverCapacity  Kind = "SessionOverCapacity"
	KindCancelled            Kind = "Cancelled"
	KindBusy                 Kind = "Busy"
)

// jsonRPCCode maps a Kind to the numeric JSON-RPC error code returned to
// front-side clients. Kinds without a more specific code fall back to the
// generic server-error range.
func (k Kind) jsonRPCCode() int {
	switch k {
	case KindConfigInvalid:
		return -32001
	case KindTransportError:
		return -32002
	case KindProtocolError:
		return -32700
	case KindTimeout:
		return -32003
	case KindBackendUnavailable:
		return -32004
	case KindUnknownCapability:
		return -32601
	case KindOutputTooLarge:
		return -32005
	case KindSessionNotFound:
		return -32000
	case KindSessionOverCapacity:
		return -32000
	case KindCancelled:
		return -32006
	case KindBusy:
		return -32007
	default:
		return -32000
	}
}

// ExitCode maps a Kind to the process exit code used by the CLI.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfigInvalid:
		return 8
	case KindTransportError:
		return 4
	case KindTimeout:
		return 6
	case KindBackendUnavailable:
		return 4
	case KindUnknownCapability:
		return 7
	default:
		return 1
	}
}

// Error is goblin's single error type. Kind selects the taxonomy bucket,
// Code is the JSON-RPC numeric code derived from Kind (unless overridden),
// Message is the human-readable text returned to callers, and Cause is the
// wrapped underlying error, if any.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: kind.jsonRPCCode(), Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: kind.jsonRPCCode(), Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is a *Error of the given kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, returning ok=false if err is not (or
// does not wrap) a *Error.
func KindOf(err error) (Kind, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return "", false
}

// Convenience constructors for the most frequently raised kinds.

func ConfigInvalid(format string, args ...interface{}) *Error {
	return New(KindConfigInvalid, format, args...)
}

func Timeout(format string, args ...interface{}) *Error {
	return New(KindTimeout, format, args...)
}

func BackendUnavailable(format string, args ...interface{}) *Error {
	return New(KindBackendUnavailable, format, args...)
}

func UnknownCapability(format string, args ...interface{}) *Error {
	return New(KindUnknownCapability, format, args...)
}

func OutputTooLarge(limit, actual int) *Error {
	return New(KindOutputTooLarge, "result of %d bytes exceeds limit of %d bytes", actual, limit)
}

func SessionNotFound(sessionID string) *Error {
	return New(KindSessionNotFound, "session %q not found", sessionID)
}

func SessionOverCapacity(max int) *Error {
	return New(KindSessionOverCapacity, "session capacity of %d reached", max)
}

func Cancelled(format string, args ...interface{}) *Error {
	return New(KindCancelled, format, args...)
}

func Busy(format string, args ...interface{}) *Error {
	return New(KindBusy, format, args...)
}
