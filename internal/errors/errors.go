// Package errors defines typed errors with categories for protocol-level reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. Every failure the daemon reports to a client maps to
// exactly one kind, which becomes the `error` string of the response envelope.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// making it easier to handle different types of failures appropriately.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// MalformedEnvelope indicates a request line that was not a valid envelope.
	MalformedEnvelope Kind = "malformed_envelope"
	// UnsupportedVersion indicates a protocol version the daemon does not speak.
	UnsupportedVersion Kind = "unsupported_version"
	// UnknownMethod indicates a method outside the capability table.
	UnknownMethod Kind = "unknown_method"
	// MissingParameter indicates a required parameter was absent; Message names it.
	MissingParameter Kind = "missing_parameter"
	// NotFound indicates the requested upstream entity does not exist.
	NotFound Kind = "not_found"
	// Unauthorized indicates the upstream rejected the stored credential.
	Unauthorized Kind = "unauthorized"
	// UpstreamUnreachable indicates a network-level failure talking to the upstream.
	UpstreamUnreachable Kind = "upstream_unreachable"
	// UpstreamError indicates an upstream failure whose message is passed through.
	UpstreamError Kind = "upstream_error"
	// MissingCredential indicates no API key was available at startup.
	MissingCredential Kind = "missing_credential"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Wire maps an error to the string sent in a response envelope's `error` field.
// MissingParameter encodes the parameter name; UpstreamError passes the
// upstream message through verbatim. Untyped errors fall back to their text.
func Wire(err error) string {
	var e *E
	if stderrors.As(err, &e) {
		switch e.Kind {
		case MissingParameter:
			return fmt.Sprintf("missing_parameter:%s", e.Message)
		case UpstreamError:
			if e.Message != "" {
				return e.Message
			}
			return string(e.Kind)
		default:
			return string(e.Kind)
		}
	}
	return err.Error()
}
