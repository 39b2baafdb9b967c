// Package muxerr defines the typed error kinds used across the daemon and
// RPC boundary, so callers can branch on "what kind of failure" without
// string-matching error messages.
package muxerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so RPC responses and CLI exit codes can map
// cleanly back to it.
type Kind int

const (
	// Unknown is the zero value, also used for failures that fit no other
	// kind (e.g. host.New's lock and schedule errors).
	Unknown Kind = iota
	// NotFound means a session id (or other named resource) does not exist.
	NotFound
	// AlreadyExists means create was called with an id that is still live.
	AlreadyExists
	// AlreadyAttached means a primary attach was requested while the
	// primary slot is already occupied.
	AlreadyAttached
	// NotRunning means an operation requiring a live child was attempted
	// on a session that is Starting or Exited.
	NotRunning
	// ConnectFailed means the client could not establish a connection to
	// the daemon (dial failure, not a protocol-level error).
	ConnectFailed
	// Framing means a malformed frame was received (bad length prefix,
	// oversized payload, truncated stream).
	Framing
	// Protocol means a structurally valid frame carried a message the
	// receiver didn't expect in its current state.
	Protocol
	// SpawnFailed means the PTY child process could not be started.
	SpawnFailed
	// Cancelled means the operation was abandoned due to context
	// cancellation, not a failure of the underlying work.
	Cancelled
	// ArgumentError means the caller supplied a malformed argument before
	// any connection or session work could begin (e.g. an address with an
	// unsupported or missing transport scheme).
	ArgumentError
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case AlreadyExists:
		return "already_exists"
	case AlreadyAttached:
		return "already_attached"
	case NotRunning:
		return "not_running"
	case ConnectFailed:
		return "connect_failed"
	case Framing:
		return "framing"
	case Protocol:
		return "protocol"
	case SpawnFailed:
		return "spawn_failed"
	case Cancelled:
		return "cancelled"
	case ArgumentError:
		return "argument_error"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind and a human-readable message.
type Error struct {
	Kind    Kind
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

// New creates an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error wrapping cause. If cause is nil, Wrap returns nil,
// so it is safe to use as `return muxerr.Wrap(Kind, "...", err)` in the
// common "pass through a nil error" case.
func Wrap(kind Kind, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is a *Error (or wraps one) of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, else Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
