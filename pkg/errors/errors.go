// Package errors provides the kiosk's error taxonomy.
//
// Every failure the kiosk reports belongs to one of a small set of kinds
// (device access, model load, session connect, transport, send, decode,
// storage). ContextualError carries the kind together with the component and
// operation that produced it, so callers can branch with errors.Is against the
// exported sentinels while logs keep the full context.
//
// Usage:
//
//	err := errors.Wrap(errors.ErrDeviceAccess, "audio", "OpenMicrophone", cause)
//	if stderrors.Is(err, errors.ErrDeviceAccess) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Compare with errors.Is.
var (
	// ErrDeviceAccess is returned when the microphone, speaker or camera cannot be opened.
	ErrDeviceAccess = errors.New("device access denied or unavailable")

	// ErrModelLoad is returned when the face-detection model fails to load.
	ErrModelLoad = errors.New("face detection model failed to load")

	// ErrSessionConnect is returned when the remote session cannot be established.
	ErrSessionConnect = errors.New("session connect failed")

	// ErrSessionTransport is reported when an open session fails mid-stream.
	ErrSessionTransport = errors.New("session transport failure")

	// ErrSend is reported when an outbound audio chunk could not be delivered.
	ErrSend = errors.New("send failed")

	// ErrDecode is reported when an inbound payload is malformed.
	ErrDecode = errors.New("decode failed")

	// ErrStorage is reported when transcript persistence fails.
	ErrStorage = errors.New("storage failure")

	// ErrSessionClosed is returned when sending on a session that is already closed.
	ErrSessionClosed = errors.New("session is closed")
)

// ContextualError is a structured error that records where a failure happened
// and which kind it belongs to.
type ContextualError struct {
	// Component identifies the package that produced the error (e.g. "audio", "gemini").
	Component string

	// Operation describes what was being done when the error occurred.
	Operation string

	// Kind is one of the sentinel errors above, or nil.
	Kind error

	// StatusCode is an optional transport-level status code (HTTP or WebSocket close code).
	StatusCode int

	// Details holds optional structured metadata about the error.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a ContextualError with the given component, operation, and cause.
func New(component, operation string, cause error) *ContextualError {
	return &ContextualError{
		Component: component,
		Operation: operation,
		Cause:     cause,
	}
}

// Wrap creates a ContextualError of the given kind.
func Wrap(kind error, component, operation string, cause error) *ContextualError {
	return &ContextualError{
		Component: component,
		Operation: operation,
		Kind:      kind,
		Cause:     cause,
	}
}

// Error returns a human-readable representation of the error.
func (e *ContextualError) Error() string {
	base := fmt.Sprintf("[%s] %s", e.Component, e.Operation)

	if e.StatusCode != 0 {
		base += fmt.Sprintf(" (status %d)", e.StatusCode)
	}

	switch {
	case e.Kind != nil && e.Cause != nil:
		base += ": " + e.Kind.Error() + ": " + e.Cause.Error()
	case e.Kind != nil:
		base += ": " + e.Kind.Error()
	case e.Cause != nil:
		base += ": " + e.Cause.Error()
	}

	return base
}

// Unwrap returns the underlying cause, enabling use with errors.Is and errors.As.
func (e *ContextualError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the kind of this error.
func (e *ContextualError) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// WithStatusCode sets the status code and returns the same error for chaining.
func (e *ContextualError) WithStatusCode(code int) *ContextualError {
	e.StatusCode = code
	return e
}

// WithDetails sets the details map and returns the same error for chaining.
func (e *ContextualError) WithDetails(details map[string]any) *ContextualError {
	e.Details = details
	return e
}

// KindOf returns the sentinel kind of err, or nil when err carries none.
func KindOf(err error) error {
	var ce *ContextualError
	for err != nil {
		if errors.As(err, &ce) {
			if ce.Kind != nil {
				return ce.Kind
			}
			err = ce.Cause
			continue
		}
		return nil
	}
	return nil
}
