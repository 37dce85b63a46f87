package running

import (
	"errors"
	"fmt"
)

// ErrorKind tags a running failure.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindLocationNotAuthorized
	KindMotionNotAuthorized
	KindSensorUnavailable
	KindAlreadyRunning
	KindInvalidState
)

func (k ErrorKind) String() string {
	switch k {
	case KindLocationNotAuthorized:
		return "location_not_authorized"
	case KindMotionNotAuthorized:
		return "motion_not_authorized"
	case KindSensorUnavailable:
		return "sensor_unavailable"
	case KindAlreadyRunning:
		return "already_running"
	case KindInvalidState:
		return "invalid_state"
	default:
		return "runtime"
	}
}

// Error is the single failure type of a running session. Cause is only set
// for KindRuntime.
type Error struct {
	Kind  ErrorKind
	Cause error
}

var (
	ErrLocationNotAuthorized = &Error{Kind: KindLocationNotAuthorized}
	ErrMotionNotAuthorized   = &Error{Kind: KindMotionNotAuthorized}
	ErrSensorUnavailable     = &Error{Kind: KindSensorUnavailable}
	ErrAlreadyRunning        = &Error{Kind: KindAlreadyRunning}
	ErrInvalidState          = &Error{Kind: KindInvalidState}
)

// Runtime wraps an underlying sensor failure. Wrapping an *Error returns it
// unchanged so a failure never carries two tags.
func Runtime(cause error) *Error {
	if e, ok := cause.(*Error); ok {
		return e
	}
	return &Error{Kind: KindRuntime, Cause: cause}
}

func (e *Error) Error() string {
	if e.Kind == KindRuntime && e.Cause != nil {
		return fmt.Sprintf("running: runtime: %v", e.Cause)
	}
	return "running: " + e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on kind so errors.Is(err, ErrInvalidState) works for any
// instance carrying that tag.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == KindRuntime && t.Cause != nil {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the tag from err, reporting false when err is not a
// running error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return KindRuntime, false
	}
	return e.Kind, true
}
