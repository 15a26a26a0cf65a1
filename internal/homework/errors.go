package homework

import (
	"errors"
	"fmt"
)

// Kind classifies a poll failure.
type Kind string

const (
	KindTypeMismatch  Kind = "type_mismatch"
	KindEmptyResponse Kind = "empty_response"
	KindMissingField  Kind = "missing_field"
	KindUnknownStatus Kind = "unknown_status"
	KindConnectivity  Kind = "connectivity"
	KindDelivery      Kind = "delivery"
)

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrTypeMismatch  = &Error{Kind: KindTypeMismatch}
	ErrEmptyResponse = &Error{Kind: KindEmptyResponse}
	ErrMissingField  = &Error{Kind: KindMissingField}
	ErrUnknownStatus = &Error{Kind: KindUnknownStatus}
	ErrConnectivity  = &Error{Kind: KindConnectivity}
	ErrDelivery      = &Error{Kind: KindDelivery}
)

// Error is the single error type returned by the fetch/validate/format/notify steps.
type Error struct {
	Kind Kind
	Msg  string
	// StatusCode is set for connectivity errors caused by a non-200 response.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind only, so errors.Is(err, ErrConnectivity) works for any status code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or "" when err is not a *Error.
func KindOf(err error) Kind {
	var he *Error
	if errors.As(err, &he) {
		return he.Kind
	}
	return ""
}

// DeliveryError wraps a transport failure.
func DeliveryError(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindDelivery, Msg: "message delivery failed", Err: err}
}
