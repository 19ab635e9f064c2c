// Package fault is the closed error taxonomy for the fabric. Every
// error that reaches a client is classified here first and translated
// to a fixed safe message; raw internal error text never crosses the
// wire.
package fault

import (
	"errors"
	"fmt"
	"time"

	"github.com/careerbox/presenced/pkg/protocol"
)

type Code string

const (
	Validation     Code = "VALIDATION_ERROR"
	Authentication Code = "AUTHENTICATION_ERROR"
	Authorization  Code = "AUTHORIZATION_ERROR"
	Datastore      Code = "DATASTORE_ERROR"
	Network        Code = "NETWORK_ERROR"
	RateLimit      Code = "RATE_LIMIT_ERROR"
	NotFound       Code = "NOT_FOUND"
	Conflict       Code = "CONFLICT"
	Unknown        Code = "UNKNOWN_ERROR"
)

var safeMessages = map[Code]string{
	Validation:     "The request contained invalid input.",
	Authentication: "Authentication failed. Please sign in again.",
	Authorization:  "You do not have permission to perform this action.",
	Datastore:      "A storage error occurred. Please try again shortly.",
	Network:        "A network error occurred. Please try again shortly.",
	RateLimit:      "Too many requests. Please slow down.",
	NotFound:       "The requested resource was not found.",
	Conflict:       "The request conflicts with the current state.",
	Unknown:        "Something went wrong. Please try again.",
}

// Error carries a taxonomy code alongside the wrapped cause.
type Error struct {
	Code  Code
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Cause: fmt.Errorf(format, args...)}
}

// CodeOf classifies an arbitrary error. Unclassified errors map to
// Unknown.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return Unknown
}

// SafeMessage returns the fixed user-facing message for a code.
func SafeMessage(code Code) string {
	if msg, ok := safeMessages[code]; ok {
		return msg
	}
	return safeMessages[Unknown]
}

// Critical reports whether a code must additionally be escalated to
// the operator alert room.
func (c Code) Critical() bool {
	return c == Datastore || c == Authentication
}

// Envelope translates an error into the wire error payload.
func Envelope(err error) protocol.ErrorPayload {
	code := CodeOf(err)
	return protocol.ErrorPayload{
		Code:      string(code),
		Message:   SafeMessage(code),
		Timestamp: time.Now().UTC(),
	}
}
