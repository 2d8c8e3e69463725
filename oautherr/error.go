package oautherr

import (
	"errors"
)

// Error is a protocol failure that has not been rendered yet. Reason is client visible and
// must not carry internal error text; Cause is for logs.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap attaches cause to a protocol failure.
func Wrap(cause error, kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

func (e *Error) Error() string {
	msg := e.Kind.Code()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind.Err(), e.Cause}
	}
	return []error{e.Kind.Err()}
}

// From returns the protocol failure in err's chain.
func From(err error) (*Error, bool) {
	var oauthErr *Error
	if errors.As(err, &oauthErr) {
		return oauthErr, true
	}
	return nil, false
}
