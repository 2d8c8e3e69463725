// Package oautherr defines the protocol error taxonomy and renders error payloads.
package oautherr

import (
	"net/http"

	"github.com/ory/fosite"
)

// Kind identifies a protocol error returned to the client.
type Kind int

const (
	InvalidRequest Kind = iota
	InvalidScope
	InvalidClient
	InvalidRequestObject
	RequestURINotAllowed
	RedirectURIMismatch
	InternalValidationFailure
	InvalidGrant
	UnsupportedGrantType
)

var kinds = map[Kind]*fosite.RFC6749Error{
	InvalidRequest:       fosite.ErrInvalidRequest,
	InvalidScope:         fosite.ErrInvalidScope,
	InvalidClient:        fosite.ErrInvalidClient,
	InvalidRequestObject: fosite.ErrInvalidRequestObject,
	RequestURINotAllowed: fosite.ErrInvalidRequest.WithDescription(
		"Pushed Authorization Requests can not contain the 'request_uri' parameter."),
	RedirectURIMismatch: {
		ErrorField:       "invalid_request_redirect_uri",
		DescriptionField: "The redirect_uri in the Request Object does not match the registered request.",
		CodeField:        http.StatusBadRequest,
	},
	InternalValidationFailure: fosite.ErrServerError,
	InvalidGrant:              fosite.ErrInvalidGrant,
	UnsupportedGrantType:      fosite.ErrUnsupportedGrantType,
}

func (k Kind) rfc6749() *fosite.RFC6749Error {
	if e, ok := kinds[k]; ok {
		return e
	}
	return fosite.ErrServerError
}

// Code is the value of the error parameter.
func (k Kind) Code() string {
	return k.rfc6749().ErrorField
}

// Description is the default error_description.
func (k Kind) Description() string {
	return k.rfc6749().DescriptionField
}

// StatusCode is the HTTP status used when the error is not delivered by redirect.
func (k Kind) StatusCode() int {
	if code := k.rfc6749().CodeField; code != 0 {
		return code
	}
	return http.StatusBadRequest
}

func (k Kind) String() string {
	return k.Code()
}

// Err returns the fosite error value backing the kind, for callers that match on it with
// errors.Is.
func (k Kind) Err() error {
	return k.rfc6749()
}
