package oautherr

import (
	"encoding/json"
	"net/url"
	"strings"
)

// ErrorResponse is the OAuth 2.0 error payload.
type ErrorResponse struct {
	Code             string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
	Reason           string `json:"reason,omitempty"`
	State            string `json:"state,omitempty"`
}

func (e *ErrorResponse) Error() string {
	if e.ErrorDescription != "" {
		return e.Code + ": " + e.ErrorDescription
	}
	return e.Code
}

// QueryString renders the payload as error=..&error_description=..&error_uri=..&reason=..&state=..
// skipping empty members.
func (e *ErrorResponse) QueryString() string {
	var sb strings.Builder
	add := func(name, value string) {
		if value == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(value))
	}
	add("error", e.Code)
	add("error_description", e.ErrorDescription)
	add("error_uri", e.ErrorURI)
	add("reason", e.Reason)
	add("state", e.State)
	return sb.String()
}

// Factory builds error payloads, applying any configured description or URI overrides.
type Factory struct {
	descriptions map[Kind]string
	uris         map[Kind]string
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithDescription replaces the default error_description for kind.
func WithDescription(kind Kind, description string) FactoryOption {
	return func(f *Factory) {
		f.descriptions[kind] = description
	}
}

// WithErrorURI sets the error_uri reported for kind.
func WithErrorURI(kind Kind, uri string) FactoryOption {
	return func(f *Factory) {
		f.uris[kind] = uri
	}
}

func NewFactory(options ...FactoryOption) *Factory {
	f := &Factory{
		descriptions: make(map[Kind]string),
		uris:         make(map[Kind]string),
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Response returns the payload for kind.
func (f *Factory) Response(kind Kind, state, reason string) *ErrorResponse {
	description, ok := f.descriptions[kind]
	if !ok {
		description = kind.Description()
	}
	return &ErrorResponse{
		Code:             kind.Code(),
		ErrorDescription: description,
		ErrorURI:         f.uris[kind],
		Reason:           reason,
		State:            state,
	}
}

// QueryString returns the payload for kind shaped as a query string.
func (f *Factory) QueryString(kind Kind, state, reason string) string {
	return f.Response(kind, state, reason).QueryString()
}

// JSON returns the payload for kind as a JSON document.
func (f *Factory) JSON(kind Kind, state, reason string) ([]byte, error) {
	return json.Marshal(f.Response(kind, state, reason))
}
