package oauthmodel

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-authz-core/clients"
)

// AuthorizationParameters holds the parameters of an OAuth2 authorization request.
// They are received at the /oauth2/par endpoint, persisted with the pushed request and
// reconciled against the Request Object before the /oauth2/authorize endpoint uses them.
type AuthorizationParameters struct {
	// ClientID identifies the application requesting authorization.
	// Required: Yes
	// Validated against: clients.Client.ID and the Request Object client_id
	ClientID string `json:"client_id"`

	// ResponseType is the raw, space separated response_type parameter.
	// Example: "code" or "code id_token"
	// Must be set-equal to the Request Object response_type when one is present
	ResponseType string `json:"response_type"`

	// RedirectURI is where the authorization response will be sent.
	// Security: Must exactly match a pre-registered URI to prevent open redirects
	RedirectURI string `json:"redirect_uri"`

	// ResponseMode controls how the response is returned (query/fragment/form_post).
	// Default: inferred from the response types
	ResponseMode ResponseModeType `json:"response_mode,omitempty"`

	// Scope specifies the permissions being requested.
	// Example: "openid profile email"
	// Validated against: clients.Client.Scopes by the scope policy
	Scope string `json:"scope,omitempty"`

	// State is an opaque value echoed back to the client for CSRF protection.
	// Under FAPI it is only honoured when carried by the signed Request Object
	State string `json:"state,omitempty"`

	// Nonce associates the client session with the ID token.
	Nonce string `json:"nonce,omitempty"`

	// CodeChallenge is the PKCE challenge derived from code_verifier.
	// Length: 43 characters when using S256
	CodeChallenge string `json:"code_challenge,omitempty"`

	// CodeChallengeMethod specifies how code_challenge was derived ("S256" or "plain").
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`

	// Display and Prompt are passed through to the login UI.
	Display string `json:"display,omitempty"`
	Prompt  string `json:"prompt,omitempty"`

	// MaxAge is the allowable elapsed time in seconds since the last active authentication.
	MaxAge *int `json:"max_age,omitempty"`

	// AcrValues are the requested authentication context class references.
	AcrValues string `json:"acr_values,omitempty"`

	// LoginHint pre-fills the username/email on the login page.
	LoginHint string `json:"login_hint,omitempty"`

	// Request is the raw signed Request Object (JWT) pushed with the parameters.
	Request string `json:"request,omitempty"`

	// CustomParameters holds non-registered parameters the server is configured to accept.
	CustomParameters map[string]string `json:"custom_parameters,omitempty"`
}

// ParseAuthorizationParameters reads authorization parameters from a form or query.
// Only parameters named in customAllowed are collected as custom parameters.
func ParseAuthorizationParameters(form url.Values, customAllowed []string) (*AuthorizationParameters, error) {
	params := &AuthorizationParameters{
		ClientID:            form.Get(FormParameterClientID),
		ResponseType:        form.Get(FormParameterResponseType),
		RedirectURI:         form.Get(FormParameterRedirectURI),
		ResponseMode:        ResponseModeType(form.Get(FormParameterResponseMode)),
		Scope:               form.Get(FormParameterScope),
		State:               form.Get(FormParameterState),
		Nonce:               form.Get(FormParameterNonce),
		CodeChallenge:       form.Get(FormParameterCodeChallenge),
		CodeChallengeMethod: form.Get(FormParameterCodeChallengeMethod),
		Display:             form.Get(FormParameterDisplay),
		Prompt:              form.Get(FormParameterPrompt),
		AcrValues:           form.Get(FormParameterAcrValues),
		LoginHint:           form.Get(FormParameterLoginHint),
		Request:             form.Get(FormParameterRequest),
	}

	if raw := strings.TrimSpace(form.Get(FormParameterMaxAge)); raw != "" {
		maxAge, err := strconv.Atoi(raw)
		if err != nil || maxAge < 0 {
			return nil, ErrInvalidMaxAge
		}
		params.MaxAge = &maxAge
	}

	for _, name := range customAllowed {
		if v := form.Get(name); strings.TrimSpace(v) != "" {
			if params.CustomParameters == nil {
				params.CustomParameters = make(map[string]string)
			}
			params.CustomParameters[name] = v
		}
	}
	return params, nil
}

// ResponseTypes returns the parsed response_type parameter.
func (p *AuthorizationParameters) ResponseTypes() ResponseTypes {
	return ParseResponseTypes(p.ResponseType)
}

// Clone returns a deep copy so that a working set can be validated before it replaces the
// original.
func (p *AuthorizationParameters) Clone() *AuthorizationParameters {
	c := *p
	if p.MaxAge != nil {
		maxAge := *p.MaxAge
		c.MaxAge = &maxAge
	}
	if p.CustomParameters != nil {
		c.CustomParameters = make(map[string]string, len(p.CustomParameters))
		for k, v := range p.CustomParameters {
			c.CustomParameters[k] = v
		}
	}
	return &c
}

// ValidateParametersWithClient validates the Authorization parameters against the client
func (p *AuthorizationParameters) ValidateParametersWithClient(client *clients.Client) error {
	if strings.TrimSpace(p.ClientID) == "" {
		return ErrMissingClientID
	}
	if p.ClientID != client.ID {
		return ErrClientMismatch
	}

	// A code challenge is at most 128 characters (the verifier limit for plain)
	if len(p.CodeChallenge) > 128 {
		return ErrInvalidCodeChallenge
	}

	// Check that the code challenge method is valid
	if err := p.ValidateCodeChallengeMethod(); err != nil {
		return err
	}

	// Check that the redirect URI is valid for the client
	if !client.HasRedirectURI(p.RedirectURI) {
		return ErrInvalidRedirectUri
	}

	// Check that the response mode is valid
	if !responseModeValid(p.ResponseMode) {
		return ErrInvalidResponseMode
	}

	// Check that the response type is valid
	if !responseTypeValid(p.ResponseTypes()) {
		return ErrInvalidResponseType
	}
	return nil
}

// ValidateCodeChallengeMethod rejects a code_challenge_method other than plain or S256.
func (p *AuthorizationParameters) ValidateCodeChallengeMethod() error {
	if !codeChallengeMethodValid(p.CodeChallenge, p.CodeChallengeMethod) {
		return ErrInvalidCodeChallengeMethod
	}
	return nil
}

func codeChallengeMethodValid(codeChallenge, challengeMethod string) bool {
	if strings.TrimSpace(codeChallenge) == "" || strings.TrimSpace(challengeMethod) == "" {
		return true
	}
	_, ok := ParseCodeMethod(challengeMethod)
	return ok
}

func responseModeValid(responseMode ResponseModeType) bool {
	if strings.TrimSpace(string(responseMode)) == "" {
		return true
	}
	_, ok := ParseResponseMode(string(responseMode))
	return ok
}

func responseTypeValid(responseTypes ResponseTypes) bool {
	if len(responseTypes) == 0 {
		return false
	}
	for _, rt := range responseTypes {
		switch rt {
		case CodeResponseType, TokenResponseType, IDTokenResponseType:
		default:
			return false
		}
	}
	return true
}
