package oauthmodel

import (
	"strings"
)

// ResponseType represents the OAuth 2.0 response type.
// Determines what is returned from the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// Used in: Authorization Code Flow (most secure, requires server-side client)
	// Returns an authorization code that must be exchanged for tokens at the token endpoint.
	// Example: /oauth2/authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"

	// TokenResponseType returns an access token directly from the authorization endpoint.
	// Used in: Implicit and hybrid flows
	// Default response mode: fragment
	TokenResponseType ResponseType = "token"

	// IDTokenResponseType returns an ID token directly from the authorization endpoint.
	// Used in: OpenID Connect implicit and hybrid flows
	// Default response mode: fragment
	IDTokenResponseType ResponseType = "id_token"
)

// ResponseTypes is the parsed, space separated response_type parameter.
type ResponseTypes []ResponseType

// ParseResponseTypes splits a response_type parameter such as "code id_token".
// Unknown values are kept so that set comparisons stay faithful to what was sent.
func ParseResponseTypes(s string) ResponseTypes {
	fields := strings.Fields(s)
	types := make(ResponseTypes, 0, len(fields))
	for _, f := range fields {
		types = append(types, ResponseType(f))
	}
	return types
}

// Contains reports whether rt is present.
func (r ResponseTypes) Contains(rt ResponseType) bool {
	for _, t := range r {
		if t == rt {
			return true
		}
	}
	return false
}

// Equal compares the two lists as sets, ignoring order and duplicates.
func (r ResponseTypes) Equal(other ResponseTypes) bool {
	for _, t := range r {
		if !other.Contains(t) {
			return false
		}
	}
	for _, t := range other {
		if !r.Contains(t) {
			return false
		}
	}
	return true
}

// IsImplicit reports whether any member returns tokens directly from the authorization endpoint.
func (r ResponseTypes) IsImplicit() bool {
	return r.Contains(TokenResponseType) || r.Contains(IDTokenResponseType)
}

func (r ResponseTypes) String() string {
	parts := make([]string, len(r))
	for i, t := range r {
		parts[i] = string(t)
	}
	return strings.Join(parts, " ")
}

// ResponseModeType denotes how the authorization response parameters are returned to the client.
// Determines the mechanism used to send the auth code/error back to the redirect_uri.
type ResponseModeType string

const (
	// QueryResponseMode returns parameters in the URL query string.
	// Used in: Standard Authorization Code Flow
	// Example: https://client.example.com/callback?code=ABC123&state=xyz
	// Security: Parameters visible in browser history and server logs
	QueryResponseMode ResponseModeType = "query"

	// FragmentResponseMode returns parameters in the URL fragment (after #).
	// Used in: Implicit and hybrid flows, some SPA scenarios
	// Example: https://client.example.com/callback#token=ABC123&state=xyz
	// Security: Fragment not sent to server, only accessible via JavaScript
	FragmentResponseMode ResponseModeType = "fragment"

	// FormPostResponseMode returns parameters via HTTP POST with auto-submitting HTML form.
	// Used in: Enhanced security scenarios, prevents exposure in URL
	// Example: Server returns HTML with <form method="post"> that auto-submits
	// Security: Parameters not in URL, safer for browser history
	FormPostResponseMode ResponseModeType = "form_post"
)

// ParseResponseMode returns the mode named by s. ok is false for blank or unknown values.
func ParseResponseMode(s string) (ResponseModeType, bool) {
	switch ResponseModeType(strings.TrimSpace(s)) {
	case QueryResponseMode:
		return QueryResponseMode, true
	case FragmentResponseMode:
		return FragmentResponseMode, true
	case FormPostResponseMode:
		return FormPostResponseMode, true
	}
	return "", false
}

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
// Used to prevent authorization code interception attacks (especially for public clients).
type CodeMethodType string

const (
	// CodeMethodTypeS256 indicates SHA-256 hashing is used for the code challenge.
	// Used in: PKCE flow (required for public clients like SPAs/mobile apps)
	// Client sends: code_challenge = BASE64URL(SHA256(code_verifier))
	// Server validates: SHA256(provided code_verifier) == stored code_challenge
	// Security: Most secure PKCE method, prevents code interception
	CodeMethodTypeS256 CodeMethodType = "S256"

	// CodeMethodTypePlain means no hashing, code_verifier sent directly.
	// Used in: Legacy PKCE implementations (not recommended)
	// Client sends: code_challenge = code_verifier (plaintext)
	// Server validates: provided code_verifier == stored code_challenge
	// Security: Weaker than S256, only protects against passive attacks
	CodeMethodTypePlain CodeMethodType = "plain"
)

// ParseCodeMethod matches s case-insensitively. ok is false for unknown methods.
func ParseCodeMethod(s string) (CodeMethodType, bool) {
	switch {
	case strings.EqualFold(s, string(CodeMethodTypeS256)):
		return CodeMethodTypeS256, true
	case strings.EqualFold(s, string(CodeMethodTypePlain)):
		return CodeMethodTypePlain, true
	}
	return "", false
}

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, client_id, client_secret, redirect_uri, code_verifier (if PKCE)
	AuthorizationCodeGrant GrantType = "authorization_code"
)
