package oauthmodel

import "net/url"

// TokenRequest holds parameters for the OAuth2 token request.
// This represents the request body sent to the /oauth2/token endpoint.
type TokenRequest struct {
	// GrantType selects the exchange. Only authorization_code is accepted.
	GrantType GrantType

	// ClientID identifies the OAuth2 client making the request.
	// Required: Yes
	// Example: "web-app-client"
	ClientID string

	// ClientSecret is the secret credential for confidential clients.
	// Required: Yes for confidential clients, No for public clients
	// Security: Never log or expose this value
	ClientSecret string

	// Code is the authorization code received from the authorization endpoint.
	// Usage: Exchanged once for tokens, then becomes invalid
	Code string

	// RedirectURI must equal the redirect_uri the code was issued to.
	RedirectURI string

	// CodeVerifier is the PKCE code verifier that matches the code_challenge.
	// Required: Yes (if PKCE was used in authorization request)
	// Example: "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	// Validation: Server compares SHA256(code_verifier) with stored code_challenge
	CodeVerifier string
}

// ParseTokenRequest reads a token request from a posted form.
func ParseTokenRequest(form url.Values) *TokenRequest {
	return &TokenRequest{
		GrantType:    GrantType(form.Get(FormParameterGrantType)),
		ClientID:     form.Get(FormParameterClientID),
		ClientSecret: form.Get(FormParameterClientSecret),
		Code:         form.Get(FormParameterCode),
		RedirectURI:  form.Get(FormParameterRedirectURI),
		CodeVerifier: form.Get(FormParameterCodeVerifier),
	}
}
