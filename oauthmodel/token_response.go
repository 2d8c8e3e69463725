package oauthmodel

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is an opaque token used to access protected resources.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	// Lifespan: Short-lived (typically 15 minutes - 1 hour)
	AccessToken string `json:"access_token"`

	// TokenType indicates how to use the access token (always "Bearer" in this implementation).
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Example: 900 (for 15 minutes)
	ExpiresIn int `json:"expires_in,omitempty"`

	// Scope indicates the access token's granted permissions.
	// Example: "openid profile email"
	Scope string `json:"scope,omitempty"`
}

// PushedAuthorizationResponse is returned by the PAR endpoint (RFC 9126 section 2.2).
type PushedAuthorizationResponse struct {
	RequestURI string `json:"request_uri"`
	ExpiresIn  int    `json:"expires_in"`
}
