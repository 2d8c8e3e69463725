package token

import "time"

// Type distinguishes the grants stored in the token collection.
type Type string

const (
	TypeAuthorizationCode Type = "authorization_code"
	TypeAccessToken       Type = "access_token"
)

// Token is a persisted access grant: an authorization code or an opaque access token.
type Token struct {
	Code        string    `json:"code"`
	Type        Type      `json:"type"`
	ClientID    string    `json:"clientId"`
	Subject     string    `json:"subject,omitempty"`
	Scope       string    `json:"scope,omitempty"`
	RedirectURI string    `json:"redirectUri,omitempty"`
	Nonce       string    `json:"nonce,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`

	// PKCE challenge bound to an authorization code.
	CodeChallenge       string `json:"codeChallenge,omitempty"`
	CodeChallengeMethod string `json:"codeChallengeMethod,omitempty"`

	Attributes Attributes `json:"attributes"`
}

// Attributes are stored alongside the token.
type Attributes struct {
	// X5tS256 is the certificate thumbprint a token is bound to (RFC 8705).
	X5tS256 string `json:"x5t#S256,omitempty"`
}

// IsExpired reports whether the token expired strictly before now.
func (t *Token) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// CacheKey is the key a token lookup is cached under.
func CacheKey(code string) string {
	return "token:" + code
}
