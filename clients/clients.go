package clients

import (
	"crypto/subtle"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Can keep secrets (server-side apps)
	ClientTypePublic       ClientType = "public"       // Cannot keep secrets (SPAs, mobile apps)
)

type Client struct {
	ID           string     `json:"id"`
	Type         ClientType `json:"type"` // public or confidential
	Name         string     `json:"name"`
	Secret       string     `json:"secret"`
	RedirectURIs []string   `json:"redirectURIs"`
	Scopes       []string   `json:"scopes"` // Allowed scopes for this client

	// JWKSURI and PublicKeyPEM register the keys that verify the client's Request Objects.
	// A client with neither can only sign with its secret (HS256/384/512).
	JWKSURI      string `json:"jwksURI,omitempty"`
	PublicKeyPEM string `json:"publicKeyPEM,omitempty"`

	IDIssuedAt time.Time `json:"idIssuedAt"`

	// ExpirationDate is nil for clients that never expire.
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`

	// Deletable false keeps an expired client in the store (administrative clients).
	Deletable bool `json:"deletable"`

	// SecretHash is the bcrypt hash of the client secret. A client registered with only the
	// hash cannot sign Request Objects with HMAC.
	SecretHash string `json:"secretHash,omitempty"`
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic
}

// HasScope checks if the client has permission for a specific scope
func (c *Client) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// HasRedirectURI checks the exact match against the registered redirect URIs
func (c *Client) HasRedirectURI(redirectURI string) bool {
	for _, uri := range c.RedirectURIs {
		if redirectURI == uri {
			return true
		}
	}
	return false
}

// IsExpired reports whether the client has an expiration date strictly before now.
func (c *Client) IsExpired(now time.Time) bool {
	return c.ExpirationDate != nil && c.ExpirationDate.Before(now)
}

// IsRemovable reports whether the sweeper may delete the client.
func (c *Client) IsRemovable(now time.Time) bool {
	return c.Deletable && c.IsExpired(now)
}

func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecret compares secret with the bcrypt hash when one is registered and with the plain
// secret otherwise. A client with neither never authenticates.
func (c *Client) CheckSecret(secret string) bool {
	if c.SecretHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)) == nil
	}
	if c.Secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(c.Secret)) == 1
}

// CacheKey is the key lookups of clientID are cached under.
func CacheKey(clientID string) string {
	return "client:" + clientID
}
