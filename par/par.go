// Package par stores pushed authorization requests and reconciles them with the Request
// Object they carry.
package par

import (
	"strings"
	"time"

	"github.com/jrsteele09/go-authz-core/oauthmodel"
)

// RequestURIPrefix starts every request_uri issued by the PAR endpoint.
const RequestURIPrefix = "urn:ietf:params:oauth:request_uri:"

// PushedAuthorizationRequest is a pushed authorization request waiting for the
// authorization endpoint. ID is the request_uri handed to the client.
type PushedAuthorizationRequest struct {
	ID         string                             `json:"id"`
	Attributes oauthmodel.AuthorizationParameters `json:"attributes"`
	CreatedAt  time.Time                          `json:"createdAt"`
	ExpiresAt  time.Time                          `json:"expiresAt"`

	// SingleUse records are deleted by the first successful Consume.
	SingleUse bool `json:"singleUse"`
}

// IsExpired reports whether the request expired strictly before now.
func (p *PushedAuthorizationRequest) IsExpired(now time.Time) bool {
	return p.ExpiresAt.Before(now)
}

// IsRequestURI reports whether s has the shape of a request_uri issued here.
func IsRequestURI(s string) bool {
	return strings.HasPrefix(s, RequestURIPrefix) && len(s) > len(RequestURIPrefix)
}

// CacheKey is the key the request is cached under.
func CacheKey(id string) string {
	return "par:" + id
}
