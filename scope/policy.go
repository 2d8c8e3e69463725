// Package scope decides which requested scopes a client is granted.
package scope

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-authz-core/clients"
	autherrors "github.com/jrsteele09/go-authz-core/internal/errors"
	"github.com/jrsteele09/go-authz-core/internal/utils"
)

// Checker returns the effective scope set for a requested scope string.
type Checker interface {
	CheckScopesPolicy(client *clients.Client, scope string) ([]string, error)
}

// Policy grants the requested scopes that the client has registered. By default unregistered
// scopes are dropped; in strict mode they are rejected.
type Policy struct {
	strict bool
}

var _ Checker = (*Policy)(nil)

type Option func(*Policy)

// WithStrict rejects a request that names any scope the client has not registered.
func WithStrict(strict bool) Option {
	return func(p *Policy) {
		p.strict = strict
	}
}

func NewPolicy(options ...Option) *Policy {
	p := &Policy{}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// CheckScopesPolicy splits scope on whitespace, removes duplicates keeping the first
// occurrence, and keeps the members registered for client. An empty request yields an empty
// set; a non-empty request that yields nothing fails with ErrInvalidScope.
func (p *Policy) CheckScopesPolicy(client *clients.Client, scope string) ([]string, error) {
	if client == nil {
		return nil, errors.Wrap(autherrors.ErrInvalidClient, "[CheckScopesPolicy] no client")
	}

	requested := utils.SplitSpaced(scope)
	granted := make([]string, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))
	for _, s := range requested {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}

		if !client.HasScope(s) {
			if p.strict {
				return nil, errors.Wrapf(autherrors.ErrInvalidScope, "[CheckScopesPolicy] scope %q is not registered for client %s", s, client.ID)
			}
			continue
		}
		granted = append(granted, s)
	}

	if len(requested) > 0 && len(granted) == 0 {
		return nil, errors.Wrapf(autherrors.ErrInvalidScope, "[CheckScopesPolicy] none of %q is registered for client %s", scope, client.ID)
	}
	return granted, nil
}

// Join renders a scope set as a space separated parameter.
func Join(scopes []string) string {
	return strings.Join(scopes, " ")
}
