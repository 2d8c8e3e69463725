package cleaner

import (
	"context"
	"time"

	"github.com/jrsteele09/go-authz-core/clients"
	"github.com/jrsteele09/go-authz-core/par"
	"github.com/jrsteele09/go-authz-core/token"
	"github.com/jrsteele09/go-authz-core/uma"
)

// Candidate is an expired record found by a scan.
type Candidate struct {
	ID        string
	CacheKey  string
	ExpiresAt time.Time

	// Deletable false keeps the record regardless of its expiry.
	Deletable bool
}

// Collection is one kind of expiring record the sweeper removes.
type Collection interface {
	Name() string

	// ListExpired returns up to limit records that expired strictly before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Candidate, error)

	// DeleteExpired removes id only if it still qualifies at now, reporting false otherwise.
	DeleteExpired(ctx context.Context, id string, now time.Time) (bool, error)
}

// ExpiringRepo is the part of a store the sweeper needs.
type ExpiringRepo[T any] interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]T, error)
	DeleteExpired(ctx context.Context, id string, now time.Time) (bool, error)
}

type repoCollection[T any] struct {
	name     string
	repo     ExpiringRepo[T]
	describe func(T) Candidate
}

// NewCollection adapts repo, describing each of its records with describe.
func NewCollection[T any](name string, repo ExpiringRepo[T], describe func(T) Candidate) Collection {
	return &repoCollection[T]{name: name, repo: repo, describe: describe}
}

func (c *repoCollection[T]) Name() string {
	return c.name
}

func (c *repoCollection[T]) ListExpired(ctx context.Context, now time.Time, limit int) ([]Candidate, error) {
	records, err := c.repo.ListExpired(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(records))
	for _, r := range records {
		candidates = append(candidates, c.describe(r))
	}
	return candidates, nil
}

func (c *repoCollection[T]) DeleteExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	return c.repo.DeleteExpired(ctx, id, now)
}

// Clients sweeps expired clients that are marked deletable.
func Clients(repo clients.Repo) Collection {
	return NewCollection[*clients.Client]("clients", repo, func(c *clients.Client) Candidate {
		candidate := Candidate{ID: c.ID, CacheKey: clients.CacheKey(c.ID), Deletable: c.Deletable}
		if c.ExpirationDate != nil {
			candidate.ExpiresAt = *c.ExpirationDate
		}
		return candidate
	})
}

// Tokens sweeps expired authorization codes and access tokens.
func Tokens(repo token.Repo) Collection {
	return NewCollection[*token.Token]("tokens", repo, func(t *token.Token) Candidate {
		return Candidate{ID: t.Code, CacheKey: token.CacheKey(t.Code), ExpiresAt: t.ExpiresAt, Deletable: true}
	})
}

// RPTs sweeps expired Requesting Party Tokens.
func RPTs(repo uma.Repo) Collection {
	return NewCollection[*uma.RPT]("rpts", repo, func(r *uma.RPT) Candidate {
		return Candidate{ID: r.Code, CacheKey: uma.CacheKey(r.Code), ExpiresAt: r.ExpiresAt, Deletable: true}
	})
}

// PushedRequests sweeps expired pushed authorization requests.
func PushedRequests(repo par.Repo) Collection {
	return NewCollection[*par.PushedAuthorizationRequest]("par", repo, func(p *par.PushedAuthorizationRequest) Candidate {
		return Candidate{ID: p.ID, CacheKey: par.CacheKey(p.ID), ExpiresAt: p.ExpiresAt, Deletable: true}
	})
}
