package redisstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-authz-core/clients"
	"github.com/jrsteele09/go-authz-core/par"
	"github.com/jrsteele09/go-authz-core/token"
	"github.com/jrsteele09/go-authz-core/uma"
)

var (
	_ clients.Repo = (*ClientRepo)(nil)
	_ token.Repo   = (*TokenRepo)(nil)
	_ uma.Repo     = (*RPTRepo)(nil)
	_ par.Repo     = (*PARRepo)(nil)
)

type ClientRepo struct {
	c *collection[clients.Client]
}

func (r *ClientRepo) Upsert(ctx context.Context, client *clients.Client) error {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	// Clients that cannot be deleted stay out of the expiry index.
	var expiresAt *time.Time
	if client.Deletable {
		expiresAt = client.ExpirationDate
	}
	return r.c.put(ctx, client.ID, client, expiresAt)
}

func (r *ClientRepo) Get(ctx context.Context, clientID string) (*clients.Client, error) {
	return r.c.get(ctx, clientID)
}

func (r *ClientRepo) Delete(ctx context.Context, clientID string) error {
	return r.c.delete(ctx, clientID)
}

func (r *ClientRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*clients.Client, error) {
	return r.c.listExpired(ctx, now, limit)
}

func (r *ClientRepo) DeleteExpired(ctx context.Context, clientID string, now time.Time) (bool, error) {
	return r.c.deleteIf(ctx, clientID, func(c *clients.Client) bool {
		return c.IsRemovable(now)
	})
}

type TokenRepo struct {
	c *collection[token.Token]
}

func (r *TokenRepo) Upsert(ctx context.Context, t *token.Token) error {
	return r.c.put(ctx, t.Code, t, &t.ExpiresAt)
}

func (r *TokenRepo) GetByCode(ctx context.Context, code string) (*token.Token, error) {
	return r.c.get(ctx, code)
}

func (r *TokenRepo) Delete(ctx context.Context, code string) error {
	return r.c.delete(ctx, code)
}

func (r *TokenRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*token.Token, error) {
	return r.c.listExpired(ctx, now, limit)
}

func (r *TokenRepo) DeleteExpired(ctx context.Context, code string, now time.Time) (bool, error) {
	return r.c.deleteIf(ctx, code, func(t *token.Token) bool {
		return t.IsExpired(now)
	})
}

type RPTRepo struct {
	c *collection[uma.RPT]
}

func (r *RPTRepo) Upsert(ctx context.Context, rpt *uma.RPT) error {
	return r.c.put(ctx, rpt.Code, rpt, &rpt.ExpiresAt)
}

func (r *RPTRepo) GetByCode(ctx context.Context, code string) (*uma.RPT, error) {
	return r.c.get(ctx, code)
}

func (r *RPTRepo) Delete(ctx context.Context, code string) error {
	return r.c.delete(ctx, code)
}

func (r *RPTRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*uma.RPT, error) {
	return r.c.listExpired(ctx, now, limit)
}

func (r *RPTRepo) DeleteExpired(ctx context.Context, code string, now time.Time) (bool, error) {
	return r.c.deleteIf(ctx, code, func(rpt *uma.RPT) bool {
		return rpt.IsExpired(now)
	})
}

type PARRepo struct {
	c *collection[par.PushedAuthorizationRequest]
}

func (r *PARRepo) Upsert(ctx context.Context, request *par.PushedAuthorizationRequest) error {
	return r.c.put(ctx, request.ID, request, &request.ExpiresAt)
}

func (r *PARRepo) Get(ctx context.Context, id string) (*par.PushedAuthorizationRequest, error) {
	return r.c.get(ctx, id)
}

func (r *PARRepo) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, id)
}

func (r *PARRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*par.PushedAuthorizationRequest, error) {
	return r.c.listExpired(ctx, now, limit)
}

func (r *PARRepo) DeleteExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.c.deleteIf(ctx, id, func(p *par.PushedAuthorizationRequest) bool {
		return p.IsExpired(now)
	})
}
