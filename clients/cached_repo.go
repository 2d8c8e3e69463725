package clients

import (
	"context"
	"time"
)

// Cache is the lookup cache CachedRepo reads through.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Invalidate(key string)
}

var _ Repo = (*CachedRepo)(nil)

// CachedRepo serves Get from a cache and keeps it coherent with its own writes. Deletions
// made directly against the underlying repo must be followed by Invalidate(CacheKey(id)).
type CachedRepo struct {
	repo  Repo
	cache Cache
}

func NewCachedRepo(repo Repo, cache Cache) *CachedRepo {
	return &CachedRepo{repo: repo, cache: cache}
}

func (r *CachedRepo) Upsert(ctx context.Context, client *Client) error {
	if err := r.repo.Upsert(ctx, client); err != nil {
		return err
	}
	r.cache.Invalidate(CacheKey(client.ID))
	return nil
}

func (r *CachedRepo) Get(ctx context.Context, clientID string) (*Client, error) {
	if v, ok := r.cache.Get(CacheKey(clientID)); ok {
		if c, ok := v.(*Client); ok {
			return c, nil
		}
	}
	c, err := r.repo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(CacheKey(clientID), c)
	return c, nil
}

func (r *CachedRepo) Delete(ctx context.Context, clientID string) error {
	defer r.cache.Invalidate(CacheKey(clientID))
	return r.repo.Delete(ctx, clientID)
}

func (r *CachedRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*Client, error) {
	return r.repo.ListExpired(ctx, now, limit)
}

func (r *CachedRepo) DeleteExpired(ctx context.Context, clientID string, now time.Time) (bool, error) {
	deleted, err := r.repo.DeleteExpired(ctx, clientID, now)
	if deleted {
		r.cache.Invalidate(CacheKey(clientID))
	}
	return deleted, err
}
