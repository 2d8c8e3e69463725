package parfakerepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-authz-core/internal/errors"
	"github.com/jrsteele09/go-authz-core/par"
)

var _ par.Repo = (*FakePARRepo)(nil)

type FakePARRepo struct {
	requests map[string]*par.PushedAuthorizationRequest
	lock     sync.RWMutex
}

func NewFakePARRepo() *FakePARRepo {
	return &FakePARRepo{
		requests: make(map[string]*par.PushedAuthorizationRequest),
	}
}

func (r *FakePARRepo) Upsert(_ context.Context, request *par.PushedAuthorizationRequest) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	stored := *request
	stored.Attributes = *request.Attributes.Clone()
	r.requests[request.ID] = &stored
	return nil
}

func (r *FakePARRepo) Get(_ context.Context, id string) (*par.PushedAuthorizationRequest, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "pushed authorization request %s", id)
	}
	copied := *request
	copied.Attributes = *request.Attributes.Clone()
	return &copied, nil
}

func (r *FakePARRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.requests[id]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "pushed authorization request %s", id)
	}
	delete(r.requests, id)
	return nil
}

func (r *FakePARRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*par.PushedAuthorizationRequest, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	expired := make([]*par.PushedAuthorizationRequest, 0)
	for _, request := range r.requests {
		if request.IsExpired(now) {
			copied := *request
			expired = append(expired, &copied)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (r *FakePARRepo) DeleteExpired(_ context.Context, id string, now time.Time) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return false, errors.Wrapf(errors.ErrNotFound, "pushed authorization request %s", id)
	}
	if !request.IsExpired(now) {
		return false, nil
	}
	delete(r.requests, id)
	return true, nil
}
