package fakeclientrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-authz-core/clients"
	"github.com/jrsteele09/go-authz-core/internal/errors"
)

var _ clients.Repo = (*FakeClientRepo)(nil)

type FakeClientRepo struct {
	clients map[string]*clients.Client
	lock    sync.RWMutex
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{
		clients: make(map[string]*clients.Client),
	}
}

func (r *FakeClientRepo) Upsert(_ context.Context, clientData *clients.Client) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if clientData.ID == "" {
		clientData.ID = uuid.New().String()
	}
	r.clients[clientData.ID] = clientData
	return nil
}

func (r *FakeClientRepo) Delete(_ context.Context, clientID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.clients[clientID]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "client %s", clientID)
	}
	delete(r.clients, clientID)
	return nil
}

func (r *FakeClientRepo) Get(_ context.Context, clientID string) (*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	client, ok := r.clients[clientID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "client %s", clientID)
	}
	return client, nil
}

func (r *FakeClientRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	expired := make([]*clients.Client, 0)
	for _, c := range r.clients {
		if c.IsRemovable(now) {
			copied := *c
			expired = append(expired, &copied)
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpirationDate.Before(*expired[j].ExpirationDate)
	})

	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (r *FakeClientRepo) DeleteExpired(_ context.Context, clientID string, now time.Time) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return false, errors.Wrapf(errors.ErrNotFound, "client %s", clientID)
	}
	if !c.IsRemovable(now) {
		return false, nil
	}
	delete(r.clients, clientID)
	return true, nil
}
