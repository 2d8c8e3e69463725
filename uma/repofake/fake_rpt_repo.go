package rptfakerepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-authz-core/internal/errors"
	"github.com/jrsteele09/go-authz-core/uma"
)

var _ uma.Repo = (*FakeRPTRepo)(nil)

type FakeRPTRepo struct {
	rpts map[string]*uma.RPT
	lock sync.RWMutex
}

func NewFakeRPTRepo() *FakeRPTRepo {
	return &FakeRPTRepo{rpts: make(map[string]*uma.RPT)}
}

func (r *FakeRPTRepo) Upsert(_ context.Context, rpt *uma.RPT) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.rpts[rpt.Code] = rpt
	return nil
}

func (r *FakeRPTRepo) GetByCode(_ context.Context, code string) (*uma.RPT, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	rpt, ok := r.rpts[code]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "rpt")
	}
	return rpt, nil
}

func (r *FakeRPTRepo) Delete(_ context.Context, code string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.rpts[code]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "rpt")
	}
	delete(r.rpts, code)
	return nil
}

func (r *FakeRPTRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*uma.RPT, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	expired := make([]*uma.RPT, 0)
	for _, rpt := range r.rpts {
		if rpt.IsExpired(now) {
			copied := *rpt
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

func (r *FakeRPTRepo) DeleteExpired(_ context.Context, code string, now time.Time) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	rpt, ok := r.rpts[code]
	if !ok {
		return false, errors.Wrapf(errors.ErrNotFound, "rpt")
	}
	if !rpt.IsExpired(now) {
		return false, nil
	}
	delete(r.rpts, code)
	return true, nil
}
