package tokenfakerepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-authz-core/internal/errors"
	"github.com/jrsteele09/go-authz-core/token"
)

var _ token.Repo = (*FakeTokenRepo)(nil)

type FakeTokenRepo struct {
	tokens map[string]*token.Token
	lock   sync.RWMutex
}

func NewFakeTokensRepo() *FakeTokenRepo {
	return &FakeTokenRepo{
		tokens: make(map[string]*token.Token),
	}
}

func (tr *FakeTokenRepo) Upsert(_ context.Context, t *token.Token) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.tokens[t.Code] = t
	return nil
}

func (tr *FakeTokenRepo) Delete(_ context.Context, code string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if _, ok := tr.tokens[code]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "token")
	}
	delete(tr.tokens, code)
	return nil
}

func (tr *FakeTokenRepo) GetByCode(_ context.Context, code string) (*token.Token, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	t, ok := tr.tokens[code]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "token")
	}
	return t, nil
}

func (tr *FakeTokenRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*token.Token, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	expired := make([]*token.Token, 0)
	for _, t := range tr.tokens {
		if t.IsExpired(now) {
			copied := *t
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

func (tr *FakeTokenRepo) DeleteExpired(_ context.Context, code string, now time.Time) (bool, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	t, ok := tr.tokens[code]
	if !ok {
		return false, errors.Wrapf(errors.ErrNotFound, "token")
	}
	if !t.IsExpired(now) {
		return false, nil
	}
	delete(tr.tokens, code)
	return true, nil
}
