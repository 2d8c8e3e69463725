package token

import (
	"context"
	"time"
)

type Repo interface {
	Upsert(ctx context.Context, token *Token) error
	GetByCode(ctx context.Context, code string) (*Token, error)
	Delete(ctx context.Context, code string) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Token, error)
	DeleteExpired(ctx context.Context, code string, now time.Time) (bool, error)
}
