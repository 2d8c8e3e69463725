package par

import (
	"context"
	"time"
)

// Repo persists pushed authorization requests. Get and Delete return an error wrapping
// errors.ErrNotFound for unknown ids.
type Repo interface {
	Upsert(ctx context.Context, request *PushedAuthorizationRequest) error
	Get(ctx context.Context, id string) (*PushedAuthorizationRequest, error)
	Delete(ctx context.Context, id string) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*PushedAuthorizationRequest, error)

	// DeleteExpired removes the request only if it is still expired at now.
	DeleteExpired(ctx context.Context, id string, now time.Time) (bool, error)
}
