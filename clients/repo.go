package clients

import (
	"context"
	"time"
)

// Repo persists clients. Implementations return an error wrapping errors.ErrNotFound for
// unknown ids.
type Repo interface {
	Upsert(ctx context.Context, client *Client) error
	Get(ctx context.Context, clientID string) (*Client, error)
	Delete(ctx context.Context, clientID string) error

	// ListExpired returns up to limit deletable clients whose expiration date is strictly
	// before now. Non-deletable clients are never candidates.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Client, error)

	// DeleteExpired removes the client only if it is still expired and deletable at now.
	// It reports false when the client no longer qualifies.
	DeleteExpired(ctx context.Context, clientID string, now time.Time) (bool, error)
}
