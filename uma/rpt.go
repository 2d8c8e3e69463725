// Package uma holds Requesting Party Tokens issued under User-Managed Access.
package uma

import (
	"context"
	"time"
)

// RPT is a Requesting Party Token record. It has no deletable flag: once expired it is
// always eligible for removal.
type RPT struct {
	Code          string    `json:"code"`
	ClientID      string    `json:"clientId"`
	PermissionIDs []string  `json:"permissionIds,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

func (r *RPT) IsExpired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}

// CacheKey is the key an RPT lookup is cached under.
func CacheKey(code string) string {
	return "rpt:" + code
}

type Repo interface {
	Upsert(ctx context.Context, rpt *RPT) error
	GetByCode(ctx context.Context, code string) (*RPT, error)
	Delete(ctx context.Context, code string) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*RPT, error)
	DeleteExpired(ctx context.Context, code string, now time.Time) (bool, error)
}
