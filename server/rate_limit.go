package server

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

const defaultLimiterTableSize = 4096

// clientLimiter keeps a token bucket per client_id. The least recently seen clients are
// evicted when the table is full, which resets their bucket.
type clientLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *lru.Cache
	mu       sync.Mutex
}

// newClientLimiter returns nil, allowing every request, when perSecond is not positive.
func newClientLimiter(perSecond float64, burst, size int) (*clientLimiter, error) {
	if perSecond <= 0 {
		return nil, nil
	}
	limiters, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: limiters,
	}, nil
}

func (l *clientLimiter) Allow(clientID string) bool {
	if l == nil {
		return true
	}
	return l.limiter(clientID).Allow()
}

func (l *clientLimiter) limiter(clientID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.limiters.Get(clientID); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Add(clientID, limiter)
	return limiter
}
