// Package cache provides the in-process lookup cache shared by the stores and the sweeper.
package cache

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// Invalidator drops cached entries once the backing record has changed or gone.
type Invalidator interface {
	Invalidate(key string)
	Clear()
}

// LRU is a size-bounded, concurrency-safe cache keyed by string.
type LRU struct {
	cache *lru.Cache
}

var _ Invalidator = (*LRU)(nil)

// NewLRU creates a cache holding at most size entries.
func NewLRU(size int) (*LRU, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewLRU] size %d", size)
	}
	return &LRU{cache: c}, nil
}

func (c *LRU) Get(key string) (any, bool) {
	return c.cache.Get(key)
}

func (c *LRU) Set(key string, value any) {
	c.cache.Add(key, value)
}

func (c *LRU) Invalidate(key string) {
	c.cache.Remove(key)
}

func (c *LRU) Clear() {
	c.cache.Purge()
}

func (c *LRU) Len() int {
	return c.cache.Len()
}
