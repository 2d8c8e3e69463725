// Package redisstore keeps clients, tokens, RPTs and pushed authorization requests in Redis
// so that several server instances share them. Every collection keeps a sorted set of
// expiry times next to its records; the sweeper scans it and deletes through a WATCHed
// transaction so that a record renewed after the scan survives.
package redisstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-authz-core/clients"
	autherrors "github.com/jrsteele09/go-authz-core/internal/errors"
	"github.com/jrsteele09/go-authz-core/par"
	"github.com/jrsteele09/go-authz-core/token"
	"github.com/jrsteele09/go-authz-core/uma"
)

const (
	DefaultKeyPrefix = "authz:"

	keyTypeClient = "client"
	keyTypeToken  = "token"
	keyTypeRPT    = "rpt"
	keyTypePAR    = "par"

	expirySuffix = ":expiry"
)

// Store hands out the repositories backed by one Redis client.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
}

// Config selects the Redis server.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// New connects to the server in cfg and checks it is reachable.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("[redisstore.New] address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "[redisstore.New] ping %s", cfg.Addr)
	}
	return NewWithClient(client, cfg.KeyPrefix), nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client redis.UniversalClient, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Store{client: client, keyPrefix: keyPrefix}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Clients() *ClientRepo {
	return &ClientRepo{c: newCollection[clients.Client](s, keyTypeClient)}
}

func (s *Store) Tokens() *TokenRepo {
	return &TokenRepo{c: newCollection[token.Token](s, keyTypeToken)}
}

func (s *Store) RPTs() *RPTRepo {
	return &RPTRepo{c: newCollection[uma.RPT](s, keyTypeRPT)}
}

func (s *Store) PushedRequests() *PARRepo {
	return &PARRepo{c: newCollection[par.PushedAuthorizationRequest](s, keyTypePAR)}
}

// collection stores JSON records of one kind under <prefix><kind>:<id>, with their expiry
// times in the sorted set <prefix><kind>:expiry.
type collection[T any] struct {
	client    redis.UniversalClient
	prefix    string
	expiryKey string
}

func newCollection[T any](s *Store, kind string) *collection[T] {
	return &collection[T]{
		client:    s.client,
		prefix:    s.keyPrefix + kind + ":",
		expiryKey: s.keyPrefix + kind + expirySuffix,
	}
}

func (c *collection[T]) key(id string) string {
	return c.prefix + id
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// put stores record. A nil expiresAt removes id from the expiry index.
func (c *collection[T]) put(ctx context.Context, id string, record *T, expiresAt *time.Time) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, "[put] marshal %s", c.key(id))
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.key(id), data, 0)
		if expiresAt == nil {
			pipe.ZRem(ctx, c.expiryKey, id)
		} else {
			pipe.ZAdd(ctx, c.expiryKey, redis.Z{Score: score(*expiresAt), Member: id})
		}
		return nil
	})
	return errors.Wrapf(err, "[put] %s", c.key(id))
}

func (c *collection[T]) get(ctx context.Context, id string) (*T, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(autherrors.ErrNotFound, "[get] %s", c.key(id))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "[get] %s", c.key(id))
	}
	return c.decode(id, data)
}

func (c *collection[T]) decode(id string, data []byte) (*T, error) {
	var record T
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrapf(err, "[decode] %s", c.key(id))
	}
	return &record, nil
}

func (c *collection[T]) delete(ctx context.Context, id string) error {
	var removed *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, c.key(id))
		pipe.ZRem(ctx, c.expiryKey, id)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "[delete] %s", c.key(id))
	}
	if removed.Val() == 0 {
		return errors.Wrapf(autherrors.ErrNotFound, "[delete] %s", c.key(id))
	}
	return nil
}

// listExpired reads up to limit records indexed with an expiry strictly before now.
// Records deleted between the index read and the fetch are skipped.
func (c *collection[T]) listExpired(ctx context.Context, now time.Time, limit int) ([]*T, error) {
	by := &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(now.UnixMilli(), 10),
	}
	if limit > 0 {
		by.Count = int64(limit)
	}
	ids, err := c.client.ZRangeByScore(ctx, c.expiryKey, by).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "[listExpired] %s", c.expiryKey)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "[listExpired] fetch %d records", len(keys))
	}

	records := make([]*T, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		record, err := c.decode(ids[i], []byte(s))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// deleteIf removes id when removable still holds for the stored record. The record is
// WATCHed so a concurrent write aborts the delete with redis.TxFailedErr.
func (c *collection[T]) deleteIf(ctx context.Context, id string, removable func(*T) bool) (bool, error) {
	key := c.key(id)
	deleted := false
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// Drop a dangling index entry left by an interrupted write
			tx.ZRem(ctx, c.expiryKey, id)
			return errors.Wrapf(autherrors.ErrNotFound, "[deleteIf] %s", key)
		}
		if err != nil {
			return err
		}
		record, err := c.decode(id, data)
		if err != nil {
			return err
		}
		if !removable(record) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, c.expiryKey, id)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = true
		return nil
	}, key)
	if autherrors.Is(err, autherrors.ErrNotFound) {
		return false, err
	}
	if err != nil {
		return false, errors.Wrapf(err, "[deleteIf] %s", key)
	}
	return deleted, nil
}
