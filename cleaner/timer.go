// Package cleaner periodically removes expired clients, tokens, RPTs and pushed
// authorization requests from the store.
package cleaner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jrsteele09/go-authz-core/cache"
	autherrors "github.com/jrsteele09/go-authz-core/internal/errors"
)

const (
	DefaultInterval      = 5 * time.Minute
	DefaultBatchSize     = 100
	DefaultDeleteRetries = 3

	defaultRetryInterval = 100 * time.Millisecond
)

// ErrSweepInProgress is returned by Process while another pass is running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// Stats summarises one pass over a collection.
type Stats struct {
	Collection string
	Scanned    int
	Deleted    int

	// Retained counts expired records left in place: not deletable, or renewed since the scan.
	Retained int
	Failed   int
}

// Timer runs the sweep on a fixed interval. Passes never overlap; within a pass each
// collection is swept by its own worker.
type Timer struct {
	collections   []Collection
	cache         cache.Invalidator
	interval      time.Duration
	batchSize     int
	deleteRetries uint
	retryInterval time.Duration
	nowFunc       func() time.Time
	logger        zerolog.Logger
	meter         metric.Meter
	metrics       *metrics

	running *semaphore.Weighted

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

type Option func(*Timer)

func WithInterval(interval time.Duration) Option {
	return func(t *Timer) {
		t.interval = interval
	}
}

// WithBatchSize bounds how many expired records of one collection a pass removes.
func WithBatchSize(size int) Option {
	return func(t *Timer) {
		t.batchSize = size
	}
}

// WithDeleteRetries sets how many times a failing delete is retried before it is skipped.
func WithDeleteRetries(retries uint, interval time.Duration) Option {
	return func(t *Timer) {
		t.deleteRetries = retries
		t.retryInterval = interval
	}
}

func WithNowFunc(nowFunc func() time.Time) Option {
	return func(t *Timer) {
		t.nowFunc = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Timer) {
		t.logger = logger
	}
}

func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(t *Timer) {
		t.meter = provider.Meter(meterName)
	}
}

// NewTimer creates a sweeper over collections. Cache entries of deleted records are
// invalidated in c.
func NewTimer(c cache.Invalidator, collections []Collection, options ...Option) (*Timer, error) {
	t := &Timer{
		collections:   collections,
		cache:         c,
		interval:      DefaultInterval,
		batchSize:     DefaultBatchSize,
		deleteRetries: DefaultDeleteRetries,
		retryInterval: defaultRetryInterval,
		nowFunc:       time.Now,
		logger:        log.Logger.With().Str("component", "cleaner").Logger(),
		meter:         otel.GetMeterProvider().Meter(meterName),
		running:       semaphore.NewWeighted(1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range options {
		opt(t)
	}
	if t.interval <= 0 {
		return nil, errors.Errorf("[NewTimer] interval must be positive, got %s", t.interval)
	}

	m, err := newMetrics(t.meter)
	if err != nil {
		return nil, errors.Wrap(err, "[NewTimer]")
	}
	t.metrics = m
	return t, nil
}

// Start runs a pass every interval until ctx is done or Stop is called.
func (t *Timer) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		go t.loop(ctx)
	})
}

// Stop ends the loop and waits for a running pass to finish.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
	started := true
	t.startOnce.Do(func() {
		started = false
		close(t.done)
	})
	if started {
		<-t.done
	}
}

func (t *Timer) loop(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info().Dur("interval", t.interval).Msg("expiration sweeper started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *Timer) tick(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			t.logger.Error().Str("panic", fmt.Sprint(p)).Msg("expiration sweep panicked, retrying on next tick")
		}
	}()

	stats, err := t.Process(ctx)
	if errors.Is(err, ErrSweepInProgress) {
		t.logger.Debug().Msg("previous sweep still running, tick skipped")
		return
	}
	if err != nil {
		t.logger.Err(err).Msg("expiration sweep finished with errors")
	}
	for _, s := range stats {
		if s.Scanned == 0 {
			continue
		}
		t.logger.Debug().
			Str("collection", s.Collection).
			Int("scanned", s.Scanned).
			Int("deleted", s.Deleted).
			Int("retained", s.Retained).
			Int("failed", s.Failed).
			Msg("expiration sweep")
	}
}

// Process runs a single pass over every collection, using one point-in-time now for the
// whole pass. A failure in one collection or on one record does not stop the others; all
// failures are returned together once the pass completes.
func (t *Timer) Process(ctx context.Context) ([]Stats, error) {
	if !t.running.TryAcquire(1) {
		return nil, ErrSweepInProgress
	}
	defer t.running.Release(1)

	start := time.Now()
	now := t.nowFunc()

	stats := make([]Stats, len(t.collections))
	var (
		mu     sync.Mutex
		result *multierror.Error
		g      errgroup.Group
	)
	for i, c := range t.collections {
		g.Go(func() error {
			s, err := t.sweep(ctx, c, now)
			stats[i] = s
			t.metrics.record(ctx, s)
			if err != nil {
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	t.metrics.recordDuration(ctx, time.Since(start))
	return stats, result.ErrorOrNil()
}

func (t *Timer) sweep(ctx context.Context, c Collection, now time.Time) (Stats, error) {
	stats := Stats{Collection: c.Name()}

	candidates, err := c.ListExpired(ctx, now, t.batchSize)
	if err != nil {
		return stats, errors.Wrapf(err, "[sweep] list expired %s", c.Name())
	}

	var result *multierror.Error
	for _, candidate := range candidates {
		stats.Scanned++
		if !candidate.Deletable {
			stats.Retained++
			continue
		}

		deleted, err := t.deleteExpired(ctx, c, candidate.ID, now)
		switch {
		case autherrors.Is(err, autherrors.ErrNotFound):
			// Removed by another node since the scan
			stats.Deleted++
			t.cache.Invalidate(candidate.CacheKey)
		case err != nil:
			stats.Failed++
			t.logger.Err(err).Str("collection", c.Name()).Str("id", candidate.ID).Msg("failed to delete expired record")
			result = multierror.Append(result, errors.Wrapf(err, "[sweep] delete %s %s", c.Name(), candidate.ID))
		case !deleted:
			stats.Retained++
		default:
			stats.Deleted++
			t.cache.Invalidate(candidate.CacheKey)
		}
	}
	return stats, result.ErrorOrNil()
}

func (t *Timer) deleteExpired(ctx context.Context, c Collection, id string, now time.Time) (bool, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = t.retryInterval

	return backoff.Retry(ctx, func() (bool, error) {
		deleted, err := c.DeleteExpired(ctx, id, now)
		if autherrors.Is(err, autherrors.ErrNotFound) {
			return false, backoff.Permanent(err)
		}
		return deleted, err
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(t.deleteRetries+1),
		backoff.WithNotify(func(err error, d time.Duration) {
			t.logger.Debug().Err(err).Str("collection", c.Name()).Str("id", id).Dur("retry_in", d).Msg("retrying delete")
		}),
	)
}
