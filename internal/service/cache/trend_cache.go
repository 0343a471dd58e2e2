package cache

import (
	"context"
	"errors"
	"time"

	"TradeMood/internal/domain/models"
	pkgcache "TradeMood/pkg/cache"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the trend for a window when no live entry exists.
// It wraps fetch + score + aggregate and may be expensive.
type ComputeFunc func(ctx context.Context) (models.TrendSignal, error)

// TrendCache deduplicates trend computation per (instrument, window).
// A live entry is returned without invoking compute; concurrent callers for
// the same key collapse to a single compute invocation. Entries expire after
// TTL = cadence x safety factor, so retries of an already-processed window
// stay idempotent without serving stale data indefinitely.
type TrendCache struct {
	local *TTLCache
	l2    *pkgcache.RedisCache // optional cross-process layer
	group singleflight.Group
	ttl   time.Duration
	onHit func(bool)
}

// TrendCacheOption configures a TrendCache.
type TrendCacheOption func(*TrendCache)

// WithRedisLayer adds a shared Redis layer behind the in-process map.
func WithRedisLayer(rc *pkgcache.RedisCache) TrendCacheOption {
	return func(c *TrendCache) { c.l2 = rc }
}

// WithHitCallback installs a hook invoked with true on hit, false on miss.
func WithHitCallback(fn func(hit bool)) TrendCacheOption {
	return func(c *TrendCache) { c.onHit = fn }
}

// NewTrendCache creates a cache whose entries live for ttl.
func NewTrendCache(ttl time.Duration, opts ...TrendCacheOption) *TrendCache {
	c := &TrendCache{local: NewTTLCache(), ttl: ttl}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the cached trend for (symbol, window) or computes it.
// A failed compute caches nothing; the entry is written atomically as a whole
// TrendSignal or not at all.
func (c *TrendCache) GetOrCompute(ctx context.Context, symbol string, window models.Window, compute ComputeFunc) (models.TrendSignal, error) {
	key := window.Key(symbol)

	if ts, ok := c.lookup(ctx, key); ok {
		if c.onHit != nil {
			c.onHit(true)
		}
		return ts, nil
	}
	if c.onHit != nil {
		c.onHit(false)
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// the losing racer may arrive after the winner already stored the
		// entry; re-check before paying for compute
		if ts, ok := c.lookup(ctx, key); ok {
			return ts, nil
		}
		ts, err := compute(ctx)
		if err != nil {
			return models.TrendSignal{}, err
		}
		c.store(ctx, key, ts)
		return ts, nil
	})
	if err != nil {
		return models.TrendSignal{}, err
	}
	return v.(models.TrendSignal), nil
}

// Peek returns the cached trend without computing.
func (c *TrendCache) Peek(ctx context.Context, symbol string, window models.Window) (models.TrendSignal, bool) {
	return c.lookup(ctx, window.Key(symbol))
}

func (c *TrendCache) lookup(ctx context.Context, key string) (models.TrendSignal, bool) {
	if v, ok := c.local.Get(key); ok {
		if ts, ok2 := v.(models.TrendSignal); ok2 {
			return ts, true
		}
	}
	if c.l2 != nil {
		var ts models.TrendSignal
		if err := c.l2.Get(ctx, key, &ts); err == nil {
			c.local.Set(key, ts, c.ttl)
			return ts, true
		} else if !errors.Is(err, pkgcache.ErrCacheMiss) {
			// degraded Redis is not fatal; fall through to compute
			return models.TrendSignal{}, false
		}
	}
	return models.TrendSignal{}, false
}

func (c *TrendCache) store(ctx context.Context, key string, ts models.TrendSignal) {
	c.local.Set(key, ts, c.ttl)
	if c.l2 != nil {
		_ = c.l2.Set(ctx, key, ts, c.ttl)
	}
}
