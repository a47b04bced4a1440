// Package cache is a per-user, time-boxed copy of store reads. It is never the
// source of truth: entries expire, failed fetches leave them untouched, and
// staged (optimistic) values are either confirmed or rolled back.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"lifequest/internal/timeutil"
)

const (
	DefaultTTL           = 10 * time.Second
	DefaultFetchThrottle = 2 * time.Second
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

type Options[T any] struct {
	TTL           time.Duration
	FetchThrottle time.Duration
	Clock         timeutil.Clock
	Logger        *zap.Logger
	// Clone copies values on the way in and out so callers never share state
	// with the cache. Nil means values are treated as immutable.
	Clone func(T) T
}

type entry[T any] struct {
	value     T
	fetchedAt time.Time
	gen       uint64
}

type Cache[T any] struct {
	name  string
	ttl   time.Duration
	thr   time.Duration
	clock timeutil.Clock
	log   *zap.Logger
	clone func(T) T

	mu         sync.Mutex
	entries    map[string]*entry[T]
	lastFetch  map[string]time.Time
	generation uint64

	group singleflight.Group
}

func New[T any](name string, opts Options[T]) *Cache[T] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.FetchThrottle < 0 {
		opts.FetchThrottle = 0
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Cache[T]{
		name:      name,
		ttl:       opts.TTL,
		thr:       opts.FetchThrottle,
		clock:     opts.Clock,
		log:       opts.Logger.With(zap.String("cache", name)),
		clone:     opts.Clone,
		entries:   map[string]*entry[T]{},
		lastFetch: map[string]time.Time{},
	}
}

func (c *Cache[T]) copy(v T) T {
	if c.clone == nil {
		return v
	}
	return c.clone(v)
}

// Get serves a fresh entry, or fetches and repopulates. Outside force, fetches
// for the same key are throttled: inside the throttle window an expired entry
// is served as-is. Without any entry the fetch always runs.
func (c *Cache[T]) Get(ctx context.Context, key string, force bool, fetch FetchFunc[T]) (T, error) {
	now := c.clock.Now()

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !force {
		if now.Sub(e.fetchedAt) < c.ttl {
			v := c.copy(e.value)
			c.mu.Unlock()
			return v, nil
		}
		if last, seen := c.lastFetch[key]; seen && now.Sub(last) < c.thr {
			v := c.copy(e.value)
			c.mu.Unlock()
			c.log.Debug("fetch throttled; serving stale entry", zap.String("key", key))
			return v, nil
		}
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		c.lastFetch[key] = c.clock.Now()
		gen := c.generation
		c.mu.Unlock()

		fresh, err := fetch(ctx)
		if err != nil {
			c.log.Warn("fetch failed; keeping previous entry", zap.String("key", key), zap.Error(err))
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		// A write that landed while we were fetching is newer than what we read.
		if cur, ok := c.entries[key]; ok && cur.gen > gen {
			return c.copy(cur.value), nil
		}
		c.generation++
		c.entries[key] = &entry[T]{value: c.copy(fresh), fetchedAt: c.clock.Now(), gen: c.generation}
		return c.copy(fresh), nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	// Callers sharing one flight must not share one value.
	return c.copy(v.(T)), nil
}

// Peek returns the current entry regardless of age.
func (c *Cache[T]) Peek(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	return c.copy(e.value), true
}

// Set replaces the entry with a value known to match the store.
func (c *Cache[T]) Set(key string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries[key] = &entry[T]{value: c.copy(v), fetchedAt: c.clock.Now(), gen: c.generation}
}

// Update merges a write into an existing entry in place. It reports false when
// there is nothing cached for key; the next read will fetch instead.
func (c *Cache[T]) Update(key string, fn func(T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.generation++
	c.entries[key] = &entry[T]{value: c.copy(fn(c.copy(e.value))), fetchedAt: e.fetchedAt, gen: c.generation}
	return true
}

func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	delete(c.lastFetch, key)
}
