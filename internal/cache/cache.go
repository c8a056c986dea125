// Package cache memoizes derived analytics views for a bounded time.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 256

	// flightTimeout bounds a shared computation once it no longer follows any caller
	flightTimeout = 2 * time.Minute
)

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Remote is an optional shared tier consulted after a local miss.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Config configures a Cache. Zero values select the defaults.
type Config struct {
	TTL        time.Duration
	MaxEntries int
	Clock      Clock
	Remote     Remote
	Logger     *logrus.Logger
}

type entry struct {
	value    interface{}
	storedAt time.Time
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	RemoteHits int64 `json:"remote_hits"`
	Entries    int   `json:"entries"`
	MaxEntries int   `json:"max_entries"`
	TTLSeconds int64 `json:"ttl_seconds"`
	Shared     bool  `json:"shared"`
}

// Cache is a bounded, TTL-checked memo table safe for concurrent use.
// Construct one per process and share it.
type Cache struct {
	mu         sync.RWMutex
	entries    *lru.Cache[string, *entry]
	generation uint64
	group      singleflight.Group

	ttl        time.Duration
	maxEntries int
	now        Clock
	remote     Remote
	log        *logrus.Logger

	hits       atomic.Int64
	misses     atomic.Int64
	evictions  atomic.Int64
	remoteHits atomic.Int64
}

// New creates a cache
func New(config Config) (*Cache, error) {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	entries, err := lru.New[string, *entry](config.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &Cache{
		entries:    entries,
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
		now:        config.Clock,
		remote:     config.Remote,
		log:        config.Logger,
	}, nil
}

// TTL returns the default time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// GetOrCompute returns the value stored under key if it is younger than ttl,
// otherwise it runs compute, stores the result and returns it.
// Concurrent misses on the same key share one compute call, which is detached from
// any single caller's cancellation; a caller whose ctx ends stops waiting on its own.
// Errors are not cached. A non-positive ttl selects the cache default.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var zero T
	if ttl <= 0 {
		ttl = c.ttl
	}

	if v, ok := c.lookup(key, ttl); ok {
		if typed, ok := v.(T); ok {
			c.hits.Add(1)
			return typed, nil
		}
	}
	c.misses.Add(1)

	gen := c.currentGeneration()
	ch := c.group.DoChan(strconv.FormatUint(gen, 10)+":"+key, func() (interface{}, error) {
		// Another flight may have filled the entry while we waited
		if v, ok := c.lookup(key, ttl); ok {
			if _, ok := v.(T); ok {
				return v, nil
			}
		}

		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()

		if value, ok := getRemote[T](flightCtx, c, key); ok {
			c.store(key, value, gen)
			return value, nil
		}

		value, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		c.store(key, value, gen)
		c.setRemote(flightCtx, key, value, ttl)
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		typed, _ := res.Val.(T)
		return typed, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Cache) lookup(key string, ttl time.Duration) (interface{}, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= ttl {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) currentGeneration() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// store skips results computed before the last Clear.
func (c *Cache) store(key string, value interface{}, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	if evicted := c.entries.Add(key, &entry{value: value, storedAt: c.now()}); evicted {
		c.evictions.Add(1)
	}
}

func getRemote[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var value T
	if c.remote == nil {
		return value, false
	}
	data, ok, err := c.remote.Get(ctx, key)
	if err != nil {
		c.log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("Shared cache read failed")
		return value, false
	}
	if !ok {
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		c.log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("Discarding undecodable shared cache entry")
		return value, false
	}
	c.remoteHits.Add(1)
	return value, true
}

func (c *Cache) setRemote(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("Cannot encode value for shared cache")
		return
	}
	if err := c.remote.Set(ctx, key, data, ttl); err != nil {
		c.log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("Shared cache write failed")
	}
}

// Clear evicts every entry unconditionally, including the shared tier when configured.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries.Purge()
	c.generation++
	c.mu.Unlock()

	if c.remote != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.remote.Clear(ctx); err != nil {
			c.log.WithError(err).Warn("Failed to clear shared cache")
		}
	}
	c.log.Debug("View cache cleared")
}

// Len returns the number of local entries, expired or not.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		RemoteHits: c.remoteHits.Load(),
		Entries:    c.entries.Len(),
		MaxEntries: c.maxEntries,
		TTLSeconds: int64(c.ttl / time.Second),
		Shared:     c.remote != nil,
	}
}
