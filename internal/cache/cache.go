// Package cache is an expiring response cache layered on the session's
// persistent key-value store.
//
// Every entry is stored as a single JSON blob under "<namespace>_<key>" and
// carries its own write time and TTL. Expired entries are deleted by the read
// that finds them. Storage failures never escape this package: they are
// logged and reported to the caller as a miss.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// TTL presets, picked by call sites according to how volatile the data is.
const (
	TTLVolatile = 2 * time.Minute  // search results
	TTLShort    = 5 * time.Minute  // listings
	TTLMedium   = 15 * time.Minute // profiles, tour details
	TTLLong     = time.Hour        // categories
	TTLStatic   = 24 * time.Hour   // static catalogs

	DefaultTTL       = TTLShort
	DefaultNamespace = "tourchat_cache"
)

// KV is the persistent key-value store the cache writes through to.
// store.DB implements it.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	RemoveMany(ctx context.Context, keys []string) error
	ListKeys(ctx context.Context) ([]string, error)
}

// Cache is a namespaced TTL cache. Use the package-level generic functions
// Get, Set and GetOrFetch to read and write typed values.
type Cache struct {
	kv        KV
	namespace string
	clock     clockwork.Clock
	logger    *zap.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithNamespace sets the key prefix. Keys are stored as "<namespace>_<key>".
func WithNamespace(ns string) Option {
	return func(c *Cache) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

// WithClock replaces the wall clock, e.g. with a clockwork.FakeClock in tests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithLogger sets the logger used for absorbed storage errors.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a cache over kv.
func New(kv KV, opts ...Option) *Cache {
	c := &Cache{
		kv:        kv,
		namespace: DefaultNamespace,
		clock:     clockwork.NewRealClock(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// entry is the on-disk shape of a cached value. Times are unix milliseconds.
type entry[T any] struct {
	Data     T     `json:"data"`
	StoredAt int64 `json:"storedAt"`
	TTL      int64 `json:"ttl"`
}

func (e entry[T]) validAt(nowMs int64) bool {
	return nowMs-e.StoredAt <= e.TTL
}

// Key returns the storage key for a logical cache key.
func (c *Cache) Key(key string) string {
	return c.prefix() + key
}

func (c *Cache) prefix() string {
	return c.namespace + "_"
}

// Namespace returns the cache's key namespace.
func (c *Cache) Namespace() string {
	return c.namespace
}

// Get returns the cached value for key if a valid entry exists. A stale or
// unreadable entry is removed and reported as a miss.
func Get[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T
	storageKey := c.Key(key)

	raw, ok, err := c.kv.Get(ctx, storageKey)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", storageKey), zap.Error(err))
		c.misses.Add(1)
		return zero, false
	}
	if !ok {
		c.misses.Add(1)
		return zero, false
	}

	var e entry[T]
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", storageKey), zap.Error(err))
		c.drop(ctx, storageKey)
		c.misses.Add(1)
		return zero, false
	}
	if !e.validAt(c.clock.Now().UnixMilli()) {
		c.drop(ctx, storageKey)
		c.evictions.Add(1)
		c.misses.Add(1)
		return zero, false
	}

	c.hits.Add(1)
	return e.Data, true
}

// Set stores data under key for ttl, replacing any existing entry.
// A non-positive ttl uses DefaultTTL.
func Set[T any](ctx context.Context, c *Cache, key string, data T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	storageKey := c.Key(key)
	raw, err := json.Marshal(entry[T]{
		Data:     data,
		StoredAt: c.clock.Now().UnixMilli(),
		TTL:      ttl.Milliseconds(),
	})
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", storageKey), zap.Error(err))
		return
	}
	if err := c.kv.Set(ctx, storageKey, string(raw)); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", storageKey), zap.Error(err))
	}
}

// GetOrFetch returns the cached value for key, or calls fetch, caches its
// result for ttl and returns it. Fetch errors are returned and nothing is
// cached.
func GetOrFetch[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error), ttl time.Duration) (T, error) {
	if v, ok := Get[T](ctx, c, key); ok {
		return v, nil
	}
	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	Set(ctx, c, key, v, ttl)
	return v, nil
}

// Remove deletes the entry for key.
func (c *Cache) Remove(ctx context.Context, key string) {
	c.drop(ctx, c.Key(key))
}

// ClearAll removes every entry in this cache's namespace and leaves all
// other stored keys alone. It returns the number of keys removed.
func (c *Cache) ClearAll(ctx context.Context) int {
	owned := c.ownedKeys(ctx)
	if len(owned) == 0 {
		return 0
	}
	if err := c.kv.RemoveMany(ctx, owned); err != nil {
		c.logger.Warn("cache clear failed", zap.Int("keys", len(owned)), zap.Error(err))
		return 0
	}
	return len(owned)
}

// Len counts the stored entries in this cache's namespace, expired ones
// included.
func (c *Cache) Len(ctx context.Context) int {
	return len(c.ownedKeys(ctx))
}

func (c *Cache) ownedKeys(ctx context.Context) []string {
	keys, err := c.kv.ListKeys(ctx)
	if err != nil {
		c.logger.Warn("cache list failed", zap.Error(err))
		return nil
	}
	prefix := c.prefix()
	var owned []string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			owned = append(owned, k)
		}
	}
	return owned
}

func (c *Cache) drop(ctx context.Context, storageKey string) {
	if err := c.kv.Remove(ctx, storageKey); err != nil {
		c.logger.Warn("cache remove failed", zap.String("key", storageKey), zap.Error(err))
	}
}

// Stats counts cache outcomes since the cache was created.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Stats returns a snapshot of the hit/miss/eviction counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
