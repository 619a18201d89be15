package analyzer

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"
)

// Hasher computes the content hash of the live page at a URL.
type Hasher interface {
	Hash(ctx context.Context, url string) (string, error)
}

// Cache entry with the content hash it was validated against.
type cacheEntry struct {
	result      *AnalysisResult
	contentHash string
	timestamp   time.Time
}

// entryStore holds cache entries. Implementations may drop entries at any
// time; the cache treats a missing entry as a miss.
type entryStore interface {
	get(ctx context.Context, key string) (cacheEntry, bool, error)
	peek(ctx context.Context, key string) (cacheEntry, bool, error)
	add(ctx context.Context, key string, entry cacheEntry, ttl time.Duration) error
	remove(ctx context.Context, key string) error
	len(ctx context.Context) (int, error)
	purge(ctx context.Context) error
	name() string
}

// EntryState describes a cache entry without revalidating its content.
type EntryState int

const (
	EntryMissing EntryState = iota
	EntryFresh
	EntryExpired
)

// Cache holds analysis results keyed by normalized URL. An entry is served
// only while it is younger than the TTL and the live page still hashes to
// the value recorded when it was stored. Entries are replaced, never updated.
//
// The cache is created once at startup and shared by all handlers. Lookups
// and stores are not transactional: concurrent writers for one key resolve
// as last write wins. The in-process store is bounded and evicts the least
// recently used entry first; the Redis store relies on key expiry.
type Cache struct {
	store      entryStore
	hasher     Hasher
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache returns an in-process Cache holding at most maxEntries results
// for ttl each.
func NewCache(hasher Hasher, ttl time.Duration, maxEntries int, logger *slog.Logger) (*Cache, error) {
	store, err := newMemoryStore(maxEntries)
	if err != nil {
		return nil, err
	}
	return newCache(store, hasher, ttl, maxEntries, logger), nil
}

func newCache(store entryStore, hasher Hasher, ttl time.Duration, maxEntries int, logger *slog.Logger) *Cache {
	return &Cache{
		store:      store,
		hasher:     hasher,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		logger:     logger,
	}
}

func (c *Cache) expired(e cacheEntry) bool {
	return c.now().Sub(e.timestamp) >= c.ttl
}

func (c *Cache) evict(ctx context.Context, key string) {
	if err := c.store.remove(ctx, key); err != nil {
		c.logger.Warn("failed to evict cache entry", "key", key, "error", err)
	}
}

// Get returns the cached result for key if it is within the TTL and the page
// at url still has the stored content hash. Expired or changed entries are
// evicted. A failure to hash the page or to reach the store is a plain miss.
func (c *Cache) Get(ctx context.Context, key, url string) (*AnalysisResult, bool) {
	entry, found, err := c.store.get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
	}
	if !found {
		c.misses.Add(1)
		return nil, false
	}

	if c.expired(entry) {
		c.evict(ctx, key)
		c.misses.Add(1)
		c.logger.Debug("cache entry expired", "key", key)
		return nil, false
	}

	current, err := c.hasher.Hash(ctx, url)
	if err != nil {
		c.misses.Add(1)
		c.logger.Debug("content hash unavailable, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if current != entry.contentHash {
		c.evict(ctx, key)
		c.misses.Add(1)
		c.logger.Debug("page content changed, cache entry evicted", "key", key)
		return nil, false
	}

	c.hits.Add(1)
	return entry.result, true
}

// Put hashes the page at url and stores result under key. If hashing fails
// the entry gets a timestamp-derived hash that no page hash can equal, so
// the next Get misses.
func (c *Cache) Put(ctx context.Context, key, url string, result *AnalysisResult) {
	now := c.now()

	hash, err := c.hasher.Hash(ctx, url)
	if err != nil {
		hash = "unhashed-" + strconv.FormatInt(now.UnixNano(), 10)
		c.logger.Warn("content hash failed, storing entry with fallback hash", "key", key, "error", err)
	}

	entry := cacheEntry{
		result:      result,
		contentHash: hash,
		timestamp:   now,
	}
	if err := c.store.add(ctx, key, entry, c.ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Lookup reports the state of key without contacting the page. Expired
// entries are evicted.
func (c *Cache) Lookup(ctx context.Context, key string) (EntryState, *AnalysisResult) {
	entry, found, err := c.store.peek(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}
	if !found {
		return EntryMissing, nil
	}
	if c.expired(entry) {
		c.evict(ctx, key)
		return EntryExpired, nil
	}
	return EntryFresh, entry.result
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.purge(ctx)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats(ctx context.Context) CacheStats {
	entries, err := c.store.len(ctx)
	if err != nil {
		c.logger.Warn("failed to count cache entries", "error", err)
		entries = -1
	}
	return CacheStats{
		Backend:    c.store.name(),
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		TTL:        c.ttl,
	}
}
