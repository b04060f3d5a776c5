package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/backoffice/backend/internal/domain/configuration"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults for the in-memory configuration cache
const (
	defaultSlidingTTL      = 30 * time.Minute
	defaultMaxEntries      = 10000
	defaultEvictionPercent = 20
	defaultCleanupInterval = 30 * time.Second
)

// globalScopeKey stands in for the nil tenant in cache keys
const globalScopeKey = "global"

// entry wraps a cached snapshot with its sliding expiration
type entry struct {
	value      *configuration.Entry
	ttl        time.Duration
	expiresAt  time.Time
	lastAccess time.Time
}

func (e *entry) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// InMemoryEntryCache is a process-wide cache of resolved configuration
// entries. Reads extend the entry's sliding expiration. When the entry count
// exceeds the ceiling, the least recently accessed percentage is evicted.
// All operations are safe under concurrent access.
type InMemoryEntryCache struct {
	mu              sync.Mutex
	entries         map[string]*entry
	slidingTTL      time.Duration
	maxEntries      int
	evictionPercent int
	cleanupInterval time.Duration
	logger          *zap.Logger
	stopCh          chan struct{}
	stopOnce        sync.Once

	hits      int64
	misses    int64
	evictions int64
}

// Option is a functional option for configuring the cache
type Option func(*InMemoryEntryCache)

// WithSlidingTTL sets the default sliding expiration
func WithSlidingTTL(ttl time.Duration) Option {
	return func(c *InMemoryEntryCache) {
		if ttl > 0 {
			c.slidingTTL = ttl
		}
	}
}

// WithMaxEntries sets the entry-count ceiling
func WithMaxEntries(n int) Option {
	return func(c *InMemoryEntryCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithEvictionPercent sets the percentage of entries compacted when the
// ceiling is exceeded
func WithEvictionPercent(p int) Option {
	return func(c *InMemoryEntryCache) {
		if p > 0 && p <= 100 {
			c.evictionPercent = p
		}
	}
}

// WithCleanupInterval sets how often expired entries are swept
func WithCleanupInterval(interval time.Duration) Option {
	return func(c *InMemoryEntryCache) {
		if interval > 0 {
			c.cleanupInterval = interval
		}
	}
}

// WithLogger sets the logger for the cache
func WithLogger(logger *zap.Logger) Option {
	return func(c *InMemoryEntryCache) {
		c.logger = logger
	}
}

// NewInMemoryEntryCache creates a configuration cache and starts its
// background cleanup goroutine. Call Close to stop it.
func NewInMemoryEntryCache(opts ...Option) *InMemoryEntryCache {
	c := &InMemoryEntryCache{
		entries:         make(map[string]*entry),
		slidingTTL:      defaultSlidingTTL,
		maxEntries:      defaultMaxEntries,
		evictionPercent: defaultEvictionPercent,
		cleanupInterval: defaultCleanupInterval,
		logger:          zap.NewNop(),
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupLoop()
	return c
}

// Key builds the cache key for a scope/kind/code triple
func Key(tenantID *uuid.UUID, kind, code string) string {
	scope := globalScopeKey
	if tenantID != nil {
		scope = tenantID.String()
	}
	return scope + ":" + kind + ":" + code
}

// Get returns the cached snapshot, extending its sliding expiration on a hit
func (c *InMemoryEntryCache) Get(_ context.Context, tenantID *uuid.UUID, kind, code string) *configuration.Entry {
	key := Key(tenantID, kind, code)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.isExpired(now) {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return nil
	}

	e.lastAccess = now
	e.expiresAt = now.Add(e.ttl)
	c.hits++
	return e.value
}

// Set stores a snapshot under the entry's own scope/kind/code key
func (c *InMemoryEntryCache) Set(_ context.Context, value *configuration.Entry, ttl time.Duration) {
	if value == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.slidingTTL
	}
	key := Key(value.TenantID, value.Kind, value.Code)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{
		value:      value,
		ttl:        ttl,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}
	if len(c.entries) > c.maxEntries {
		c.compactLocked(now)
	}
}

// Invalidate removes the key for the scope/kind/code pair
func (c *InMemoryEntryCache) Invalidate(_ context.Context, tenantID *uuid.UUID, kind, code string) {
	key := Key(tenantID, kind, code)

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	c.logger.Debug("invalidated configuration cache key", zap.String("key", key))
}

// InvalidateAll clears the entire cache
func (c *InMemoryEntryCache) InvalidateAll(_ context.Context) {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	c.logger.Info("invalidated configuration cache", zap.Int("entries_dropped", n))
}

// Stats returns hit/miss counters
func (c *InMemoryEntryCache) Stats() configuration.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return configuration.CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Entries:   len(c.entries),
		Evictions: c.evictions,
	}
}

// Close stops the background cleanup goroutine
func (c *InMemoryEntryCache) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	return nil
}

// compactLocked evicts the configured percentage of entries, least recently
// accessed first. Caller must hold the mutex.
func (c *InMemoryEntryCache) compactLocked(now time.Time) {
	// Expired entries go first
	for key, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, key)
			c.evictions++
		}
	}

	target := c.maxEntries * (100 - c.evictionPercent) / 100
	if len(c.entries) <= target {
		return
	}

	type aged struct {
		key        string
		lastAccess time.Time
	}
	byAge := make([]aged, 0, len(c.entries))
	for key, e := range c.entries {
		byAge = append(byAge, aged{key: key, lastAccess: e.lastAccess})
	}
	sort.Slice(byAge, func(i, j int) bool {
		return byAge[i].lastAccess.Before(byAge[j].lastAccess)
	})

	toEvict := len(c.entries) - target
	for i := 0; i < toEvict; i++ {
		delete(c.entries, byAge[i].key)
		c.evictions++
	}

	c.logger.Debug("compacted configuration cache",
		zap.Int("evicted", toEvict),
		zap.Int("remaining", len(c.entries)))
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryEntryCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *InMemoryEntryCache) removeExpired() {
	now := time.Now()
	removed := 0

	c.mu.Lock()
	for key, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("cleaned up expired cache entries", zap.Int("removed", removed))
	}
}

// Ensure InMemoryEntryCache implements EntryCache
var _ configuration.EntryCache = (*InMemoryEntryCache)(nil)
