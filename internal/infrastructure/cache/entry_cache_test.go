package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/backoffice/backend/internal/domain/configuration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry(t *testing.T, tenantID *uuid.UUID, code string) *configuration.Entry {
	t.Helper()
	e, err := configuration.NewEntry(tenantID, "waste_category", code, "Entry "+code)
	require.NoError(t, err)
	return e
}

func TestInMemoryEntryCache_GetSet(t *testing.T) {
	c := NewInMemoryEntryCache()
	defer func() { _ = c.Close() }()
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("miss on empty cache", func(t *testing.T) {
		assert.Nil(t, c.Get(ctx, &tenantID, "waste_category", "WC-01"))
	})

	t.Run("hit after set", func(t *testing.T) {
		c.Set(ctx, newTestEntry(t, &tenantID, "WC-01"), 0)

		got := c.Get(ctx, &tenantID, "waste_category", "WC-01")
		require.NotNil(t, got)
		assert.Equal(t, "WC-01", got.Code)
	})

	t.Run("tenant and global keys are distinct", func(t *testing.T) {
		c.Set(ctx, newTestEntry(t, nil, "WC-02"), 0)

		assert.NotNil(t, c.Get(ctx, nil, "waste_category", "WC-02"))
		assert.Nil(t, c.Get(ctx, &tenantID, "waste_category", "WC-02"))
	})

	t.Run("stats track hits and misses", func(t *testing.T) {
		stats := c.Stats()
		assert.Positive(t, stats.Hits)
		assert.Positive(t, stats.Misses)
	})
}

func TestInMemoryEntryCache_Expiration(t *testing.T) {
	c := NewInMemoryEntryCache()
	defer func() { _ = c.Close() }()
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("expired entry is a miss", func(t *testing.T) {
		c.Set(ctx, newTestEntry(t, &tenantID, "WC-01"), 10*time.Millisecond)
		time.Sleep(25 * time.Millisecond)
		assert.Nil(t, c.Get(ctx, &tenantID, "waste_category", "WC-01"))
	})

	t.Run("read extends sliding expiration", func(t *testing.T) {
		c.Set(ctx, newTestEntry(t, &tenantID, "WC-03"), 60*time.Millisecond)

		// Keep touching the entry past its original expiry
		for i := 0; i < 4; i++ {
			time.Sleep(30 * time.Millisecond)
			require.NotNil(t, c.Get(ctx, &tenantID, "waste_category", "WC-03"), "touch %d", i)
		}
	})
}

func TestInMemoryEntryCache_Invalidation(t *testing.T) {
	c := NewInMemoryEntryCache()
	defer func() { _ = c.Close() }()
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("invalidate removes one key", func(t *testing.T) {
		c.Set(ctx, newTestEntry(t, &tenantID, "WC-01"), 0)
		c.Set(ctx, newTestEntry(t, &tenantID, "WC-02"), 0)

		c.Invalidate(ctx, &tenantID, "waste_category", "WC-01")

		assert.Nil(t, c.Get(ctx, &tenantID, "waste_category", "WC-01"))
		assert.NotNil(t, c.Get(ctx, &tenantID, "waste_category", "WC-02"))
	})

	t.Run("invalidate all clears everything", func(t *testing.T) {
		c.Set(ctx, newTestEntry(t, &tenantID, "WC-03"), 0)
		c.InvalidateAll(ctx)
		assert.Zero(t, c.Stats().Entries)
	})
}

func TestInMemoryEntryCache_Compaction(t *testing.T) {
	c := NewInMemoryEntryCache(WithMaxEntries(10), WithEvictionPercent(20))
	defer func() { _ = c.Close() }()
	ctx := context.Background()
	tenantID := uuid.New()

	for i := 0; i < 11; i++ {
		c.Set(ctx, newTestEntry(t, &tenantID, fmt.Sprintf("WC-%02d", i)), 0)
		time.Sleep(time.Millisecond)
	}

	stats := c.Stats()
	assert.LessOrEqual(t, stats.Entries, 10)
	assert.Positive(t, stats.Evictions)

	// Oldest-accessed entries are evicted first
	assert.Nil(t, c.Get(ctx, &tenantID, "waste_category", "WC-00"))
	assert.NotNil(t, c.Get(ctx, &tenantID, "waste_category", "WC-10"))
}

func TestInMemoryEntryCache_ConcurrentAccess(t *testing.T) {
	c := NewInMemoryEntryCache(WithMaxEntries(50))
	defer func() { _ = c.Close() }()
	ctx := context.Background()
	tenantID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				code := fmt.Sprintf("WC-%d", j%20)
				c.Set(ctx, newTestEntry(t, &tenantID, code), 0)
				c.Get(ctx, &tenantID, "waste_category", code)
				if j%10 == 0 {
					c.Invalidate(ctx, &tenantID, "waste_category", code)
				}
			}
		}(i)
	}
	wg.Wait()

	// No panics or deadlocks; stats remain coherent
	stats := c.Stats()
	assert.GreaterOrEqual(t, stats.Hits, int64(0))
}
