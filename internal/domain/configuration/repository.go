package configuration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntryRepository persists configuration entries.
// All lookups are exact-scope: a tenant lookup never falls back to a
// different tenant's row. Fallback to the global row is the resolver's job.
type EntryRepository interface {
	// FindByID finds an entry by its identity, including soft-deleted rows
	FindByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// FindByCode finds the live entry with the given kind and code in exactly
	// the given scope (nil tenantID means the global scope)
	FindByCode(ctx context.Context, tenantID *uuid.UUID, kind, code string) (*Entry, error)
	// ListForScope returns all live entries of a kind in exactly the given scope
	ListForScope(ctx context.Context, tenantID *uuid.UUID, kind string) ([]Entry, error)
	// ExistsInScope reports whether a live entry with the code exists in the scope,
	// excluding the entry with excludeID (zero UUID to exclude nothing)
	ExistsInScope(ctx context.Context, tenantID *uuid.UUID, kind, code string, excludeID uuid.UUID) (bool, error)
	// Save creates or updates an entry, enforcing optimistic concurrency
	Save(ctx context.Context, entry *Entry) error
}

// CacheStats holds cache hit/miss counters
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Entries   int   `json:"entries"`
	Evictions int64 `json:"evictions"`
}

// EntryCache is a process-wide read-through cache for resolved entries.
// It is strictly an accelerator: the relational store stays authoritative,
// and writers must invalidate before returning to their caller.
type EntryCache interface {
	// Get returns the cached snapshot for the scope/kind/code key.
	// Returns nil on a miss. A hit extends the entry's sliding expiration.
	Get(ctx context.Context, tenantID *uuid.UUID, kind, code string) *Entry
	// Set stores a snapshot with the given sliding TTL (0 means the default)
	Set(ctx context.Context, entry *Entry, ttl time.Duration)
	// Invalidate removes the key for the scope/kind/code pair
	Invalidate(ctx context.Context, tenantID *uuid.UUID, kind, code string)
	// InvalidateAll clears the entire cache
	InvalidateAll(ctx context.Context)
	// Stats returns hit/miss counters
	Stats() CacheStats
}
