package configuration

import (
	"context"
	"testing"
	"time"

	"github.com/backoffice/backend/internal/domain/configuration"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEntryRepository is a mock implementation of EntryRepository
type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*configuration.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*configuration.Entry), args.Error(1)
}

func (m *MockEntryRepository) FindByCode(ctx context.Context, tenantID *uuid.UUID, kind, code string) (*configuration.Entry, error) {
	args := m.Called(ctx, tenantID, kind, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*configuration.Entry), args.Error(1)
}

func (m *MockEntryRepository) ListForScope(ctx context.Context, tenantID *uuid.UUID, kind string) ([]configuration.Entry, error) {
	args := m.Called(ctx, tenantID, kind)
	return args.Get(0).([]configuration.Entry), args.Error(1)
}

func (m *MockEntryRepository) ExistsInScope(ctx context.Context, tenantID *uuid.UUID, kind, code string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, kind, code, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntryRepository) Save(ctx context.Context, entry *configuration.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// fakeCache is a minimal in-test EntryCache tracking invalidations
type fakeCache struct {
	entries       map[string]*configuration.Entry
	invalidated   []string
	clearedAll    bool
	hits, misses  int64
	lastSetEntry  *configuration.Entry
	lastSetCalled bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*configuration.Entry)}
}

func cacheKey(tenantID *uuid.UUID, kind, code string) string {
	scope := "global"
	if tenantID != nil {
		scope = tenantID.String()
	}
	return scope + ":" + kind + ":" + code
}

func (c *fakeCache) Get(_ context.Context, tenantID *uuid.UUID, kind, code string) *configuration.Entry {
	e, ok := c.entries[cacheKey(tenantID, kind, code)]
	if !ok {
		c.misses++
		return nil
	}
	c.hits++
	return e
}

func (c *fakeCache) Set(_ context.Context, entry *configuration.Entry, _ time.Duration) {
	c.entries[cacheKey(entry.TenantID, entry.Kind, entry.Code)] = entry
	c.lastSetEntry = entry
	c.lastSetCalled = true
}

func (c *fakeCache) Invalidate(_ context.Context, tenantID *uuid.UUID, kind, code string) {
	key := cacheKey(tenantID, kind, code)
	delete(c.entries, key)
	c.invalidated = append(c.invalidated, key)
}

func (c *fakeCache) InvalidateAll(_ context.Context) {
	c.entries = make(map[string]*configuration.Entry)
	c.clearedAll = true
}

func (c *fakeCache) Stats() configuration.CacheStats {
	return configuration.CacheStats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}

// recordingBroadcaster captures peer invalidation broadcasts
type recordingBroadcaster struct {
	keys []string
	all  int
}

func (b *recordingBroadcaster) BroadcastInvalidateKey(_ context.Context, tenantID *uuid.UUID, kind, code string) error {
	b.keys = append(b.keys, cacheKey(tenantID, kind, code))
	return nil
}

func (b *recordingBroadcaster) BroadcastInvalidateAll(context.Context) error {
	b.all++
	return nil
}

func newEntry(t *testing.T, tenantID *uuid.UUID, kind, code string) *configuration.Entry {
	t.Helper()
	entry, err := configuration.NewEntry(tenantID, kind, code, "Entry "+code)
	require.NoError(t, err)
	return entry
}

func TestService_GetByCode(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("tenant entry wins over global", func(t *testing.T) {
		repo := new(MockEntryRepository)
		cache := newFakeCache()
		svc := NewService(repo, cache, nil, zap.NewNop())

		tenantEntry := newEntry(t, &tenantID, "waste_category", "HAZ-01")
		repo.On("FindByCode", ctx, &tenantID, "waste_category", "HAZ-01").Return(tenantEntry, nil)

		got, err := svc.GetByCode(ctx, &tenantID, "waste_category", "HAZ-01")

		require.NoError(t, err)
		assert.Equal(t, &tenantID, got.TenantID)
		// Snapshot is cached under the tenant key
		assert.NotNil(t, cache.entries[cacheKey(&tenantID, "waste_category", "HAZ-01")])
		repo.AssertExpectations(t)
	})

	t.Run("falls back to the global entry", func(t *testing.T) {
		repo := new(MockEntryRepository)
		cache := newFakeCache()
		svc := NewService(repo, cache, nil, zap.NewNop())

		globalEntry := newEntry(t, nil, "waste_category", "HAZ-01")
		repo.On("FindByCode", ctx, &tenantID, "waste_category", "HAZ-01").Return(nil, shared.ErrNotFound)
		repo.On("FindByCode", ctx, (*uuid.UUID)(nil), "waste_category", "HAZ-01").Return(globalEntry, nil)

		got, err := svc.GetByCode(ctx, &tenantID, "waste_category", "HAZ-01")

		require.NoError(t, err)
		assert.True(t, got.IsGlobal())
		repo.AssertExpectations(t)
	})

	t.Run("missing in both scopes is not found", func(t *testing.T) {
		repo := new(MockEntryRepository)
		svc := NewService(repo, newFakeCache(), nil, zap.NewNop())

		repo.On("FindByCode", ctx, &tenantID, "waste_category", "MISSING").Return(nil, shared.ErrNotFound)
		repo.On("FindByCode", ctx, (*uuid.UUID)(nil), "waste_category", "MISSING").Return(nil, shared.ErrNotFound)

		_, err := svc.GetByCode(ctx, &tenantID, "waste_category", "MISSING")

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("nil tenant reads the global scope directly", func(t *testing.T) {
		repo := new(MockEntryRepository)
		svc := NewService(repo, newFakeCache(), nil, zap.NewNop())

		globalEntry := newEntry(t, nil, "waste_category", "HAZ-01")
		repo.On("FindByCode", ctx, (*uuid.UUID)(nil), "waste_category", "HAZ-01").Return(globalEntry, nil)

		got, err := svc.GetByCode(ctx, nil, "waste_category", "HAZ-01")

		require.NoError(t, err)
		assert.True(t, got.IsGlobal())
		repo.AssertNumberOfCalls(t, "FindByCode", 1)
	})

	t.Run("cache hit skips the repository", func(t *testing.T) {
		repo := new(MockEntryRepository)
		cache := newFakeCache()
		svc := NewService(repo, cache, nil, zap.NewNop())

		cached := newEntry(t, &tenantID, "waste_category", "HAZ-01")
		cache.Set(ctx, cached, 0)

		got, err := svc.GetByCode(ctx, &tenantID, "waste_category", "HAZ-01")

		require.NoError(t, err)
		assert.Equal(t, cached, got)
		repo.AssertNotCalled(t, "FindByCode")
	})
}

func TestService_List(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("tenant entries shadow globals with the same code", func(t *testing.T) {
		repo := new(MockEntryRepository)
		svc := NewService(repo, newFakeCache(), nil, zap.NewNop())

		tenantRows := []configuration.Entry{*newEntry(t, &tenantID, "waste_category", "HAZ-01")}
		globalRows := []configuration.Entry{
			*newEntry(t, nil, "waste_category", "HAZ-01"),
			*newEntry(t, nil, "waste_category", "HAZ-02"),
		}
		repo.On("ListForScope", ctx, &tenantID, "waste_category").Return(tenantRows, nil)
		repo.On("ListForScope", ctx, (*uuid.UUID)(nil), "waste_category").Return(globalRows, nil)

		entries, err := svc.List(ctx, &tenantID, "waste_category")

		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, &tenantID, entries[0].TenantID)
		assert.Equal(t, "HAZ-02", entries[1].Code)
	})

	t.Run("nil tenant lists the global scope only", func(t *testing.T) {
		repo := new(MockEntryRepository)
		svc := NewService(repo, newFakeCache(), nil, zap.NewNop())

		globalRows := []configuration.Entry{*newEntry(t, nil, "waste_category", "HAZ-01")}
		repo.On("ListForScope", ctx, (*uuid.UUID)(nil), "waste_category").Return(globalRows, nil)

		entries, err := svc.List(ctx, nil, "waste_category")

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, entries[0].IsGlobal())
		repo.AssertNumberOfCalls(t, "ListForScope", 1)
	})
}

func TestService_Upsert(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	input := UpsertInput{
		Kind:     "waste_category",
		Code:     "HAZ-01",
		Name:     "Hazardous waste",
		IsActive: true,
	}

	t.Run("creates a new entry and invalidates synchronously", func(t *testing.T) {
		repo := new(MockEntryRepository)
		cache := newFakeCache()
		broadcaster := &recordingBroadcaster{}
		svc := NewService(repo, cache, broadcaster, zap.NewNop())

		repo.On("FindByCode", ctx, &tenantID, "waste_category", "HAZ-01").Return(nil, shared.ErrNotFound)
		repo.On("ExistsInScope", ctx, &tenantID, "waste_category", "HAZ-01", uuid.Nil).Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*configuration.Entry")).Return(nil)

		entry, err := svc.Upsert(ctx, &tenantID, input)

		require.NoError(t, err)
		assert.Equal(t, "HAZ-01", entry.Code)
		assert.Equal(t, []string{cacheKey(&tenantID, "waste_category", "HAZ-01")}, cache.invalidated)
		assert.Equal(t, cache.invalidated, broadcaster.keys)
		repo.AssertExpectations(t)
	})

	t.Run("updates an existing entry", func(t *testing.T) {
		repo := new(MockEntryRepository)
		cache := newFakeCache()
		svc := NewService(repo, cache, nil, zap.NewNop())

		existing := newEntry(t, &tenantID, "waste_category", "HAZ-01")
		repo.On("FindByCode", ctx, &tenantID, "waste_category", "HAZ-01").Return(existing, nil)
		repo.On("Save", ctx, existing).Return(nil)

		updated := input
		updated.Name = "Hazardous waste (updated)"
		entry, err := svc.Upsert(ctx, &tenantID, updated)

		require.NoError(t, err)
		assert.Equal(t, "Hazardous waste (updated)", entry.Name)
		assert.Equal(t, 2, entry.Version)
		repo.AssertExpectations(t)
	})

	t.Run("protected flag cannot be cleared", func(t *testing.T) {
		repo := new(MockEntryRepository)
		svc := NewService(repo, newFakeCache(), nil, zap.NewNop())

		existing := newEntry(t, &tenantID, "waste_category", "HAZ-01")
		require.NoError(t, existing.Update(existing.Name, "", true, 0, true))
		repo.On("FindByCode", ctx, &tenantID, "waste_category", "HAZ-01").Return(existing, nil)

		_, err := svc.Upsert(ctx, &tenantID, input) // input has IsProtected=false

		assert.ErrorIs(t, err, shared.ErrProtectedEntity)
		repo.AssertNotCalled(t, "Save")
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		svc := NewService(new(MockEntryRepository), newFakeCache(), nil, zap.NewNop())

		_, err := svc.Upsert(ctx, &tenantID, UpsertInput{Kind: "waste_category"})

		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})
}

func TestService_Delete(t *testing.T) {
	tenantID := uuid.New()
	actor := uuid.New()
	ctx := context.Background()

	t.Run("soft deletes and invalidates", func(t *testing.T) {
		repo := new(MockEntryRepository)
		cache := newFakeCache()
		svc := NewService(repo, cache, nil, zap.NewNop())

		entry := newEntry(t, &tenantID, "waste_category", "HAZ-01")
		repo.On("FindByCode", ctx, &tenantID, "waste_category", "HAZ-01").Return(entry, nil)
		repo.On("Save", ctx, entry).Return(nil)

		err := svc.Delete(ctx, &tenantID, "waste_category", "HAZ-01", actor, "obsolete")

		require.NoError(t, err)
		assert.True(t, entry.IsDeleted())
		assert.Len(t, cache.invalidated, 1)
		repo.AssertExpectations(t)
	})

	t.Run("protected entries are refused", func(t *testing.T) {
		repo := new(MockEntryRepository)
		cache := newFakeCache()
		svc := NewService(repo, cache, nil, zap.NewNop())

		entry := newEntry(t, nil, "waste_category", "HAZ-01")
		require.NoError(t, entry.Update(entry.Name, "", true, 0, true))
		repo.On("FindByCode", ctx, (*uuid.UUID)(nil), "waste_category", "HAZ-01").Return(entry, nil)

		err := svc.Delete(ctx, nil, "waste_category", "HAZ-01", actor, "should fail")

		assert.ErrorIs(t, err, shared.ErrProtectedEntity)
		assert.Empty(t, cache.invalidated)
		repo.AssertNotCalled(t, "Save")
	})
}

func TestService_InvalidateAll(t *testing.T) {
	cache := newFakeCache()
	broadcaster := &recordingBroadcaster{}
	svc := NewService(new(MockEntryRepository), cache, broadcaster, zap.NewNop())

	svc.InvalidateAll(context.Background())

	assert.True(t, cache.clearedAll)
	assert.Equal(t, 1, broadcaster.all)
}
