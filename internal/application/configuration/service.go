// Package configuration implements the tenant-aware configuration resolver:
// cache-aside reads with tenant-to-global fallback and write-through
// invalidation. The cache is strictly an accelerator; the relational store
// stays authoritative.
package configuration

import (
	"context"
	"errors"
	"fmt"

	"github.com/backoffice/backend/internal/domain/configuration"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var validate = validator.New()

// InvalidationBroadcaster tells peer instances to drop cached entries after a
// write. Broadcasting is best-effort: local invalidation already happened
// synchronously, so a failed broadcast only delays peers until their TTL.
type InvalidationBroadcaster interface {
	BroadcastInvalidateKey(ctx context.Context, tenantID *uuid.UUID, kind, code string) error
	BroadcastInvalidateAll(ctx context.Context) error
}

// NopBroadcaster is used when no peer broadcast channel is configured
type NopBroadcaster struct{}

// BroadcastInvalidateKey does nothing
func (NopBroadcaster) BroadcastInvalidateKey(context.Context, *uuid.UUID, string, string) error {
	return nil
}

// BroadcastInvalidateAll does nothing
func (NopBroadcaster) BroadcastInvalidateAll(context.Context) error { return nil }

// UpsertInput carries the caller-supplied fields of a configuration write
type UpsertInput struct {
	Kind        string `validate:"required"`
	Code        string `validate:"required"`
	Name        string `validate:"required"`
	Description string
	IsProtected bool
	SortOrder   int
	IsActive    bool
}

// Service resolves configuration entries with tenant-to-global fallback
type Service struct {
	repo        configuration.EntryRepository
	cache       configuration.EntryCache
	broadcaster InvalidationBroadcaster
	logger      *zap.Logger
}

// NewService creates a configuration resolver service
func NewService(
	repo configuration.EntryRepository,
	cache configuration.EntryCache,
	broadcaster InvalidationBroadcaster,
	logger *zap.Logger,
) *Service {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &Service{
		repo:        repo,
		cache:       cache,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// GetByCode resolves an entry for a tenant: the tenant's own row wins, the
// global row is the fallback, and another tenant's row is never returned.
// A nil tenantID reads the global scope directly. Both scopes are served
// cache-aside under their own cache keys.
func (s *Service) GetByCode(ctx context.Context, tenantID *uuid.UUID, kind, code string) (*configuration.Entry, error) {
	if tenantID != nil {
		if entry, err := s.resolveScope(ctx, tenantID, kind, code); err == nil {
			return entry, nil
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}

	entry, err := s.resolveScope(ctx, nil, kind, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: no entry %s/%s for tenant or global scope", shared.ErrNotFound, kind, code)
		}
		return nil, err
	}
	return entry, nil
}

// resolveScope serves exactly one scope cache-aside
func (s *Service) resolveScope(ctx context.Context, tenantID *uuid.UUID, kind, code string) (*configuration.Entry, error) {
	if cached := s.cache.Get(ctx, tenantID, kind, code); cached != nil {
		return cached, nil
	}

	entry, err := s.repo.FindByCode(ctx, tenantID, kind, code)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, entry, 0)
	return entry, nil
}

// List returns the entries of a kind visible to a tenant: the tenant's own
// entries overlaid on the global ones, with shadowed globals suppressed.
// A nil tenantID lists the global scope only.
func (s *Service) List(ctx context.Context, tenantID *uuid.UUID, kind string) ([]configuration.Entry, error) {
	var tenantEntries []configuration.Entry
	if tenantID != nil {
		var err error
		tenantEntries, err = s.repo.ListForScope(ctx, tenantID, kind)
		if err != nil {
			return nil, err
		}
	}
	globalEntries, err := s.repo.ListForScope(ctx, nil, kind)
	if err != nil {
		return nil, err
	}

	shadowed := make(map[string]struct{}, len(tenantEntries))
	for _, entry := range tenantEntries {
		shadowed[entry.Code] = struct{}{}
	}

	merged := make([]configuration.Entry, 0, len(tenantEntries)+len(globalEntries))
	merged = append(merged, tenantEntries...)
	for _, entry := range globalEntries {
		if _, ok := shadowed[entry.Code]; !ok {
			merged = append(merged, entry)
		}
	}
	return merged, nil
}

// Upsert creates or updates an entry in the given scope (nil tenantID targets
// the global scope). The code must be unique within its scope. The local
// cache key is invalidated before the call returns; peers are notified
// best-effort afterwards.
func (s *Service) Upsert(ctx context.Context, tenantID *uuid.UUID, input UpsertInput) (*configuration.Entry, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidationFailed, err)
	}

	existing, err := s.repo.FindByCode(ctx, tenantID, input.Kind, input.Code)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	var entry *configuration.Entry
	if existing == nil {
		exists, err := s.repo.ExistsInScope(ctx, tenantID, input.Kind, input.Code, uuid.Nil)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: code %q already used in scope", shared.ErrAlreadyExists, input.Code)
		}

		entry, err = configuration.NewEntry(tenantID, input.Kind, input.Code, input.Name)
		if err != nil {
			return nil, err
		}
		// Direct field assignment keeps the aggregate at version 1 so the
		// repository takes the insert path
		entry.Description = input.Description
		entry.IsProtected = input.IsProtected
		entry.SortOrder = input.SortOrder
		entry.IsActive = input.IsActive
	} else {
		entry = existing
		if err := entry.Update(input.Name, input.Description, input.IsProtected, input.SortOrder, input.IsActive); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, entry); err != nil {
		s.logger.Error("failed to save configuration entry",
			zap.String("kind", input.Kind),
			zap.String("code", input.Code),
			zap.Error(err))
		return nil, err
	}

	s.invalidate(ctx, tenantID, input.Kind, input.Code)
	s.logger.Info("configuration entry upserted",
		zap.String("kind", entry.Kind),
		zap.String("code", entry.Code),
		zap.Bool("global", entry.IsGlobal()))
	return entry, nil
}

// Delete soft-deletes the entry with the code in exactly the given scope.
// Protected entries are refused regardless of scope.
func (s *Service) Delete(ctx context.Context, tenantID *uuid.UUID, kind, code string, actor uuid.UUID, reason string) error {
	entry, err := s.repo.FindByCode(ctx, tenantID, kind, code)
	if err != nil {
		return err
	}

	if err := entry.SoftDelete(actor, reason); err != nil {
		return err
	}

	if err := s.repo.Save(ctx, entry); err != nil {
		s.logger.Error("failed to soft-delete configuration entry",
			zap.String("kind", kind),
			zap.String("code", code),
			zap.Error(err))
		return err
	}

	s.invalidate(ctx, tenantID, kind, code)
	s.logger.Info("configuration entry soft-deleted",
		zap.String("kind", kind),
		zap.String("code", code),
		zap.String("actor", actor.String()))
	return nil
}

// InvalidateAll clears the local cache and tells peers to do the same
func (s *Service) InvalidateAll(ctx context.Context) {
	s.cache.InvalidateAll(ctx)
	if err := s.broadcaster.BroadcastInvalidateAll(ctx); err != nil {
		s.logger.Warn("failed to broadcast full cache invalidation", zap.Error(err))
	}
}

// CacheStats returns the hit/miss counters of the resolver cache
func (s *Service) CacheStats() configuration.CacheStats {
	return s.cache.Stats()
}

// invalidate drops the local key synchronously, then notifies peers
func (s *Service) invalidate(ctx context.Context, tenantID *uuid.UUID, kind, code string) {
	s.cache.Invalidate(ctx, tenantID, kind, code)
	if err := s.broadcaster.BroadcastInvalidateKey(ctx, tenantID, kind, code); err != nil {
		s.logger.Warn("failed to broadcast cache invalidation",
			zap.String("kind", kind),
			zap.String("code", code),
			zap.Error(err))
	}
}
