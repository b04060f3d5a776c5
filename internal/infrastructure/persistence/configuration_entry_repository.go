package persistence

import (
	"context"
	"errors"

	"github.com/backoffice/backend/internal/domain/configuration"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/infrastructure/persistence/models"
	"github.com/backoffice/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormConfigurationEntryRepository implements EntryRepository using GORM.
// Every query is exact-scope: the tenant/global fallback chain is composed
// above this layer, one scope per call.
type GormConfigurationEntryRepository struct {
	db *gorm.DB
}

// NewGormConfigurationEntryRepository creates a new GormConfigurationEntryRepository
func NewGormConfigurationEntryRepository(db *gorm.DB) *GormConfigurationEntryRepository {
	return &GormConfigurationEntryRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormConfigurationEntryRepository) WithTx(tx *gorm.DB) *GormConfigurationEntryRepository {
	return &GormConfigurationEntryRepository{db: tx}
}

// FindByID finds an entry by its identity, including soft-deleted rows
func (r *GormConfigurationEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*configuration.Entry, error) {
	var model models.ConfigurationEntryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds the live entry with the given kind and code in exactly
// the given scope
func (r *GormConfigurationEntryRepository) FindByCode(ctx context.Context, tenantID *uuid.UUID, kind, code string) (*configuration.Entry, error) {
	var model models.ConfigurationEntryModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.ExactScope(tenantID)).
		Where("kind = ? AND code = ? AND deleted_at IS NULL", kind, code).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListForScope returns all live entries of a kind in exactly the given scope
func (r *GormConfigurationEntryRepository) ListForScope(ctx context.Context, tenantID *uuid.UUID, kind string) ([]configuration.Entry, error) {
	var entryModels []models.ConfigurationEntryModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.ExactScope(tenantID)).
		Where("kind = ? AND deleted_at IS NULL", kind).
		Order("sort_order ASC, code ASC").
		Find(&entryModels).Error
	if err != nil {
		return nil, err
	}

	entries := make([]configuration.Entry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// ExistsInScope reports whether a live entry with the code exists in the
// scope, excluding the entry with excludeID
func (r *GormConfigurationEntryRepository) ExistsInScope(ctx context.Context, tenantID *uuid.UUID, kind, code string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.ConfigurationEntryModel{}).
		Scopes(tenant.ExactScope(tenantID)).
		Where("kind = ? AND code = ? AND deleted_at IS NULL", kind, code)
	if excludeID != uuid.Nil {
		query = query.Where("id != ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates an entry, enforcing optimistic concurrency.
// A freshly created aggregate carries version 1; any domain mutation bumps
// it past that, so the version discriminates insert from update.
func (r *GormConfigurationEntryRepository) Save(ctx context.Context, entry *configuration.Entry) error {
	model := models.ConfigurationEntryModelFromDomain(entry)

	if entry.Version <= 1 {
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "tenant_id"}, {Name: "kind"}, {Name: "code"},
				},
				DoNothing: true,
			}).
			Create(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrAlreadyExists
		}
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.ConfigurationEntryModel{}).
		Where("id = ? AND version = ?", entry.ID, entry.Version-1).
		Updates(map[string]any{
			"name":          model.Name,
			"description":   model.Description,
			"is_protected":  model.IsProtected,
			"sort_order":    model.SortOrder,
			"is_active":     model.IsActive,
			"deleted_at":    model.DeletedAt,
			"deleted_by":    model.DeletedBy,
			"delete_reason": model.DeleteReason,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.db.WithContext(ctx).Model(&models.ConfigurationEntryModel{}).Where("id = ?", entry.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormConfigurationEntryRepository implements EntryRepository
var _ configuration.EntryRepository = (*GormConfigurationEntryRepository)(nil)
