package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/backoffice/backend/internal/domain/retention"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/vertical"
	"github.com/backoffice/backend/internal/infrastructure/persistence/models"
	"github.com/backoffice/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormVerticalEntityRepository implements EntityRepository using GORM
type GormVerticalEntityRepository struct {
	db *gorm.DB
}

// NewGormVerticalEntityRepository creates a new GormVerticalEntityRepository
func NewGormVerticalEntityRepository(db *gorm.DB) *GormVerticalEntityRepository {
	return &GormVerticalEntityRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormVerticalEntityRepository) WithTx(tx *gorm.DB) *GormVerticalEntityRepository {
	return &GormVerticalEntityRepository{db: tx}
}

// FindByID finds an entity by its identity, including soft-deleted rows
func (r *GormVerticalEntityRepository) FindByID(ctx context.Context, id uuid.UUID) (*vertical.Entity, error) {
	var model models.VerticalEntityModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// ListForTenant returns live entities of a type for a tenant
func (r *GormVerticalEntityRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, entityType string) ([]vertical.Entity, error) {
	var entityModels []models.VerticalEntityModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("entity_type = ? AND state = ?", entityType, retention.StateActive).
		Order("created_at ASC").
		Find(&entityModels).Error
	if err != nil {
		return nil, err
	}

	entities := make([]vertical.Entity, len(entityModels))
	for i, model := range entityModels {
		entity, err := model.ToDomain()
		if err != nil {
			return nil, err
		}
		entities[i] = *entity
	}
	return entities, nil
}

// Save creates or updates an entity, enforcing optimistic concurrency
func (r *GormVerticalEntityRepository) Save(ctx context.Context, entity *vertical.Entity) error {
	model := models.VerticalEntityModelFromDomain(entity)

	if entity.Version <= 1 {
		return r.db.WithContext(ctx).Create(model).Error
	}

	result := r.db.WithContext(ctx).
		Model(&models.VerticalEntityModel{}).
		Where("id = ? AND version = ?", entity.ID, entity.Version-1).
		Updates(map[string]any{
			"schema_version": model.SchemaVersion,
			"is_active":      model.IsActive,
			"properties":     model.PropertiesJSON,
			"state":          model.State,
			"deleted_at":     model.DeletedAt,
			"deleted_by":     model.DeletedBy,
			"delete_reason":  model.DeleteReason,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.db.WithContext(ctx).Model(&models.VerticalEntityModel{}).Where("id = ?", entity.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindSoftDeletedBefore returns soft-deleted entities of a type deleted
// before the cutoff, oldest first, excluding already archived rows
func (r *GormVerticalEntityRepository) FindSoftDeletedBefore(ctx context.Context, entityType string, cutoff time.Time, limit int) ([]vertical.Entity, error) {
	entityModels, err := r.findSoftDeletedModels(ctx, entityType, cutoff, retention.ScanCursor{}, limit)
	if err != nil {
		return nil, err
	}

	entities := make([]vertical.Entity, len(entityModels))
	for i, model := range entityModels {
		entity, err := model.ToDomain()
		if err != nil {
			return nil, err
		}
		entities[i] = *entity
	}
	return entities, nil
}

// MarkArchived transitions a soft-deleted entity to the archived state
func (r *GormVerticalEntityRepository) MarkArchived(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.VerticalEntityModel{}).
		Where("id = ? AND state = ?", id, retention.StateSoftDeleted).
		Updates(map[string]any{
			"state":       retention.StateArchived,
			"archived_at": at,
			"updated_at":  at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.db.WithContext(ctx).Model(&models.VerticalEntityModel{}).Where("id = ?", id).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrInvalidState
	}
	return nil
}

func (r *GormVerticalEntityRepository) findSoftDeletedModels(ctx context.Context, entityType string, cutoff time.Time, after retention.ScanCursor, limit int) ([]models.VerticalEntityModel, error) {
	query := r.db.WithContext(ctx).
		Where("entity_type = ? AND state = ? AND deleted_at < ?", entityType, retention.StateSoftDeleted, cutoff)
	if !after.IsZero() {
		query = query.Where("(deleted_at, id) > (?, ?)", after.DeletedAt, after.ID)
	}

	var entityModels []models.VerticalEntityModel
	err := query.
		Order("deleted_at ASC, id ASC").
		Limit(limit).
		Find(&entityModels).Error
	return entityModels, err
}

// Ensure GormVerticalEntityRepository implements EntityRepository
var _ vertical.EntityRepository = (*GormVerticalEntityRepository)(nil)

// VerticalEntitySource adapts the vertical entity table to the archival
// engine's source-row view
type VerticalEntitySource struct {
	repo *GormVerticalEntityRepository
}

// NewVerticalEntitySource creates a SourceRepository over vertical entities
func NewVerticalEntitySource(db *gorm.DB) *VerticalEntitySource {
	return &VerticalEntitySource{repo: NewGormVerticalEntityRepository(db)}
}

// FindSoftDeletedBefore returns soft-deleted rows as archival source rows,
// resuming strictly after the cursor
func (s *VerticalEntitySource) FindSoftDeletedBefore(ctx context.Context, entityType string, cutoff time.Time, after retention.ScanCursor, limit int) ([]retention.SourceRow, error) {
	entityModels, err := s.repo.findSoftDeletedModels(ctx, entityType, cutoff, after, limit)
	if err != nil {
		return nil, err
	}

	rows := make([]retention.SourceRow, len(entityModels))
	for i, model := range entityModels {
		rows[i] = model.ToSourceRow()
	}
	return rows, nil
}

// MarkArchived transitions the source row to the archived state
func (s *VerticalEntitySource) MarkArchived(ctx context.Context, entityType string, id uuid.UUID, at time.Time) error {
	return s.repo.MarkArchived(ctx, id, at)
}

// Ensure VerticalEntitySource implements SourceRepository
var _ retention.SourceRepository = (*VerticalEntitySource)(nil)
