package persistence

import (
	"context"
	"errors"

	"github.com/backoffice/backend/internal/domain/retention"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormArchiveRepository implements ArchiveRepository using GORM. The archive
// table is append-only: Save never overwrites, and Replace is restricted to
// the corruption-recovery path.
type GormArchiveRepository struct {
	db *gorm.DB
}

// NewGormArchiveRepository creates a new GormArchiveRepository
func NewGormArchiveRepository(db *gorm.DB) *GormArchiveRepository {
	return &GormArchiveRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormArchiveRepository) WithTx(tx *gorm.DB) *GormArchiveRepository {
	return &GormArchiveRepository{db: tx}
}

// FindByID finds an archived record by its archive identity
func (r *GormArchiveRepository) FindByID(ctx context.Context, id uuid.UUID) (*retention.ArchivedRecord, error) {
	var model models.ArchivedRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOriginalID finds the archived record for an original entity id
func (r *GormArchiveRepository) FindByOriginalID(ctx context.Context, entityType string, originalID uuid.UUID) (*retention.ArchivedRecord, error) {
	var model models.ArchivedRecordModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND original_id = ?", entityType, originalID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save appends a new archived record. A record already present for the same
// original entity is left untouched and reported as ErrAlreadyExists, which
// makes re-archival after a partial batch failure safe.
func (r *GormArchiveRepository) Save(ctx context.Context, record *retention.ArchivedRecord) error {
	model := models.ArchivedRecordModelFromDomain(record)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "entity_type"}, {Name: "original_id"},
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

// Replace re-creates the record for an original id after verified corruption.
// The old row is removed and the new one written in a single transaction.
func (r *GormArchiveRepository) Replace(ctx context.Context, record *retention.ArchivedRecord) error {
	model := models.ArchivedRecordModelFromDomain(record)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Delete(&models.ArchivedRecordModel{}, "entity_type = ? AND original_id = ?", record.EntityType, record.OriginalID).
			Error; err != nil {
			return err
		}
		return tx.Create(model).Error
	})
}

// Sample returns up to n recently archived records of the entity type
func (r *GormArchiveRepository) Sample(ctx context.Context, entityType string, n int) ([]retention.ArchivedRecord, error) {
	var recordModels []models.ArchivedRecordModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ?", entityType).
		Order("archived_at DESC").
		Limit(n).
		Find(&recordModels).Error
	if err != nil {
		return nil, err
	}

	records := make([]retention.ArchivedRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// Ensure GormArchiveRepository implements ArchiveRepository
var _ retention.ArchiveRepository = (*GormArchiveRepository)(nil)
