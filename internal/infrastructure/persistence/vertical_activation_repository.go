package persistence

import (
	"context"
	"errors"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/vertical"
	"github.com/backoffice/backend/internal/infrastructure/persistence/models"
	"github.com/backoffice/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVerticalActivationRepository implements ActivationRepository using GORM
type GormVerticalActivationRepository struct {
	db *gorm.DB
}

// NewGormVerticalActivationRepository creates a new GormVerticalActivationRepository
func NewGormVerticalActivationRepository(db *gorm.DB) *GormVerticalActivationRepository {
	return &GormVerticalActivationRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormVerticalActivationRepository) WithTx(tx *gorm.DB) *GormVerticalActivationRepository {
	return &GormVerticalActivationRepository{db: tx}
}

// FindByTenantAndName finds the activation row for a tenant and vertical
func (r *GormVerticalActivationRepository) FindByTenantAndName(ctx context.Context, tenantID uuid.UUID, verticalName string) (*vertical.Activation, error) {
	var model models.VerticalActivationModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("vertical_name = ?", verticalName).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// ListActiveForTenant returns all active activations for a tenant
func (r *GormVerticalActivationRepository) ListActiveForTenant(ctx context.Context, tenantID uuid.UUID) ([]vertical.Activation, error) {
	var activationModels []models.VerticalActivationModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("is_active = ?", true).
		Order("vertical_name ASC").
		Find(&activationModels).Error
	if err != nil {
		return nil, err
	}

	activations := make([]vertical.Activation, len(activationModels))
	for i, model := range activationModels {
		activation, err := model.ToDomain()
		if err != nil {
			return nil, err
		}
		activations[i] = *activation
	}
	return activations, nil
}

// Save creates or updates an activation, enforcing optimistic concurrency
func (r *GormVerticalActivationRepository) Save(ctx context.Context, activation *vertical.Activation) error {
	model := models.VerticalActivationModelFromDomain(activation)

	if activation.Version <= 1 {
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "tenant_id"}, {Name: "vertical_name"},
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
		Model(&models.VerticalActivationModel{}).
		Where("id = ? AND version = ?", activation.ID, activation.Version-1).
		Updates(map[string]any{
			"config":         model.ConfigJSON,
			"is_active":      model.IsActive,
			"activated_at":   model.ActivatedAt,
			"deactivated_at": model.DeactivatedAt,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.db.WithContext(ctx).Model(&models.VerticalActivationModel{}).Where("id = ?", activation.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormVerticalActivationRepository implements ActivationRepository
var _ vertical.ActivationRepository = (*GormVerticalActivationRepository)(nil)
