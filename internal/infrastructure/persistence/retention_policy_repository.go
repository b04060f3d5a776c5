package persistence

import (
	"context"
	"errors"

	"github.com/backoffice/backend/internal/domain/retention"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRetentionPolicyRepository implements PolicyRepository using GORM.
// Policies are versioned documents; Load reads the newest one.
type GormRetentionPolicyRepository struct {
	db *gorm.DB
}

// NewGormRetentionPolicyRepository creates a new GormRetentionPolicyRepository
func NewGormRetentionPolicyRepository(db *gorm.DB) *GormRetentionPolicyRepository {
	return &GormRetentionPolicyRepository{db: db}
}

// Load returns the current retention policy
func (r *GormRetentionPolicyRepository) Load(ctx context.Context) (*retention.Policy, error) {
	var model models.RetentionPolicyModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// Store appends a new policy version, making it current
func (r *GormRetentionPolicyRepository) Store(ctx context.Context, policy *retention.Policy) error {
	model := models.RetentionPolicyModelFromDomain(policy)
	return r.db.WithContext(ctx).Create(model).Error
}

// Ensure GormRetentionPolicyRepository implements PolicyRepository
var _ retention.PolicyRepository = (*GormRetentionPolicyRepository)(nil)
