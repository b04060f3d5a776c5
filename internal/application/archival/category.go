package archival

import (
	"context"
	"errors"

	appconfiguration "github.com/backoffice/backend/internal/application/configuration"
	"github.com/backoffice/backend/internal/domain/retention"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Configuration coordinates for the tenant's retention category
const (
	// TenantProfileKind is the configuration kind carrying tenant master data
	TenantProfileKind = "tenant_profile"
	// RetentionCategoryCode is the entry whose name holds the category
	RetentionCategoryCode = "retention_category"
)

// ConfigurationCategoryResolver reads a tenant's retention category from its
// configuration. A tenant without the entry falls back to the empty category,
// which carries no adjustment.
type ConfigurationCategoryResolver struct {
	resolver *appconfiguration.Service
}

// NewConfigurationCategoryResolver creates a category resolver over the
// configuration resolver
func NewConfigurationCategoryResolver(resolver *appconfiguration.Service) *ConfigurationCategoryResolver {
	return &ConfigurationCategoryResolver{resolver: resolver}
}

// CategoryForTenant returns the tenant's retention category
func (c *ConfigurationCategoryResolver) CategoryForTenant(ctx context.Context, tenantID uuid.UUID) (string, error) {
	entry, err := c.resolver.GetByCode(ctx, &tenantID, TenantProfileKind, RetentionCategoryCode)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return entry.Name, nil
}

var _ retention.TenantCategoryResolver = (*ConfigurationCategoryResolver)(nil)
