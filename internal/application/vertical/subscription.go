package vertical

import (
	"context"

	appconfiguration "github.com/backoffice/backend/internal/application/configuration"
	"github.com/backoffice/backend/internal/domain/vertical"
	"github.com/google/uuid"
)

// SubscriptionKind is the configuration kind listing a tenant's subscribed
// modules: one active entry per module, resolved with the usual
// tenant-to-global fallback so a plan can be defined globally and narrowed
// per tenant.
const SubscriptionKind = "subscription_module"

// ConfigurationSubscriptionChecker reads the tenant's module subscription
// from configuration entries
type ConfigurationSubscriptionChecker struct {
	resolver *appconfiguration.Service
}

// NewConfigurationSubscriptionChecker creates a subscription checker over the
// configuration resolver
func NewConfigurationSubscriptionChecker(resolver *appconfiguration.Service) *ConfigurationSubscriptionChecker {
	return &ConfigurationSubscriptionChecker{resolver: resolver}
}

// ModulesForTenant returns the codes of the tenant's active subscription
// entries
func (c *ConfigurationSubscriptionChecker) ModulesForTenant(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	entries, err := c.resolver.List(ctx, &tenantID, SubscriptionKind)
	if err != nil {
		return nil, err
	}

	modules := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsActive {
			modules = append(modules, entry.Code)
		}
	}
	return modules, nil
}

var _ vertical.SubscriptionChecker = (*ConfigurationSubscriptionChecker)(nil)
