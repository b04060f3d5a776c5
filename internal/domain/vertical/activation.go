package vertical

import (
	"context"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Activation records that a tenant has switched a vertical on, together with
// the configuration that was in effect (defaults merged with overrides).
// Deactivation flips IsActive off but keeps the row and all entity data.
type Activation struct {
	shared.TenantAggregateRoot
	VerticalName  string
	Config        PropertyBag
	IsActive      bool
	ActivatedAt   time.Time
	DeactivatedAt *time.Time
}

// NewActivation creates an active activation for a tenant
func NewActivation(tenantID uuid.UUID, verticalName string, config PropertyBag) (*Activation, error) {
	if verticalName == "" {
		return nil, fmt.Errorf("%w: vertical name cannot be empty", shared.ErrInvalidInput)
	}
	if config == nil {
		config = NewPropertyBag()
	}
	return &Activation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(&tenantID),
		VerticalName:        verticalName,
		Config:              config,
		IsActive:            true,
		ActivatedAt:         time.Now(),
	}, nil
}

// Deactivate flips the activation off, preserving historical data
func (a *Activation) Deactivate() error {
	if !a.IsActive {
		return fmt.Errorf("%w: vertical %q is not active", shared.ErrInvalidState, a.VerticalName)
	}
	now := time.Now()
	a.IsActive = false
	a.DeactivatedAt = &now
	a.UpdatedAt = now
	a.IncrementVersion()
	return nil
}

// Reactivate turns a previously deactivated vertical back on with new config
func (a *Activation) Reactivate(config PropertyBag) error {
	if a.IsActive {
		return fmt.Errorf("%w: vertical %q is already active", shared.ErrInvalidState, a.VerticalName)
	}
	a.IsActive = true
	a.Config = config
	a.DeactivatedAt = nil
	a.ActivatedAt = time.Now()
	a.UpdatedAt = a.ActivatedAt
	a.IncrementVersion()
	return nil
}

// ActivationRepository persists vertical activations
type ActivationRepository interface {
	// FindByTenantAndName finds the activation row for a tenant and vertical
	FindByTenantAndName(ctx context.Context, tenantID uuid.UUID, verticalName string) (*Activation, error)
	// ListActiveForTenant returns all active activations for a tenant
	ListActiveForTenant(ctx context.Context, tenantID uuid.UUID) ([]Activation, error)
	// Save creates or updates an activation
	Save(ctx context.Context, activation *Activation) error
}

// SubscriptionChecker reports which modules a tenant's plan includes.
// It is an external collaborator resolved per call.
type SubscriptionChecker interface {
	// ModulesForTenant returns the module names available to the tenant
	ModulesForTenant(ctx context.Context, tenantID uuid.UUID) ([]string, error)
}
