// Package vertical implements the composition service: activating business
// verticals for tenants, validating vertical entity property bags, and
// running entity operations across multiple active verticals.
package vertical

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/vertical"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntityOperation is one step applied to a vertical entity on behalf of a
// single vertical. A returned error fails that vertical's slot only; other
// verticals still run.
type EntityOperation func(ctx context.Context, entity *vertical.Entity, verticalName string) error

// OperationResult is the outcome of one vertical's slot in a composed run
type OperationResult struct {
	VerticalName string   `json:"vertical_name"`
	Success      bool     `json:"success"`
	Error        string   `json:"error,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// CompositionResult aggregates the per-vertical outcomes of a composed run.
// Success requires every vertical to succeed; there is no implicit rollback
// of the verticals that already ran.
type CompositionResult struct {
	Success bool                       `json:"success"`
	Results map[string]OperationResult `json:"results"`
}

// ActivationFailure reports why a vertical could not be activated
type ActivationFailure struct {
	VerticalName   string
	MissingModules []string
}

// Error implements the error interface
func (f *ActivationFailure) Error() string {
	return fmt.Sprintf("vertical %q requires modules not in the tenant subscription: %v",
		f.VerticalName, f.MissingModules)
}

// CompositionService coordinates verticals for tenants
type CompositionService struct {
	registry       *vertical.Registry
	validators     *vertical.ValidatorRegistry
	activationRepo vertical.ActivationRepository
	subscriptions  vertical.SubscriptionChecker
	logger         *zap.Logger
}

// NewCompositionService creates a composition service
func NewCompositionService(
	registry *vertical.Registry,
	validators *vertical.ValidatorRegistry,
	activationRepo vertical.ActivationRepository,
	subscriptions vertical.SubscriptionChecker,
	logger *zap.Logger,
) *CompositionService {
	return &CompositionService{
		registry:       registry,
		validators:     validators,
		activationRepo: activationRepo,
		subscriptions:  subscriptions,
		logger:         logger,
	}
}

// ActivateVertical switches a vertical on for a tenant. Every module the
// vertical requires must be in the tenant's subscription; otherwise the call
// fails listing exactly the missing modules and nothing is persisted. On
// success the vertical's default config is merged with the override (override
// wins per key) and the activation row is stored.
func (s *CompositionService) ActivateVertical(ctx context.Context, tenantID uuid.UUID, name string, override vertical.PropertyBag) (*vertical.Activation, error) {
	descriptor, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: vertical %q not registered", shared.ErrNotFound, name)
	}

	available, err := s.subscriptions.ModulesForTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenant subscription: %w", err)
	}

	if missing := missingModules(descriptor.RequiredModules, available); len(missing) > 0 {
		s.logger.Info("vertical activation refused",
			zap.String("tenant_id", tenantID.String()),
			zap.String("vertical", name),
			zap.Strings("missing_modules", missing))
		return nil, &ActivationFailure{VerticalName: name, MissingModules: missing}
	}

	config := mergeConfig(descriptor.DefaultConfig, override)

	existing, err := s.activationRepo.FindByTenantAndName(ctx, tenantID, name)
	switch {
	case err == nil:
		if existing.IsActive {
			return nil, fmt.Errorf("%w: vertical %q is already active", shared.ErrAlreadyExists, name)
		}
		if err := existing.Reactivate(config); err != nil {
			return nil, err
		}
		if err := s.activationRepo.Save(ctx, existing); err != nil {
			return nil, err
		}
		s.logger.Info("vertical reactivated",
			zap.String("tenant_id", tenantID.String()),
			zap.String("vertical", name))
		return existing, nil
	case errors.Is(err, shared.ErrNotFound):
		activation, err := vertical.NewActivation(tenantID, name, config)
		if err != nil {
			return nil, err
		}
		if err := s.activationRepo.Save(ctx, activation); err != nil {
			return nil, err
		}
		s.logger.Info("vertical activated",
			zap.String("tenant_id", tenantID.String()),
			zap.String("vertical", name))
		return activation, nil
	default:
		return nil, err
	}
}

// DeactivateVertical flips a tenant's vertical off. Historical entity data
// and the activation row itself are preserved.
func (s *CompositionService) DeactivateVertical(ctx context.Context, tenantID uuid.UUID, name string) error {
	activation, err := s.activationRepo.FindByTenantAndName(ctx, tenantID, name)
	if err != nil {
		return err
	}
	if err := activation.Deactivate(); err != nil {
		return err
	}
	if err := s.activationRepo.Save(ctx, activation); err != nil {
		return err
	}
	s.logger.Info("vertical deactivated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("vertical", name))
	return nil
}

// ListActive returns the names of a tenant's active verticals
func (s *CompositionService) ListActive(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	activations, err := s.activationRepo.ListActiveForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(activations))
	for i, a := range activations {
		names[i] = a.VerticalName
	}
	return names, nil
}

// ValidateProperties validates an entity's property bag against its
// vertical's declared attributes. A vertical without a registered validator
// is valid with a warning, so a half-configured deployment degrades loudly
// instead of rejecting writes.
func (s *CompositionService) ValidateProperties(entity *vertical.Entity) vertical.ValidationResult {
	validator, ok := s.validators.Get(entity.VerticalType)
	if !ok {
		result := vertical.ValidationResult{Valid: true}
		result.AddWarning(fmt.Sprintf("no validator registered for vertical %q", entity.VerticalType))
		s.logger.Warn("validating entity without a registered validator",
			zap.String("vertical", entity.VerticalType),
			zap.String("entity_id", entity.ID.String()))
		return result
	}
	return validator.Validate(entity)
}

// ComposeEntityOperation runs op once per vertical and collects per-vertical
// outcomes. All verticals run regardless of earlier failures; the composed
// result is successful only when every slot succeeded.
func (s *CompositionService) ComposeEntityOperation(ctx context.Context, entity *vertical.Entity, op EntityOperation, verticals []string) CompositionResult {
	composed := CompositionResult{
		Success: true,
		Results: make(map[string]OperationResult, len(verticals)),
	}

	for _, name := range verticals {
		slot := OperationResult{VerticalName: name, Success: true}

		if _, registered := s.registry.Get(name); !registered {
			slot.Warnings = append(slot.Warnings, fmt.Sprintf("vertical %q not registered", name))
		}

		if err := op(ctx, entity, name); err != nil {
			slot.Success = false
			slot.Error = err.Error()
			composed.Success = false
			s.logger.Warn("vertical operation failed",
				zap.String("vertical", name),
				zap.String("entity_id", entity.ID.String()),
				zap.Error(err))
		}
		composed.Results[name] = slot
	}
	return composed
}

// missingModules returns required modules absent from available, sorted
func missingModules(required, available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, m := range available {
		have[m] = struct{}{}
	}
	var missing []string
	for _, m := range required {
		if _, ok := have[m]; !ok {
			missing = append(missing, m)
		}
	}
	sort.Strings(missing)
	return missing
}

// mergeConfig overlays the override on the vertical's defaults, key by key
func mergeConfig(defaults map[string]any, override vertical.PropertyBag) vertical.PropertyBag {
	merged := vertical.NewPropertyBag()
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
