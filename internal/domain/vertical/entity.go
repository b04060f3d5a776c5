package vertical

import (
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Entity is a business entity extended by a vertical. The core schema stays
// fixed; business-specific attributes live in the property bag and are
// validated against the attribute definitions of the entity's vertical type.
// SchemaVersion changes are additive: bags written under an older version
// stay readable.
type Entity struct {
	shared.TenantAggregateRoot
	EntityType    string
	VerticalType  string
	SchemaVersion int
	IsActive      bool
	Properties    PropertyBag
	DeletedAt     *time.Time
	DeletedBy     *uuid.UUID
	DeleteReason  string
}

// NewEntity creates an active vertical entity of the given type
func NewEntity(tenantID uuid.UUID, entityType, verticalType string) (*Entity, error) {
	if entityType == "" {
		return nil, fmt.Errorf("%w: entity type cannot be empty", shared.ErrInvalidInput)
	}
	if verticalType == "" {
		return nil, fmt.Errorf("%w: vertical type cannot be empty", shared.ErrInvalidInput)
	}
	return &Entity{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(&tenantID),
		EntityType:          entityType,
		VerticalType:        verticalType,
		SchemaVersion:       1,
		IsActive:            true,
		Properties:          NewPropertyBag(),
	}, nil
}

// BumpSchemaVersion records an additive schema change
func (e *Entity) BumpSchemaVersion() {
	e.SchemaVersion++
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
}

// IsDeleted reports whether the entity has been soft-deleted
func (e *Entity) IsDeleted() bool {
	return e.DeletedAt != nil
}

// SoftDelete marks the entity as deleted, keeping the row for retention
func (e *Entity) SoftDelete(actor uuid.UUID, reason string) error {
	if e.IsDeleted() {
		return fmt.Errorf("%w: entity already deleted", shared.ErrInvalidState)
	}
	now := time.Now()
	e.DeletedAt = &now
	e.DeletedBy = &actor
	e.DeleteReason = reason
	e.IsActive = false
	e.UpdatedAt = now
	e.IncrementVersion()
	return nil
}

// Restore reverses a soft delete
func (e *Entity) Restore() error {
	if !e.IsDeleted() {
		return fmt.Errorf("%w: entity is not deleted", shared.ErrInvalidState)
	}
	e.DeletedAt = nil
	e.DeletedBy = nil
	e.DeleteReason = ""
	e.IsActive = true
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
	return nil
}
