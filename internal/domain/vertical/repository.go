package vertical

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntityRepository persists vertical entities and their property bags
type EntityRepository interface {
	// FindByID finds an entity by its identity, including soft-deleted rows
	FindByID(ctx context.Context, id uuid.UUID) (*Entity, error)
	// ListForTenant returns live entities of a type for a tenant
	ListForTenant(ctx context.Context, tenantID uuid.UUID, entityType string) ([]Entity, error)
	// Save creates or updates an entity, enforcing optimistic concurrency
	Save(ctx context.Context, entity *Entity) error
	// FindSoftDeletedBefore returns up to limit soft-deleted entities of the
	// given type deleted strictly before the cutoff, oldest deletion first,
	// excluding entities already archived
	FindSoftDeletedBefore(ctx context.Context, entityType string, cutoff time.Time, limit int) ([]Entity, error)
	// MarkArchived transitions a soft-deleted entity to the archived state
	MarkArchived(ctx context.Context, id uuid.UUID, at time.Time) error
}
