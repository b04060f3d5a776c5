package retention

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScanCursor marks the last row a scan batch returned. The next batch starts
// strictly past it, so rows a batch skipped are not refetched; a zero cursor
// starts from the head of the set.
type ScanCursor struct {
	DeletedAt time.Time
	ID        uuid.UUID
}

// IsZero reports whether the cursor marks the start of a scan
func (c ScanCursor) IsZero() bool {
	return c.ID == uuid.Nil && c.DeletedAt.IsZero()
}

// SourceRepository exposes the soft-deleted rows of archivable entity kinds
type SourceRepository interface {
	// FindSoftDeletedBefore returns up to limit soft-deleted rows of the given
	// entity type whose deletion date is strictly before the cutoff, ordered
	// by (deletion date, id) and strictly after the cursor. Rows already
	// archived are excluded.
	FindSoftDeletedBefore(ctx context.Context, entityType string, cutoff time.Time, after ScanCursor, limit int) ([]SourceRow, error)
	// MarkArchived transitions the source row to the archived state
	MarkArchived(ctx context.Context, entityType string, id uuid.UUID, at time.Time) error
}

// ArchiveRepository persists archived records. The archive tables are
// append-only: Save never updates an existing record, and Replace is only
// used after a verified corruption.
type ArchiveRepository interface {
	// FindByID finds an archived record by its archive identity
	FindByID(ctx context.Context, id uuid.UUID) (*ArchivedRecord, error)
	// FindByOriginalID finds the archived record for an original entity id
	FindByOriginalID(ctx context.Context, entityType string, originalID uuid.UUID) (*ArchivedRecord, error)
	// Save appends a new archived record
	Save(ctx context.Context, record *ArchivedRecord) error
	// Replace re-creates the record for an original id after verified corruption
	Replace(ctx context.Context, record *ArchivedRecord) error
	// Sample returns up to n recently archived records of the entity type
	Sample(ctx context.Context, entityType string, n int) ([]ArchivedRecord, error)
}

// PolicyRepository loads the configuration-managed retention policy
type PolicyRepository interface {
	// Load returns the current retention policy
	Load(ctx context.Context) (*Policy, error)
}

// TenantCategoryResolver maps a tenant to its retention category.
// External collaborator, typically backed by tenant master data.
type TenantCategoryResolver interface {
	CategoryForTenant(ctx context.Context, tenantID uuid.UUID) (string, error)
}
