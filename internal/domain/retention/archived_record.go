package retention

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SchemaVersion is the current archive snapshot schema version
const SchemaVersion = 1

// ArchivedRecord is one archived entity: the full serialized snapshot at
// archival time plus a content hash over the snapshot. Records are immutable
// once created; a record is only ever re-created after a verified corruption.
type ArchivedRecord struct {
	ID             uuid.UUID
	OriginalID     uuid.UUID
	EntityType     string
	TenantID       uuid.UUID
	Snapshot       []byte
	ContentHash    string
	DeletedAt      time.Time
	DeletedBy      uuid.UUID
	ArchivalReason string
	ArchivedAt     time.Time
	SchemaVersion  int
}

// ComputeContentHash returns the hex SHA-256 digest of a snapshot
func ComputeContentHash(snapshot []byte) string {
	sum := sha256.Sum256(snapshot)
	return hex.EncodeToString(sum[:])
}

// SerializeSnapshot produces the canonical snapshot bytes for a payload.
// encoding/json sorts map keys, so equal payloads always hash identically.
func SerializeSnapshot(payload map[string]any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serializing snapshot: %w", err)
	}
	return data, nil
}

// NewArchivedRecord builds an archived record from a soft-deleted source row
func NewArchivedRecord(row SourceRow, reason string, archivedAt time.Time) (*ArchivedRecord, error) {
	snapshot, err := SerializeSnapshot(row.Payload)
	if err != nil {
		return nil, err
	}
	return &ArchivedRecord{
		ID:             uuid.New(),
		OriginalID:     row.ID,
		EntityType:     row.EntityType,
		TenantID:       row.TenantID,
		Snapshot:       snapshot,
		ContentHash:    ComputeContentHash(snapshot),
		DeletedAt:      row.DeletedAt,
		DeletedBy:      row.DeletedBy,
		ArchivalReason: reason,
		ArchivedAt:     archivedAt,
		SchemaVersion:  SchemaVersion,
	}, nil
}

// Verify recomputes the digest from the stored snapshot and compares it to
// the stored hash. A mismatch is an integrity violation.
func (r *ArchivedRecord) Verify() error {
	if computed := ComputeContentHash(r.Snapshot); computed != r.ContentHash {
		return fmt.Errorf("%w: archive %s (original %s): stored %s, computed %s",
			shared.ErrIntegrityViolation, r.ID, r.OriginalID, r.ContentHash, computed)
	}
	return nil
}

// SourceRow is the archival engine's view of one soft-deleted row of an
// archivable entity kind. Payload carries the full row in serializable form.
type SourceRow struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	EntityType   string
	Payload      map[string]any
	DeletedAt    time.Time
	DeletedBy    uuid.UUID
	DeleteReason string
	State        State
}
