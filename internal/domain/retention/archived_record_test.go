package retention

import (
	"testing"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSourceRow() SourceRow {
	return SourceRow{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		EntityType: "invoice",
		Payload: map[string]any{
			"number": "INV-001",
			"total":  "123.45",
		},
		DeletedAt:    time.Date(2015, 6, 1, 12, 0, 0, 0, time.UTC),
		DeletedBy:    uuid.New(),
		DeleteReason: "customer churn",
		State:        StateSoftDeleted,
	}
}

func TestNewArchivedRecord(t *testing.T) {
	row := testSourceRow()
	archivedAt := time.Now()

	record, err := NewArchivedRecord(row, "retention expired", archivedAt)
	require.NoError(t, err)

	assert.Equal(t, row.ID, record.OriginalID)
	assert.Equal(t, row.TenantID, record.TenantID)
	assert.Equal(t, row.DeletedAt, record.DeletedAt)
	assert.Equal(t, row.DeletedBy, record.DeletedBy)
	assert.Equal(t, "retention expired", record.ArchivalReason)
	assert.Equal(t, SchemaVersion, record.SchemaVersion)
	assert.NotEmpty(t, record.ContentHash)

	// Verification must pass immediately after creation
	assert.NoError(t, record.Verify())
}

func TestArchivedRecord_Verify_DetectsTampering(t *testing.T) {
	record, err := NewArchivedRecord(testSourceRow(), "retention expired", time.Now())
	require.NoError(t, err)

	record.Snapshot[0] ^= 0xff

	err = record.Verify()
	assert.ErrorIs(t, err, shared.ErrIntegrityViolation)
}

func TestSerializeSnapshot_Deterministic(t *testing.T) {
	payload := map[string]any{"b": 2, "a": 1, "c": map[string]any{"y": true, "x": false}}

	first, err := SerializeSnapshot(payload)
	require.NoError(t, err)
	second, err := SerializeSnapshot(payload)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, ComputeContentHash(first), ComputeContentHash(second))
}
