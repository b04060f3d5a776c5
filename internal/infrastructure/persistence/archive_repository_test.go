package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/backoffice/backend/internal/domain/retention"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockArchiveRepository(t *testing.T) (*GormArchiveRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormArchiveRepository(gormDB), mock, mockDB
}

func testArchivedRecord(t *testing.T) *retention.ArchivedRecord {
	t.Helper()
	row := retention.SourceRow{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		EntityType: "vertical_entity",
		Payload:    map[string]any{"name": "old record"},
		DeletedAt:  time.Now().AddDate(-8, 0, 0),
		DeletedBy:  uuid.New(),
		State:      retention.StateSoftDeleted,
	}
	record, err := retention.NewArchivedRecord(row, "retention period expired", time.Now())
	require.NoError(t, err)
	return record
}

func TestGormArchiveRepository_Save(t *testing.T) {
	t.Run("appends a new record", func(t *testing.T) {
		repo, mock, mockDB := newMockArchiveRepository(t)
		defer mockDB.Close()

		record := testArchivedRecord(t)
		mock.ExpectExec(`INSERT INTO "archived_records"`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		assert.NoError(t, repo.Save(context.Background(), record))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("re-archiving the same original is reported as already exists", func(t *testing.T) {
		repo, mock, mockDB := newMockArchiveRepository(t)
		defer mockDB.Close()

		record := testArchivedRecord(t)
		mock.ExpectExec(`INSERT INTO "archived_records"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Save(context.Background(), record)

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormArchiveRepository_Replace(t *testing.T) {
	t.Run("removes the old row and writes the new one atomically", func(t *testing.T) {
		repo, mock, mockDB := newMockArchiveRepository(t)
		defer mockDB.Close()

		record := testArchivedRecord(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "archived_records" WHERE entity_type = \$1 AND original_id = \$2`).
			WithArgs(record.EntityType, record.OriginalID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "archived_records"`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Replace(context.Background(), record))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormArchiveRepository_FindByOriginalID(t *testing.T) {
	t.Run("returns ErrNotFound when the original was never archived", func(t *testing.T) {
		repo, mock, mockDB := newMockArchiveRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "archived_records"`).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByOriginalID(context.Background(), "vertical_entity", uuid.New())

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
