package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/backoffice/backend/internal/domain/configuration"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/vertical"
	"github.com/backoffice/backend/internal/infrastructure/uow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewUnitOfWork_ResolvesAllRepositories(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	tenantID := uuid.New()
	session := NewUnitOfWork(db, &tenantID, nil, zap.NewNop())
	defer func() {
		_ = session.Close(context.Background())
	}()

	repo, err := session.Repository(uow.TokenConfigurationEntries)
	require.NoError(t, err)
	assert.IsType(t, &sessionEntryRepository{}, repo)

	repo, err = session.Repository(uow.TokenVerticalActivations)
	require.NoError(t, err)
	assert.IsType(t, &sessionActivationRepository{}, repo)

	repo, err = session.Repository(uow.TokenVerticalEntities)
	require.NoError(t, err)
	assert.IsType(t, &sessionEntityRepository{}, repo)

	repo, err = session.Repository(uow.TokenArchivedRecords)
	require.NoError(t, err)
	assert.IsType(t, &sessionArchiveRepository{}, repo)
}

func newMockUnitOfWork(t *testing.T) (*uow.Session, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	tenantID := uuid.New()
	return NewUnitOfWork(gormDB, &tenantID, nil, zap.NewNop()), mock, mockDB
}

func TestSessionRepositories_WriteGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("saving outside the session transaction fails fast", func(t *testing.T) {
		session, mock, mockDB := newMockUnitOfWork(t)
		defer mockDB.Close()
		defer func() { _ = session.Close(ctx) }()

		repo, err := session.Repository(uow.TokenConfigurationEntries)
		require.NoError(t, err)
		entries := repo.(configuration.EntryRepository)

		entry, err := configuration.NewEntry(session.TenantID(), "waste_category", "HAZ-01", "Hazardous waste")
		require.NoError(t, err)

		saveErr := entries.Save(ctx, entry)

		assert.ErrorIs(t, saveErr, shared.ErrTransactionMisuse)
		// No statement reached the connection
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("marking archived outside the session transaction fails fast", func(t *testing.T) {
		session, mock, mockDB := newMockUnitOfWork(t)
		defer mockDB.Close()
		defer func() { _ = session.Close(ctx) }()

		repo, err := session.Repository(uow.TokenVerticalEntities)
		require.NoError(t, err)
		entities := repo.(vertical.EntityRepository)

		err = entities.MarkArchived(ctx, uuid.New(), time.Now())

		assert.ErrorIs(t, err, shared.ErrTransactionMisuse)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("writes join the session transaction", func(t *testing.T) {
		session, mock, mockDB := newMockUnitOfWork(t)
		defer mockDB.Close()
		defer func() { _ = session.Close(ctx) }()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "configuration_entries"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo, err := session.Repository(uow.TokenConfigurationEntries)
		require.NoError(t, err)
		entries := repo.(configuration.EntryRepository)

		entry, err := configuration.NewEntry(session.TenantID(), "waste_category", "HAZ-01", "Hazardous waste")
		require.NoError(t, err)

		require.NoError(t, session.BeginTransaction(ctx))
		require.NoError(t, entries.Save(ctx, entry))
		require.NoError(t, session.CommitTransaction(ctx))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reads run without a transaction", func(t *testing.T) {
		session, mock, mockDB := newMockUnitOfWork(t)
		defer mockDB.Close()
		defer func() { _ = session.Close(ctx) }()

		tenantID := session.TenantID()
		now := time.Now()
		rows := sqlmock.NewRows(entryColumns()).AddRow(
			uuid.New(), now, now, 1, *tenantID,
			"waste_category", "HAZ-01", "Hazardous waste", "",
			false, 0, true,
			nil, nil, "",
		)
		mock.ExpectQuery(`SELECT \* FROM "configuration_entries"`).
			WillReturnRows(rows)

		repo, err := session.Repository(uow.TokenConfigurationEntries)
		require.NoError(t, err)
		entries := repo.(configuration.EntryRepository)

		entry, err := entries.FindByCode(ctx, tenantID, "waste_category", "HAZ-01")

		require.NoError(t, err)
		assert.Equal(t, "HAZ-01", entry.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
