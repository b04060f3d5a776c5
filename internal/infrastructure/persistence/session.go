package persistence

import (
	"context"
	"time"

	"github.com/backoffice/backend/internal/domain/configuration"
	"github.com/backoffice/backend/internal/domain/retention"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/vertical"
	"github.com/backoffice/backend/internal/infrastructure/uow"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewUnitOfWork creates a unit-of-work session with every gorm repository
// registered under its token. Accessors resolved from the session read on the
// session's current connection; writes require its open transaction and fail
// fast with ErrTransactionMisuse instead of autocommitting past the session.
func NewUnitOfWork(db *gorm.DB, tenantID *uuid.UUID, publisher shared.EventPublisher, logger *zap.Logger) *uow.Session {
	return uow.NewSession(db, tenantID, publisher,
		uow.WithLogger(logger),
		uow.WithRepository(uow.TokenConfigurationEntries, func(s *uow.Session) any {
			return &sessionEntryRepository{session: s}
		}),
		uow.WithRepository(uow.TokenVerticalActivations, func(s *uow.Session) any {
			return &sessionActivationRepository{session: s}
		}),
		uow.WithRepository(uow.TokenVerticalEntities, func(s *uow.Session) any {
			return &sessionEntityRepository{session: s}
		}),
		uow.WithRepository(uow.TokenArchivedRecords, func(s *uow.Session) any {
			return &sessionArchiveRepository{session: s}
		}),
	)
}

// sessionEntryRepository serves configuration entries through a session
type sessionEntryRepository struct {
	session *uow.Session
}

func (r *sessionEntryRepository) reads() *GormConfigurationEntryRepository {
	return NewGormConfigurationEntryRepository(r.session.ReadConnection())
}

func (r *sessionEntryRepository) writes() (*GormConfigurationEntryRepository, error) {
	tx, err := r.session.WriteConnection()
	if err != nil {
		return nil, err
	}
	return NewGormConfigurationEntryRepository(tx), nil
}

func (r *sessionEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*configuration.Entry, error) {
	return r.reads().FindByID(ctx, id)
}

func (r *sessionEntryRepository) FindByCode(ctx context.Context, tenantID *uuid.UUID, kind, code string) (*configuration.Entry, error) {
	return r.reads().FindByCode(ctx, tenantID, kind, code)
}

func (r *sessionEntryRepository) ListForScope(ctx context.Context, tenantID *uuid.UUID, kind string) ([]configuration.Entry, error) {
	return r.reads().ListForScope(ctx, tenantID, kind)
}

func (r *sessionEntryRepository) ExistsInScope(ctx context.Context, tenantID *uuid.UUID, kind, code string, excludeID uuid.UUID) (bool, error) {
	return r.reads().ExistsInScope(ctx, tenantID, kind, code, excludeID)
}

func (r *sessionEntryRepository) Save(ctx context.Context, entry *configuration.Entry) error {
	repo, err := r.writes()
	if err != nil {
		return err
	}
	return repo.Save(ctx, entry)
}

var _ configuration.EntryRepository = (*sessionEntryRepository)(nil)

// sessionActivationRepository serves vertical activations through a session
type sessionActivationRepository struct {
	session *uow.Session
}

func (r *sessionActivationRepository) reads() *GormVerticalActivationRepository {
	return NewGormVerticalActivationRepository(r.session.ReadConnection())
}

func (r *sessionActivationRepository) FindByTenantAndName(ctx context.Context, tenantID uuid.UUID, verticalName string) (*vertical.Activation, error) {
	return r.reads().FindByTenantAndName(ctx, tenantID, verticalName)
}

func (r *sessionActivationRepository) ListActiveForTenant(ctx context.Context, tenantID uuid.UUID) ([]vertical.Activation, error) {
	return r.reads().ListActiveForTenant(ctx, tenantID)
}

func (r *sessionActivationRepository) Save(ctx context.Context, activation *vertical.Activation) error {
	tx, err := r.session.WriteConnection()
	if err != nil {
		return err
	}
	return NewGormVerticalActivationRepository(tx).Save(ctx, activation)
}

var _ vertical.ActivationRepository = (*sessionActivationRepository)(nil)

// sessionEntityRepository serves vertical entities through a session
type sessionEntityRepository struct {
	session *uow.Session
}

func (r *sessionEntityRepository) reads() *GormVerticalEntityRepository {
	return NewGormVerticalEntityRepository(r.session.ReadConnection())
}

func (r *sessionEntityRepository) writes() (*GormVerticalEntityRepository, error) {
	tx, err := r.session.WriteConnection()
	if err != nil {
		return nil, err
	}
	return NewGormVerticalEntityRepository(tx), nil
}

func (r *sessionEntityRepository) FindByID(ctx context.Context, id uuid.UUID) (*vertical.Entity, error) {
	return r.reads().FindByID(ctx, id)
}

func (r *sessionEntityRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, entityType string) ([]vertical.Entity, error) {
	return r.reads().ListForTenant(ctx, tenantID, entityType)
}

func (r *sessionEntityRepository) FindSoftDeletedBefore(ctx context.Context, entityType string, cutoff time.Time, limit int) ([]vertical.Entity, error) {
	return r.reads().FindSoftDeletedBefore(ctx, entityType, cutoff, limit)
}

func (r *sessionEntityRepository) Save(ctx context.Context, entity *vertical.Entity) error {
	repo, err := r.writes()
	if err != nil {
		return err
	}
	return repo.Save(ctx, entity)
}

func (r *sessionEntityRepository) MarkArchived(ctx context.Context, id uuid.UUID, at time.Time) error {
	repo, err := r.writes()
	if err != nil {
		return err
	}
	return repo.MarkArchived(ctx, id, at)
}

var _ vertical.EntityRepository = (*sessionEntityRepository)(nil)

// sessionArchiveRepository serves archived records through a session
type sessionArchiveRepository struct {
	session *uow.Session
}

func (r *sessionArchiveRepository) reads() *GormArchiveRepository {
	return NewGormArchiveRepository(r.session.ReadConnection())
}

func (r *sessionArchiveRepository) writes() (*GormArchiveRepository, error) {
	tx, err := r.session.WriteConnection()
	if err != nil {
		return nil, err
	}
	return NewGormArchiveRepository(tx), nil
}

func (r *sessionArchiveRepository) FindByID(ctx context.Context, id uuid.UUID) (*retention.ArchivedRecord, error) {
	return r.reads().FindByID(ctx, id)
}

func (r *sessionArchiveRepository) FindByOriginalID(ctx context.Context, entityType string, originalID uuid.UUID) (*retention.ArchivedRecord, error) {
	return r.reads().FindByOriginalID(ctx, entityType, originalID)
}

func (r *sessionArchiveRepository) Sample(ctx context.Context, entityType string, n int) ([]retention.ArchivedRecord, error) {
	return r.reads().Sample(ctx, entityType, n)
}

func (r *sessionArchiveRepository) Save(ctx context.Context, record *retention.ArchivedRecord) error {
	repo, err := r.writes()
	if err != nil {
		return err
	}
	return repo.Save(ctx, record)
}

func (r *sessionArchiveRepository) Replace(ctx context.Context, record *retention.ArchivedRecord) error {
	repo, err := r.writes()
	if err != nil {
		return err
	}
	return repo.Replace(ctx, record)
}

var _ retention.ArchiveRepository = (*sessionArchiveRepository)(nil)
