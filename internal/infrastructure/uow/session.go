// Package uow implements the unit-of-work session coordinating multi-entity
// writes. A session tracks changed aggregates and flushes them inside one
// database transaction; finalizing the transaction is a separate, explicit
// step so callers can flush intermediate state before deciding to commit.
package uow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RepositoryToken identifies one entity family served by the session
type RepositoryToken string

// Tokens for the entity families a session can serve
const (
	TokenConfigurationEntries RepositoryToken = "configuration_entries"
	TokenVerticalActivations  RepositoryToken = "vertical_activations"
	TokenVerticalEntities     RepositoryToken = "vertical_entities"
	TokenArchivedRecords      RepositoryToken = "archived_records"
)

// RepositoryFactory builds the repository accessor for a token. Factories
// receive the session so accessors can route reads and writes through it.
type RepositoryFactory func(session *Session) any

// SaveFunc persists one tracked aggregate on the given connection. During
// Commit it is invoked with the session's active transaction.
type SaveFunc func(ctx context.Context, db *gorm.DB) error

type changeKind int

const (
	changeAdded changeKind = iota
	changeModified
	changeDeleted
)

type pendingChange struct {
	kind changeKind
	root shared.AggregateRoot
	save SaveFunc
}

// Statistics is a point-in-time snapshot of a session's activity
type Statistics struct {
	Added      int           `json:"added"`
	Modified   int           `json:"modified"`
	Deleted    int           `json:"deleted"`
	Queries    int64         `json:"queries"`
	Started    int           `json:"started"`
	Committed  int           `json:"committed"`
	RolledBack int           `json:"rolled_back"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Session is a tenant-bound unit of work over one database connection.
// It is safe for concurrent repository resolution; transaction control
// methods are expected to be driven by a single goroutine.
type Session struct {
	db        *gorm.DB
	tenantID  *uuid.UUID
	publisher shared.EventPublisher
	logger    *zap.Logger
	factories map[RepositoryToken]RepositoryFactory

	repos sync.Map // RepositoryToken -> constructed accessor

	mu            sync.Mutex
	tx            *gorm.DB
	txID          uuid.UUID
	closed        bool
	pending       []pendingChange
	flushedEvents []shared.DomainEvent
	affectedRows  int64
	stats         Statistics
	queries       int64
	openedAt      time.Time
}

// SessionOption is a functional option for configuring a session
type SessionOption func(*Session)

// WithRepository registers the factory for a repository token
func WithRepository(token RepositoryToken, factory RepositoryFactory) SessionOption {
	return func(s *Session) {
		s.factories[token] = factory
	}
}

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a unit-of-work session bound to a tenant. A nil tenantID
// binds the session to the global scope, used by system-level maintenance.
func NewSession(db *gorm.DB, tenantID *uuid.UUID, publisher shared.EventPublisher, opts ...SessionOption) *Session {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	s := &Session{
		db:        db,
		tenantID:  tenantID,
		publisher: publisher,
		logger:    zap.NewNop(),
		factories: make(map[RepositoryToken]RepositoryFactory),
		openedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// nopPublisher swallows events for sessions without an event bus
type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }

// TenantID returns the tenant the session is bound to, nil for global scope
func (s *Session) TenantID() *uuid.UUID {
	return s.tenantID
}

// Repository returns the accessor for a token, constructing it on first use.
// Under concurrent resolution of the same token the first constructed
// instance wins and is returned to every caller.
func (s *Session) Repository(token RepositoryToken) (any, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: session is closed", shared.ErrTransactionMisuse)
	}
	s.queries++
	s.mu.Unlock()

	if cached, ok := s.repos.Load(token); ok {
		return cached, nil
	}

	factory, ok := s.factories[token]
	if !ok {
		return nil, fmt.Errorf("%w: no repository registered for token %q", shared.ErrInvalidInput, token)
	}

	actual, _ := s.repos.LoadOrStore(token, factory(s))
	return actual, nil
}

// ReadConnection returns the connection repository reads run on. Inside an
// active transaction reads observe its uncommitted state.
func (s *Session) ReadConnection() *gorm.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// WriteConnection returns the active transaction for repository writes.
// Without one it fails fast with ErrTransactionMisuse instead of letting the
// write autocommit past the session.
func (s *Session) WriteConnection() (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: session is closed", shared.ErrTransactionMisuse)
	}
	if s.tx == nil {
		return nil, fmt.Errorf("%w: repository writes require an active transaction", shared.ErrTransactionMisuse)
	}
	return s.tx, nil
}

// RegisterNew tracks a newly created aggregate for the next flush
func (s *Session) RegisterNew(root shared.AggregateRoot, save SaveFunc) error {
	return s.register(changeAdded, root, save)
}

// RegisterDirty tracks a modified aggregate for the next flush
func (s *Session) RegisterDirty(root shared.AggregateRoot, save SaveFunc) error {
	return s.register(changeModified, root, save)
}

// RegisterDeleted tracks a logically deleted aggregate for the next flush
func (s *Session) RegisterDeleted(root shared.AggregateRoot, save SaveFunc) error {
	return s.register(changeDeleted, root, save)
}

func (s *Session) register(kind changeKind, root shared.AggregateRoot, save SaveFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: cannot track changes on a closed session", shared.ErrTransactionMisuse)
	}
	s.pending = append(s.pending, pendingChange{kind: kind, root: root, save: save})
	return nil
}

// BeginTransaction opens a database transaction for the session. Calling it
// while a transaction is already active is a no-op.
func (s *Session) BeginTransaction(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: session is closed", shared.ErrTransactionMisuse)
	}
	if s.tx != nil {
		return nil
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	s.tx = tx
	s.txID = uuid.New()
	s.stats.Started++
	s.logger.Debug("transaction started", zap.String("tx_id", s.txID.String()))

	if err := s.publisher.Publish(ctx, NewTransactionStartedEvent(s.txID, s.tenantID)); err != nil {
		s.logger.Warn("failed to publish transaction started event", zap.Error(err))
	}
	return nil
}

// Commit flushes all tracked changes inside the active transaction and
// returns the number of aggregates written. The transaction stays open;
// CommitTransaction finalizes it. Without an active transaction the call
// fails fast with ErrTransactionMisuse.
func (s *Session) Commit(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Session) flushLocked(ctx context.Context) (int64, error) {
	if s.closed {
		return 0, fmt.Errorf("%w: session is closed", shared.ErrTransactionMisuse)
	}
	if s.tx == nil {
		return 0, fmt.Errorf("%w: Commit requires an active transaction", shared.ErrTransactionMisuse)
	}

	var flushed int64
	for _, change := range s.pending {
		if err := change.save(ctx, s.tx); err != nil {
			return flushed, fmt.Errorf("failed to flush tracked change: %w", err)
		}
		flushed++
		switch change.kind {
		case changeAdded:
			s.stats.Added++
		case changeModified:
			s.stats.Modified++
		case changeDeleted:
			s.stats.Deleted++
		}
		if change.root != nil {
			s.flushedEvents = append(s.flushedEvents, change.root.GetDomainEvents()...)
			change.root.ClearDomainEvents()
		}
	}
	s.pending = nil
	s.affectedRows += flushed
	return flushed, nil
}

// CommitTransaction flushes any remaining tracked changes, commits the
// transaction, emits the committed lifecycle event along with the domain
// events of the flushed aggregates, and disposes the transaction handle.
func (s *Session) CommitTransaction(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: session is closed", shared.ErrTransactionMisuse)
	}
	if s.tx == nil {
		return fmt.Errorf("%w: CommitTransaction requires an active transaction", shared.ErrTransactionMisuse)
	}

	if len(s.pending) > 0 {
		if _, err := s.flushLocked(ctx); err != nil {
			return err
		}
	}

	if err := s.tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	txID := s.txID
	affected := s.affectedRows
	events := append([]shared.DomainEvent{NewTransactionCommittedEvent(txID, s.tenantID, affected)}, s.flushedEvents...)
	s.disposeLocked()
	s.stats.Committed++
	s.logger.Debug("transaction committed",
		zap.String("tx_id", txID.String()),
		zap.Int64("affected_rows", affected))

	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish transaction events", zap.Error(err))
	}
	return nil
}

// RollbackTransaction rolls back the active transaction, discards tracked
// changes, emits the rolled-back lifecycle event and disposes the handle.
func (s *Session) RollbackTransaction(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbackLocked(ctx, "explicit rollback")
}

func (s *Session) rollbackLocked(ctx context.Context, reason string) error {
	if s.tx == nil {
		return fmt.Errorf("%w: RollbackTransaction requires an active transaction", shared.ErrTransactionMisuse)
	}

	if err := s.tx.Rollback().Error; err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}

	txID := s.txID
	s.pending = nil
	s.disposeLocked()
	s.stats.RolledBack++
	s.logger.Debug("transaction rolled back",
		zap.String("tx_id", txID.String()),
		zap.String("reason", reason))

	if err := s.publisher.Publish(ctx, NewTransactionRolledBackEvent(txID, s.tenantID, reason)); err != nil {
		s.logger.Warn("failed to publish transaction rolled back event", zap.Error(err))
	}
	return nil
}

// disposeLocked clears the transaction handle and everything scoped to it
func (s *Session) disposeLocked() {
	s.tx = nil
	s.txID = uuid.Nil
	s.flushedEvents = nil
	s.affectedRows = 0
}

// ExecuteInTransaction runs fn inside a transaction. When the session already
// has one active, fn joins it and the outer owner remains responsible for
// finalizing. Otherwise the call owns the full lifecycle: begin, run, flush,
// commit, and on any error a full rollback before returning the original
// error unchanged.
func (s *Session) ExecuteInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	joined := s.tx != nil
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return fmt.Errorf("%w: session is closed", shared.ErrTransactionMisuse)
	}
	if joined {
		return fn(ctx)
	}

	if err := s.BeginTransaction(ctx); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		if rbErr := s.RollbackTransaction(ctx); rbErr != nil {
			s.logger.Error("rollback failed after transaction error",
				zap.Error(rbErr),
				zap.NamedError("cause", err))
		}
		return err
	}

	if err := s.CommitTransaction(ctx); err != nil {
		s.mu.Lock()
		if s.tx != nil {
			_ = s.rollbackLocked(ctx, "commit failed")
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Close disposes the session. An unfinalized transaction is rolled back, the
// repository cache is cleared, and all further use of the session fails with
// ErrTransactionMisuse. Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	var err error
	if s.tx != nil {
		err = s.rollbackLocked(ctx, "session closed with unfinalized transaction")
	}

	s.repos.Range(func(key, _ any) bool {
		s.repos.Delete(key)
		return true
	})
	s.pending = nil
	s.closed = true
	return err
}

// Statistics returns a snapshot of the session's activity
func (s *Session) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.stats
	snapshot.Queries = s.queries
	snapshot.Elapsed = time.Since(s.openedAt)
	return snapshot
}
