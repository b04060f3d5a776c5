package retention

import (
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// State is the tagged lifecycle state of an archivable record. Modeling the
// two-stage delete as an explicit state makes illegal transitions, such as
// archiving an active row, unrepresentable.
type State string

const (
	// StateActive is a live record
	StateActive State = "ACTIVE"
	// StateSoftDeleted is a logically deleted record awaiting retention expiry
	StateSoftDeleted State = "SOFT_DELETED"
	// StateArchived is the terminal state: the record has been moved to
	// immutable cold storage
	StateArchived State = "ARCHIVED"
)

// Lifecycle tracks the deletion/archival state of one record
type Lifecycle struct {
	State        State
	DeletedAt    *time.Time
	DeletedBy    *uuid.UUID
	DeleteReason string
	ArchivedAt   *time.Time
}

// NewLifecycle returns an active lifecycle
func NewLifecycle() Lifecycle {
	return Lifecycle{State: StateActive}
}

// SoftDelete transitions Active → SoftDeleted
func (l *Lifecycle) SoftDelete(actor uuid.UUID, reason string, at time.Time) error {
	if l.State != StateActive {
		return fmt.Errorf("%w: cannot soft-delete a %s record", shared.ErrInvalidState, l.State)
	}
	l.State = StateSoftDeleted
	l.DeletedAt = &at
	l.DeletedBy = &actor
	l.DeleteReason = reason
	return nil
}

// Restore transitions SoftDeleted → Active. Archived records cannot be
// restored; the archive is terminal.
func (l *Lifecycle) Restore() error {
	if l.State != StateSoftDeleted {
		return fmt.Errorf("%w: cannot restore a %s record", shared.ErrInvalidState, l.State)
	}
	l.State = StateActive
	l.DeletedAt = nil
	l.DeletedBy = nil
	l.DeleteReason = ""
	return nil
}

// MarkArchived transitions SoftDeleted → Archived
func (l *Lifecycle) MarkArchived(at time.Time) error {
	if l.State != StateSoftDeleted {
		return fmt.Errorf("%w: cannot archive a %s record", shared.ErrInvalidState, l.State)
	}
	l.State = StateArchived
	l.ArchivedAt = &at
	return nil
}
