package uow

import (
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Transaction lifecycle event types
const (
	EventTypeTransactionStarted    = "transaction.started"
	EventTypeTransactionCommitted  = "transaction.committed"
	EventTypeTransactionRolledBack = "transaction.rolled_back"
)

// TransactionStartedEvent is emitted when a session opens a transaction
type TransactionStartedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID `json:"transaction_id"`
}

// NewTransactionStartedEvent creates a transaction started event
func NewTransactionStartedEvent(txID uuid.UUID, tenantID *uuid.UUID) *TransactionStartedEvent {
	return &TransactionStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionStarted, "Transaction", txID, tenantID),
		TransactionID:   txID,
	}
}

// TransactionCommittedEvent is emitted after a transaction is finalized
type TransactionCommittedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID `json:"transaction_id"`
	AffectedRows  int64     `json:"affected_rows"`
}

// NewTransactionCommittedEvent creates a transaction committed event
func NewTransactionCommittedEvent(txID uuid.UUID, tenantID *uuid.UUID, affectedRows int64) *TransactionCommittedEvent {
	return &TransactionCommittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionCommitted, "Transaction", txID, tenantID),
		TransactionID:   txID,
		AffectedRows:    affectedRows,
	}
}

// TransactionRolledBackEvent is emitted after a transaction is rolled back
type TransactionRolledBackEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID `json:"transaction_id"`
	Reason        string    `json:"reason,omitempty"`
}

// NewTransactionRolledBackEvent creates a transaction rolled back event
func NewTransactionRolledBackEvent(txID uuid.UUID, tenantID *uuid.UUID, reason string) *TransactionRolledBackEvent {
	return &TransactionRolledBackEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionRolledBack, "Transaction", txID, tenantID),
		TransactionID:   txID,
		Reason:          reason,
	}
}
