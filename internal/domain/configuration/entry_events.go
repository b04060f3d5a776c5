package configuration

import (
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types for configuration entries
const (
	EntryUpsertedEventType = "configuration.entry.upserted"
	EntryDeletedEventType  = "configuration.entry.deleted"
)

// EntryUpsertedEvent is raised when an entry is created or updated
type EntryUpsertedEvent struct {
	shared.BaseDomainEvent
	Kind string `json:"kind"`
	Code string `json:"code"`
}

// NewEntryUpsertedEvent creates a new EntryUpsertedEvent
func NewEntryUpsertedEvent(e *Entry) *EntryUpsertedEvent {
	return &EntryUpsertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EntryUpsertedEventType, "ConfigurationEntry", e.ID, e.TenantID),
		Kind:            e.Kind,
		Code:            e.Code,
	}
}

// EntryDeletedEvent is raised when an entry is soft-deleted
type EntryDeletedEvent struct {
	shared.BaseDomainEvent
	Kind   string    `json:"kind"`
	Code   string    `json:"code"`
	Actor  uuid.UUID `json:"actor"`
	Reason string    `json:"reason"`
}

// NewEntryDeletedEvent creates a new EntryDeletedEvent
func NewEntryDeletedEvent(e *Entry, actor uuid.UUID, reason string) *EntryDeletedEvent {
	return &EntryDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EntryDeletedEventType, "ConfigurationEntry", e.ID, e.TenantID),
		Kind:            e.Kind,
		Code:            e.Code,
		Actor:           actor,
		Reason:          reason,
	}
}
