package archival

import (
	"context"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EventTypeIntegrityBreach is emitted when archive sampling falls below the
// configured integrity threshold
const EventTypeIntegrityBreach = "archive.integrity_breach"

// IntegrityBreachEvent carries the sampling result that triggered the alert
type IntegrityBreachEvent struct {
	shared.BaseDomainEvent
	Report IntegrityReport `json:"report"`
}

// NewIntegrityBreachEvent creates an integrity breach event
func NewIntegrityBreachEvent(report IntegrityReport) *IntegrityBreachEvent {
	return &IntegrityBreachEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIntegrityBreach, "Archive", uuid.New(), nil),
		Report:          report,
	}
}

// EventNotifier publishes integrity breaches on the event bus, where the
// administrator alerting handlers are subscribed
type EventNotifier struct {
	publisher shared.EventPublisher
}

// NewEventNotifier creates a notifier over an event publisher
func NewEventNotifier(publisher shared.EventPublisher) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

// NotifyIntegrityBreach publishes the breach as a domain event
func (n *EventNotifier) NotifyIntegrityBreach(ctx context.Context, report IntegrityReport) error {
	return n.publisher.Publish(ctx, NewIntegrityBreachEvent(report))
}

var _ Notifier = (*EventNotifier)(nil)
