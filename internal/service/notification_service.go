package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/events"
)

// NotificationService reacts to domain events. Actual delivery (email,
// chat) lives outside the core; this service records what would be sent
// so a delivery worker can be attached later without touching the
// publishers.
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{logger: logger}
}

// Register subscribes the service to the events it cares about.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, s.handle)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.handle)
	dispatcher.Subscribe(events.EventTicketAssigned, s.handle)
	dispatcher.Subscribe(events.EventCommentAdded, s.handle)
	dispatcher.Subscribe(events.EventPendingReminder, s.handle)
	dispatcher.Subscribe(events.EventAttachmentsPurged, s.handle)
}

func (s *NotificationService) handle(_ context.Context, event events.Event) error {
	s.logger.Info("notification",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_kind", string(event.Actor.Kind)),
		zap.Any("payload", event.Payload))
	return nil
}
