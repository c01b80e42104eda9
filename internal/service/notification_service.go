package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/supportdesk/ticket-bot/internal/events"
	"github.com/supportdesk/ticket-bot/internal/observability"
)

// NotificationService turns lifecycle events into log lines and counters.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handleEvent)
	}
}

func (n *NotificationService) handleEvent(_ context.Context, event events.Event) error {
	n.metrics.RecordAction(string(event.Type))

	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("guild_id", event.GuildID),
		zap.String("actor_id", event.ActorID),
	}
	if event.TicketID != nil {
		fields = append(fields, zap.String("ticket_id", *event.TicketID))
	}
	if len(event.Payload) > 0 {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	n.logger.Info(string(event.Type), fields...)
	return nil
}
