package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/events"
	"github.com/supportdesk/ticket-bot/internal/repository"
)

// DefaultAuditLimit caps List when the caller gives no limit.
const DefaultAuditLimit = 50

// AuditService appends audit entries and publishes them as events.
type AuditService struct {
	repo       repository.AuditRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AuditDependencies bundles collaborators for the audit service.
type AuditDependencies struct {
	AuditRepo  repository.AuditRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewAuditService constructs the service.
func NewAuditService(deps AuditDependencies) *AuditService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &AuditService{repo: deps.AuditRepo, dispatcher: deps.Dispatcher, logger: logger, now: now}
}

// Record stores one entry. Subscribers are notified only after the write succeeds.
func (s *AuditService) Record(ctx context.Context, guildID string, action domain.AuditAction, actorID string, ticketID *string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	entry := domain.AuditLogEntry{
		ID:          uuid.NewString(),
		GuildID:     guildID,
		TicketID:    ticketID,
		Action:      action,
		PerformedBy: actorID,
		Details:     details,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		return err
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.Publish(ctx, events.FromAudit(entry)); err != nil {
			s.logger.Warn("audit subscriber failed", zap.String("action", string(action)), zap.Error(err))
		}
	}
	return nil
}

// List returns entries newest first.
func (s *AuditService) List(ctx context.Context, guildID string, ticketID *string, limit int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	return s.repo.List(ctx, guildID, ticketID, limit)
}
