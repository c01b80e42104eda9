package memory

import (
	"context"
	"sync"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/repository"
)

// AuditRepository is an append-only slice of entries.
type AuditRepository struct {
	mu      sync.Mutex
	entries []domain.AuditLogEntry
}

// NewAuditRepository returns an empty log.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(_ context.Context, entry *domain.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// List walks the log backwards so equal timestamps keep insertion order reversed.
func (r *AuditRepository) List(_ context.Context, guildID string, ticketID *string, limit int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.AuditLogEntry
	for i := len(r.entries) - 1; i >= 0 && len(result) < limit; i-- {
		entry := r.entries[i]
		if entry.GuildID != guildID {
			continue
		}
		if ticketID != nil && (entry.TicketID == nil || *entry.TicketID != *ticketID) {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

// All returns every entry in insertion order.
func (r *AuditRepository) All() []domain.AuditLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditLogEntry(nil), r.entries...)
}

var _ repository.AuditRepository = (*AuditRepository)(nil)
