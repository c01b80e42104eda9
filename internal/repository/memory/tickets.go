// Package memory holds mutex-guarded repository implementations used when no
// database is configured and by package tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/repository"
)

// TicketRepository keeps tickets keyed by id.
type TicketRepository struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

// NewTicketRepository returns an empty store.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{tickets: make(map[string]domain.Ticket)}
}

func (r *TicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; ok {
		return errDuplicateKey("tickets_pkey")
	}
	for _, existing := range r.tickets {
		if existing.ChannelID == ticket.ChannelID {
			return errDuplicateKey("tickets_channel_id_key")
		}
	}
	r.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *TicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r *TicketRepository) GetByChannelID(_ context.Context, channelID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.ChannelID == channelID {
			out := cloneTicket(ticket)
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *TicketRepository) Exists(_ context.Context, guildID, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	return ok && ticket.GuildID == guildID, nil
}

func (r *TicketRepository) ListOpenForUser(_ context.Context, guildID, userID string) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool {
		return t.GuildID == guildID && t.UserID == userID && t.Status.Live()
	}), nil
}

func (r *TicketRepository) ListStale(_ context.Context, guildID string, createdBefore time.Time) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool {
		return t.GuildID == guildID && t.Status.Live() && t.CreatedAt.Before(createdBefore)
	}), nil
}

func (r *TicketRepository) ListForStats(_ context.Context, guildID string, claimedBy *string) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool {
		if t.GuildID != guildID {
			return false
		}
		if claimedBy == nil {
			return true
		}
		return t.ClaimedBy != nil && *t.ClaimedBy == *claimedBy
	}), nil
}

func (r *TicketRepository) ClaimIfUnclaimed(_ context.Context, id, claimedBy string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || ticket.ClaimedBy != nil {
		return false, nil
	}
	ticket.ClaimedBy = &claimedBy
	ticket.ClaimedAt = &at
	r.tickets[id] = cloneTicket(ticket)
	return true, nil
}

func (r *TicketRepository) CloseIfNotClosed(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || ticket.Status == domain.TicketStatusClosed {
		return false, nil
	}
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &at
	r.tickets[id] = cloneTicket(ticket)
	return true, nil
}

func (r *TicketRepository) TransitionStatus(_ context.Context, id string, from, to domain.TicketStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || ticket.Status != from {
		return false, nil
	}
	ticket.Status = to
	r.tickets[id] = ticket
	return true, nil
}

func (r *TicketRepository) ReopenIfClosedAt(_ context.Context, id string, closedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || ticket.Status != domain.TicketStatusClosed || ticket.ClosedAt == nil || !ticket.ClosedAt.Equal(closedAt) {
		return false, nil
	}
	ticket.Status = domain.TicketStatusOpen
	ticket.ClosedAt = nil
	r.tickets[id] = ticket
	return true, nil
}

// Len reports how many tickets are stored.
func (r *TicketRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickets)
}

func (r *TicketRepository) filter(keep func(domain.Ticket) bool) []domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if keep(ticket) {
			result = append(result, cloneTicket(ticket))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.ClaimedBy != nil {
		v := *t.ClaimedBy
		t.ClaimedBy = &v
	}
	if t.ClaimedAt != nil {
		v := *t.ClaimedAt
		t.ClaimedAt = &v
	}
	if t.ClosedAt != nil {
		v := *t.ClosedAt
		t.ClosedAt = &v
	}
	return t
}

var _ repository.TicketRepository = (*TicketRepository)(nil)
