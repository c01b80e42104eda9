package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/ticket-bot/internal/domain"
)

// TicketRepository encapsulates ticket persistence. It performs no business
// checks. Every mutation after Create is a single conditional update that
// touches only the columns its transition owns, so concurrent callers cannot
// both win or overwrite each other.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByChannelID(ctx context.Context, channelID string) (*domain.Ticket, error)
	Exists(ctx context.Context, guildID, id string) (bool, error)
	ListOpenForUser(ctx context.Context, guildID, userID string) ([]domain.Ticket, error)
	ListStale(ctx context.Context, guildID string, createdBefore time.Time) ([]domain.Ticket, error)
	ListForStats(ctx context.Context, guildID string, claimedBy *string) ([]domain.Ticket, error)
	// ClaimIfUnclaimed sets the claimant only when none is set and reports
	// whether the update happened.
	ClaimIfUnclaimed(ctx context.Context, id, claimedBy string, at time.Time) (bool, error)
	// CloseIfNotClosed closes the ticket only when it is still live and
	// reports whether the update happened.
	CloseIfNotClosed(ctx context.Context, id string, at time.Time) (bool, error)
	// TransitionStatus moves the ticket from one live status to another and
	// reports whether it was still in the from status.
	TransitionStatus(ctx context.Context, id string, from, to domain.TicketStatus) (bool, error)
	// ReopenIfClosedAt reopens the ticket only when it is still closed with
	// the given close time and reports whether the update happened.
	ReopenIfClosedAt(ctx context.Context, id string, closedAt time.Time) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `ticket_id, guild_id, channel_id, user_id, type, status,
               claimed_by, claimed_at, created_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_id, guild_id, channel_id, user_id, type, status, claimed_by, claimed_at, created_at, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.GuildID,
		ticket.ChannelID,
		ticket.UserID,
		ticket.Type,
		ticket.Status,
		ticket.ClaimedBy,
		ticket.ClaimedAt,
		ticket.CreatedAt,
		ticket.ClosedAt,
	)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByChannelID(ctx context.Context, channelID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE channel_id=$1`
	return r.fetchSingle(ctx, query, channelID)
}

func (r *ticketRepository) Exists(ctx context.Context, guildID, id string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM tickets WHERE guild_id=$1 AND ticket_id=$2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, guildID, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ticketRepository) ListOpenForUser(ctx context.Context, guildID, userID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE guild_id=$1 AND user_id=$2 AND status IN ('open','locked')
        ORDER BY created_at ASC`
	return r.fetchMany(ctx, query, guildID, userID)
}

func (r *ticketRepository) ListStale(ctx context.Context, guildID string, createdBefore time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE guild_id=$1 AND status IN ('open','locked') AND created_at < $2
        ORDER BY created_at ASC`
	return r.fetchMany(ctx, query, guildID, createdBefore)
}

func (r *ticketRepository) ListForStats(ctx context.Context, guildID string, claimedBy *string) ([]domain.Ticket, error) {
	if claimedBy != nil {
		query := `SELECT ` + ticketColumns + ` FROM tickets WHERE guild_id=$1 AND claimed_by=$2`
		return r.fetchMany(ctx, query, guildID, *claimedBy)
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE guild_id=$1`
	return r.fetchMany(ctx, query, guildID)
}

func (r *ticketRepository) ClaimIfUnclaimed(ctx context.Context, id, claimedBy string, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET claimed_by=$1, claimed_at=$2
        WHERE ticket_id=$3 AND claimed_by IS NULL`
	cmd, err := r.pool.Exec(ctx, query, claimedBy, at, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) CloseIfNotClosed(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET status='closed', closed_at=$1
        WHERE ticket_id=$2 AND status <> 'closed'`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) TransitionStatus(ctx context.Context, id string, from, to domain.TicketStatus) (bool, error) {
	const query = `
        UPDATE tickets SET status=$1
        WHERE ticket_id=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) ReopenIfClosedAt(ctx context.Context, id string, closedAt time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET status='open', closed_at=NULL
        WHERE ticket_id=$1 AND status='closed' AND closed_at=$2`
	cmd, err := r.pool.Exec(ctx, query, id, closedAt)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.GuildID,
		&ticket.ChannelID,
		&ticket.UserID,
		&ticket.Type,
		&ticket.Status,
		&ticket.ClaimedBy,
		&ticket.ClaimedAt,
		&ticket.CreatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.GuildID,
			&ticket.ChannelID,
			&ticket.UserID,
			&ticket.Type,
			&ticket.Status,
			&ticket.ClaimedBy,
			&ticket.ClaimedAt,
			&ticket.CreatedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
