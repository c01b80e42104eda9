package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/ticket-bot/internal/domain"
)

// AuditRepository appends and lists audit entries. There is no update or
// delete.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
	// List returns entries newest first, optionally restricted to one ticket.
	List(ctx context.Context, guildID string, ticketID *string, limit int) ([]domain.AuditLogEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_logs (id, guild_id, ticket_id, action, performed_by, details, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.GuildID,
		entry.TicketID,
		entry.Action,
		entry.PerformedBy,
		details,
		entry.CreatedAt,
	)
	return err
}

func (r *auditRepository) List(ctx context.Context, guildID string, ticketID *string, limit int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	args := []any{guildID}
	clause := "guild_id=$1"
	if ticketID != nil {
		args = append(args, *ticketID)
		clause += " AND ticket_id=$2"
	}
	query := fmt.Sprintf(`
        SELECT id, guild_id, ticket_id, action, performed_by, details, created_at
        FROM audit_logs WHERE %s ORDER BY created_at DESC, seq DESC LIMIT %d`, clause, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.GuildID,
			&entry.TicketID,
			&entry.Action,
			&entry.PerformedBy,
			&entry.Details,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
