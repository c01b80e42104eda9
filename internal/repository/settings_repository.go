package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/ticket-bot/internal/domain"
)

// SettingsRepository stores one settings row per guild.
type SettingsRepository interface {
	// GetOrCreate returns the stored settings, inserting defaults first when
	// the guild has none. The insert is conflict-tolerant so concurrent
	// first accesses converge on a single row.
	GetOrCreate(ctx context.Context, guildID string, now time.Time) (*domain.GuildSettings, error)
	Save(ctx context.Context, settings *domain.GuildSettings) error
	ListAutoCloseEnabled(ctx context.Context) ([]domain.GuildSettings, error)
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository instantiates repository.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

const settingsColumns = `guild_id, ticket_category_id, support_role_ids, claim_role_id, transcript_channel_id,
               ticket_prefix, allow_multiple_tickets, enable_claim_system, enable_transcripts,
               auto_close_after_hours, working_hours_start, working_hours_end, created_at, updated_at`

func (r *settingsRepository) GetOrCreate(ctx context.Context, guildID string, now time.Time) (*domain.GuildSettings, error) {
	defaults := domain.NewGuildSettings(guildID, now)
	const insert = `
        INSERT INTO guild_settings (guild_id, support_role_ids, ticket_prefix, allow_multiple_tickets,
            enable_claim_system, enable_transcripts, working_hours_start, working_hours_end, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (guild_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, insert,
		defaults.GuildID,
		defaults.SupportRoleIDs,
		defaults.TicketPrefix,
		defaults.AllowMultipleTickets,
		defaults.EnableClaimSystem,
		defaults.EnableTranscripts,
		defaults.WorkingHours.Start,
		defaults.WorkingHours.End,
		defaults.CreatedAt,
		defaults.UpdatedAt,
	); err != nil {
		return nil, err
	}

	query := `SELECT ` + settingsColumns + ` FROM guild_settings WHERE guild_id=$1`
	return scanSettings(r.pool.QueryRow(ctx, query, guildID))
}

func (r *settingsRepository) Save(ctx context.Context, settings *domain.GuildSettings) error {
	const query = `
        UPDATE guild_settings SET ticket_category_id=$1, support_role_ids=$2, claim_role_id=$3,
            transcript_channel_id=$4, ticket_prefix=$5, allow_multiple_tickets=$6, enable_claim_system=$7,
            enable_transcripts=$8, auto_close_after_hours=$9, working_hours_start=$10, working_hours_end=$11,
            updated_at=$12
        WHERE guild_id=$13`
	cmd, err := r.pool.Exec(ctx, query,
		settings.TicketCategoryID,
		settings.SupportRoleIDs,
		settings.ClaimRoleID,
		settings.TranscriptChannelID,
		settings.TicketPrefix,
		settings.AllowMultipleTickets,
		settings.EnableClaimSystem,
		settings.EnableTranscripts,
		settings.AutoCloseAfterHours,
		settings.WorkingHours.Start,
		settings.WorkingHours.End,
		settings.UpdatedAt,
		settings.GuildID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *settingsRepository) ListAutoCloseEnabled(ctx context.Context) ([]domain.GuildSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM guild_settings
        WHERE auto_close_after_hours IS NOT NULL AND auto_close_after_hours > 0
        ORDER BY guild_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.GuildSettings
	for rows.Next() {
		settings, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *settings)
	}
	return result, rows.Err()
}

func scanSettings(row pgx.Row) (*domain.GuildSettings, error) {
	var s domain.GuildSettings
	if err := row.Scan(
		&s.GuildID,
		&s.TicketCategoryID,
		&s.SupportRoleIDs,
		&s.ClaimRoleID,
		&s.TranscriptChannelID,
		&s.TicketPrefix,
		&s.AllowMultipleTickets,
		&s.EnableClaimSystem,
		&s.EnableTranscripts,
		&s.AutoCloseAfterHours,
		&s.WorkingHours.Start,
		&s.WorkingHours.End,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if s.SupportRoleIDs == nil {
		s.SupportRoleIDs = []string{}
	}
	return &s, nil
}
