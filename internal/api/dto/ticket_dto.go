package dto

import (
	"time"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/service"
)

// TicketResponse is a ticket as returned by the admin API.
type TicketResponse struct {
	ID        string              `json:"id"`
	GuildID   string              `json:"guild_id"`
	ChannelID string              `json:"channel_id"`
	UserID    string              `json:"user_id"`
	Type      domain.TicketType   `json:"type"`
	Status    domain.TicketStatus `json:"status"`
	ClaimedBy *string             `json:"claimed_by"`
	ClaimedAt *time.Time          `json:"claimed_at"`
	CreatedAt time.Time           `json:"created_at"`
	ClosedAt  *time.Time          `json:"closed_at"`
}

// AuditEntryResponse is one audit log row.
type AuditEntryResponse struct {
	ID          string             `json:"id"`
	TicketID    *string            `json:"ticket_id"`
	Action      domain.AuditAction `json:"action"`
	PerformedBy string             `json:"performed_by"`
	Details     map[string]any     `json:"details"`
	CreatedAt   time.Time          `json:"created_at"`
}

// StatsResponse summarizes a guild's tickets.
type StatsResponse struct {
	Total           int     `json:"total"`
	Open            int     `json:"open"`
	Closed          int     `json:"closed"`
	Locked          int     `json:"locked"`
	Claimed         int     `json:"claimed"`
	AvgResponseTime string  `json:"avg_response_time"`
	ClaimedBy       *string `json:"claimed_by,omitempty"`
}

// SettingsResponse mirrors a guild's configuration.
type SettingsResponse struct {
	GuildID              string    `json:"guild_id"`
	TicketCategoryID     *string   `json:"ticket_category_id"`
	SupportRoleIDs       []string  `json:"support_role_ids"`
	ClaimRoleID          *string   `json:"claim_role_id"`
	TranscriptChannelID  *string   `json:"transcript_channel_id"`
	TicketPrefix         string    `json:"ticket_prefix"`
	AllowMultipleTickets bool      `json:"allow_multiple_tickets"`
	EnableClaimSystem    bool      `json:"enable_claim_system"`
	EnableTranscripts    bool      `json:"enable_transcripts"`
	AutoCloseAfterHours  *int      `json:"auto_close_after_hours"`
	WorkingHoursStart    int       `json:"working_hours_start"`
	WorkingHoursEnd      int       `json:"working_hours_end"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:        t.ID,
		GuildID:   t.GuildID,
		ChannelID: t.ChannelID,
		UserID:    t.UserID,
		Type:      t.Type,
		Status:    t.Status,
		ClaimedBy: t.ClaimedBy,
		ClaimedAt: t.ClaimedAt,
		CreatedAt: t.CreatedAt,
		ClosedAt:  t.ClosedAt,
	}
}

// NewAuditEntries maps audit rows, keeping their order.
func NewAuditEntries(entries []domain.AuditLogEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:          e.ID,
			TicketID:    e.TicketID,
			Action:      e.Action,
			PerformedBy: e.PerformedBy,
			Details:     e.Details,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

// NewStatsResponse maps computed statistics.
func NewStatsResponse(s *service.TicketStats, claimedBy *string) StatsResponse {
	return StatsResponse{
		Total:           s.Total,
		Open:            s.Open,
		Closed:          s.Closed,
		Locked:          s.Locked,
		Claimed:         s.Claimed,
		AvgResponseTime: s.AvgResponse,
		ClaimedBy:       claimedBy,
	}
}

// NewSettingsResponse maps guild settings.
func NewSettingsResponse(gs *domain.GuildSettings) SettingsResponse {
	return SettingsResponse{
		GuildID:              gs.GuildID,
		TicketCategoryID:     gs.TicketCategoryID,
		SupportRoleIDs:       gs.SupportRoleIDs,
		ClaimRoleID:          gs.ClaimRoleID,
		TranscriptChannelID:  gs.TranscriptChannelID,
		TicketPrefix:         gs.TicketPrefix,
		AllowMultipleTickets: gs.AllowMultipleTickets,
		EnableClaimSystem:    gs.EnableClaimSystem,
		EnableTranscripts:    gs.EnableTranscripts,
		AutoCloseAfterHours:  gs.AutoCloseAfterHours,
		WorkingHoursStart:    gs.WorkingHours.Start,
		WorkingHoursEnd:      gs.WorkingHours.End,
		UpdatedAt:            gs.UpdatedAt,
	}
}
