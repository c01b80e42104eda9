package domain

import "time"

// AuditAction captures which transition an audit entry records.
type AuditAction string

const (
	AuditTicketCreated   AuditAction = "ticket_created"
	AuditTicketClaimed   AuditAction = "ticket_claimed"
	AuditTicketClosed    AuditAction = "ticket_closed"
	AuditTicketReopened  AuditAction = "ticket_reopened"
	AuditTicketLocked    AuditAction = "ticket_locked"
	AuditTicketUnlocked  AuditAction = "ticket_unlocked"
	AuditTicketRenamed   AuditAction = "ticket_renamed"
	AuditSettingsUpdated AuditAction = "settings_updated"
)

// AuditLogEntry is an immutable audit trail entry.
type AuditLogEntry struct {
	ID          string
	GuildID     string
	TicketID    *string
	Action      AuditAction
	PerformedBy string
	Details     map[string]any
	CreatedAt   time.Time
}
