package events

import (
	"time"

	"github.com/supportdesk/ticket-bot/internal/domain"
)

// EventType enumerates supported event identifiers. Values mirror the audit
// actions so every recorded transition is also published.
type EventType string

const (
	EventTicketCreated   EventType = EventType(domain.AuditTicketCreated)
	EventTicketClaimed   EventType = EventType(domain.AuditTicketClaimed)
	EventTicketClosed    EventType = EventType(domain.AuditTicketClosed)
	EventTicketReopened  EventType = EventType(domain.AuditTicketReopened)
	EventTicketLocked    EventType = EventType(domain.AuditTicketLocked)
	EventTicketUnlocked  EventType = EventType(domain.AuditTicketUnlocked)
	EventTicketRenamed   EventType = EventType(domain.AuditTicketRenamed)
	EventSettingsUpdated EventType = EventType(domain.AuditSettingsUpdated)
)

// AllEventTypes lists every published type.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketClaimed,
	EventTicketClosed,
	EventTicketReopened,
	EventTicketLocked,
	EventTicketUnlocked,
	EventTicketRenamed,
	EventSettingsUpdated,
}

// Event represents a domain event emitted after an audit entry is stored.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	GuildID   string         `json:"guild_id"`
	TicketID  *string        `json:"ticket_id,omitempty"`
	ActorID   string         `json:"actor_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// FromAudit converts a stored audit entry into an event.
func FromAudit(entry domain.AuditLogEntry) Event {
	return Event{
		ID:        entry.ID,
		Type:      EventType(entry.Action),
		GuildID:   entry.GuildID,
		TicketID:  entry.TicketID,
		ActorID:   entry.PerformedBy,
		Timestamp: entry.CreatedAt,
		Payload:   entry.Details,
	}
}
