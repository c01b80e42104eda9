package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusLocked TicketStatus = "locked"
	TicketStatusClosed TicketStatus = "closed"
)

// Live reports whether the ticket still owns its channel.
func (s TicketStatus) Live() bool {
	return s == TicketStatusOpen || s == TicketStatusLocked
}

// TicketType is the category a user picks from the creation menu.
type TicketType string

const (
	TicketTypeDeveloper        TicketType = "developer"
	TicketTypeGeneral          TicketType = "general"
	TicketTypeStaffApplication TicketType = "staff-application"
	TicketTypeOther            TicketType = "other"
)

// TicketTypes lists the selectable types in menu order.
var TicketTypes = []TicketType{
	TicketTypeDeveloper,
	TicketTypeGeneral,
	TicketTypeStaffApplication,
	TicketTypeOther,
}

// Valid reports whether t is one of the known ticket types.
func (t TicketType) Valid() bool {
	for _, known := range TicketTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DisplayName returns the human label for the type.
func (t TicketType) DisplayName() string {
	switch t {
	case TicketTypeDeveloper:
		return "Developer Work Request"
	case TicketTypeGeneral:
		return "General Request"
	case TicketTypeStaffApplication:
		return "Staff Application"
	default:
		return "Other"
	}
}

// Emoji returns the menu emoji for the type.
func (t TicketType) Emoji() string {
	switch t {
	case TicketTypeDeveloper:
		return "🧑‍💻"
	case TicketTypeGeneral:
		return "📩"
	case TicketTypeStaffApplication:
		return "🛡️"
	default:
		return "❓"
	}
}

// Ticket is a single support case: one record plus one provisioned channel.
type Ticket struct {
	ID        string
	GuildID   string
	ChannelID string
	UserID    string
	Type      TicketType
	Status    TicketStatus
	ClaimedBy *string
	ClaimedAt *time.Time
	CreatedAt time.Time
	ClosedAt  *time.Time
}

// Claimed reports whether a staff member holds the ticket.
func (t *Ticket) Claimed() bool {
	return t.ClaimedBy != nil
}

// Consistent checks the paired-field invariants: a closed ticket carries
// closedAt and a claimed ticket carries claimedAt, and neither the other way
// round.
func (t *Ticket) Consistent() bool {
	if (t.Status == TicketStatusClosed) != (t.ClosedAt != nil) {
		return false
	}
	return (t.ClaimedBy != nil) == (t.ClaimedAt != nil)
}
