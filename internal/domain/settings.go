package domain

import "time"

// Default values applied when a community's settings are first created.
const (
	DefaultTicketPrefix      = "ticket"
	DefaultWorkingHoursStart = 9
	DefaultWorkingHoursEnd   = 17
)

// WorkingHours is a daily local-time window [Start, End).
type WorkingHours struct {
	Start int
	End   int
}

// Contains reports whether hour falls inside the window.
func (w WorkingHours) Contains(hour int) bool {
	return hour >= w.Start && hour < w.End
}

// GuildSettings holds per-community configuration.
type GuildSettings struct {
	GuildID              string
	TicketCategoryID     *string
	SupportRoleIDs       []string
	ClaimRoleID          *string
	TranscriptChannelID  *string
	TicketPrefix         string
	AllowMultipleTickets bool
	EnableClaimSystem    bool
	EnableTranscripts    bool
	AutoCloseAfterHours  *int
	WorkingHours         WorkingHours
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewGuildSettings returns the default settings for a community.
func NewGuildSettings(guildID string, now time.Time) *GuildSettings {
	return &GuildSettings{
		GuildID:           guildID,
		SupportRoleIDs:    []string{},
		TicketPrefix:      DefaultTicketPrefix,
		EnableClaimSystem: true,
		EnableTranscripts: true,
		WorkingHours: WorkingHours{
			Start: DefaultWorkingHoursStart,
			End:   DefaultWorkingHoursEnd,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AutoCloseEnabled reports whether the sweeper should consider this community.
func (s *GuildSettings) AutoCloseEnabled() bool {
	return s.AutoCloseAfterHours != nil && *s.AutoCloseAfterHours > 0
}

// IsSupportRole reports whether roleID is one of the configured support roles.
func (s *GuildSettings) IsSupportRole(roleID string) bool {
	for _, id := range s.SupportRoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}
