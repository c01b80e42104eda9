package domain

// Member is the acting community member behind an interaction.
type Member struct {
	UserID   string
	Username string
	RoleIDs  []string
	// Admin is true for members holding Administrator or Manage Server.
	Admin bool
}

// HasRole reports whether the member holds roleID.
func (m Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// SystemMember is the actor used for bot-driven transitions such as auto-close.
func SystemMember(botUserID string) Member {
	return Member{UserID: botUserID, Username: "system", Admin: true}
}
