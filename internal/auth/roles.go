package auth

import "github.com/supportdesk/ticket-bot/internal/domain"

// IsAdmin reports whether the member holds Administrator or Manage Server.
func IsAdmin(member domain.Member) bool {
	return member.Admin
}

// CanManageTickets allows admins and holders of any configured support role.
func CanManageTickets(member domain.Member, settings *domain.GuildSettings) bool {
	if IsAdmin(member) {
		return true
	}
	for _, roleID := range member.RoleIDs {
		if settings.IsSupportRole(roleID) {
			return true
		}
	}
	return false
}

// CanClaim additionally admits holders of the claim role.
func CanClaim(member domain.Member, settings *domain.GuildSettings) bool {
	if CanManageTickets(member, settings) {
		return true
	}
	return settings.ClaimRoleID != nil && member.HasRole(*settings.ClaimRoleID)
}
