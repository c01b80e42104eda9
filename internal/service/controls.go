package service

import (
	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/platform"
)

// Controls returns the button rows shown under a ticket's staff message.
// Claim appears only while unclaimed with the claim system on; lock and
// unlock follow the status; close and rename are always present.
func Controls(ticket *domain.Ticket, settings *domain.GuildSettings) [][]platform.Button {
	ref := func(a domain.TicketAction) domain.ActionRef {
		return domain.ActionRef{Action: a, TicketID: ticket.ID}
	}

	var primary []platform.Button
	if settings.EnableClaimSystem && !ticket.Claimed() {
		primary = append(primary, platform.Button{Ref: ref(domain.ActionClaim), Label: "Claim Ticket", Style: platform.ButtonPrimary})
	}
	primary = append(primary, platform.Button{Ref: ref(domain.ActionClose), Label: "Close Ticket", Style: platform.ButtonDanger})
	switch ticket.Status {
	case domain.TicketStatusOpen:
		primary = append(primary, platform.Button{Ref: ref(domain.ActionLock), Label: "Lock Ticket", Style: platform.ButtonSecondary})
	case domain.TicketStatusLocked:
		primary = append(primary, platform.Button{Ref: ref(domain.ActionUnlock), Label: "Unlock Ticket", Style: platform.ButtonSuccess})
	}

	secondary := []platform.Button{
		{Ref: ref(domain.ActionRename), Label: "Rename Channel", Style: platform.ButtonSecondary},
	}
	return [][]platform.Button{primary, secondary}
}

// ReopenControls offers the reopen action on a closed ticket.
func ReopenControls(ticket *domain.Ticket) [][]platform.Button {
	return [][]platform.Button{{
		{Ref: domain.ActionRef{Action: domain.ActionReopen, TicketID: ticket.ID}, Label: "Reopen Ticket", Style: platform.ButtonSuccess},
	}}
}
