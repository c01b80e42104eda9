package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/platform"
)

// Embed colors.
const (
	ColorSuccess = 0x00ff00
	ColorError   = 0xff0000
	ColorWarning = 0xffaa00
	ColorInfo    = 0x0099ff
	ColorPrimary = 0x5865f2
)

var autoResponses = map[domain.TicketType]string{
	domain.TicketTypeDeveloper: "Thank you for opening a developer work request ticket!\n\n" +
		"Our development team has been notified and will review your request shortly.\n\n" +
		"**To help us assist you better, please provide:**\n" +
		"• A detailed description of the work needed\n" +
		"• Any specific requirements or constraints\n" +
		"• Expected timeline or deadline\n" +
		"• Relevant files or examples (if applicable)\n\n" +
		"We'll get back to you as soon as possible!",
	domain.TicketTypeGeneral: "Thank you for contacting support!\n\n" +
		"Our team has been notified and will assist you shortly.\n\n" +
		"**Please provide:**\n" +
		"• A clear description of your request or issue\n" +
		"• Any relevant information that might help us assist you\n" +
		"• Screenshots or error messages (if applicable)\n\n" +
		"We appreciate your patience!",
	domain.TicketTypeStaffApplication: "Thank you for your interest in joining our staff team!\n\n" +
		"Your application has been received and will be reviewed by our administration team.\n\n" +
		"**Please make sure to include:**\n" +
		"• Your previous experience (if any)\n" +
		"• Why you want to become staff\n" +
		"• Your availability\n" +
		"• Any additional relevant information\n\n" +
		"We'll review your application and get back to you soon. Good luck!",
	domain.TicketTypeOther: "Thank you for opening a ticket!\n\n" +
		"Our support team has been notified and will assist you shortly.\n\n" +
		"**Please provide:**\n" +
		"• A detailed description of your inquiry\n" +
		"• Any relevant context or information\n" +
		"• What you're hoping to achieve\n\n" +
		"We'll do our best to help you!",
}

// AutoResponse returns the first reply posted for a ticket type.
func AutoResponse(t domain.TicketType) platform.Embed {
	message, ok := autoResponses[t]
	if !ok {
		t = domain.TicketTypeOther
		message = autoResponses[t]
	}
	return platform.Embed{
		Title:       t.Emoji() + " " + t.DisplayName(),
		Description: message,
		Color:       ColorPrimary,
	}
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func roleMention(roleID string) string {
	return "<@&" + roleID + ">"
}

func notice(title, description string, color int, at time.Time) platform.OutgoingMessage {
	return platform.OutgoingMessage{Embeds: []platform.Embed{{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   at,
	}}}
}

func createdNotice(ticket *domain.Ticket, at time.Time) platform.OutgoingMessage {
	desc := fmt.Sprintf("**Ticket ID:** `%s`\n**Type:** %s\n**Created by:** %s\n**Status:** %s\n\nSupport staff will be with you shortly.",
		ticket.ID, ticket.Type.DisplayName(), mention(ticket.UserID), strings.ToUpper(string(ticket.Status)))
	return notice(ticket.Type.Emoji()+" Ticket Created", desc, ColorSuccess, at)
}

func outOfHoursNotice(at time.Time) platform.OutgoingMessage {
	return notice("⏰ Outside Working Hours",
		"You have opened a ticket outside of our working hours.\n"+
			"Our team will respond as soon as possible during business hours.\n\n"+
			"Thank you for your patience!",
		ColorWarning, at)
}

func staffPing(ticket *domain.Ticket, settings *domain.GuildSettings) platform.OutgoingMessage {
	content := "New ticket created!"
	if len(settings.SupportRoleIDs) > 0 {
		mentions := make([]string, 0, len(settings.SupportRoleIDs))
		for _, id := range settings.SupportRoleIDs {
			mentions = append(mentions, roleMention(id))
		}
		content = strings.Join(mentions, " ") + " - New ticket created!"
	}
	return platform.OutgoingMessage{Content: content, ButtonRows: Controls(ticket, settings)}
}

func claimedNotice(actorID string, at time.Time) platform.OutgoingMessage {
	return notice("✅ Ticket Claimed", "This ticket has been claimed by "+mention(actorID), ColorInfo, at)
}

func closedNotice(actorID string, at time.Time) platform.OutgoingMessage {
	return notice("🔒 Ticket Closed", "This ticket has been closed by "+mention(actorID), ColorWarning, at)
}

func autoClosedNotice(hours int, at time.Time) platform.OutgoingMessage {
	return notice("🔒 Ticket Closed",
		fmt.Sprintf("This ticket was closed automatically after %d hours.", hours), ColorWarning, at)
}

func reopenedNotice(actorID string, at time.Time) platform.OutgoingMessage {
	return notice("🔓 Ticket Reopened", "This ticket has been reopened by "+mention(actorID), ColorSuccess, at)
}

func lockedNotice(actorID string, at time.Time) platform.OutgoingMessage {
	return notice("🔐 Ticket Locked", "This ticket has been locked by "+mention(actorID)+"\nOnly staff can send messages.", ColorWarning, at)
}

func unlockedNotice(actorID string, at time.Time) platform.OutgoingMessage {
	return notice("🔓 Ticket Unlocked", "This ticket has been unlocked by "+mention(actorID), ColorSuccess, at)
}

func renamedNotice(oldName, newName, actorID string, at time.Time) platform.OutgoingMessage {
	return notice("✅ Success",
		fmt.Sprintf("Channel renamed from `%s` to `%s` by %s", oldName, newName, mention(actorID)), ColorSuccess, at)
}

func deleteFailedNotice(ticket *domain.Ticket, at time.Time) platform.OutgoingMessage {
	msg := notice("⚠️ Channel Kept",
		"This channel could not be deleted, so the requester's access was removed instead.", ColorWarning, at)
	msg.ButtonRows = ReopenControls(ticket)
	return msg
}
