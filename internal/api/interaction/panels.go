package interaction

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/platform"
	"github.com/supportdesk/ticket-bot/internal/platform/discord"
	"github.com/supportdesk/ticket-bot/internal/service"
)

// TicketSelectID is the custom id of the ticket type menu on the panel.
const TicketSelectID = "ticket_select"

var typeDescriptions = map[domain.TicketType]string{
	domain.TicketTypeDeveloper:        "Request development work or technical assistance",
	domain.TicketTypeGeneral:          "General inquiries and support",
	domain.TicketTypeStaffApplication: "Apply to join our staff team",
	domain.TicketTypeOther:            "Other inquiries",
}

func embed(e platform.Embed) *discordgo.MessageEmbed {
	return discord.Embeds([]platform.Embed{e})[0]
}

func successEmbed(msg string, at time.Time) *discordgo.MessageEmbed {
	return embed(platform.Embed{Title: "✅ Success", Description: msg, Color: service.ColorSuccess, Timestamp: at})
}

func errorEmbed(msg string, at time.Time) *discordgo.MessageEmbed {
	return embed(platform.Embed{Title: "❌ Error", Description: msg, Color: service.ColorError, Timestamp: at})
}

// ticketPanel is the public message users open tickets from.
func ticketPanel(at time.Time) *discordgo.MessageSend {
	var b strings.Builder
	b.WriteString("Welcome to the support system! Choose the category that best describes your request.\n\n")
	b.WriteString("**Available categories:**")
	options := make([]discordgo.SelectMenuOption, 0, len(domain.TicketTypes))
	for _, t := range domain.TicketTypes {
		fmt.Fprintf(&b, "\n• %s %s", t.Emoji(), t.DisplayName())
		options = append(options, discordgo.SelectMenuOption{
			Label:       t.DisplayName(),
			Value:       string(t),
			Description: typeDescriptions[t],
		})
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed(platform.Embed{
			Title:       "🎫 Ticket System",
			Description: b.String(),
			Color:       service.ColorPrimary,
			Footer:      "Support Team • " + at.Format("January 2, 2006"),
			Timestamp:   at,
		})},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    TicketSelectID,
					Placeholder: "Select a ticket type...",
					Options:     options,
				},
			}},
		},
	}
}

func orNotSet(id *string, format string) string {
	if id == nil {
		return "Not set"
	}
	return fmt.Sprintf(format, *id)
}

func enabled(on bool) string {
	if on {
		return "Enabled"
	}
	return "Disabled"
}

func settingsEmbed(gs *domain.GuildSettings, at time.Time) *discordgo.MessageEmbed {
	roles := "Not set"
	if len(gs.SupportRoleIDs) > 0 {
		mentions := make([]string, 0, len(gs.SupportRoleIDs))
		for _, id := range gs.SupportRoleIDs {
			mentions = append(mentions, "<@&"+id+">")
		}
		roles = strings.Join(mentions, ", ")
	}
	autoClose := "Disabled"
	if gs.AutoCloseEnabled() {
		autoClose = fmt.Sprintf("%d hours", *gs.AutoCloseAfterHours)
	}

	return embed(platform.Embed{
		Title:       "⚙️ Ticket System Settings",
		Description: "Configure your ticket system using the buttons below.",
		Color:       service.ColorPrimary,
		Timestamp:   at,
		Fields: []platform.EmbedField{
			{Name: "📁 Ticket Category", Value: orNotSet(gs.TicketCategoryID, "<#%s>"), Inline: true},
			{Name: "👥 Support Roles", Value: roles, Inline: true},
			{Name: "🎯 Claim Role", Value: orNotSet(gs.ClaimRoleID, "<@&%s>"), Inline: true},
			{Name: "📝 Transcript Channel", Value: orNotSet(gs.TranscriptChannelID, "<#%s>"), Inline: true},
			{Name: "🏷️ Ticket Prefix", Value: gs.TicketPrefix, Inline: true},
			{Name: "⏰ Auto-Close", Value: autoClose, Inline: true},
			{Name: "🕐 Working Hours", Value: fmt.Sprintf("%d:00 - %d:00", gs.WorkingHours.Start, gs.WorkingHours.End), Inline: true},
			{Name: "📊 Multiple Tickets", Value: enabled(gs.AllowMultipleTickets), Inline: true},
			{Name: "🎯 Claim System", Value: enabled(gs.EnableClaimSystem), Inline: true},
			{Name: "📄 Transcripts", Value: enabled(gs.EnableTranscripts), Inline: true},
		},
	})
}

func settingsButton(key, label string, style discordgo.ButtonStyle) discordgo.Button {
	return discordgo.Button{CustomID: settingsPrefix + key, Label: label, Style: style}
}

func toggleButton(key string, on bool, what string) discordgo.Button {
	if on {
		return settingsButton(key, "Disable "+what, discordgo.DangerButton)
	}
	return settingsButton(key, "Enable "+what, discordgo.SuccessButton)
}

func settingsComponents(gs *domain.GuildSettings) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			settingsButton(keyCategory, "Set Category", discordgo.PrimaryButton),
			settingsButton(keySupportRoles, "Support Roles", discordgo.PrimaryButton),
			settingsButton(keyClaimRole, "Claim Role", discordgo.PrimaryButton),
			settingsButton(keyTranscriptChannel, "Transcript Channel", discordgo.PrimaryButton),
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			settingsButton(keyPrefix, "Ticket Prefix", discordgo.SecondaryButton),
			settingsButton(keyAutoClose, "Auto-Close Timer", discordgo.SecondaryButton),
			settingsButton(keyWorkingHours, "Working Hours", discordgo.SecondaryButton),
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			toggleButton(keyToggleMultiple, gs.AllowMultipleTickets, "Multiple"),
			toggleButton(keyToggleClaim, gs.EnableClaimSystem, "Claim"),
			toggleButton(keyToggleTranscripts, gs.EnableTranscripts, "Transcripts"),
		}},
	}
}

func statsEmbed(stats *service.TicketStats, title string, at time.Time) *discordgo.MessageEmbed {
	count := func(n int) string { return fmt.Sprintf("%d", n) }
	return embed(platform.Embed{
		Title:       title,
		Description: "Staff performance metrics",
		Color:       service.ColorInfo,
		Timestamp:   at,
		Fields: []platform.EmbedField{
			{Name: "📈 Total Tickets", Value: count(stats.Total), Inline: true},
			{Name: "✅ Closed Tickets", Value: count(stats.Closed), Inline: true},
			{Name: "⏱️ Avg Response Time", Value: stats.AvgResponse, Inline: true},
			{Name: "🎯 Claimed Tickets", Value: count(stats.Claimed), Inline: true},
			{Name: "🔓 Open Tickets", Value: count(stats.Open), Inline: true},
			{Name: "🔐 Locked Tickets", Value: count(stats.Locked), Inline: true},
		},
	})
}
