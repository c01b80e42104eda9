package interaction

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/supportdesk/ticket-bot/internal/auth"
	"github.com/supportdesk/ticket-bot/internal/domain"
	apperrors "github.com/supportdesk/ticket-bot/pkg/util/errorutil"
)

const (
	commandName        = "ticket"
	subcommandSend     = "send"
	subcommandSettings = "settings"
	subcommandStats    = "stats"
)

// Commands returns the slash command definitions registered at startup.
func Commands() []*discordgo.ApplicationCommand {
	dmPermission := false
	return []*discordgo.ApplicationCommand{{
		Name:         commandName,
		Description:  "Ticket system commands",
		DMPermission: &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        subcommandSend,
				Description: "Send the ticket panel to a channel",
				Options: []*discordgo.ApplicationCommandOption{{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "The channel to send the ticket panel to",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				}},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        subcommandSettings,
				Description: "Configure ticket system settings",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        subcommandStats,
				Description: "View ticket statistics",
				Options: []*discordgo.ApplicationCommandOption{{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "View stats for a specific staff member",
				}},
			},
		},
	}}
}

func errCommandAdmin() error {
	return apperrors.NewForbidden("You need administrator permissions to use this command.")
}

func option(opt *discordgo.ApplicationCommandInteractionDataOption, name string) (string, bool) {
	if opt == nil {
		return "", false
	}
	for _, o := range opt.Options {
		if o.Name != name {
			continue
		}
		if v, ok := o.Value.(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func (r *Router) sendPanel(ctx context.Context, i *discordgo.Interaction, member domain.Member, opt *discordgo.ApplicationCommandInteractionDataOption) {
	if !auth.IsAdmin(member) {
		r.respondError(i, errCommandAdmin())
		return
	}
	channelID, ok := option(opt, "channel")
	if !ok {
		r.respondError(i, apperrors.NewValidationError("A channel is required.", nil))
		return
	}
	if _, err := r.session.ChannelMessageSendComplex(channelID, ticketPanel(r.now()), discordgo.WithContext(ctx)); err != nil {
		r.logger.Warn("send ticket panel", zap.String("guild_id", i.GuildID), zap.String("channel_id", channelID), zap.Error(err))
		r.respondError(i, apperrors.NewForbidden("Failed to send ticket panel. Please check my permissions."))
		return
	}
	r.logger.Info("ticket panel sent", zap.String("guild_id", i.GuildID), zap.String("channel_id", channelID))
	r.respondEphemeral(i, successEmbed(fmt.Sprintf("Ticket panel sent to <#%s>!", channelID), r.now()))
}

func (r *Router) openSettings(ctx context.Context, i *discordgo.Interaction, member domain.Member, _ *discordgo.ApplicationCommandInteractionDataOption) {
	if !auth.IsAdmin(member) {
		r.respondError(i, errCommandAdmin())
		return
	}
	gs, err := r.settings.Get(ctx, i.GuildID)
	if err != nil {
		r.respondError(i, err)
		return
	}
	r.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{settingsEmbed(gs, r.now())},
			Components: settingsComponents(gs),
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

func (r *Router) showStats(ctx context.Context, i *discordgo.Interaction, _ domain.Member, opt *discordgo.ApplicationCommandInteractionDataOption) {
	title := "📊 Ticket Statistics"
	var claimedBy *string
	if userID, ok := option(opt, "user"); ok {
		claimedBy = &userID
		name := userID
		if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
			if u, ok := resolved.Users[userID]; ok && u != nil {
				name = u.Username
			}
		}
		title += " for " + name
	}

	stats, err := r.tickets.Stats(ctx, i.GuildID, claimedBy)
	if err != nil {
		r.respondError(i, err)
		return
	}
	r.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{statsEmbed(stats, title, r.now())},
		},
	})
}
