package interaction

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/platform/discord"
	"github.com/supportdesk/ticket-bot/internal/service"
	apperrors "github.com/supportdesk/ticket-bot/pkg/util/errorutil"
)

const channelNameInput = "channel_name"

type transitionFunc func(ctx context.Context, guildID, ticketID string, actor domain.Member) (*domain.Ticket, error)

// transition wraps a lifecycle operation as a button handler. With refresh
// set, the controls under the clicked message are redrawn for the new state.
func (r *Router) transition(op transitionFunc, done string, refresh bool) actionHandler {
	return func(ctx context.Context, i *discordgo.Interaction, member domain.Member, ref domain.ActionRef) {
		if !r.deferReply(i) {
			return
		}
		ticket, err := op(ctx, i.GuildID, ref.TicketID, member)
		if err != nil {
			r.editError(i, err)
			return
		}
		if refresh {
			r.refreshControls(ctx, i, ticket)
		}
		r.editReply(i, successEmbed(fmt.Sprintf(done, ticket.ID), r.now()))
	}
}

func (r *Router) refreshControls(ctx context.Context, i *discordgo.Interaction, ticket *domain.Ticket) {
	if i.Message == nil || len(i.Message.Components) == 0 {
		return
	}
	settings, err := r.settings.Get(ctx, ticket.GuildID)
	if err != nil {
		r.logger.Warn("load settings for controls", zap.String("guild_id", ticket.GuildID), zap.Error(err))
		return
	}
	components := discord.Components(service.Controls(ticket, settings))
	if _, err := r.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         i.Message.ID,
		Channel:    i.ChannelID,
		Components: &components,
	}); err != nil {
		r.logger.Debug("refresh ticket controls", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (r *Router) createTicket(ctx context.Context, i *discordgo.Interaction, member domain.Member) {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		r.respondError(i, apperrors.NewValidationError("Invalid ticket type selected.", nil))
		return
	}
	if !r.deferReply(i) {
		return
	}
	ticket, err := r.tickets.CreateTicket(ctx, i.GuildID, member, domain.TicketType(values[0]))
	if err != nil {
		r.editError(i, err)
		return
	}
	r.editReply(i, successEmbed(fmt.Sprintf("Your ticket has been created: <#%s>", ticket.ChannelID), r.now()))
}

func (r *Router) openRename(ctx context.Context, i *discordgo.Interaction, member domain.Member, ref domain.ActionRef) {
	current, err := r.tickets.PrepareRename(ctx, i.GuildID, ref.TicketID, member)
	if err != nil {
		r.respondError(i, err)
		return
	}
	r.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: domain.ActionRef{Action: domain.ActionRenameSubmit, TicketID: ref.TicketID}.Encode(),
			Title:    "Rename Ticket Channel",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    channelNameInput,
						Label:       "New channel name",
						Style:       discordgo.TextInputShort,
						Placeholder: "lowercase letters, numbers, - and _",
						Value:       current,
						Required:    true,
						MinLength:   1,
						MaxLength:   100,
					},
				}},
			},
		},
	})
}

func (r *Router) submitRename(ctx context.Context, i *discordgo.Interaction, member domain.Member, ref domain.ActionRef) {
	name := modalValues(i.ModalSubmitData())[channelNameInput]
	if !r.deferReply(i) {
		return
	}
	renamed, err := r.tickets.Rename(ctx, i.GuildID, ref.TicketID, member, name)
	if err != nil {
		r.editError(i, err)
		return
	}
	r.editReply(i, successEmbed(fmt.Sprintf("Channel renamed to `%s`.", renamed), r.now()))
}

// modalValues collects text input values by custom id.
func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	var walk func(components []discordgo.MessageComponent)
	walk = func(components []discordgo.MessageComponent) {
		for _, c := range components {
			switch v := c.(type) {
			case *discordgo.ActionsRow:
				walk(v.Components)
			case discordgo.ActionsRow:
				walk(v.Components)
			case *discordgo.TextInput:
				values[v.CustomID] = v.Value
			case discordgo.TextInput:
				values[v.CustomID] = v.Value
			}
		}
	}
	walk(data.Components)
	return values
}
