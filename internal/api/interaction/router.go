// Package interaction routes Discord slash commands, buttons, select menus
// and modal submissions to the ticket and settings services.
package interaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/observability"
	"github.com/supportdesk/ticket-bot/internal/platform/discord"
	"github.com/supportdesk/ticket-bot/internal/service"
	apperrors "github.com/supportdesk/ticket-bot/pkg/util/errorutil"
)

const defaultTimeout = 30 * time.Second

// Session is the part of a discordgo session the router replies through.
type Session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type (
	commandHandler func(ctx context.Context, i *discordgo.Interaction, member domain.Member, opt *discordgo.ApplicationCommandInteractionDataOption)
	actionHandler  func(ctx context.Context, i *discordgo.Interaction, member domain.Member, ref domain.ActionRef)
)

// Router dispatches interactions through lookup tables built once in
// NewRouter and never modified afterwards.
type Router struct {
	tickets  *service.TicketService
	settings *service.SettingsService
	session  Session
	logger   *zap.Logger
	metrics  *observability.Metrics
	timeout  time.Duration
	now      func() time.Time

	commands      map[string]commandHandler
	buttons       map[domain.TicketAction]actionHandler
	modals        map[domain.TicketAction]actionHandler
	settingFields map[string]settingField
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Tickets  *service.TicketService
	Settings *service.SettingsService
	Session  Session
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Timeout  time.Duration
	Clock    func() time.Time
}

// NewRouter builds the dispatch tables.
func NewRouter(deps RouterDependencies) *Router {
	r := &Router{
		tickets:  deps.Tickets,
		settings: deps.Settings,
		session:  deps.Session,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		timeout:  deps.Timeout,
		now:      deps.Clock,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.timeout <= 0 {
		r.timeout = defaultTimeout
	}
	if r.now == nil {
		r.now = time.Now
	}

	r.commands = map[string]commandHandler{
		subcommandSend:     r.sendPanel,
		subcommandSettings: r.openSettings,
		subcommandStats:    r.showStats,
	}
	r.buttons = map[domain.TicketAction]actionHandler{
		domain.ActionClaim:  r.transition(r.tickets.Claim, "You claimed ticket `%s`.", true),
		domain.ActionLock:   r.transition(r.tickets.Lock, "Ticket `%s` locked.", true),
		domain.ActionUnlock: r.transition(r.tickets.Unlock, "Ticket `%s` unlocked.", true),
		domain.ActionReopen: r.transition(r.tickets.Reopen, "Ticket `%s` reopened.", false),
		domain.ActionClose:  r.transition(r.tickets.Close, "Ticket `%s` closed.", false),
		domain.ActionRename: r.openRename,
	}
	r.modals = map[domain.TicketAction]actionHandler{
		domain.ActionRenameSubmit: r.submitRename,
	}
	r.settingFields = buildSettingFields(r.settings)
	return r
}

// HandleInteraction is registered with the gateway session. discordgo runs
// each event on its own goroutine.
func (r *Router) HandleInteraction(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.Dispatch(ctx, ic.Interaction)
}

// Dispatch handles one interaction and always answers it exactly once.
func (r *Router) Dispatch(ctx context.Context, i *discordgo.Interaction) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("interaction panic", zap.String("interaction_id", i.ID), zap.Any("panic", rec))
			r.respondError(i, apperrors.NewInternalError(fmt.Errorf("panic: %v", rec)))
		}
	}()

	member, ok := discord.MemberFromInteraction(i)
	if !ok {
		r.respondError(i, apperrors.NewValidationError("This can only be used inside a server.", nil))
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.handleCommand(ctx, i, member)
	case discordgo.InteractionMessageComponent:
		r.handleComponent(ctx, i, member)
	case discordgo.InteractionModalSubmit:
		r.handleModal(ctx, i, member)
	default:
		r.logger.Debug("ignoring interaction", zap.Stringer("type", i.Type))
	}
}

func (r *Router) handleCommand(ctx context.Context, i *discordgo.Interaction, member domain.Member) {
	data := i.ApplicationCommandData()
	if data.Name != commandName || len(data.Options) == 0 {
		r.respondError(i, apperrors.NewNotFound("Command", map[string]any{"name": data.Name}))
		return
	}
	sub := data.Options[0]
	handler, ok := r.commands[sub.Name]
	if !ok {
		r.respondError(i, apperrors.NewNotFound("Command", map[string]any{"name": sub.Name}))
		return
	}
	handler(ctx, i, member, sub)
}

func (r *Router) handleComponent(ctx context.Context, i *discordgo.Interaction, member domain.Member) {
	customID := i.MessageComponentData().CustomID
	switch {
	case customID == TicketSelectID:
		r.createTicket(ctx, i, member)
		return
	case strings.HasPrefix(customID, settingsPrefix):
		r.handleSettingsButton(ctx, i, member, strings.TrimPrefix(customID, settingsPrefix))
		return
	}

	ref, err := domain.ParseActionRef(customID)
	if err != nil {
		r.logger.Warn("unknown component", zap.String("custom_id", customID))
		r.respondError(i, apperrors.NewValidationError("Unknown action.", nil))
		return
	}
	handler, ok := r.buttons[ref.Action]
	if !ok {
		r.respondError(i, apperrors.NewValidationError("Unknown action.", nil))
		return
	}
	handler(ctx, i, member, ref)
}

func (r *Router) handleModal(ctx context.Context, i *discordgo.Interaction, member domain.Member) {
	customID := i.ModalSubmitData().CustomID
	if strings.HasPrefix(customID, settingsPrefix) {
		r.submitSetting(ctx, i, member, strings.TrimSuffix(strings.TrimPrefix(customID, settingsPrefix), modalSuffix))
		return
	}
	ref, err := domain.ParseActionRef(customID)
	if err != nil {
		r.respondError(i, apperrors.NewValidationError("Unknown form.", nil))
		return
	}
	handler, ok := r.modals[ref.Action]
	if !ok {
		r.respondError(i, apperrors.NewValidationError("Unknown form.", nil))
		return
	}
	handler(ctx, i, member, ref)
}

// respond sends the initial response. Failures are logged only; the
// interaction token is single-use.
func (r *Router) respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) {
	if err := r.session.InteractionRespond(i, resp); err != nil {
		r.logger.Warn("interaction respond", zap.String("interaction_id", i.ID), zap.Error(err))
	}
}

func (r *Router) respondEphemeral(i *discordgo.Interaction, embed *discordgo.MessageEmbed) {
	r.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func (r *Router) respondError(i *discordgo.Interaction, err error) {
	r.recordFailure(i, err)
	r.respondEphemeral(i, errorEmbed(apperrors.UserMessage(err), r.now()))
}

// deferReply acknowledges with an ephemeral "thinking" state so the handler
// may run past the three second response deadline.
func (r *Router) deferReply(i *discordgo.Interaction) bool {
	err := r.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		r.logger.Warn("defer interaction", zap.String("interaction_id", i.ID), zap.Error(err))
		return false
	}
	return true
}

func (r *Router) editReply(i *discordgo.Interaction, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := r.session.InteractionResponseEdit(i, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		r.logger.Debug("edit interaction reply", zap.String("interaction_id", i.ID), zap.Error(err))
	}
}

func (r *Router) editError(i *discordgo.Interaction, err error) {
	r.recordFailure(i, err)
	r.editReply(i, errorEmbed(apperrors.UserMessage(err), r.now()))
}

func (r *Router) recordFailure(i *discordgo.Interaction, err error) {
	de := apperrors.ToDomainError(err)
	r.metrics.RecordError("interaction", i.Type.String(), de.Code)
	if de.Code == apperrors.CodeInternal {
		r.logger.Error("interaction failed",
			zap.String("interaction_id", i.ID),
			zap.String("guild_id", i.GuildID),
			zap.Error(err))
	}
}
