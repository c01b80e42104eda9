package interaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/supportdesk/ticket-bot/internal/auth"
	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/service"
	apperrors "github.com/supportdesk/ticket-bot/pkg/util/errorutil"
)

const (
	settingsPrefix = "settings:"
	modalSuffix    = ":modal"
)

// Settings panel button keys.
const (
	keyCategory          = "category"
	keySupportRoles      = "support_roles"
	keyClaimRole         = "claim_role"
	keyTranscriptChannel = "transcript_channel"
	keyPrefix            = "prefix"
	keyAutoClose         = "auto_close"
	keyWorkingHours      = "working_hours"
	keyToggleMultiple    = "toggle_multiple"
	keyToggleClaim       = "toggle_claim"
	keyToggleTranscripts = "toggle_transcripts"
)

type toggleField struct {
	toggle service.Toggle
	label  string
	value  func(*domain.GuildSettings) bool
}

var toggles = map[string]toggleField{
	keyToggleMultiple:    {service.ToggleMultipleTickets, "Multiple tickets", func(gs *domain.GuildSettings) bool { return gs.AllowMultipleTickets }},
	keyToggleClaim:       {service.ToggleClaimSystem, "Claim system", func(gs *domain.GuildSettings) bool { return gs.EnableClaimSystem }},
	keyToggleTranscripts: {service.ToggleTranscripts, "Transcripts", func(gs *domain.GuildSettings) bool { return gs.EnableTranscripts }},
}

type settingInput struct {
	id          string
	label       string
	placeholder string
	paragraph   bool
	required    bool
	maxLength   int
	current     func(*domain.GuildSettings) string
}

type applyFunc func(ctx context.Context, guildID string, actor domain.Member, values map[string]string) (*domain.GuildSettings, string, error)

// settingField describes one modal-backed setting: the form shown and how
// its submission is applied.
type settingField struct {
	title  string
	inputs []settingInput
	apply  applyFunc
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// optionalID applies a setter for a clearable id and words the outcome.
func optionalID(set func(context.Context, string, domain.Member, string) (*domain.GuildSettings, error), input, what, mention string, get func(*domain.GuildSettings) *string) applyFunc {
	return func(ctx context.Context, guildID string, actor domain.Member, values map[string]string) (*domain.GuildSettings, string, error) {
		gs, err := set(ctx, guildID, actor, values[input])
		if err != nil {
			return nil, "", err
		}
		if id := get(gs); id != nil {
			return gs, fmt.Sprintf("%s set to "+mention+".", what, *id), nil
		}
		return gs, what + " removed.", nil
	}
}

func buildSettingFields(s *service.SettingsService) map[string]settingField {
	return map[string]settingField{
		keyCategory: {
			title: "Set Ticket Category",
			inputs: []settingInput{{
				id: "category_id", label: "Category ID", placeholder: "Leave empty to remove",
				current: func(gs *domain.GuildSettings) string { return deref(gs.TicketCategoryID) },
			}},
			apply: optionalID(s.SetCategory, "category_id", "Ticket category", "<#%s>",
				func(gs *domain.GuildSettings) *string { return gs.TicketCategoryID }),
		},
		keySupportRoles: {
			title: "Set Support Roles",
			inputs: []settingInput{{
				id: "role_ids", label: "Role IDs (comma separated)", placeholder: "123456789, 987654321",
				paragraph: true,
				current:   func(gs *domain.GuildSettings) string { return strings.Join(gs.SupportRoleIDs, ", ") },
			}},
			apply: func(ctx context.Context, guildID string, actor domain.Member, values map[string]string) (*domain.GuildSettings, string, error) {
				gs, err := s.SetSupportRoles(ctx, guildID, actor, values["role_ids"])
				if err != nil {
					return nil, "", err
				}
				return gs, "Support roles updated.", nil
			},
		},
		keyClaimRole: {
			title: "Set Claim Role",
			inputs: []settingInput{{
				id: "role_id", label: "Role ID", placeholder: "Leave empty to remove",
				current: func(gs *domain.GuildSettings) string { return deref(gs.ClaimRoleID) },
			}},
			apply: optionalID(s.SetClaimRole, "role_id", "Claim role", "<@&%s>",
				func(gs *domain.GuildSettings) *string { return gs.ClaimRoleID }),
		},
		keyTranscriptChannel: {
			title: "Set Transcript Channel",
			inputs: []settingInput{{
				id: "channel_id", label: "Channel ID", placeholder: "Leave empty to remove",
				current: func(gs *domain.GuildSettings) string { return deref(gs.TranscriptChannelID) },
			}},
			apply: optionalID(s.SetTranscriptChannel, "channel_id", "Transcript channel", "<#%s>",
				func(gs *domain.GuildSettings) *string { return gs.TranscriptChannelID }),
		},
		keyPrefix: {
			title: "Set Ticket Prefix",
			inputs: []settingInput{{
				id: "prefix", label: "Prefix", placeholder: "ticket", required: true, maxLength: 20,
				current: func(gs *domain.GuildSettings) string { return gs.TicketPrefix },
			}},
			apply: func(ctx context.Context, guildID string, actor domain.Member, values map[string]string) (*domain.GuildSettings, string, error) {
				gs, err := s.SetPrefix(ctx, guildID, actor, values["prefix"])
				if err != nil {
					return nil, "", err
				}
				return gs, fmt.Sprintf("Ticket prefix set to `%s`.", gs.TicketPrefix), nil
			},
		},
		keyAutoClose: {
			title: "Set Auto-Close Timer",
			inputs: []settingInput{{
				id: "hours", label: "Hours of inactivity (0 disables)", placeholder: "48", required: true, maxLength: 5,
				current: func(gs *domain.GuildSettings) string {
					if !gs.AutoCloseEnabled() {
						return "0"
					}
					return fmt.Sprint(*gs.AutoCloseAfterHours)
				},
			}},
			apply: func(ctx context.Context, guildID string, actor domain.Member, values map[string]string) (*domain.GuildSettings, string, error) {
				gs, err := s.SetAutoCloseHours(ctx, guildID, actor, values["hours"])
				if err != nil {
					return nil, "", err
				}
				if !gs.AutoCloseEnabled() {
					return gs, "Auto-close timer disabled.", nil
				}
				return gs, fmt.Sprintf("Auto-close timer set to %d hours.", *gs.AutoCloseAfterHours), nil
			},
		},
		keyWorkingHours: {
			title: "Set Working Hours",
			inputs: []settingInput{
				{
					id: "start_hour", label: "Start hour (0-23)", placeholder: "9", required: true, maxLength: 2,
					current: func(gs *domain.GuildSettings) string { return fmt.Sprint(gs.WorkingHours.Start) },
				},
				{
					id: "end_hour", label: "End hour (0-23)", placeholder: "17", required: true, maxLength: 2,
					current: func(gs *domain.GuildSettings) string { return fmt.Sprint(gs.WorkingHours.End) },
				},
			},
			apply: func(ctx context.Context, guildID string, actor domain.Member, values map[string]string) (*domain.GuildSettings, string, error) {
				gs, err := s.SetWorkingHours(ctx, guildID, actor, values["start_hour"], values["end_hour"])
				if err != nil {
					return nil, "", err
				}
				return gs, fmt.Sprintf("Working hours set to %d:00 - %d:00.", gs.WorkingHours.Start, gs.WorkingHours.End), nil
			},
		},
	}
}

func (r *Router) handleSettingsButton(ctx context.Context, i *discordgo.Interaction, member domain.Member, key string) {
	if !auth.IsAdmin(member) {
		r.respondError(i, apperrors.NewForbidden("You need administrator permissions."))
		return
	}

	if tf, ok := toggles[key]; ok {
		gs, err := r.settings.Toggle(ctx, i.GuildID, member, tf.toggle)
		if err != nil {
			r.respondError(i, err)
			return
		}
		state := "disabled"
		if tf.value(gs) {
			state = "enabled"
		}
		r.updatePanel(i, gs, fmt.Sprintf("%s %s.", tf.label, state))
		return
	}

	field, ok := r.settingFields[key]
	if !ok {
		r.respondError(i, apperrors.NewValidationError("Unknown setting.", map[string]any{"key": key}))
		return
	}
	gs, err := r.settings.Get(ctx, i.GuildID)
	if err != nil {
		r.respondError(i, err)
		return
	}

	rows := make([]discordgo.MessageComponent, 0, len(field.inputs))
	for _, in := range field.inputs {
		style := discordgo.TextInputShort
		if in.paragraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    in.id,
				Label:       in.label,
				Style:       style,
				Placeholder: in.placeholder,
				Value:       in.current(gs),
				Required:    in.required,
				MaxLength:   in.maxLength,
			},
		}})
	}
	r.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   settingsPrefix + key + modalSuffix,
			Title:      field.title,
			Components: rows,
		},
	})
}

func (r *Router) submitSetting(ctx context.Context, i *discordgo.Interaction, member domain.Member, key string) {
	field, ok := r.settingFields[key]
	if !ok {
		r.respondError(i, apperrors.NewValidationError("Unknown setting.", map[string]any{"key": key}))
		return
	}
	gs, msg, err := field.apply(ctx, i.GuildID, member, modalValues(i.ModalSubmitData()))
	if err != nil {
		r.respondError(i, err)
		return
	}
	r.updatePanel(i, gs, msg)
}

// updatePanel redraws the settings panel the interaction came from. Without
// a source message the refreshed panel is sent as a new ephemeral reply.
func (r *Router) updatePanel(i *discordgo.Interaction, gs *domain.GuildSettings, msg string) {
	respType := discordgo.InteractionResponseUpdateMessage
	var flags discordgo.MessageFlags
	if i.Message == nil {
		respType = discordgo.InteractionResponseChannelMessageWithSource
		flags = discordgo.MessageFlagsEphemeral
	}
	r.respond(i, &discordgo.InteractionResponse{
		Type: respType,
		Data: &discordgo.InteractionResponseData{
			Content:    "✅ " + msg,
			Embeds:     []*discordgo.MessageEmbed{settingsEmbed(gs, r.now())},
			Components: settingsComponents(gs),
			Flags:      flags,
		},
	})
}
