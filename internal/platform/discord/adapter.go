// Package discord implements platform.Platform over a discordgo session.
package discord

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/platform"
)

// Adapter performs lifecycle side effects through the Discord REST API.
type Adapter struct {
	session *discordgo.Session
}

// NewAdapter wraps an authenticated session.
func NewAdapter(session *discordgo.Session) *Adapter {
	return &Adapter{session: session}
}

func (a *Adapter) CreateChannel(ctx context.Context, spec platform.ChannelSpec) (*platform.Channel, error) {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(spec.Overwrites))
	for _, ow := range spec.Overwrites {
		overwrites = append(overwrites, toOverwrite(ow))
	}
	ch, err := a.session.GuildChannelCreateComplex(spec.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.ParentID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return fromChannel(ch), nil
}

func (a *Adapter) Channel(ctx context.Context, channelID string) (*platform.Channel, error) {
	ch, err := a.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return fromChannel(ch), nil
}

func (a *Adapter) DeleteChannel(ctx context.Context, channelID, reason string) error {
	_, err := a.session.ChannelDelete(channelID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return mapError(err)
}

func (a *Adapter) RenameChannel(ctx context.Context, channelID, name, reason string) error {
	_, err := a.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name},
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return mapError(err)
}

func (a *Adapter) SetOverwrite(ctx context.Context, channelID string, overwrite platform.Overwrite) error {
	ow := toOverwrite(overwrite)
	return mapError(a.session.ChannelPermissionSet(channelID, ow.ID, ow.Type, ow.Allow, ow.Deny, discordgo.WithContext(ctx)))
}

func (a *Adapter) SendMessage(ctx context.Context, channelID string, msg platform.OutgoingMessage) error {
	_, err := a.session.ChannelMessageSendComplex(channelID, MessageSend(msg), discordgo.WithContext(ctx))
	return mapError(err)
}

func (a *Adapter) SendDirectMessage(ctx context.Context, userID string, msg platform.OutgoingMessage) error {
	dm, err := a.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return a.SendMessage(ctx, dm.ID, msg)
}

func (a *Adapter) FetchMessages(ctx context.Context, channelID, beforeID string, limit int) ([]platform.Message, error) {
	msgs, err := a.session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]platform.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, fromMessage(m))
	}
	return out, nil
}

// MessageSend converts an outgoing message to its REST payload. Mentions are
// limited to users and roles.
func MessageSend(msg platform.OutgoingMessage) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     Embeds(msg.Embeds),
		Components: Components(msg.ButtonRows),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers, discordgo.AllowedMentionTypeRoles},
		},
	}
	for _, f := range msg.Files {
		send.Files = append(send.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	return send
}

// Embeds converts embeds to their REST form.
func Embeds(embeds []platform.Embed) []*discordgo.MessageEmbed {
	if len(embeds) == 0 {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if e.Footer != "" {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		if !e.Timestamp.IsZero() {
			me.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		out = append(out, me)
	}
	return out
}

// Components renders button rows as action rows keyed by encoded action refs.
func Components(rows [][]platform.Button) []discordgo.MessageComponent {
	var out []discordgo.MessageComponent
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, discordgo.Button{
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
				CustomID: b.Ref.Encode(),
			})
		}
		out = append(out, discordgo.ActionsRow{Components: buttons})
	}
	return out
}

// MemberFromInteraction extracts the acting member. Interactions outside a
// guild carry no member.
func MemberFromInteraction(i *discordgo.Interaction) (domain.Member, bool) {
	if i.Member == nil || i.Member.User == nil {
		return domain.Member{}, false
	}
	perms := i.Member.Permissions
	return domain.Member{
		UserID:   i.Member.User.ID,
		Username: i.Member.User.Username,
		RoleIDs:  i.Member.Roles,
		Admin:    perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageServer != 0,
	}, true
}

func buttonStyle(s platform.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case platform.ButtonSecondary:
		return discordgo.SecondaryButton
	case platform.ButtonSuccess:
		return discordgo.SuccessButton
	case platform.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

var permissionBits = []struct {
	local  platform.Permission
	remote int64
}{
	{platform.PermViewChannel, discordgo.PermissionViewChannel},
	{platform.PermSendMessages, discordgo.PermissionSendMessages},
	{platform.PermReadHistory, discordgo.PermissionReadMessageHistory},
	{platform.PermAttachFiles, discordgo.PermissionAttachFiles},
	{platform.PermEmbedLinks, discordgo.PermissionEmbedLinks},
	{platform.PermManageMessages, discordgo.PermissionManageMessages},
}

func toPermissions(p platform.Permission) int64 {
	var out int64
	for _, bit := range permissionBits {
		if p.Has(bit.local) {
			out |= bit.remote
		}
	}
	return out
}

func toOverwrite(ow platform.Overwrite) *discordgo.PermissionOverwrite {
	kind := discordgo.PermissionOverwriteTypeRole
	if ow.Target == platform.TargetMember {
		kind = discordgo.PermissionOverwriteTypeMember
	}
	return &discordgo.PermissionOverwrite{
		ID:    ow.TargetID,
		Type:  kind,
		Allow: toPermissions(ow.Allow),
		Deny:  toPermissions(ow.Deny),
	}
}

func fromChannel(ch *discordgo.Channel) *platform.Channel {
	kind := platform.ChannelOther
	switch ch.Type {
	case discordgo.ChannelTypeGuildText:
		kind = platform.ChannelText
	case discordgo.ChannelTypeGuildCategory:
		kind = platform.ChannelCategory
	}
	return &platform.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name, Kind: kind}
}

func fromMessage(m *discordgo.Message) platform.Message {
	msg := platform.Message{
		ID:        m.ID,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
		msg.AuthorBot = m.Author.Bot
	}
	for _, e := range m.Embeds {
		if e == nil {
			continue
		}
		embed := platform.Embed{Title: e.Title, Description: e.Description, Color: e.Color}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, platform.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if e.Footer != nil {
			embed.Footer = e.Footer.Text
		}
		msg.Embeds = append(msg.Embeds, embed)
	}
	for _, att := range m.Attachments {
		msg.Attachments = append(msg.Attachments, att.URL)
	}
	return msg
}

// mapError turns unknown-channel responses into platform.ErrChannelNotFound.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			return platform.ErrChannelNotFound
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound && restErr.Message == nil {
			return platform.ErrChannelNotFound
		}
	}
	return err
}

var _ platform.Platform = (*Adapter)(nil)
