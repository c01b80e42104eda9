// Package platform describes the chat-platform capabilities the ticket
// lifecycle depends on: channels, permission overwrites, messages, direct
// messages and message history. The discord subpackage implements it over a
// gateway session; platformtest provides an in-memory fake.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/supportdesk/ticket-bot/internal/domain"
)

// ErrChannelNotFound is returned when a channel no longer exists.
var ErrChannelNotFound = errors.New("channel not found")

// Permission is a bit set of channel permissions.
type Permission int64

const (
	PermViewChannel Permission = 1 << iota
	PermSendMessages
	PermReadHistory
	PermAttachFiles
	PermEmbedLinks
	PermManageMessages
)

// Has reports whether every bit of other is set in p.
func (p Permission) Has(other Permission) bool {
	return p&other == other
}

// Common grant sets for ticket channels.
const (
	RequesterPermissions = PermViewChannel | PermSendMessages | PermReadHistory | PermAttachFiles | PermEmbedLinks
	SupportPermissions   = RequesterPermissions | PermManageMessages
	ClaimRolePermissions = PermViewChannel | PermSendMessages | PermReadHistory
)

// OverwriteTarget distinguishes role and member overwrites.
type OverwriteTarget int

const (
	TargetRole OverwriteTarget = iota
	TargetMember
)

// Overwrite is an explicit allow/deny grant for one role or member.
type Overwrite struct {
	TargetID string
	Target   OverwriteTarget
	Allow    Permission
	Deny     Permission
}

// ChannelKind distinguishes the channel types the bot cares about.
type ChannelKind int

const (
	ChannelText ChannelKind = iota
	ChannelCategory
	ChannelOther
)

// Channel is a provisioned or looked-up channel.
type Channel struct {
	ID      string
	GuildID string
	Name    string
	Kind    ChannelKind
}

// ChannelSpec describes a channel to provision.
type ChannelSpec struct {
	GuildID    string
	Name       string
	ParentID   string
	Topic      string
	Overwrites []Overwrite
}

// ButtonStyle maps to the platform's button colors.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is a ticket control rendered under a message.
type Button struct {
	Ref   domain.ActionRef
	Label string
	Style ButtonStyle
}

// EmbedField is a name/value pair inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message block.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
	Timestamp   time.Time
}

// File is an attachment to deliver with a message.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// OutgoingMessage is a message the bot posts.
type OutgoingMessage struct {
	Content    string
	Embeds     []Embed
	ButtonRows [][]Button
	Files      []File
}

// Message is one entry of a channel's history.
type Message struct {
	ID          string
	AuthorID    string
	AuthorName  string
	AuthorBot   bool
	Content     string
	Embeds      []Embed
	Attachments []string
	CreatedAt   time.Time
}

// Platform is the set of outbound side effects the lifecycle engine performs.
type Platform interface {
	CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error)
	Channel(ctx context.Context, channelID string) (*Channel, error)
	DeleteChannel(ctx context.Context, channelID, reason string) error
	RenameChannel(ctx context.Context, channelID, name, reason string) error
	SetOverwrite(ctx context.Context, channelID string, overwrite Overwrite) error
	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) error
	SendDirectMessage(ctx context.Context, userID string, msg OutgoingMessage) error
	// FetchMessages returns up to limit messages older than beforeID, newest
	// first. An empty beforeID starts from the latest message.
	FetchMessages(ctx context.Context, channelID, beforeID string, limit int) ([]Message, error)
}
