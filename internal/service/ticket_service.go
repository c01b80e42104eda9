package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/supportdesk/ticket-bot/internal/auth"
	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/platform"
	"github.com/supportdesk/ticket-bot/internal/repository"
	"github.com/supportdesk/ticket-bot/internal/transcript"
	apperrors "github.com/supportdesk/ticket-bot/pkg/util/errorutil"
)

const (
	defaultReopenWindow = 24 * time.Hour
	maxChannelNameLen   = 100
	usernameSlugLen     = 10
)

var channelNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Archiver turns a closed ticket's history into a deliverable file.
type Archiver interface {
	Archive(ctx context.Context, in transcript.Input) (platform.File, error)
}

// TicketService drives the ticket lifecycle: create, claim, lock, unlock,
// close, reopen and rename, plus the auto-close sweep of one guild.
type TicketService struct {
	tickets      repository.TicketRepository
	settings     *SettingsService
	audit        *AuditService
	ids          *IDGenerator
	platform     platform.Platform
	archiver     Archiver
	logger       *zap.Logger
	now          func() time.Time
	location     *time.Location
	deletePause  time.Duration
	reopenWindow time.Duration
	pageSize     int
	botUserID    string
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	Settings     *SettingsService
	Audit        *AuditService
	IDs          *IDGenerator
	Platform     platform.Platform
	Archiver     Archiver
	Logger       *zap.Logger
	Clock        func() time.Time
	Location     *time.Location
	DeletePause  time.Duration
	ReopenWindow time.Duration
	PageSize     int
	BotUserID    string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:      deps.TicketRepo,
		settings:     deps.Settings,
		audit:        deps.Audit,
		ids:          deps.IDs,
		platform:     deps.Platform,
		archiver:     deps.Archiver,
		logger:       deps.Logger,
		now:          deps.Clock,
		location:     deps.Location,
		deletePause:  deps.DeletePause,
		reopenWindow: deps.ReopenWindow,
		pageSize:     deps.PageSize,
		botUserID:    deps.BotUserID,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.reopenWindow <= 0 {
		s.reopenWindow = defaultReopenWindow
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultHistoryPageSize
	}
	if s.ids == nil {
		s.ids = NewIDGenerator(s.tickets, s.now)
	}
	return s
}

// SetBotUserID records the identity used for system-driven transitions. It
// is only known once the gateway session is ready.
func (s *TicketService) SetBotUserID(id string) {
	s.botUserID = id
}

// CreateTicket opens a ticket of the given type for actor.
func (s *TicketService) CreateTicket(ctx context.Context, guildID string, actor domain.Member, ticketType domain.TicketType) (*domain.Ticket, error) {
	if !ticketType.Valid() {
		return nil, apperrors.NewValidationError("Invalid ticket type selected.", map[string]any{"type": string(ticketType)})
	}
	settings, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}

	// Best effort: two selections racing past this read can both create a
	// ticket. Claim and close are the guarded transitions.
	if !settings.AllowMultipleTickets {
		open, err := s.tickets.ListOpenForUser(ctx, guildID, actor.UserID)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if len(open) > 0 {
			return nil, apperrors.NewDuplicateTicket(open[0].ChannelID)
		}
	}

	ticketID, err := s.ids.Generate(ctx, guildID, settings.TicketPrefix)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("generate ticket id: %w", err))
	}

	channel, err := s.platform.CreateChannel(ctx, platform.ChannelSpec{
		GuildID:    guildID,
		Name:       channelName(settings.TicketPrefix, actor.Username, ticketID),
		ParentID:   s.resolveCategory(ctx, settings),
		Topic:      fmt.Sprintf("Ticket %s - %s", ticketID, actor.Username),
		Overwrites: ticketOverwrites(guildID, actor.UserID, settings),
	})
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("provision channel: %w", err))
	}

	now := s.now()
	ticket := &domain.Ticket{
		ID:        ticketID,
		GuildID:   guildID,
		ChannelID: channel.ID,
		UserID:    actor.UserID,
		Type:      ticketType,
		Status:    domain.TicketStatusOpen,
		CreatedAt: now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		if delErr := s.platform.DeleteChannel(ctx, channel.ID, "Ticket could not be saved"); delErr != nil {
			s.logger.Error("remove orphaned ticket channel", zap.String("channel_id", channel.ID), zap.Error(delErr))
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("persist ticket: %w", err))
	}

	s.post(ctx, ticket, createdNotice(ticket, now))
	s.post(ctx, ticket, platform.OutgoingMessage{Embeds: []platform.Embed{withTimestamp(AutoResponse(ticketType), now)}})
	if !settings.WorkingHours.Contains(now.In(s.location).Hour()) {
		s.post(ctx, ticket, outOfHoursNotice(now))
	}
	s.post(ctx, ticket, staffPing(ticket, settings))

	s.record(ctx, ticket, domain.AuditTicketCreated, actor.UserID, map[string]any{
		"type":      string(ticketType),
		"channelId": channel.ID,
	})
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("guild_id", guildID),
		zap.String("user_id", actor.UserID),
		zap.String("type", string(ticketType)))
	return ticket, nil
}

// Claim assigns an unclaimed ticket to actor.
func (s *TicketService) Claim(ctx context.Context, guildID, ticketID string, actor domain.Member) (*domain.Ticket, error) {
	ticket, settings, err := s.load(ctx, guildID, ticketID)
	if err != nil {
		return nil, err
	}
	if !auth.CanClaim(actor, settings) {
		return nil, errNoPermission("claim")
	}
	if ticket.Claimed() {
		return nil, errAlreadyClaimed()
	}

	now := s.now()
	claimed, err := s.tickets.ClaimIfUnclaimed(ctx, ticket.ID, actor.UserID, now)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !claimed {
		return nil, errAlreadyClaimed()
	}
	ticket.ClaimedBy = &actor.UserID
	ticket.ClaimedAt = &now

	s.post(ctx, ticket, claimedNotice(actor.UserID, now))
	s.record(ctx, ticket, domain.AuditTicketClaimed, actor.UserID, nil)
	return ticket, nil
}

// Lock stops the requester from sending messages.
func (s *TicketService) Lock(ctx context.Context, guildID, ticketID string, actor domain.Member) (*domain.Ticket, error) {
	ticket, settings, err := s.load(ctx, guildID, ticketID)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageTickets(actor, settings) {
		return nil, errNoPermission("lock")
	}
	switch ticket.Status {
	case domain.TicketStatusClosed:
		return nil, apperrors.NewConflict("This ticket is closed.", nil)
	case domain.TicketStatusLocked:
		return nil, apperrors.NewConflict("This ticket is already locked.", nil)
	}

	locked, err := s.tickets.TransitionStatus(ctx, ticket.ID, domain.TicketStatusOpen, domain.TicketStatusLocked)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !locked {
		if current := s.reload(ctx, ticket); current.Status == domain.TicketStatusClosed {
			return nil, apperrors.NewConflict("This ticket is closed.", nil)
		}
		return nil, apperrors.NewConflict("This ticket is already locked.", nil)
	}
	ticket = s.reload(ctx, ticket)
	s.setRequesterAccess(ctx, ticket, platform.Overwrite{
		Allow: platform.RequesterPermissions &^ platform.PermSendMessages,
		Deny:  platform.PermSendMessages,
	})

	s.post(ctx, ticket, lockedNotice(actor.UserID, s.now()))
	s.record(ctx, ticket, domain.AuditTicketLocked, actor.UserID, nil)
	return ticket, nil
}

// Unlock lets the requester send messages again.
func (s *TicketService) Unlock(ctx context.Context, guildID, ticketID string, actor domain.Member) (*domain.Ticket, error) {
	ticket, settings, err := s.load(ctx, guildID, ticketID)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageTickets(actor, settings) {
		return nil, errNoPermission("unlock")
	}
	if ticket.Status != domain.TicketStatusLocked {
		return nil, apperrors.NewConflict("This ticket is not locked.", nil)
	}

	unlocked, err := s.tickets.TransitionStatus(ctx, ticket.ID, domain.TicketStatusLocked, domain.TicketStatusOpen)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !unlocked {
		return nil, apperrors.NewConflict("This ticket is not locked.", nil)
	}
	ticket = s.reload(ctx, ticket)
	s.setRequesterAccess(ctx, ticket, platform.Overwrite{Allow: platform.RequesterPermissions})

	s.post(ctx, ticket, unlockedNotice(actor.UserID, s.now()))
	s.record(ctx, ticket, domain.AuditTicketUnlocked, actor.UserID, nil)
	return ticket, nil
}

// Close closes a live ticket, archives its transcript and removes the channel.
func (s *TicketService) Close(ctx context.Context, guildID, ticketID string, actor domain.Member) (*domain.Ticket, error) {
	ticket, settings, err := s.load(ctx, guildID, ticketID)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageTickets(actor, settings) {
		return nil, errNoPermission("close")
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, errAlreadyClosed()
	}
	if err := s.finishClose(ctx, ticket, settings, closeRequest{
		actorID: actor.UserID,
		notice:  closedNotice(actor.UserID, s.now()),
	}); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Reopen restores a ticket closed within the reopen window.
func (s *TicketService) Reopen(ctx context.Context, guildID, ticketID string, actor domain.Member) (*domain.Ticket, error) {
	ticket, settings, err := s.load(ctx, guildID, ticketID)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageTickets(actor, settings) {
		return nil, errNoPermission("reopen")
	}
	if ticket.Status != domain.TicketStatusClosed || ticket.ClosedAt == nil {
		return nil, apperrors.NewConflict("This ticket is not closed.", nil)
	}
	now := s.now()
	if now.Sub(*ticket.ClosedAt) > s.reopenWindow {
		return nil, apperrors.NewReopenWindowExceeded(int(s.reopenWindow / time.Hour))
	}

	reopened, err := s.tickets.ReopenIfClosedAt(ctx, ticket.ID, *ticket.ClosedAt)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !reopened {
		return nil, apperrors.NewConflict("This ticket is not closed.", nil)
	}
	ticket = s.reload(ctx, ticket)
	s.setRequesterAccess(ctx, ticket, platform.Overwrite{Allow: platform.RequesterPermissions})

	s.post(ctx, ticket, reopenedNotice(actor.UserID, now))
	s.record(ctx, ticket, domain.AuditTicketReopened, actor.UserID, nil)
	return ticket, nil
}

// reload rereads ticket after a guarded write so callers see fields changed
// by concurrent transitions. The snapshot is kept if the read fails.
func (s *TicketService) reload(ctx context.Context, ticket *domain.Ticket) *domain.Ticket {
	current, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		s.logger.Warn("reload ticket", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return ticket
	}
	return current
}

// PrepareRename checks actor may rename the ticket channel and returns its
// current name for prefilling the rename form.
func (s *TicketService) PrepareRename(ctx context.Context, guildID, ticketID string, actor domain.Member) (string, error) {
	ticket, settings, err := s.load(ctx, guildID, ticketID)
	if err != nil {
		return "", err
	}
	if !auth.CanManageTickets(actor, settings) {
		return "", errNoPermission("rename")
	}
	channel, err := s.platform.Channel(ctx, ticket.ChannelID)
	if err != nil {
		return "", channelError(err)
	}
	return channel.Name, nil
}

// Rename renames the ticket channel. Input is trimmed and lower-cased first.
func (s *TicketService) Rename(ctx context.Context, guildID, ticketID string, actor domain.Member, rawName string) (string, error) {
	ticket, settings, err := s.load(ctx, guildID, ticketID)
	if err != nil {
		return "", err
	}
	if !auth.CanManageTickets(actor, settings) {
		return "", errNoPermission("rename")
	}
	newName, err := NormalizeChannelName(rawName)
	if err != nil {
		return "", err
	}

	channel, err := s.platform.Channel(ctx, ticket.ChannelID)
	if err != nil {
		return "", channelError(err)
	}
	oldName := channel.Name
	if err := s.platform.RenameChannel(ctx, ticket.ChannelID, newName, "Renamed by "+actor.Username); err != nil {
		return "", channelError(err)
	}

	s.post(ctx, ticket, renamedNotice(oldName, newName, actor.UserID, s.now()))
	s.record(ctx, ticket, domain.AuditTicketRenamed, actor.UserID, map[string]any{
		"oldName": oldName,
		"newName": newName,
	})
	return newName, nil
}

// NormalizeChannelName trims and lower-cases raw and checks it is a valid
// channel name, naming the violated rule on failure.
func NormalizeChannelName(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if n := utf8.RuneCountInString(name); n < 1 || n > maxChannelNameLen {
		return "", apperrors.NewValidationError("Channel name must be between 1 and 100 characters.", nil)
	}
	if !channelNamePattern.MatchString(name) {
		return "", apperrors.NewValidationError("Invalid channel name. Use only lowercase letters, numbers, hyphens, and underscores.", nil)
	}
	return name, nil
}

// GetTicket returns one ticket of the guild.
func (s *TicketService) GetTicket(ctx context.Context, guildID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errTicketNotFound(ticketID)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if ticket.GuildID != guildID {
		return nil, errTicketNotFound(ticketID)
	}
	return ticket, nil
}

// TicketByChannel resolves the ticket owning a channel.
func (s *TicketService) TicketByChannel(ctx context.Context, channelID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByChannelID(ctx, channelID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Ticket", map[string]any{"channel_id": channelID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return ticket, nil
}

// TicketStats summarizes a guild's tickets.
type TicketStats struct {
	Total       int    `json:"total"`
	Open        int    `json:"open"`
	Closed      int    `json:"closed"`
	Locked      int    `json:"locked"`
	Claimed     int    `json:"claimed"`
	AvgResponse string `json:"avg_response_time"`
}

// Stats counts tickets by status, optionally restricted to one claimant. The
// average response time is the mean delay between creation and claim.
func (s *TicketService) Stats(ctx context.Context, guildID string, claimedBy *string) (*TicketStats, error) {
	tickets, err := s.tickets.ListForStats(ctx, guildID, claimedBy)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	stats := &TicketStats{Total: len(tickets)}
	var total time.Duration
	for _, t := range tickets {
		switch t.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusClosed:
			stats.Closed++
		case domain.TicketStatusLocked:
			stats.Locked++
		}
		if t.ClaimedBy != nil && t.ClaimedAt != nil {
			stats.Claimed++
			total += t.ClaimedAt.Sub(t.CreatedAt)
		}
	}
	stats.AvgResponse = formatResponseTime(total, stats.Claimed)
	return stats, nil
}

func formatResponseTime(total time.Duration, count int) string {
	if count == 0 {
		return "N/A"
	}
	minutes := int(math.Round(total.Minutes() / float64(count)))
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// SweepResult counts the outcome of one guild's auto-close pass.
type SweepResult struct {
	Closed  int
	Skipped int
	Failed  int
}

// AutoCloseGuild closes every live ticket older than the guild's threshold.
// Each ticket is its own failure boundary.
func (s *TicketService) AutoCloseGuild(ctx context.Context, settings domain.GuildSettings) (SweepResult, error) {
	var result SweepResult
	if !settings.AutoCloseEnabled() {
		return result, nil
	}
	hours := *settings.AutoCloseAfterHours
	cutoff := s.now().Add(-time.Duration(hours) * time.Hour)

	stale, err := s.tickets.ListStale(ctx, settings.GuildID, cutoff)
	if err != nil {
		return result, fmt.Errorf("list stale tickets: %w", err)
	}

	for i := range stale {
		ticket := stale[i]
		err := s.autoCloseOne(ctx, &ticket, &settings, hours)
		switch {
		case err == nil:
			result.Closed++
		case errors.Is(err, errAlreadyClosed()):
			result.Skipped++
		default:
			result.Failed++
			s.logger.Error("auto-close ticket",
				zap.String("guild_id", settings.GuildID),
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
		}
	}
	return result, nil
}

func (s *TicketService) autoCloseOne(ctx context.Context, ticket *domain.Ticket, settings *domain.GuildSettings, hours int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("auto-close panic: %v", r)
		}
	}()

	_, chErr := s.platform.Channel(ctx, ticket.ChannelID)
	if chErr != nil {
		s.logger.Info("auto-close: channel unavailable, closing record only",
			zap.String("ticket_id", ticket.ID),
			zap.String("channel_id", ticket.ChannelID),
			zap.Error(chErr))
	}
	return s.finishClose(ctx, ticket, settings, closeRequest{
		actorID:     s.botUserID,
		details:     map[string]any{"autoClose": true, "hours": hours},
		notice:      autoClosedNotice(hours, s.now()),
		channelGone: chErr != nil,
	})
}

type closeRequest struct {
	actorID     string
	details     map[string]any
	notice      platform.OutgoingMessage
	channelGone bool
}

// finishClose performs the guarded close and then every side effect. Only the
// caller that wins the guarded update proceeds past it.
func (s *TicketService) finishClose(ctx context.Context, ticket *domain.Ticket, settings *domain.GuildSettings, req closeRequest) error {
	now := s.now()
	closed, err := s.tickets.CloseIfNotClosed(ctx, ticket.ID, now)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !closed {
		return errAlreadyClosed()
	}
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now
	s.record(ctx, ticket, domain.AuditTicketClosed, req.actorID, req.details)

	if req.channelGone {
		return nil
	}
	if settings.EnableTranscripts {
		s.deliverTranscript(ctx, ticket, settings)
	}
	s.post(ctx, ticket, req.notice)
	s.pause(ctx)

	if err := s.platform.DeleteChannel(ctx, ticket.ChannelID, "Ticket closed"); err != nil {
		if errors.Is(err, platform.ErrChannelNotFound) {
			return nil
		}
		s.logger.Warn("delete ticket channel; revoking requester access instead",
			zap.String("ticket_id", ticket.ID),
			zap.String("channel_id", ticket.ChannelID),
			zap.Error(err))
		s.setRequesterAccess(ctx, ticket, platform.Overwrite{Deny: platform.PermViewChannel})
		s.post(ctx, ticket, deleteFailedNotice(ticket, s.now()))
	}
	s.logger.Info("ticket closed", zap.String("ticket_id", ticket.ID), zap.String("actor_id", req.actorID))
	return nil
}

func (s *TicketService) deliverTranscript(ctx context.Context, ticket *domain.Ticket, settings *domain.GuildSettings) {
	if s.archiver == nil {
		return
	}
	log := s.logger.With(zap.String("ticket_id", ticket.ID))

	channel, err := s.platform.Channel(ctx, ticket.ChannelID)
	if err != nil {
		log.Warn("transcript: load channel", zap.Error(err))
		return
	}
	messages, err := collectHistory(ctx, s.platform, ticket.ChannelID, s.pageSize)
	if err != nil {
		log.Warn("transcript: fetch history", zap.Error(err))
		return
	}
	if len(messages) == 0 {
		return
	}
	file, err := s.archiver.Archive(ctx, transcript.Input{Channel: *channel, Ticket: *ticket, Messages: messages})
	if err != nil {
		log.Warn("transcript: render", zap.Error(err))
		return
	}

	if settings.TranscriptChannelID != nil {
		target := *settings.TranscriptChannelID
		if _, err := s.platform.Channel(ctx, target); err != nil {
			log.Warn("transcript: target channel unavailable", zap.String("channel_id", target), zap.Error(err))
		} else if err := s.platform.SendMessage(ctx, target, platform.OutgoingMessage{
			Content: fmt.Sprintf("Transcript for ticket %s %s", ticket.ID, mention(ticket.UserID)),
			Files:   []platform.File{file},
		}); err != nil {
			log.Warn("transcript: post to channel", zap.String("channel_id", target), zap.Error(err))
		}
	}

	if err := s.platform.SendDirectMessage(ctx, ticket.UserID, platform.OutgoingMessage{
		Content: fmt.Sprintf("Your ticket %s has been closed. Here's the transcript:", ticket.ID),
		Files:   []platform.File{file},
	}); err != nil {
		log.Debug("transcript: direct message refused", zap.String("user_id", ticket.UserID), zap.Error(err))
	}
}

func (s *TicketService) load(ctx context.Context, guildID, ticketID string) (*domain.Ticket, *domain.GuildSettings, error) {
	ticket, err := s.GetTicket(ctx, guildID, ticketID)
	if err != nil {
		return nil, nil, err
	}
	settings, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, settings, nil
}

// resolveCategory returns the configured category only if it still exists
// and is a category.
func (s *TicketService) resolveCategory(ctx context.Context, settings *domain.GuildSettings) string {
	if settings.TicketCategoryID == nil {
		return ""
	}
	ch, err := s.platform.Channel(ctx, *settings.TicketCategoryID)
	if err != nil || ch.Kind != platform.ChannelCategory {
		s.logger.Debug("ticket category unusable",
			zap.String("guild_id", settings.GuildID),
			zap.String("category_id", *settings.TicketCategoryID),
			zap.Error(err))
		return ""
	}
	return ch.ID
}

func (s *TicketService) post(ctx context.Context, ticket *domain.Ticket, msg platform.OutgoingMessage) {
	if err := s.platform.SendMessage(ctx, ticket.ChannelID, msg); err != nil {
		s.logger.Warn("post ticket message",
			zap.String("ticket_id", ticket.ID),
			zap.String("channel_id", ticket.ChannelID),
			zap.Error(err))
	}
}

func (s *TicketService) setRequesterAccess(ctx context.Context, ticket *domain.Ticket, overwrite platform.Overwrite) {
	overwrite.TargetID = ticket.UserID
	overwrite.Target = platform.TargetMember
	if err := s.platform.SetOverwrite(ctx, ticket.ChannelID, overwrite); err != nil {
		s.logger.Warn("update requester permissions",
			zap.String("ticket_id", ticket.ID),
			zap.String("channel_id", ticket.ChannelID),
			zap.Error(err))
	}
}

func (s *TicketService) record(ctx context.Context, ticket *domain.Ticket, action domain.AuditAction, actorID string, details map[string]any) {
	id := ticket.ID
	if err := s.audit.Record(ctx, ticket.GuildID, action, actorID, &id, details); err != nil {
		s.logger.Error("record audit entry",
			zap.String("ticket_id", ticket.ID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func (s *TicketService) pause(ctx context.Context) {
	if s.deletePause <= 0 {
		return
	}
	timer := time.NewTimer(s.deletePause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func ticketOverwrites(guildID, userID string, settings *domain.GuildSettings) []platform.Overwrite {
	overwrites := []platform.Overwrite{
		// The @everyone role shares the guild's id.
		{TargetID: guildID, Target: platform.TargetRole, Deny: platform.PermViewChannel},
		{TargetID: userID, Target: platform.TargetMember, Allow: platform.RequesterPermissions},
	}
	for _, roleID := range settings.SupportRoleIDs {
		overwrites = append(overwrites, platform.Overwrite{TargetID: roleID, Target: platform.TargetRole, Allow: platform.SupportPermissions})
	}
	if settings.ClaimRoleID != nil && !settings.IsSupportRole(*settings.ClaimRoleID) {
		overwrites = append(overwrites, platform.Overwrite{TargetID: *settings.ClaimRoleID, Target: platform.TargetRole, Allow: platform.ClaimRolePermissions})
	}
	return overwrites
}

func channelName(prefix, username, ticketID string) string {
	token := strings.TrimPrefix(ticketID, prefix+"-")
	return strings.ToLower(prefix + "-" + usernameSlug(username) + "-" + token)
}

func usernameSlug(username string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.ToLower(username) {
		if n == usernameSlugLen {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
			n++
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

func withTimestamp(e platform.Embed, at time.Time) platform.Embed {
	e.Timestamp = at
	return e
}

func channelError(err error) error {
	if errors.Is(err, platform.ErrChannelNotFound) {
		return apperrors.NewNotFound("Ticket channel", nil)
	}
	return apperrors.NewInternalError(err)
}

func errTicketNotFound(ticketID string) error {
	return apperrors.NewNotFound("Ticket", map[string]any{"ticket_id": ticketID})
}

func errAlreadyClaimed() error {
	return apperrors.NewConflict("This ticket is already claimed.", nil)
}

func errAlreadyClosed() error {
	return apperrors.NewConflict("This ticket is already closed.", nil)
}

func errNoPermission(verb string) error {
	return apperrors.NewForbidden("You don't have permission to " + verb + " tickets.")
}
