package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/supportdesk/ticket-bot/internal/auth"
	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/repository"
	apperrors "github.com/supportdesk/ticket-bot/pkg/util/errorutil"
)

// Setting names recorded in settings_updated audit details.
const (
	SettingCategory          = "ticketCategoryId"
	SettingSupportRoles      = "supportRoleIds"
	SettingClaimRole         = "claimRoleId"
	SettingTranscriptChannel = "transcriptChannelId"
	SettingPrefix            = "ticketPrefix"
	SettingAutoClose         = "autoCloseAfterHours"
	SettingWorkingHours      = "workingHours"
	SettingMultipleTickets   = "allowMultipleTickets"
	SettingClaimSystem       = "enableClaimSystem"
	SettingTranscripts       = "enableTranscripts"
)

const maxPrefixLength = 20

// Toggle names one of the boolean settings.
type Toggle string

const (
	ToggleMultipleTickets Toggle = SettingMultipleTickets
	ToggleClaimSystem     Toggle = SettingClaimSystem
	ToggleTranscripts     Toggle = SettingTranscripts
)

// SettingsService reads and edits per-guild configuration.
type SettingsService struct {
	repo   repository.SettingsRepository
	audit  *AuditService
	logger *zap.Logger
	now    func() time.Time
}

// SettingsDependencies bundles collaborators for the settings service.
type SettingsDependencies struct {
	SettingsRepo repository.SettingsRepository
	Audit        *AuditService
	Logger       *zap.Logger
	Clock        func() time.Time
}

// NewSettingsService constructs the service.
func NewSettingsService(deps SettingsDependencies) *SettingsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &SettingsService{repo: deps.SettingsRepo, audit: deps.Audit, logger: logger, now: now}
}

// Get returns the guild's settings, creating defaults on first access.
func (s *SettingsService) Get(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	settings, err := s.repo.GetOrCreate(ctx, guildID, s.now())
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return settings, nil
}

// ListAutoClose returns every guild with auto-close enabled.
func (s *SettingsService) ListAutoClose(ctx context.Context) ([]domain.GuildSettings, error) {
	return s.repo.ListAutoCloseEnabled(ctx)
}

// SetCategory sets or clears (empty input) the category new ticket channels go under.
func (s *SettingsService) SetCategory(ctx context.Context, guildID string, actor domain.Member, raw string) (*domain.GuildSettings, error) {
	id, err := optionalSnowflake(raw, "category")
	if err != nil {
		return nil, err
	}
	return s.update(ctx, guildID, actor, SettingCategory, valueOrNil(id), func(gs *domain.GuildSettings) {
		gs.TicketCategoryID = id
	})
}

// SetSupportRoles replaces the support roles from a comma-separated list.
func (s *SettingsService) SetSupportRoles(ctx context.Context, guildID string, actor domain.Member, raw string) (*domain.GuildSettings, error) {
	roles := []string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !isSnowflake(part) {
			return nil, apperrors.NewValidationError("Malformed role list. Enter role IDs separated by commas.", map[string]any{"value": part})
		}
		roles = append(roles, part)
	}
	return s.update(ctx, guildID, actor, SettingSupportRoles, roles, func(gs *domain.GuildSettings) {
		gs.SupportRoleIDs = roles
	})
}

// SetClaimRole sets or clears the role allowed to claim without support rights.
func (s *SettingsService) SetClaimRole(ctx context.Context, guildID string, actor domain.Member, raw string) (*domain.GuildSettings, error) {
	id, err := optionalSnowflake(raw, "role")
	if err != nil {
		return nil, err
	}
	return s.update(ctx, guildID, actor, SettingClaimRole, valueOrNil(id), func(gs *domain.GuildSettings) {
		gs.ClaimRoleID = id
	})
}

// SetTranscriptChannel sets or clears the channel transcripts are posted to.
func (s *SettingsService) SetTranscriptChannel(ctx context.Context, guildID string, actor domain.Member, raw string) (*domain.GuildSettings, error) {
	id, err := optionalSnowflake(raw, "channel")
	if err != nil {
		return nil, err
	}
	return s.update(ctx, guildID, actor, SettingTranscriptChannel, valueOrNil(id), func(gs *domain.GuildSettings) {
		gs.TranscriptChannelID = id
	})
}

// SetPrefix sets the ticket id and channel name prefix.
func (s *SettingsService) SetPrefix(ctx context.Context, guildID string, actor domain.Member, raw string) (*domain.GuildSettings, error) {
	prefix := strings.TrimSpace(raw)
	if len(prefix) < 1 || len(prefix) > maxPrefixLength {
		return nil, apperrors.NewValidationError("Prefix must be between 1 and 20 characters.", nil)
	}
	return s.update(ctx, guildID, actor, SettingPrefix, prefix, func(gs *domain.GuildSettings) {
		gs.TicketPrefix = prefix
	})
}

// SetAutoCloseHours sets the sweep threshold; zero disables auto-close.
func (s *SettingsService) SetAutoCloseHours(ctx context.Context, guildID string, actor domain.Member, raw string) (*domain.GuildSettings, error) {
	hours, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || hours < 0 {
		return nil, apperrors.NewValidationError("Invalid hours value. Must be a number >= 0.", nil)
	}
	var stored *int
	if hours > 0 {
		stored = &hours
	}
	return s.update(ctx, guildID, actor, SettingAutoClose, valueOrNil(stored), func(gs *domain.GuildSettings) {
		gs.AutoCloseAfterHours = stored
	})
}

// SetWorkingHours sets the local-time support window.
func (s *SettingsService) SetWorkingHours(ctx context.Context, guildID string, actor domain.Member, rawStart, rawEnd string) (*domain.GuildSettings, error) {
	start, errStart := strconv.Atoi(strings.TrimSpace(rawStart))
	end, errEnd := strconv.Atoi(strings.TrimSpace(rawEnd))
	if errStart != nil || errEnd != nil || !validHour(start) || !validHour(end) {
		return nil, apperrors.NewValidationError("Invalid hours. Must be between 0 and 23.", nil)
	}
	hours := domain.WorkingHours{Start: start, End: end}
	return s.update(ctx, guildID, actor, SettingWorkingHours, map[string]int{"start": start, "end": end}, func(gs *domain.GuildSettings) {
		gs.WorkingHours = hours
	})
}

// Toggle flips one boolean setting.
func (s *SettingsService) Toggle(ctx context.Context, guildID string, actor domain.Member, toggle Toggle) (*domain.GuildSettings, error) {
	if !auth.IsAdmin(actor) {
		return nil, errAdminRequired()
	}
	current, err := s.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	var next bool
	switch toggle {
	case ToggleMultipleTickets:
		next = !current.AllowMultipleTickets
	case ToggleClaimSystem:
		next = !current.EnableClaimSystem
	case ToggleTranscripts:
		next = !current.EnableTranscripts
	default:
		return nil, apperrors.NewValidationError("Unknown setting.", map[string]any{"toggle": string(toggle)})
	}
	return s.update(ctx, guildID, actor, string(toggle), next, func(gs *domain.GuildSettings) {
		switch toggle {
		case ToggleMultipleTickets:
			gs.AllowMultipleTickets = next
		case ToggleClaimSystem:
			gs.EnableClaimSystem = next
		case ToggleTranscripts:
			gs.EnableTranscripts = next
		}
	})
}

func (s *SettingsService) update(ctx context.Context, guildID string, actor domain.Member, field string, value any, mutate func(*domain.GuildSettings)) (*domain.GuildSettings, error) {
	if !auth.IsAdmin(actor) {
		return nil, errAdminRequired()
	}
	settings, err := s.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	mutate(settings)
	settings.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if err := s.audit.Record(ctx, guildID, domain.AuditSettingsUpdated, actor.UserID, nil, map[string]any{
		"field": field,
		"value": value,
	}); err != nil {
		s.logger.Warn("record settings audit", zap.String("guild_id", guildID), zap.String("field", field), zap.Error(err))
	}
	s.logger.Info("settings updated", zap.String("guild_id", guildID), zap.String("field", field), zap.String("actor_id", actor.UserID))
	return settings, nil
}

func errAdminRequired() error {
	return apperrors.NewForbidden("You need administrator permissions.")
}

func optionalSnowflake(raw, kind string) (*string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return nil, nil
	}
	if !isSnowflake(id) {
		return nil, apperrors.NewValidationError("Invalid "+kind+" ID.", map[string]any{"value": id})
	}
	return &id, nil
}

func isSnowflake(id string) bool {
	parsed, err := snowflake.ParseString(id)
	return err == nil && parsed.Int64() > 0
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}

func valueOrNil[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
