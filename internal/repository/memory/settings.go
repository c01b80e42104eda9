package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/repository"
)

// SettingsRepository keeps one settings value per guild.
type SettingsRepository struct {
	mu       sync.Mutex
	settings map[string]domain.GuildSettings
	// FailGet forces GetOrCreate to fail for the listed guilds.
	FailGet map[string]bool
}

// NewSettingsRepository returns an empty store.
func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{
		settings: make(map[string]domain.GuildSettings),
		FailGet:  make(map[string]bool),
	}
}

func (r *SettingsRepository) GetOrCreate(_ context.Context, guildID string, now time.Time) (*domain.GuildSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailGet[guildID] {
		return nil, errors.New("settings store unavailable")
	}
	stored, ok := r.settings[guildID]
	if !ok {
		stored = *domain.NewGuildSettings(guildID, now)
		r.settings[guildID] = cloneSettings(stored)
	}
	out := cloneSettings(stored)
	return &out, nil
}

func (r *SettingsRepository) Save(_ context.Context, settings *domain.GuildSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settings[settings.GuildID]; !ok {
		return pgx.ErrNoRows
	}
	r.settings[settings.GuildID] = cloneSettings(*settings)
	return nil
}

func (r *SettingsRepository) ListAutoCloseEnabled(_ context.Context) ([]domain.GuildSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.GuildSettings
	for _, s := range r.settings {
		if s.AutoCloseEnabled() {
			result = append(result, cloneSettings(s))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GuildID < result[j].GuildID })
	return result, nil
}

// Put stores settings directly, bypassing GetOrCreate.
func (r *SettingsRepository) Put(settings domain.GuildSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[settings.GuildID] = cloneSettings(settings)
}

// Len reports how many guilds have settings.
func (r *SettingsRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.settings)
}

func cloneSettings(s domain.GuildSettings) domain.GuildSettings {
	s.SupportRoleIDs = append([]string{}, s.SupportRoleIDs...)
	s.TicketCategoryID = cloneString(s.TicketCategoryID)
	s.ClaimRoleID = cloneString(s.ClaimRoleID)
	s.TranscriptChannelID = cloneString(s.TranscriptChannelID)
	if s.AutoCloseAfterHours != nil {
		v := *s.AutoCloseAfterHours
		s.AutoCloseAfterHours = &v
	}
	return s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// errDuplicateKey mirrors the error postgres returns for a unique violation.
func errDuplicateKey(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

var _ repository.SettingsRepository = (*SettingsRepository)(nil)
