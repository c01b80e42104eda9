package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("BOT_TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Bot.AutoCloseInterval() != time.Hour {
		t.Errorf("expected hourly sweep, got %s", cfg.Bot.AutoCloseInterval())
	}
	if cfg.Bot.ReopenWindow() != 24*time.Hour {
		t.Errorf("expected 24h reopen window, got %s", cfg.Bot.ReopenWindow())
	}
	if cfg.Bot.DeletePause() != time.Second {
		t.Errorf("expected 1s delete pause, got %s", cfg.Bot.DeletePause())
	}
	if cfg.Bot.TranscriptPageSize != 100 {
		t.Errorf("expected page size 100, got %d", cfg.Bot.TranscriptPageSize)
	}
}

func TestLoad_RequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DISCORD_TOKEN")
	}
}

func TestLoad_RejectsUnknownTimezone(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("BOT_TIMEZONE", "Mars/Olympus_Mons")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("REDIS_DB", "zero")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric REDIS_DB")
	}
}

func TestLoadAuth_WithoutDiscordToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")

	auth := LoadAuth()
	if auth.JWTSecret != "s3cret" || auth.AccessTokenTTLMinutes != 15 {
		t.Errorf("unexpected auth config %+v", auth)
	}
}
