package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Discord  DiscordConfig
	Bot      BotConfig
}

// AppConfig controls the admin HTTP server.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	AdminAPIEnabled       bool
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is "json" for production or "console" for local runs.
	Format string
}

// AuthConfig defines admin API token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// DiscordConfig holds gateway credentials.
type DiscordConfig struct {
	Token string
	// CommandGuildID registers slash commands on a single guild when set,
	// which propagates instantly; empty registers them globally.
	CommandGuildID string
}

// BotConfig tunes the ticket lifecycle.
type BotConfig struct {
	Timezone                 string
	AutoCloseIntervalMinutes int
	ReopenWindowHours        int
	DeletePauseMillis        int
	TranscriptPageSize       int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			AdminAPIEnabled:       getEnvAsBool("ADMIN_API_ENABLED", true),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: loadAuth(),
		Discord: DiscordConfig{
			Token:          os.Getenv("DISCORD_TOKEN"),
			CommandGuildID: os.Getenv("DISCORD_COMMAND_GUILD_ID"),
		},
		Bot: BotConfig{
			Timezone:                 getEnv("BOT_TIMEZONE", "Local"),
			AutoCloseIntervalMinutes: getEnvAsInt("BOT_AUTO_CLOSE_INTERVAL_MINUTES", 60),
			ReopenWindowHours:        getEnvAsInt("BOT_REOPEN_WINDOW_HOURS", 24),
			DeletePauseMillis:        getEnvAsInt("BOT_DELETE_PAUSE_MILLIS", 1000),
			TranscriptPageSize:       getEnvAsInt("BOT_TRANSCRIPT_PAGE_SIZE", 100),
		},
	}

	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is required")
	}
	if _, err := cfg.Bot.Location(); err != nil {
		return nil, fmt.Errorf("invalid BOT_TIMEZONE: %w", err)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the timezone used for working-hours checks.
func (b BotConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}

// AutoCloseInterval returns the sweep period.
func (b BotConfig) AutoCloseInterval() time.Duration {
	if b.AutoCloseIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(b.AutoCloseIntervalMinutes) * time.Minute
}

// ReopenWindow returns the grace period after close during which reopen is allowed.
func (b BotConfig) ReopenWindow() time.Duration {
	if b.ReopenWindowHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.ReopenWindowHours) * time.Hour
}

// DeletePause returns the pause inserted before channel deletion.
func (b BotConfig) DeletePause() time.Duration {
	if b.DeletePauseMillis < 0 {
		return 0
	}
	return time.Duration(b.DeletePauseMillis) * time.Millisecond
}

// LoadAuth reads only the admin token settings, for tools that never
// connect to Discord.
func LoadAuth() AuthConfig {
	_ = godotenv.Load()
	return loadAuth()
}

func loadAuth() AuthConfig {
	return AuthConfig{
		JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
		AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
