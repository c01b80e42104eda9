package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	httptransport "github.com/supportdesk/ticket-bot/internal/api/http"
	"github.com/supportdesk/ticket-bot/internal/api/http/handlers"
	"github.com/supportdesk/ticket-bot/internal/api/interaction"
	"github.com/supportdesk/ticket-bot/internal/auth"
	"github.com/supportdesk/ticket-bot/internal/config"
	"github.com/supportdesk/ticket-bot/internal/events"
	"github.com/supportdesk/ticket-bot/internal/observability"
	"github.com/supportdesk/ticket-bot/internal/persistence"
	"github.com/supportdesk/ticket-bot/internal/platform/discord"
	"github.com/supportdesk/ticket-bot/internal/repository"
	"github.com/supportdesk/ticket-bot/internal/repository/memory"
	"github.com/supportdesk/ticket-bot/internal/service"
	"github.com/supportdesk/ticket-bot/internal/transcript"
	"github.com/supportdesk/ticket-bot/internal/worker"
)

const readyTimeout = 30 * time.Second

type repositories struct {
	tickets  repository.TicketRepository
	settings repository.SettingsRepository
	audit    repository.AuditRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	repos := openRepositories(pg, logger)

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	location, _ := cfg.Bot.Location()
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger.Named("events"), metrics).RegisterHandlers()

	auditService := service.NewAuditService(service.AuditDependencies{
		AuditRepo:  repos.audit,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	settingsService := service.NewSettingsService(service.SettingsDependencies{
		SettingsRepo: repos.settings,
		Audit:        auditService,
		Logger:       logger,
	})

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal("failed to create discord session", zap.Error(err))
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   repos.tickets,
		Settings:     settingsService,
		Audit:        auditService,
		IDs:          service.NewIDGenerator(repos.tickets, time.Now),
		Platform:     discord.NewAdapter(session),
		Archiver:     transcript.NewRenderer(location, time.Now),
		Logger:       logger.Named("tickets"),
		Location:     location,
		DeletePause:  cfg.Bot.DeletePause(),
		ReopenWindow: cfg.Bot.ReopenWindow(),
		PageSize:     cfg.Bot.TranscriptPageSize,
	})

	router := interaction.NewRouter(interaction.RouterDependencies{
		Tickets:  ticketService,
		Settings: settingsService,
		Session:  session,
		Logger:   logger.Named("interactions"),
		Metrics:  metrics,
	})
	session.AddHandler(router.HandleInteraction)

	ready := make(chan struct{})
	var readyOnce sync.Once
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		readyOnce.Do(func() {
			ticketService.SetBotUserID(r.User.ID)
			registerCommands(s, r.User.ID, cfg.Discord.CommandGuildID, logger)
			close(ready)
		})
		logger.Info("gateway ready", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
	})

	if err := session.Open(); err != nil {
		logger.Fatal("failed to open gateway", zap.Error(err))
	}
	defer session.Close() //nolint:errcheck

	select {
	case <-ready:
	case <-time.After(readyTimeout):
		logger.Fatal("gateway did not become ready", zap.Duration("timeout", readyTimeout))
	}

	sweeper := worker.NewAutoCloseWorker(worker.AutoCloseDependencies{
		Guilds:    settingsService,
		Closer:    ticketService,
		Watermark: persistence.NewSweepWatermark(redis.Client),
		Metrics:   metrics,
		Logger:    logger.Named("autoclose"),
		Interval:  cfg.Bot.AutoCloseInterval(),
	})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	shutdownAPI := startAdminAPI(cfg, logger, metrics, pg, redis, session, ticketService, settingsService, auditService)

	waitForShutdown(logger)
	cancel()
	shutdownAPI()
	wg.Wait()
}

func openRepositories(pg *persistence.Postgres, logger *zap.Logger) repositories {
	if !pg.Enabled() {
		logger.Warn("POSTGRES_DSN not set; tickets are kept in memory and lost on restart")
		return repositories{
			tickets:  memory.NewTicketRepository(),
			settings: memory.NewSettingsRepository(),
			audit:    memory.NewAuditRepository(),
		}
	}
	return repositories{
		tickets:  repository.NewTicketRepository(pg.Pool),
		settings: repository.NewSettingsRepository(pg.Pool),
		audit:    repository.NewAuditRepository(pg.Pool),
	}
}

func registerCommands(s *discordgo.Session, appID, guildID string, logger *zap.Logger) {
	cmds, err := s.ApplicationCommandBulkOverwrite(appID, guildID, interaction.Commands())
	if err != nil {
		logger.Error("failed to register commands", zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	logger.Info("commands registered", zap.Int("count", len(cmds)), zap.String("guild_id", guildID))
}

func startAdminAPI(
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
	pg *persistence.Postgres,
	redis *persistence.Redis,
	session *discordgo.Session,
	tickets *service.TicketService,
	settings *service.SettingsService,
	audit *service.AuditService,
) func() {
	if !cfg.App.AdminAPIEnabled {
		return func() {}
	}

	deps := map[string]handlers.Pinger{"redis": redis}
	if pg.Enabled() {
		deps["postgres"] = pg
	}
	gateway := func() bool {
		session.RLock()
		defer session.RUnlock()
		return session.DataReady
	}

	app := httptransport.NewApp(logger.Named("http"), metrics, cfg.App.RequestTimeout(), httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, gateway, metrics),
		Guilds:         handlers.NewGuildHandler(tickets, settings, audit),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)),
	})

	go func() {
		logger.Info("admin api listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Error("fiber listen", zap.Error(err))
		}
	}()

	return func() {
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			logger.Warn("admin api shutdown", zap.Error(err))
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
