package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/events"
	"github.com/supportdesk/ticket-bot/internal/platform"
	"github.com/supportdesk/ticket-bot/internal/platform/platformtest"
	"github.com/supportdesk/ticket-bot/internal/repository/memory"
	"github.com/supportdesk/ticket-bot/internal/transcript"
)

const (
	testGuild       = "guild-1"
	testSupportRole = "111"
	testBotID       = "bot-1"
)

var (
	admin   = domain.Member{UserID: "admin-1", Username: "admin", Admin: true}
	staffA  = domain.Member{UserID: "staff-a", Username: "staffa", RoleIDs: []string{testSupportRole}}
	alice   = domain.Member{UserID: "user-alice", Username: "Alice"}
	bob     = domain.Member{UserID: "user-bob", Username: "bob"}
	visitor = domain.Member{UserID: "user-visitor", Username: "visitor"}
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingArchiver struct {
	mu     sync.Mutex
	inputs []transcript.Input
}

func (a *recordingArchiver) Archive(_ context.Context, in transcript.Input) (platform.File, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inputs = append(a.inputs, in)
	return platform.File{Name: "transcript-" + in.Ticket.ID + ".html", ContentType: "text/html", Data: []byte("<html></html>")}, nil
}

type testEnv struct {
	svc          *TicketService
	settings     *SettingsService
	audit        *AuditService
	tickets      *memory.TicketRepository
	settingsRepo *memory.SettingsRepository
	auditRepo    *memory.AuditRepository
	platform     *platformtest.Fake
	clock        *testClock
	archiver     *recordingArchiver
	published    *eventRecorder
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// setupTestTicketService wires the services over in-memory stores. The guild
// has one support role and the clock sits inside working hours.
func setupTestTicketService(t *testing.T) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	tickets := memory.NewTicketRepository()
	settingsRepo := memory.NewSettingsRepository()
	auditRepo := memory.NewAuditRepository()
	fake := platformtest.New()
	archiver := &recordingArchiver{}

	published := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, published.handle)
	}

	audit := NewAuditService(AuditDependencies{AuditRepo: auditRepo, Dispatcher: dispatcher, Logger: zap.NewNop(), Clock: clock.Now})
	settings := NewSettingsService(SettingsDependencies{SettingsRepo: settingsRepo, Audit: audit, Logger: zap.NewNop(), Clock: clock.Now})

	gs := domain.NewGuildSettings(testGuild, clock.Now())
	gs.SupportRoleIDs = []string{testSupportRole}
	settingsRepo.Put(*gs)

	svc := NewTicketService(TicketDependencies{
		TicketRepo: tickets,
		Settings:   settings,
		Audit:      audit,
		IDs:        NewIDGenerator(tickets, clock.Now),
		Platform:   fake,
		Archiver:   archiver,
		Logger:     zap.NewNop(),
		Clock:      clock.Now,
		Location:   time.UTC,
		PageSize:   100,
		BotUserID:  testBotID,
	})

	return &testEnv{
		svc:          svc,
		settings:     settings,
		audit:        audit,
		tickets:      tickets,
		settingsRepo: settingsRepo,
		auditRepo:    auditRepo,
		platform:     fake,
		clock:        clock,
		archiver:     archiver,
		published:    published,
	}
}

func (e *testEnv) editSettings(t *testing.T, guildID string, edit func(*domain.GuildSettings)) {
	t.Helper()
	gs, err := e.settingsRepo.GetOrCreate(context.Background(), guildID, e.clock.Now())
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	edit(gs)
	e.settingsRepo.Put(*gs)
}

func (e *testEnv) mustCreate(t *testing.T, guildID string, member domain.Member, tt domain.TicketType) *domain.Ticket {
	t.Helper()
	ticket, err := e.svc.CreateTicket(context.Background(), guildID, member, tt)
	if err != nil {
		t.Fatalf("CreateTicket failed: %v", err)
	}
	return ticket
}

func (e *testEnv) stored(t *testing.T, id string) *domain.Ticket {
	t.Helper()
	ticket, err := e.tickets.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID(%s) failed: %v", id, err)
	}
	return ticket
}

func (e *testEnv) actionsFor(ticketID string) []domain.AuditAction {
	var actions []domain.AuditAction
	for _, entry := range e.auditRepo.All() {
		if entry.TicketID != nil && *entry.TicketID == ticketID {
			actions = append(actions, entry.Action)
		}
	}
	return actions
}

func countAction(actions []domain.AuditAction, want domain.AuditAction) int {
	n := 0
	for _, a := range actions {
		if a == want {
			n++
		}
	}
	return n
}
