package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/observability"
	"github.com/supportdesk/ticket-bot/internal/platform/platformtest"
	"github.com/supportdesk/ticket-bot/internal/repository/memory"
	"github.com/supportdesk/ticket-bot/internal/service"
)

type staticGuilds struct {
	settings []domain.GuildSettings
	err      error
}

func (g staticGuilds) ListAutoClose(context.Context) ([]domain.GuildSettings, error) {
	return g.settings, g.err
}

type scriptedCloser struct {
	mu      sync.Mutex
	results map[string]service.SweepResult
	fail    map[string]error
	panics  map[string]bool
	visited []string
}

func (c *scriptedCloser) AutoCloseGuild(_ context.Context, settings domain.GuildSettings) (service.SweepResult, error) {
	c.mu.Lock()
	c.visited = append(c.visited, settings.GuildID)
	c.mu.Unlock()
	if c.panics[settings.GuildID] {
		panic("boom")
	}
	if err := c.fail[settings.GuildID]; err != nil {
		return service.SweepResult{}, err
	}
	return c.results[settings.GuildID], nil
}

type memWatermark struct {
	at      time.Time
	ok      bool
	readErr error
	marks   []time.Time
}

func (w *memWatermark) LastSweep(context.Context) (time.Time, bool, error) {
	return w.at, w.ok, w.readErr
}

func (w *memWatermark) MarkSwept(_ context.Context, at time.Time) error {
	w.marks = append(w.marks, at)
	w.at, w.ok = at, true
	return nil
}

func guild(id string, hours int) domain.GuildSettings {
	gs := domain.NewGuildSettings(id, time.Time{})
	gs.AutoCloseAfterHours = &hours
	return *gs
}

var sweepTime = time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC)

func TestSweepOnce_IsolatesFailingGuilds(t *testing.T) {
	closer := &scriptedCloser{
		results: map[string]service.SweepResult{
			"g-ok":    {Closed: 2},
			"g-after": {Closed: 1, Skipped: 1},
		},
		fail:   map[string]error{"g-err": errors.New("list stale tickets: timeout")},
		panics: map[string]bool{"g-panic": true},
	}
	metrics := observability.NewMetrics()
	mark := &memWatermark{}
	w := NewAutoCloseWorker(AutoCloseDependencies{
		Guilds:    staticGuilds{settings: []domain.GuildSettings{guild("g-ok", 48), guild("g-panic", 1), guild("g-err", 2), guild("g-after", 24)}},
		Closer:    closer,
		Watermark: mark,
		Metrics:   metrics,
		Logger:    zap.NewNop(),
		Interval:  time.Hour,
		Clock:     func() time.Time { return sweepTime },
	})

	summary := w.SweepOnce(context.Background())

	if len(closer.visited) != 4 {
		t.Fatalf("visited %v, want all four guilds", closer.visited)
	}
	want := SweepSummary{Guilds: 4, Closed: 3, Skipped: 1, Failed: 2}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
	snap := metrics.Snapshot()
	if snap.SweepRuns != 1 || snap.SweepClosed != 3 || snap.SweepFailed != 2 {
		t.Errorf("metrics = %+v", snap)
	}
	if len(mark.marks) != 1 || !mark.marks[0].Equal(sweepTime) {
		t.Errorf("watermark marks = %v", mark.marks)
	}
}

func TestSweepOnce_ListFailureSkipsPass(t *testing.T) {
	closer := &scriptedCloser{}
	mark := &memWatermark{}
	w := NewAutoCloseWorker(AutoCloseDependencies{
		Guilds:    staticGuilds{err: errors.New("db down")},
		Closer:    closer,
		Watermark: mark,
	})

	if summary := w.SweepOnce(context.Background()); summary != (SweepSummary{}) {
		t.Errorf("summary = %+v", summary)
	}
	if len(closer.visited) != 0 || len(mark.marks) != 0 {
		t.Errorf("failed listing still swept or marked")
	}
}

func TestInitialDelay(t *testing.T) {
	interval := time.Hour
	tests := []struct {
		name string
		mark Watermark
		want time.Duration
	}{
		{name: "no watermark store", mark: nil, want: interval},
		{name: "never swept", mark: &memWatermark{}, want: 0},
		{name: "overdue", mark: &memWatermark{at: sweepTime.Add(-3 * time.Hour), ok: true}, want: 0},
		{name: "recent", mark: &memWatermark{at: sweepTime.Add(-20 * time.Minute), ok: true}, want: 40 * time.Minute},
		{name: "read error sweeps now", mark: &memWatermark{readErr: errors.New("redis down")}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewAutoCloseWorker(AutoCloseDependencies{
				Watermark: tt.mark,
				Interval:  interval,
				Clock:     func() time.Time { return sweepTime },
			})
			if got := w.InitialDelay(context.Background()); got != tt.want {
				t.Errorf("InitialDelay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRun_SweepsImmediatelyWhenOverdue(t *testing.T) {
	closer := &scriptedCloser{results: map[string]service.SweepResult{}}
	mark := &memWatermark{}
	w := NewAutoCloseWorker(AutoCloseDependencies{
		Guilds:    staticGuilds{settings: []domain.GuildSettings{guild("g1", 1)}},
		Closer:    closer,
		Watermark: mark,
		Interval:  time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		closer.mu.Lock()
		n := len(closer.visited)
		closer.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first sweep did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

// TestSweepOnce_EndToEnd runs the worker over the real lifecycle engine with
// two guilds using different thresholds.
func TestSweepOnce_EndToEnd(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tickets := memory.NewTicketRepository()
	settingsRepo := memory.NewSettingsRepository()
	audit := service.NewAuditService(service.AuditDependencies{AuditRepo: memory.NewAuditRepository(), Clock: clock})
	settings := service.NewSettingsService(service.SettingsDependencies{SettingsRepo: settingsRepo, Audit: audit, Clock: clock})
	fake := platformtest.New()
	svc := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets,
		Settings:   settings,
		Audit:      audit,
		Platform:   fake,
		Clock:      clock,
		Location:   time.UTC,
		BotUserID:  "bot",
	})
	settingsRepo.Put(guild("g1", 48))
	settingsRepo.Put(guild("g2", 72))
	settingsRepo.Put(*domain.NewGuildSettings("g3", now))

	create := func(guildID, userID string) *domain.Ticket {
		ticket, err := svc.CreateTicket(context.Background(), guildID, domain.Member{UserID: userID, Username: userID}, domain.TicketTypeGeneral)
		if err != nil {
			t.Fatalf("CreateTicket failed: %v", err)
		}
		return ticket
	}
	old1 := create("g1", "u1")
	old2 := create("g2", "u2")
	old3 := create("g3", "u3")
	now = now.Add(40 * time.Hour)
	young1 := create("g1", "u4")
	now = now.Add(10 * time.Hour)

	w := NewAutoCloseWorker(AutoCloseDependencies{Guilds: settings, Closer: svc, Interval: time.Hour, Clock: clock})
	summary := w.SweepOnce(context.Background())

	if summary.Guilds != 2 || summary.Closed != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	status := func(id string) domain.TicketStatus {
		ticket, err := tickets.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		return ticket.Status
	}
	if status(old1.ID) != domain.TicketStatusClosed {
		t.Errorf("50h ticket in 48h guild still %s", status(old1.ID))
	}
	for _, id := range []string{young1.ID, old2.ID, old3.ID} {
		if status(id) != domain.TicketStatusOpen {
			t.Errorf("ticket %s should stay open, got %s", id, status(id))
		}
	}
}
