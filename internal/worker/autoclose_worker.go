package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/supportdesk/ticket-bot/internal/domain"
	"github.com/supportdesk/ticket-bot/internal/observability"
	"github.com/supportdesk/ticket-bot/internal/service"
)

// GuildLister returns the guilds with auto-close enabled.
type GuildLister interface {
	ListAutoClose(ctx context.Context) ([]domain.GuildSettings, error)
}

// GuildCloser closes the stale tickets of one guild.
type GuildCloser interface {
	AutoCloseGuild(ctx context.Context, settings domain.GuildSettings) (service.SweepResult, error)
}

// Watermark persists when the last sweep finished so a restart can tell
// whether a period elapsed while the process was down.
type Watermark interface {
	LastSweep(ctx context.Context) (time.Time, bool, error)
	MarkSwept(ctx context.Context, at time.Time) error
}

// AutoCloseWorker periodically force-closes stale tickets in every guild that
// enabled it.
type AutoCloseWorker struct {
	guilds    GuildLister
	closer    GuildCloser
	watermark Watermark
	metrics   *observability.Metrics
	logger    *zap.Logger
	interval  time.Duration
	now       func() time.Time
}

// AutoCloseDependencies bundles collaborators for the worker.
type AutoCloseDependencies struct {
	Guilds    GuildLister
	Closer    GuildCloser
	Watermark Watermark
	Metrics   *observability.Metrics
	Logger    *zap.Logger
	Interval  time.Duration
	Clock     func() time.Time
}

// SweepSummary aggregates one pass over all guilds.
type SweepSummary struct {
	Guilds  int
	Closed  int
	Skipped int
	Failed  int
}

// NewAutoCloseWorker constructs the worker.
func NewAutoCloseWorker(deps AutoCloseDependencies) *AutoCloseWorker {
	w := &AutoCloseWorker{
		guilds:    deps.Guilds,
		closer:    deps.Closer,
		watermark: deps.Watermark,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		interval:  deps.Interval,
		now:       deps.Clock,
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.interval <= 0 {
		w.interval = time.Hour
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// Run sweeps on every interval until ctx is cancelled.
func (w *AutoCloseWorker) Run(ctx context.Context) {
	delay := w.InitialDelay(ctx)
	w.logger.Info("auto-close worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("first_sweep_in", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	w.SweepOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("auto-close worker stopped")
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// InitialDelay is zero when no sweep was recorded, the record cannot be read,
// or a full interval has passed since the last one. Otherwise it is the
// remainder of the interval.
func (w *AutoCloseWorker) InitialDelay(ctx context.Context) time.Duration {
	if w.watermark == nil {
		return w.interval
	}
	last, ok, err := w.watermark.LastSweep(ctx)
	if err != nil {
		w.logger.Warn("read sweep watermark, sweeping now", zap.Error(err))
		return 0
	}
	if !ok {
		return 0
	}
	elapsed := w.now().Sub(last)
	if elapsed >= w.interval {
		return 0
	}
	return w.interval - elapsed
}

// SweepOnce runs one pass. Every guild is isolated: an error or panic in
// one is logged and the pass continues with the next.
func (w *AutoCloseWorker) SweepOnce(ctx context.Context) SweepSummary {
	var summary SweepSummary
	guilds, err := w.guilds.ListAutoClose(ctx)
	if err != nil {
		w.logger.Error("list auto-close guilds", zap.Error(err))
		return summary
	}

	for _, settings := range guilds {
		result, err := w.sweepGuild(ctx, settings)
		summary.Guilds++
		summary.Closed += result.Closed
		summary.Skipped += result.Skipped
		summary.Failed += result.Failed
		if err != nil {
			summary.Failed++
			w.logger.Error("auto-close guild", zap.String("guild_id", settings.GuildID), zap.Error(err))
		}
	}

	at := w.now()
	w.metrics.RecordSweep(at, summary.Closed, summary.Failed)
	if w.watermark != nil {
		if err := w.watermark.MarkSwept(ctx, at); err != nil {
			w.logger.Warn("write sweep watermark", zap.Error(err))
		}
	}
	w.logger.Info("auto-close sweep finished",
		zap.Int("guilds", summary.Guilds),
		zap.Int("closed", summary.Closed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary
}

func (w *AutoCloseWorker) sweepGuild(ctx context.Context, settings domain.GuildSettings) (result service.SweepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.closer.AutoCloseGuild(ctx, settings)
}
