package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/supportdesk/ticket-bot/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis. An unreachable server is logged, not fatal: the
// sweeper then behaves as if it had never run.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

const sweepWatermarkKey = "ticketbot:autoclose:last_swept_at"

// SweepWatermark persists the time of the last completed auto-close sweep.
type SweepWatermark struct {
	client redis.Cmdable
	key    string
}

// NewSweepWatermark builds a watermark stored under a fixed key.
func NewSweepWatermark(client redis.Cmdable) *SweepWatermark {
	return &SweepWatermark{client: client, key: sweepWatermarkKey}
}

// LastSweep returns the stored time; ok is false when none was recorded.
func (w *SweepWatermark) LastSweep(ctx context.Context) (time.Time, bool, error) {
	ms, err := w.client.Get(ctx, w.key).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

// MarkSwept records at as the last sweep time.
func (w *SweepWatermark) MarkSwept(ctx context.Context, at time.Time) error {
	return w.client.Set(ctx, w.key, at.UnixMilli(), 0).Err()
}
