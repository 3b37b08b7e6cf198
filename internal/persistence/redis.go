package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
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

// RedisReminderDeduper tracks reminder episodes in Redis so a restarted
// or concurrently running sweep never re-notifies for the same window.
type RedisReminderDeduper struct {
	client *redis.Client
}

// NewRedisReminderDeduper builds the deduper over an existing client.
func NewRedisReminderDeduper(r *Redis) *RedisReminderDeduper {
	return &RedisReminderDeduper{client: r.Client}
}

// FirstSeen marks the (ticket, episode) pair and reports whether this
// call was the first to see it. The key expires after ttl.
func (d *RedisReminderDeduper) FirstSeen(ctx context.Context, ticketID string, episode time.Time, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("helpdesk:reminder:%s:%d", ticketID, episode.Unix())
	return d.client.SetNX(ctx, key, 1, ttl).Result()
}
