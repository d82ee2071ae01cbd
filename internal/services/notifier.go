package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
)

// Notification is what gets handed to the delivery transport. Delivery itself
// (push, SMS, in-app) runs in a separate consumer; this process only
// publishes.
type Notification struct {
	UserID     uuid.UUID  `json:"user_id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Type       string     `json:"type"`
	EntityType string     `json:"entity_type,omitempty"`
	EntityID   *uuid.UUID `json:"entity_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NotificationService is fire-and-forget: a failed publish is logged and
// swallowed, never aborting the operation that raised it.
type NotificationService interface {
	Notify(ctx context.Context, n Notification)
	Close() error
}

type redisNotifier struct {
	log     *logger.Logger
	rdb     *redis.Client
	channel string
}

func NewRedisNotifier(log *logger.Logger) (NotificationService, error) {
	serviceLog := log.With("service", "RedisNotifier")
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	channel := strings.TrimSpace(os.Getenv("REDIS_NOTIFICATION_CHANNEL"))
	if channel == "" {
		channel = "notifications"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisNotifier{log: serviceLog, rdb: rdb, channel: channel}, nil
}

func (n *redisNotifier) Notify(ctx context.Context, notification Notification) {
	if notification.UserID == uuid.Nil {
		return
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	raw, err := json.Marshal(notification)
	if err != nil {
		n.log.Warn("failed to encode notification", "error", err)
		return
	}
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		n.log.Warn("failed to publish notification", "error", err, "user_id", notification.UserID)
	}
}

func (n *redisNotifier) Close() error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Close()
}

// NewNoopNotifier stands in when Redis is not configured.
func NewNoopNotifier(log *logger.Logger) NotificationService {
	return &noopNotifier{log: log.With("service", "NoopNotifier")}
}

type noopNotifier struct {
	log *logger.Logger
}

func (n *noopNotifier) Notify(ctx context.Context, notification Notification) {
	n.log.Debug("notification dropped, no transport configured", "type", notification.Type)
}

func (n *noopNotifier) Close() error { return nil }
