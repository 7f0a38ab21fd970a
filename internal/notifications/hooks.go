package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kiranacart/kiranacart-backend/pkg/logger"
	"github.com/kiranacart/kiranacart-backend/pkg/redis"
)

// LogHook records each transition to the structured log.
type LogHook struct {
	logg *logger.Logger
}

// NewLogHook builds a logging hook.
func NewLogHook(logg *logger.Logger) *LogHook {
	return &LogHook{logg: logg}
}

func (h *LogHook) Name() string { return "log" }

func (h *LogHook) HandleTransition(ctx context.Context, event Event) error {
	ctx = h.logg.WithFields(ctx, map[string]any{
		"order_number": event.OrderNumber,
		"from":         event.From.String(),
		"to":           event.To.String(),
		"actor_role":   event.ActorRole.String(),
	})
	h.logg.Info(ctx, "order transition")
	return nil
}

// RedisPublishHook pushes transition events onto a redis channel consumed by
// the realtime notification workers.
type RedisPublishHook struct {
	client  *redis.Client
	channel string
}

// NewRedisPublishHook builds a redis publish hook on the named channel.
func NewRedisPublishHook(client *redis.Client, channel string) (*RedisPublishHook, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if channel == "" {
		channel = "order-transitions"
	}
	return &RedisPublishHook{client: client, channel: channel}, nil
}

func (h *RedisPublishHook) Name() string { return "redis-publish" }

func (h *RedisPublishHook) HandleTransition(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling transition event: %w", err)
	}
	return h.client.Publish(ctx, h.channel, payload)
}
