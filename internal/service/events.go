package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Domain event names consumed by UI/notification collaborators.
const (
	EventProfileStatusChanged = "profile.status_changed"
	EventRecordReviewed       = "record.reviewed"
	EventRosterChanged        = "roster.assignment_changed"
	EventBatchImportCompleted = "batch_import.completed"
)

// EventPublisher delivers domain events to interested collaborators. A
// publish failure must never fail the operation that raised the event.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{})
}

// RedisPublisher fans events out over Redis pub/sub channels.
type RedisPublisher struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisPublisher constructs a publisher using the given channel prefix.
func NewRedisPublisher(client *redis.Client, prefix string, logger *zap.Logger) *RedisPublisher {
	if prefix == "" {
		prefix = "studarch.events"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, prefix: prefix, logger: logger}
}

// Publish serialises the payload and sends it on "<prefix>.<event>".
func (p *RedisPublisher) Publish(ctx context.Context, event string, payload interface{}) {
	if p == nil || p.client == nil {
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"event":      event,
		"payload":    payload,
		"emitted_at": time.Now().UTC(),
	})
	if err != nil {
		p.logger.Warn("failed to marshal event", zap.String("event", event), zap.Error(err))
		return
	}
	channel := fmt.Sprintf("%s.%s", p.prefix, event)
	if err := p.client.Publish(ctx, channel, body).Err(); err != nil {
		p.logger.Warn("failed to publish event", zap.String("event", event), zap.Error(err))
	}
}

// NopPublisher drops every event. Used when event publishing is disabled.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, string, interface{}) {}
