package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tair/stock-ledger/pkg/logger"
)

// DefaultRedisChannel carries change events between processes
const DefaultRedisChannel = "ledger:changes"

// RedisNotifier publishes change events on a Redis channel so other processes
// sharing the store can refresh. It stamps an origin id and ignores its own
// messages when listening.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	origin  string
}

// NewRedisNotifier creates a notifier on channel
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		origin:  uuid.New().String(),
	}
}

// Origin is the id this notifier stamps on published events
func (n *RedisNotifier) Origin() string {
	return n.origin
}

func (n *RedisNotifier) Notify(ctx context.Context, event Event) error {
	event.Origin = n.origin
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Listen forwards events published by other processes to target until ctx is done
func (n *RedisNotifier) Listen(ctx context.Context, target Notifier) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	// Receive blocks until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", n.channel, err)
	}

	logger.Logger.Info().
		Str("channel", n.channel).
		Str("origin", n.origin).
		Msg("Listening for remote ledger changes")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn(ctx).Err(err).Msg("Dropping malformed change event")
				continue
			}
			if event.Origin == n.origin {
				continue
			}
			if err := target.Notify(ctx, event); err != nil {
				logger.Warn(ctx).Err(err).Str("key", event.Key).Msg("Failed to forward change event")
			}
		}
	}
}
