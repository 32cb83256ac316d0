package policycache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"conduit/internal/domain"
)

// DefaultChannel is the pub/sub channel policy services publish changes on.
const DefaultChannel = "policy.changes"

// RedisNotifier delivers policy-change notifications over redis pub/sub
// so caches in every process hear about changes made anywhere.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewRedisNotifier creates a notifier on the default channel.
func NewRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, channel: DefaultChannel, logger: logger}
}

// Subscribe starts a consumer goroutine that decodes each message and
// hands it to handler. Undecodable messages are logged and skipped, not
// fatal: one producer with a bad payload must not kill every cache.
func (n *RedisNotifier) Subscribe(ctx context.Context, handler func(domain.PolicyChange)) (Unsubscribe, error) {
	pubsub := n.client.Subscribe(ctx, n.channel)

	// Confirm the subscription before returning so callers never miss
	// notifications published right after Register.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", n.channel, err)
	}

	ch := pubsub.Channel()
	go func() {
		for msg := range ch {
			var change domain.PolicyChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				n.logger.WarnContext(ctx, "dropping undecodable policy change",
					"channel", n.channel,
					"error", err,
				)
				continue
			}
			handler(change)
		}
	}()

	return pubsub.Close, nil
}

// Publish sends one change notification. Policy services call this after
// committing a policy mutation.
func (n *RedisNotifier) Publish(ctx context.Context, change domain.PolicyChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal policy change: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish policy change: %w", err)
	}
	return nil
}
