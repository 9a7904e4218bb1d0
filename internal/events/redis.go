package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "transaction_events"

// RedisNotifier publishes events as JSON on a Redis pub/sub channel.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
}

func NewRedisNotifier(rdb *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisNotifier{rdb: rdb, channel: channel}
}

func (n *RedisNotifier) Publish(ctx context.Context, e Event) error {
	payload, err := e.Marshal()
	if err != nil {
		return err
	}

	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Close() error {
	return n.rdb.Close()
}
