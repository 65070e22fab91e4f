package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AdminChannel is the Redis channel carrying admin feed events.
const AdminChannel = "lectureship:admin-events"

// RedisPubSub implements Relay with Redis pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub relay.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger}
}

// Publish sends msg to the admin channel.
func (r *RedisPubSub) Publish(ctx context.Context, msg RelayMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, AdminChannel, body).Err()
}

// Subscribe calls handler for each message until ctx is done or the
// subscription breaks.
func (r *RedisPubSub) Subscribe(ctx context.Context, handler func(RelayMessage)) error {
	pubsub := r.client.Subscribe(ctx, AdminChannel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription closed")
			}
			var m RelayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				r.logger.Warn("invalid admin feed message", zap.Error(err))
				continue
			}
			handler(m)
		}
	}
}
