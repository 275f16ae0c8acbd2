package publish

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/chainforge/subgraph-core/internal/trigger"
)

// RedisPublisher publishes envelopes by LPUSHing them onto a list keyed by
// topic, mirroring shared/mq's redis plugin's "list as a simple queue"
// convention — good for a live-tail consumer that only cares about the
// newest few blocks, not durable replay.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher wraps an already-constructed redis client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish marshals bwt and LPUSHes it onto topic.
func (r *RedisPublisher) Publish(ctx context.Context, topic string, bwt trigger.BlockWithTriggers) error {
	data, err := Marshal(bwt)
	if err != nil {
		return fmt.Errorf("marshal block %d: %w", bwt.Number(), err)
	}
	if err := r.client.LPush(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("lpush to redis: %w", err)
	}
	return nil
}

// Close closes the underlying redis client.
func (r *RedisPublisher) Close() error { return r.client.Close() }
