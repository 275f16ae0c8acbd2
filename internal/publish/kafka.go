package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/chainforge/subgraph-core/internal/trigger"
)

// KafkaPublisher publishes envelopes to a Kafka topic, carrying over the
// writer tuning shared/mq's kafka plugin uses (bounded retries, bounded
// batching delay, full-ISR acks) since a scanner's output is exactly the
// kind of durable event stream that plugin was built for.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher dials brokers and returns a ready publisher.
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			AllowAutoTopicCreation: true,
			Balancer:               &kafka.LeastBytes{},
			WriteBackoffMin:        100 * time.Millisecond,
			WriteBackoffMax:        1 * time.Second,
			MaxAttempts:            5,
			BatchSize:              100,
			BatchTimeout:           100 * time.Millisecond,
			RequiredAcks:           kafka.RequireAll,
		},
	}
}

// Publish marshals bwt and writes it to topic.
func (k *KafkaPublisher) Publish(ctx context.Context, topic string, bwt trigger.BlockWithTriggers) error {
	data, err := Marshal(bwt)
	if err != nil {
		return fmt.Errorf("marshal block %d: %w", bwt.Number(), err)
	}
	msg := kafka.Message{Topic: topic, Key: []byte(bwt.Block.Hash().Hex()), Value: data, Time: time.Now()}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (k *KafkaPublisher) Close() error { return k.writer.Close() }
