package publish

import (
	"context"
	"fmt"

	"github.com/chainforge/subgraph-core/internal/telemetry"
	"github.com/chainforge/subgraph-core/internal/trigger"
)

// Publisher fans a single BlockWithTriggers out to a topic on some broker.
// The three concrete backends below (kafka.go, zeromq.go, redis.go) all
// marshal through Envelope so a consumer sees the same wire shape
// regardless of transport.
type Publisher interface {
	Publish(ctx context.Context, topic string, bwt trigger.BlockWithTriggers) error
	Close() error
}

// MultiPublisher fans the same result out to every configured backend,
// generalizing shared/mq's MultiProtocolMQ (which picks one plugin per
// call) into "publish to all of them" — a scan's downstream consumers
// (Kafka for durable replay, Redis for a hot live-tail) aren't mutually
// exclusive the way a single request's transport choice is.
type MultiPublisher struct {
	backends map[string]Publisher
	metrics  *telemetry.Emitter
}

// NewMultiPublisher builds a MultiPublisher over the given named backends.
func NewMultiPublisher(metrics *telemetry.Emitter, backends map[string]Publisher) *MultiPublisher {
	return &MultiPublisher{backends: backends, metrics: metrics}
}

// Publish sends bwt to topic on every configured backend, returning the
// first error encountered after attempting all of them.
func (m *MultiPublisher) Publish(ctx context.Context, topic string, bwt trigger.BlockWithTriggers) error {
	var firstErr error
	for name, backend := range m.backends {
		err := m.timed(name, func() error { return backend.Publish(ctx, topic, bwt) })
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("publish via %s: %w", name, err)
		}
	}
	return firstErr
}

func (m *MultiPublisher) timed(name string, fn func() error) error {
	if m.metrics == nil {
		return fn()
	}
	return m.metrics.Timed("publish_"+name, fn)
}

// Close closes every configured backend, returning the first error
// encountered.
func (m *MultiPublisher) Close() error {
	var firstErr error
	for name, backend := range m.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", name, err)
		}
	}
	return firstErr
}
