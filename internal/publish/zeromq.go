package publish

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"

	"github.com/chainforge/subgraph-core/internal/trigger"
)

// ZeroMQPublisher publishes envelopes over a PUB socket, framed as
// "topic:payload" the same way shared/mq's zeromq plugin frames its
// messages so a subscriber filtering on a topic prefix works unchanged.
type ZeroMQPublisher struct {
	pub  zmq4.Socket
	addr string
}

// NewZeroMQPublisher dials addr and returns a ready publisher.
func NewZeroMQPublisher(ctx context.Context, addr string) (*ZeroMQPublisher, error) {
	pub := zmq4.NewPub(ctx)
	if err := pub.Dial(addr); err != nil {
		return nil, fmt.Errorf("dial zeromq publisher: %w", err)
	}
	return &ZeroMQPublisher{pub: pub, addr: addr}, nil
}

// Publish marshals bwt and sends it framed under topic.
func (z *ZeroMQPublisher) Publish(ctx context.Context, topic string, bwt trigger.BlockWithTriggers) error {
	data, err := Marshal(bwt)
	if err != nil {
		return fmt.Errorf("marshal block %d: %w", bwt.Number(), err)
	}
	msg := zmq4.Msg{Frames: [][]byte{[]byte(topic + ":"), data}}
	if err := z.pub.Send(msg); err != nil {
		return fmt.Errorf("send via zeromq: %w", err)
	}
	return nil
}

// Close closes the publisher socket.
func (z *ZeroMQPublisher) Close() error { return z.pub.Close() }
