package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"helmet-orchestrator-be/internal/pkg/logger"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrMalformed tells the subscriber to drop a message instead of redelivering it.
var ErrMalformed = errors.New("malformed message")

// Message is an inbound collaborator message. Sequence is the JetStream
// stream sequence and stays the same across redeliveries; it is zero on core
// subscriptions.
type Message struct {
	Subject  string
	Data     []byte
	Received time.Time
	Sequence uint64
}

// Decode unmarshals the JSON body, wrapping failures in ErrMalformed.
func (m Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, m.Subject, err)
	}
	return nil
}

// MessageHandler processes one message. Returning an error requests a
// redelivery on durable subscriptions.
type MessageHandler func(ctx context.Context, msg Message) error

// Subscriber listens on core subjects and durable JetStream consumers.
type Subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream string
	logger logger.ILogger

	mu        sync.Mutex
	subs      []*nats.Subscription
	consumers []jetstream.ConsumeContext
}

func NewSubscriber(nc *nats.Conn, stream string, log logger.ILogger) (*Subscriber, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return &Subscriber{nc: nc, js: js, stream: stream, logger: log}, nil
}

// SubscribeCore registers a fire-and-forget handler. Used for high-rate
// perception and frame streams where a lost message is replaced by the next.
func (s *Subscriber) SubscribeCore(ctx context.Context, subject string, handler MessageHandler) error {
	sub, err := s.nc.Subscribe(subject, func(m *nats.Msg) {
		msg := Message{Subject: m.Subject, Data: m.Data, Received: time.Now()}
		if err := handler(ctx, msg); err != nil {
			s.logger.Warn(module, "Handler failed", map[string]interface{}{
				"subject": m.Subject,
				"error":   err.Error(),
			})
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	s.logger.Info(module, "Subscribed", map[string]interface{}{"subject": subject})
	return nil
}

// SubscribeDurable registers a handler behind a durable consumer so no
// message is lost across restarts.
func (s *Subscriber) SubscribeDurable(ctx context.Context, subject, durable string, handler MessageHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, s.stream, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(m jetstream.Msg) {
		msg := Message{Subject: m.Subject(), Data: m.Data(), Received: time.Now()}
		if meta, err := m.Metadata(); err == nil {
			msg.Sequence = meta.Sequence.Stream
		}
		err := handler(ctx, msg)
		switch {
		case err == nil:
			_ = m.Ack()
		case errors.Is(err, ErrMalformed):
			s.logger.Warn(module, "Dropping malformed message", map[string]interface{}{
				"subject": m.Subject(),
				"error":   err.Error(),
			})
			_ = m.Term()
		default:
			s.logger.Warn(module, "Handler failed, requesting redelivery", map[string]interface{}{
				"subject": m.Subject(),
				"error":   err.Error(),
			})
			_ = m.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.mu.Lock()
	s.consumers = append(s.consumers, cc)
	s.mu.Unlock()

	s.logger.Info(module, "Subscribed", map[string]interface{}{"subject": subject, "durable": durable})
	return nil
}

// Close stops every subscription. The connection is owned by the caller.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cc := range s.consumers {
		cc.Stop()
	}
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.consumers = nil
	s.subs = nil
}
