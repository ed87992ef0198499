// Package events publishes account lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event types.
const (
	TypeUserRegistered     = "user.registered"
	TypeMembershipUpgraded = "membership.upgraded"
)

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 10 * time.Second
)

var (
	// ErrQueueFull is returned when events arrive faster than the broker accepts them.
	ErrQueueFull = errors.New("events: publish queue full")
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("events: publisher closed")
)

// Event is the JSON envelope written to the topic.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	UserID     uint           `json:"user_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType string, userID uint, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds a writer for topic on brokers that flushes single messages promptly.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		WriteTimeout:           5 * time.Second,
	}
}

// KafkaPublisher queues events and writes them from a single background goroutine,
// so Publish never waits on the broker. Messages are keyed by user id.
type KafkaPublisher struct {
	writer  MessageWriter
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

// PublisherOption configures a KafkaPublisher.
type PublisherOption func(*KafkaPublisher)

// WithQueueSize bounds how many events may wait for delivery.
func WithQueueSize(n int) PublisherOption {
	return func(p *KafkaPublisher) {
		if n > 0 {
			p.queue = make(chan kafka.Message, n)
		}
	}
}

// WithWriteTimeout bounds each delivery attempt.
func WithWriteTimeout(d time.Duration) PublisherOption {
	return func(p *KafkaPublisher) { p.timeout = d }
}

// NewKafkaPublisher wraps writer and starts the delivery goroutine. Close stops it.
func NewKafkaPublisher(writer MessageWriter, logger *zap.Logger, opts ...PublisherOption) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &KafkaPublisher{
		writer:  writer,
		logger:  logger,
		timeout: defaultWriteTimeout,
		queue:   make(chan kafka.Message, defaultQueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

// Publish implements Publisher. It only enqueues; delivery errors are logged.
func (p *KafkaPublisher) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", event.UserID)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			p.logger.Warn("kafka delivery failed",
				zap.String("event_type", string(msg.Headers[0].Value)),
				zap.ByteString("key", msg.Key),
				zap.Error(err),
			)
		}
	}
}

// Close delivers queued events, then closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
