package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"go.uber.org/zap"
)

// Event is the envelope published on the bus
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Handler processes a single event. Returning an error naks the message.
type Handler func(ctx context.Context, event *Event) error

// Config configures the bus connection and stream
type Config struct {
	URL        string
	Name       string
	StreamName string
	Subjects   []string
	MaxAge     time.Duration
}

// DefaultConfig returns the stream layout used by the patrol service
func DefaultConfig(url, name string) Config {
	return Config{
		URL:        url,
		Name:       name,
		StreamName: "PATROL",
		Subjects:   []string{"patrol.>"},
		MaxAge:     72 * time.Hour,
	}
}

// Bus wraps a NATS connection with JetStream durable subscriptions
type Bus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	source string

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewEvent builds an event envelope with a fresh ID
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Connect dials NATS and makes sure the stream exists
func Connect(cfg Config) (*Bus, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("eventbus: disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("eventbus: reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	if err := ensureStream(js, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("eventbus: connected", zap.String("url", cfg.URL), zap.String("stream", cfg.StreamName))
	return &Bus{conn: conn, js: js, source: cfg.Name}, nil
}

func ensureStream(js nats.JetStreamContext, cfg Config) error {
	_, err := js.StreamInfo(cfg.StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %s: %w", cfg.StreamName, err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: cfg.Subjects,
		MaxAge:   cfg.MaxAge,
		Storage:  nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("add stream %s: %w", cfg.StreamName, err)
	}
	return nil
}

// Publish marshals data into an event and publishes it on subject
func (b *Bus) Publish(ctx context.Context, subject, eventType string, data interface{}) error {
	event, err := NewEvent(eventType, b.source, data)
	if err != nil {
		return err
	}
	return b.PublishEvent(ctx, subject, event)
}

// PublishEvent publishes a prepared event. The event ID doubles as the JetStream dedupe ID.
func (b *Bus) PublishEvent(ctx context.Context, subject string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := b.js.Publish(subject, payload, nats.Context(ctx), nats.MsgId(event.ID)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscription is an active consumer that can be detached
type Subscription interface {
	Unsubscribe() error
}

// Subscribe attaches a durable consumer to subject. Messages are acked only after handler succeeds.
func (b *Bus) Subscribe(ctx context.Context, subject, durable string, handler Handler) (Subscription, error) {
	sub, err := b.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := dispatch(ctx, msg.Data, handler); err != nil {
			logger.Warn("eventbus: handler failed",
				zap.String("subject", msg.Subject),
				zap.String("durable", durable),
				zap.Error(err))
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, nats.Durable(durable), nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

// dispatch decodes a raw message and hands it to handler. Undecodable messages are dropped.
func dispatch(ctx context.Context, data []byte, handler Handler) error {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Warn("eventbus: dropping malformed event", zap.Error(err))
		return nil
	}
	return handler(ctx, &event)
}

// Close drains subscriptions and closes the connection
func (b *Bus) Close() {
	b.mu.Lock()
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil
	b.mu.Unlock()

	if b.conn != nil {
		_ = b.conn.Drain()
		b.conn.Close()
	}
}

// IsConnected reports whether the underlying connection is up
func (b *Bus) IsConnected() bool {
	return b.conn != nil && b.conn.IsConnected()
}
