// Package events publishes audit events for order edits.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ashendes/order-edit/internal/config"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Event types
const (
	TypeOrderEdited        = "order.edited"
	TypeOrderStatusChanged = "order.status_changed"
)

// Event describes a successful write made through an edit session
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OrderID    string      `json:"orderId"`
	Section    string      `json:"section,omitempty"`
	Status     string      `json:"status,omitempty"`
	RequestID  string      `json:"requestId,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with an id and the current time
func NewEvent(eventType, orderID string) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher sends events somewhere durable
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by order id, so events
// of one order stay ordered
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for cfg.Topic on cfg.Brokers
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}}
}

// New returns a Kafka publisher when brokers are configured, otherwise Nop
func New(cfg config.KafkaConfig) Publisher {
	if len(cfg.Brokers) == 0 {
		log.Info("No Kafka brokers configured, order edit events are discarded")
		return Nop{}
	}
	return NewKafkaPublisher(cfg)
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := message(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for order %s: %w", e.Type, e.OrderID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func message(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.OrderID),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "event_id", Value: []byte(e.ID)},
		},
	}, nil
}
