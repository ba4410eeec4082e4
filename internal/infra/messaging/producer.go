package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/usecase/shared"

	"github.com/segmentio/kafka-go"
)

const writeTimeout = 5 * time.Second

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

// OrderEventPublisher writes outbox rows to the order events topic keyed by
// order id, so one order's events stay ordered within a partition.
type OrderEventPublisher struct {
	writer   *kafka.Writer
	producer string
}

func NewOrderEventPublisher(cfg config.KafkaConfig) *OrderEventPublisher {
	return &OrderEventPublisher{
		writer:   newWriter(cfg.Brokers, cfg.OrderEventsTopic),
		producer: cfg.ProducerName,
	}
}

func (p *OrderEventPublisher) Publish(ctx context.Context, events []shared.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(EnvelopeFor(ev, p.producer))
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", ev.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.AggregateID.String()),
			Value: value,
			Time:  ev.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(ev.EventType)},
			},
		})
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *OrderEventPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops events; the relay never runs without Kafka, so it only
// satisfies wiring.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, []shared.OutboxEvent) error { return nil }
