package messaging

import (
	"context"
	"encoding/json"
	"time"

	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const EventPaymentNotified = "payment.notified"

// KafkaPaymentQueue parks webhook payloads on the payment events topic so the
// HTTP handler can answer the provider before the order is touched.
type KafkaPaymentQueue struct {
	writer   *kafka.Writer
	producer string
}

func NewKafkaPaymentQueue(cfg config.KafkaConfig) *KafkaPaymentQueue {
	return &KafkaPaymentQueue{
		writer:   newWriter(cfg.Brokers, cfg.PaymentEventsTopic),
		producer: cfg.ProducerName,
	}
}

func (q *KafkaPaymentQueue) Enqueue(ctx context.Context, ev commands.PaymentEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	value, err := json.Marshal(Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventPaymentNotified,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      q.producer,
		CorrelationID: ev.TransactionID,
		Payload:       payload,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderID.String()),
		Value: value,
	})
}

func (q *KafkaPaymentQueue) Close() error {
	return q.writer.Close()
}

// DirectPaymentQueue applies the event in the request. Used when Kafka is
// disabled, e.g. in end-to-end tests.
type DirectPaymentQueue struct {
	orders commands.OrderCommands
}

func NewDirectPaymentQueue(orders commands.OrderCommands) *DirectPaymentQueue {
	return &DirectPaymentQueue{orders: orders}
}

func (q *DirectPaymentQueue) Enqueue(ctx context.Context, ev commands.PaymentEvent) error {
	_, err := q.orders.ApplyPaymentEvent(ctx, ev)
	return err
}
