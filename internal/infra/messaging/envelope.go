package messaging

import (
	"encoding/json"
	"time"

	"storefront-checkout/internal/usecase/shared"
)

// Envelope is the wire format on every topic this service writes.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

func EnvelopeFor(ev shared.OutboxEvent, producer string) Envelope {
	env := Envelope{
		EventID:      ev.ID.String(),
		EventType:    ev.EventType,
		EventVersion: ev.EventVersion,
		OccurredAt:   ev.OccurredAt.UTC(),
		Producer:     producer,
		Payload:      json.RawMessage(ev.Payload),
	}
	if ev.CorrelationID != nil {
		env.CorrelationID = *ev.CorrelationID
	}
	return env
}
