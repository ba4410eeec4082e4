package shared

import (
	"time"

	"github.com/google/uuid"
)

const (
	IdempotencyProcessing = "processing"
	IdempotencyCompleted  = "completed"
)

type IdempotencyRecord struct {
	Key           uuid.UUID
	UserID        uuid.UUID
	Endpoint      string
	Status        string
	RequestHash   string
	ResultOrderID *uuid.UUID
	ExpiresAt     time.Time
}

// OutboxEvent is a row of order_events waiting to be relayed.
type OutboxEvent struct {
	ID            uuid.UUID
	AggregateID   uuid.UUID
	EventType     string
	EventVersion  int
	Payload       []byte
	CorrelationID *string
	OccurredAt    time.Time
	Attempts      int
}
