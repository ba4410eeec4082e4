package shared

import (
	"context"

	"github.com/google/uuid"
)

// AvailabilityCache holds the derived available_quantity per variant. It is a
// read accelerator only; the ledger never consults it for decisions.
type AvailabilityCache interface {
	SetAvailable(ctx context.Context, variantID uuid.UUID, available int) error
	GetAvailable(ctx context.Context, variantID uuid.UUID) (available int, found bool, err error)
}

// EventPublisher delivers outbox rows to the message bus. Delivery is at
// least once; consumers dedupe on the event id.
type EventPublisher interface {
	Publish(ctx context.Context, events []OutboxEvent) error
}

// Deduper remembers processed message ids for a while.
type Deduper interface {
	// FirstSeen records id under scope and reports whether it was new.
	FirstSeen(ctx context.Context, scope, id string) (bool, error)
	// Forget drops the record so a failed delivery can be retried.
	Forget(ctx context.Context, scope, id string) error
}
