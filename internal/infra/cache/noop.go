package cache

import (
	"context"

	"github.com/google/uuid"
)

// NoopAvailabilityCache is used when Redis is disabled; every read misses.
type NoopAvailabilityCache struct{}

func (NoopAvailabilityCache) SetAvailable(context.Context, uuid.UUID, int) error {
	return nil
}

func (NoopAvailabilityCache) GetAvailable(context.Context, uuid.UUID) (int, bool, error) {
	return 0, false, nil
}

// NoopDeduper treats every id as new. Transitions are idempotent, so replays
// are still harmless.
type NoopDeduper struct{}

func (NoopDeduper) FirstSeen(context.Context, string, string) (bool, error) {
	return true, nil
}

func (NoopDeduper) Forget(context.Context, string, string) error {
	return nil
}
