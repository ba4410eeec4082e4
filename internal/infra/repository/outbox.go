package repository

import (
	"context"
	"time"

	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/pkg/pgconv"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const appendOrderEventSQL = `
INSERT INTO order_events (id, aggregate_id, event_type, event_version, payload, correlation_id, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const claimOrderEventsSQL = `
SELECT id, aggregate_id, event_type, event_version, payload, correlation_id, occurred_at, attempts
FROM order_events
WHERE published_at IS NULL
ORDER BY occurred_at, id
LIMIT $1
FOR UPDATE SKIP LOCKED`

const markOrderEventsPublishedSQL = `
UPDATE order_events SET published_at = $2, attempts = attempts + 1 WHERE id = ANY($1)`

const markOrderEventsFailedSQL = `
UPDATE order_events SET attempts = attempts + 1 WHERE id = ANY($1)`

type OutboxRepository struct {
	db db.DBTX
}

func NewOutboxRepository(db db.DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Append(ctx context.Context, ev shared.OutboxEvent) error {
	_, err := r.db.Exec(ctx, appendOrderEventSQL,
		ev.ID, ev.AggregateID, ev.EventType, ev.EventVersion, ev.Payload,
		pgconv.StringPtrToPgtype(ev.CorrelationID), ev.OccurredAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to append order event", err)
	}
	return nil
}

func (r *OutboxRepository) ClaimBatch(ctx context.Context, limit int) ([]shared.OutboxEvent, error) {
	rows, err := r.db.Query(ctx, claimOrderEventsSQL, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to claim order events", err)
	}
	defer rows.Close()

	var out []shared.OutboxEvent
	for rows.Next() {
		var (
			ev            shared.OutboxEvent
			version       int32
			attempts      int32
			correlationID pgtype.Text
		)
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &version, &ev.Payload, &correlationID, &ev.OccurredAt, &attempts); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order event", err)
		}
		ev.EventVersion = int(version)
		ev.Attempts = int(attempts)
		ev.CorrelationID = pgconv.StringPtrFromPgtype(correlationID)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order events", err)
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, markOrderEventsPublishedSQL, ids, at); err != nil {
		return infra.WrapRepoErr("failed to mark order events published", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, markOrderEventsFailedSQL, ids); err != nil {
		return infra.WrapRepoErr("failed to mark order events failed", err)
	}
	return nil
}
