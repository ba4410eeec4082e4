package readstore

import (
	"context"
	"time"

	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// $2 is an optional status filter.
const ordersByUserFirstPageSQL = `
SELECT o.id, o.order_number, o.status, o.currency, o.total_amount,
       (SELECT count(*) FROM order_items i WHERE i.order_id = o.id) AS item_count,
       o.created_at
FROM orders o
WHERE o.user_id = $1 AND ($2::text IS NULL OR o.status = $2)
ORDER BY o.created_at DESC, o.id DESC
LIMIT $3`

const ordersByUserKeysetSQL = `
SELECT o.id, o.order_number, o.status, o.currency, o.total_amount,
       (SELECT count(*) FROM order_items i WHERE i.order_id = o.id) AS item_count,
       o.created_at
FROM orders o
WHERE o.user_id = $1 AND ($2::text IS NULL OR o.status = $2)
  AND (o.created_at, o.id) < ($3, $4)
ORDER BY o.created_at DESC, o.id DESC
LIMIT $5`

type orderListRow struct {
	ID          uuid.UUID `db:"id"`
	OrderNumber string    `db:"order_number"`
	Status      string    `db:"status"`
	Currency    string    `db:"currency"`
	TotalAmount int64     `db:"total_amount"`
	ItemCount   int64     `db:"item_count"`
	CreatedAt   time.Time `db:"created_at"`
}

type OrderReadStore struct {
	db db.DBTX
}

func NewOrderReadStore(db db.DBTX) *OrderReadStore {
	return &OrderReadStore{db: db}
}

func (r *OrderReadStore) FindByUserFirstPage(ctx context.Context, userID uuid.UUID, status *string, limit int32) ([]*queries.OrderListItem, error) {
	rows, err := r.db.Query(ctx, ordersByUserFirstPageSQL, userID, status, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get orders first page by user", err)
	}
	return collectOrderList(rows)
}

func (r *OrderReadStore) FindByUserKeyset(ctx context.Context, userID uuid.UUID, status *string, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.OrderListItem, error) {
	rows, err := r.db.Query(ctx, ordersByUserKeysetSQL, userID, status, lastCreatedAt, lastID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get orders keyset by user", err)
	}
	return collectOrderList(rows)
}

func collectOrderList(rows pgx.Rows) ([]*queries.OrderListItem, error) {
	list, err := pgx.CollectRows(rows, pgx.RowToStructByName[orderListRow])
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan order list", err)
	}
	result := make([]*queries.OrderListItem, len(list))
	for i, row := range list {
		result[i] = &queries.OrderListItem{
			ID:          row.ID,
			OrderNumber: row.OrderNumber,
			Status:      row.Status,
			Currency:    row.Currency,
			Total:       row.TotalAmount,
			ItemCount:   int(row.ItemCount),
			CreatedAt:   row.CreatedAt,
		}
	}
	return result, nil
}
