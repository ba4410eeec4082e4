package repository

import (
	"context"
	"time"

	"storefront-checkout/internal/domain/stock"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const getStockSQL = `
SELECT variant_id, quantity, reserved_quantity, updated_at
FROM product_stock
WHERE variant_id = $1`

// The availability guard and the increment are one statement; the row lock
// taken by UPDATE serializes competing reservations.
const reserveUnitsSQL = `
UPDATE product_stock
SET reserved_quantity = reserved_quantity + $2, updated_at = now()
WHERE variant_id = $1 AND quantity - reserved_quantity >= $2
RETURNING variant_id, quantity, reserved_quantity, updated_at`

const commitUnitsSQL = `
UPDATE product_stock
SET quantity = quantity - $2, reserved_quantity = reserved_quantity - $2, updated_at = now()
WHERE variant_id = $1 AND reserved_quantity >= $2
RETURNING variant_id, quantity, reserved_quantity, updated_at`

const releaseUnitsSQL = `
UPDATE product_stock
SET reserved_quantity = GREATEST(reserved_quantity - $2, 0), updated_at = now()
WHERE variant_id = $1
RETURNING variant_id, quantity, reserved_quantity, updated_at`

const restoreUnitsSQL = `
UPDATE product_stock
SET quantity = quantity + $2, updated_at = now()
WHERE variant_id = $1
RETURNING variant_id, quantity, reserved_quantity, updated_at`

const insertReservationSQL = `
INSERT INTO stock_reservations
    (id, checkout_id, variant_id, quantity, flash_sale_product_id, status, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`

const getReservationForUpdateSQL = `
SELECT id, checkout_id, variant_id, quantity, flash_sale_product_id, status, expires_at
FROM stock_reservations
WHERE id = $1
FOR UPDATE`

const updateReservationStatusSQL = `
UPDATE stock_reservations SET status = $2, updated_at = $3 WHERE id = $1`

// SKIP LOCKED lets several reclaimers sweep without blocking each other.
const listExpiredHeldSQL = `
SELECT id, checkout_id, variant_id, quantity, flash_sale_product_id, status, expires_at
FROM stock_reservations
WHERE status = 'held' AND expires_at < $1
ORDER BY expires_at
LIMIT $2
FOR UPDATE SKIP LOCKED`

type StockRepository struct {
	db db.DBTX
}

func NewStockRepository(db db.DBTX) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) Get(ctx context.Context, variantID uuid.UUID) (*stock.Record, error) {
	rec, err := scanStock(r.db.QueryRow(ctx, getStockSQL, variantID))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get stock record", err)
	}
	return rec, nil
}

func (r *StockRepository) ReserveUnits(ctx context.Context, variantID uuid.UUID, qty int) (*stock.Record, bool, error) {
	rec, err := scanStock(r.db.QueryRow(ctx, reserveUnitsSQL, variantID, qty))
	if err == nil {
		return rec, true, nil
	}
	if !pgconv.IsNoRows(err) {
		return nil, false, infra.WrapRepoErr("failed to reserve stock", err)
	}

	current, err := r.Get(ctx, variantID)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *StockRepository) CommitUnits(ctx context.Context, variantID uuid.UUID, qty int) (*stock.Record, error) {
	rec, err := scanStock(r.db.QueryRow(ctx, commitUnitsSQL, variantID, qty))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("reserved units missing for commit", err, infra.KindConflict)
		}
		return nil, infra.WrapRepoErr("failed to commit stock", err)
	}
	return rec, nil
}

func (r *StockRepository) ReleaseUnits(ctx context.Context, variantID uuid.UUID, qty int) (*stock.Record, error) {
	rec, err := scanStock(r.db.QueryRow(ctx, releaseUnitsSQL, variantID, qty))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to release stock", err)
	}
	return rec, nil
}

func (r *StockRepository) RestoreUnits(ctx context.Context, variantID uuid.UUID, qty int) (*stock.Record, error) {
	rec, err := scanStock(r.db.QueryRow(ctx, restoreUnitsSQL, variantID, qty))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to restore stock", err)
	}
	return rec, nil
}

func (r *StockRepository) InsertReservation(ctx context.Context, res *stock.Reservation, now time.Time) error {
	_, err := r.db.Exec(ctx, insertReservationSQL,
		res.ID(),
		res.CheckoutID(),
		res.VariantID(),
		res.Quantity(),
		pgconv.UUIDPtrToPgtype(res.FlashSaleProductID()),
		string(res.Status()),
		res.ExpiresAt(),
		now,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to insert stock reservation", err)
	}
	return nil
}

func (r *StockRepository) GetReservationForUpdate(ctx context.Context, id uuid.UUID) (*stock.Reservation, error) {
	res, err := scanReservation(r.db.QueryRow(ctx, getReservationForUpdateSQL, id))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get stock reservation", err)
	}
	return res, nil
}

func (r *StockRepository) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status stock.ReservationStatus, now time.Time) error {
	tag, err := r.db.Exec(ctx, updateReservationStatusSQL, id, string(status), now)
	if err != nil {
		return infra.WrapRepoErr("failed to update stock reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("stock reservation not found", nil, infra.KindNotFound)
	}
	return nil
}

func (r *StockRepository) ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]*stock.Reservation, error) {
	rows, err := r.db.Query(ctx, listExpiredHeldSQL, now, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list expired reservations", err)
	}
	defer rows.Close()

	var out []*stock.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan reservation", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate reservations", err)
	}
	return out, nil
}

func scanStock(row pgx.Row) (*stock.Record, error) {
	var (
		variantID         uuid.UUID
		quantity, reserve int32
		updatedAt         time.Time
	)
	if err := row.Scan(&variantID, &quantity, &reserve, &updatedAt); err != nil {
		return nil, err
	}
	return stock.NewRecord(variantID, int(quantity), int(reserve), updatedAt)
}

func scanReservation(row pgx.Row) (*stock.Reservation, error) {
	var (
		id, checkoutID, variantID uuid.UUID
		quantity                  int32
		flashID                   pgtype.UUID
		status                    string
		expiresAt                 time.Time
	)
	if err := row.Scan(&id, &checkoutID, &variantID, &quantity, &flashID, &status, &expiresAt); err != nil {
		return nil, err
	}
	st, err := stock.ParseReservationStatus(status)
	if err != nil {
		return nil, err
	}
	return stock.ReconstructReservation(id, checkoutID, variantID, int(quantity), pgconv.UUIDPtrFromPgtype(flashID), st, expiresAt), nil
}
