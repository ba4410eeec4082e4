package repository

import (
	"context"
	"time"

	"storefront-checkout/internal/domain/flashsale"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getFlashSaleProductSQL = `
SELECT fsp.id, fsp.flash_sale_id, fsp.product_id, fsp.variant_id,
       fsp.original_price, fsp.flash_sale_price, fsp.stock_limit, fsp.sold_count,
       fs.start_time, fs.end_time, fs.is_active
FROM flash_sale_products fsp
JOIN flash_sales fs ON fs.id = fsp.flash_sale_id
WHERE fsp.id = $1`

// Window and cap are checked in the same statement that increments, so two
// buyers racing for the last unit cannot both pass.
const allocateFlashSaleSQL = `
UPDATE flash_sale_products fsp
SET sold_count = fsp.sold_count + $2
FROM flash_sales fs
WHERE fsp.id = $1
  AND fs.id = fsp.flash_sale_id
  AND fs.is_active
  AND fs.start_time <= $3 AND $3 < fs.end_time
  AND (fsp.stock_limit IS NULL OR fsp.sold_count + $2 <= fsp.stock_limit)`

const deallocateFlashSaleSQL = `
UPDATE flash_sale_products
SET sold_count = GREATEST(sold_count - $2, 0)
WHERE id = $1`

type FlashSaleRepository struct {
	db db.DBTX
}

func NewFlashSaleRepository(db db.DBTX) *FlashSaleRepository {
	return &FlashSaleRepository{db: db}
}

func (r *FlashSaleRepository) GetProduct(ctx context.Context, id uuid.UUID) (*flashsale.Product, error) {
	var (
		p          flashsale.Params
		stockLimit pgtype.Int4
		soldCount  int32
		start, end time.Time
		active     bool
	)
	err := r.db.QueryRow(ctx, getFlashSaleProductSQL, id).Scan(
		&p.ID, &p.FlashSaleID, &p.ProductID, &p.VariantID,
		&p.OriginalPrice, &p.FlashSalePrice, &stockLimit, &soldCount,
		&start, &end, &active,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get flash sale product", err)
	}

	if stockLimit.Valid {
		limit := int(stockLimit.Int32)
		p.StockLimit = &limit
	}
	p.SoldCount = int(soldCount)
	p.Window = flashsale.NewWindow(start, end, active)

	product, err := flashsale.Reconstruct(p)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid flash sale product row", err)
	}
	return product, nil
}

func (r *FlashSaleRepository) Allocate(ctx context.Context, id uuid.UUID, qty int, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, allocateFlashSaleSQL, id, qty, now)
	if err != nil {
		return false, infra.WrapRepoErr("failed to allocate flash sale stock", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *FlashSaleRepository) Deallocate(ctx context.Context, id uuid.UUID, qty int) error {
	if _, err := r.db.Exec(ctx, deallocateFlashSaleSQL, id, qty); err != nil {
		return infra.WrapRepoErr("failed to deallocate flash sale stock", err)
	}
	return nil
}
