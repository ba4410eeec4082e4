package repository

import (
	"context"
	"time"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/pkg/pgconv"
	"storefront-checkout/internal/pkg/ptr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// The lateral join picks the cheapest live flash offer per variant that still
// has units left in its pool.
const catalogEntriesSQL = `
SELECT pv.id, p.id, p.category_id, p.name, pv.name, pv.sku, pv.price,
       (pv.is_active AND p.is_active) AS active,
       fo.id, fo.flash_sale_price, fo.remaining
FROM product_variants pv
JOIN products p ON p.id = pv.product_id
LEFT JOIN LATERAL (
    SELECT fsp.id, fsp.flash_sale_price, fsp.stock_limit - fsp.sold_count AS remaining
    FROM flash_sale_products fsp
    JOIN flash_sales fs ON fs.id = fsp.flash_sale_id
    WHERE fsp.variant_id = pv.id
      AND fs.is_active
      AND fs.start_time <= $2 AND $2 < fs.end_time
      AND (fsp.stock_limit IS NULL OR fsp.sold_count < fsp.stock_limit)
    ORDER BY fsp.flash_sale_price, fsp.id
    LIMIT 1
) fo ON true
WHERE pv.id = ANY($1)`

const addressByIDSQL = `
SELECT recipient, phone, line1, city, province, postal_code
FROM addresses
WHERE id = $1 AND user_id = $2`

type CatalogRepository struct {
	db db.DBTX
}

func NewCatalogRepository(db db.DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) Entries(ctx context.Context, variantIDs []uuid.UUID, now time.Time) (map[uuid.UUID]cart.CatalogEntry, error) {
	out := make(map[uuid.UUID]cart.CatalogEntry, len(variantIDs))
	if len(variantIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, catalogEntriesSQL, variantIDs, now)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load catalog entries", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e          cart.CatalogEntry
			categoryID pgtype.UUID
			flashID    pgtype.UUID
			flashPrice pgtype.Int8
			remaining  pgtype.Int4
		)
		if err := rows.Scan(
			&e.VariantID, &e.ProductID, &categoryID, &e.ProductName, &e.VariantName, &e.SKU, &e.Price,
			&e.Active, &flashID, &flashPrice, &remaining,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan catalog entry", err)
		}
		e.CategoryID = pgconv.UUIDPtrFromPgtype(categoryID)
		if flashID.Valid && flashPrice.Valid {
			e.Flash = &cart.FlashOffer{FlashSaleProductID: flashID.Bytes, Price: flashPrice.Int64}
			if remaining.Valid {
				e.Flash.Remaining = ptr.Of(int(remaining.Int32))
			}
		}
		out[e.VariantID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate catalog entries", err)
	}
	return out, nil
}

func (r *CatalogRepository) Address(ctx context.Context, userID, addressID uuid.UUID) (*order.Address, error) {
	var a order.Address
	err := r.db.QueryRow(ctx, addressByIDSQL, addressID, userID).Scan(
		&a.Recipient, &a.Phone, &a.Line1, &a.City, &a.Province, &a.PostalCode,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get address", err)
	}
	return &a, nil
}
