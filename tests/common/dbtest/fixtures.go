//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const defaultCategoryName = "Living Room"

type VariantSeed struct {
	ProductName string
	VariantName string
	SKU         string
	Price       int64
	Stock       int
	Inactive    bool
}

type VariantFixture struct {
	CategoryID uuid.UUID
	ProductID  uuid.UUID
	VariantID  uuid.UUID
}

// SeedVariant inserts a product with one variant and its stock record.
func SeedVariant(t *testing.T, db DBLike, seed VariantSeed) VariantFixture {
	t.Helper()

	ctx := context.Background()
	var f VariantFixture

	err := db.QueryRow(ctx, "SELECT id FROM categories WHERE name = $1 LIMIT 1", defaultCategoryName).Scan(&f.CategoryID)
	require.NoError(t, err)

	if seed.ProductName == "" {
		seed.ProductName = "Rattan Lounge Chair"
	}
	if seed.VariantName == "" {
		seed.VariantName = "Natural"
	}
	if seed.SKU == "" {
		seed.SKU = "SKU-" + strings.ToUpper(uuid.NewString()[:8])
	}

	err = db.QueryRow(ctx,
		"INSERT INTO products (category_id, name, is_active) VALUES ($1, $2, true) RETURNING id",
		f.CategoryID, seed.ProductName).Scan(&f.ProductID)
	require.NoError(t, err)

	err = db.QueryRow(ctx,
		"INSERT INTO product_variants (product_id, sku, name, price, is_active) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		f.ProductID, seed.SKU, seed.VariantName, seed.Price, !seed.Inactive).Scan(&f.VariantID)
	require.NoError(t, err)

	_, err = db.Exec(ctx,
		"INSERT INTO product_stock (variant_id, quantity, reserved_quantity) VALUES ($1, $2, 0)",
		f.VariantID, seed.Stock)
	require.NoError(t, err)

	return f
}

func SeedAddress(t *testing.T, db DBLike, userID uuid.UUID) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := db.QueryRow(context.Background(), `
		INSERT INTO addresses (user_id, recipient, phone, line1, city, province, postal_code)
		VALUES ($1, 'Dewi Lestari', '+628123456789', 'Jl. Kemang Raya No. 8', 'Jakarta Selatan', 'DKI Jakarta', '12730')
		RETURNING id`, userID).Scan(&id)
	require.NoError(t, err)
	return id
}

type VoucherSeed struct {
	Code          string
	DiscountType  string
	DiscountValue string
	MaxDiscount   *int64
	MinPurchase   int64
	UsageLimit    *int
	PerUserLimit  int
	StartDate     time.Time
	EndDate       time.Time
}

// SeedVoucher inserts an active voucher valid from an hour ago for a week
// unless the seed says otherwise.
func SeedVoucher(t *testing.T, db DBLike, seed VoucherSeed) uuid.UUID {
	t.Helper()

	now := time.Now()
	if seed.DiscountType == "" {
		seed.DiscountType = "fixed_amount"
	}
	if seed.DiscountValue == "" {
		seed.DiscountValue = "0"
	}
	if seed.PerUserLimit == 0 {
		seed.PerUserLimit = 1
	}
	if seed.StartDate.IsZero() {
		seed.StartDate = now.Add(-time.Hour)
	}
	if seed.EndDate.IsZero() {
		seed.EndDate = now.Add(7 * 24 * time.Hour)
	}

	var id uuid.UUID
	err := db.QueryRow(context.Background(), `
		INSERT INTO vouchers (code, discount_type, discount_value, max_discount_amount, min_purchase_amount,
		                      usage_limit, usage_limit_per_user, start_date, end_date, is_active)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, true)
		RETURNING id`,
		seed.Code, seed.DiscountType, seed.DiscountValue, seed.MaxDiscount, seed.MinPurchase,
		seed.UsageLimit, seed.PerUserLimit, seed.StartDate, seed.EndDate).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedFlashSale opens a sale that is live now and lists the variant in it.
// It returns the flash sale product id.
func SeedFlashSale(t *testing.T, db DBLike, f VariantFixture, originalPrice, salePrice int64, stockLimit *int) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	now := time.Now()

	var saleID uuid.UUID
	err := db.QueryRow(ctx,
		"INSERT INTO flash_sales (name, start_time, end_time, is_active) VALUES ($1, $2, $3, true) RETURNING id",
		"Harbolnas", now.Add(-time.Hour), now.Add(2*time.Hour)).Scan(&saleID)
	require.NoError(t, err)

	var fspID uuid.UUID
	err = db.QueryRow(ctx, `
		INSERT INTO flash_sale_products (flash_sale_id, product_id, variant_id, original_price, flash_sale_price, stock_limit)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		saleID, f.ProductID, f.VariantID, originalPrice, salePrice, stockLimit).Scan(&fspID)
	require.NoError(t, err)
	return fspID
}

type StockLevel struct {
	Quantity int
	Reserved int
}

func GetStockLevel(t *testing.T, db DBLike, variantID uuid.UUID) StockLevel {
	t.Helper()

	var lvl StockLevel
	err := db.QueryRow(context.Background(),
		"SELECT quantity, reserved_quantity FROM product_stock WHERE variant_id = $1", variantID).
		Scan(&lvl.Quantity, &lvl.Reserved)
	require.NoError(t, err)
	return lvl
}

func GetVoucherUsageCount(t *testing.T, db DBLike, voucherID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(context.Background(), "SELECT usage_count FROM vouchers WHERE id = $1", voucherID).Scan(&count)
	require.NoError(t, err)
	return count
}

func GetFlashSoldCount(t *testing.T, db DBLike, flashSaleProductID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(context.Background(), "SELECT sold_count FROM flash_sale_products WHERE id = $1", flashSaleProductID).Scan(&count)
	require.NoError(t, err)
	return count
}

// counts reservations for a variant grouped by status
func CountReservations(t *testing.T, db DBLike, variantID uuid.UUID) map[string]int {
	t.Helper()

	rows, err := db.Query(context.Background(),
		"SELECT status, count(*) FROM stock_reservations WHERE variant_id = $1 GROUP BY status", variantID)
	require.NoError(t, err)
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		require.NoError(t, rows.Scan(&status, &n))
		out[status] = n
	}
	require.NoError(t, rows.Err())
	return out
}

func CountOrders(t *testing.T, db DBLike, userID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(context.Background(), "SELECT count(*) FROM orders WHERE user_id = $1", userID).Scan(&count)
	require.NoError(t, err)
	return count
}

// SeedHeldReservation records a hold the way Reserve does: the reservation row,
// the reserved units and, for flash lines, the pool allocation.
func SeedHeldReservation(t *testing.T, db DBLike, variantID uuid.UUID, qty int, flashSaleProductID *uuid.UUID, expiresAt time.Time) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	var id uuid.UUID
	err := db.QueryRow(ctx, `
		INSERT INTO stock_reservations (checkout_id, variant_id, quantity, flash_sale_product_id, status, expires_at)
		VALUES ($1, $2, $3, $4, 'held', $5)
		RETURNING id`,
		uuid.New(), variantID, qty, flashSaleProductID, expiresAt).Scan(&id)
	require.NoError(t, err)

	_, err = db.Exec(ctx,
		"UPDATE product_stock SET reserved_quantity = reserved_quantity + $2 WHERE variant_id = $1", variantID, qty)
	require.NoError(t, err)

	if flashSaleProductID != nil {
		_, err = db.Exec(ctx,
			"UPDATE flash_sale_products SET sold_count = sold_count + $2 WHERE id = $1", *flashSaleProductID, qty)
		require.NoError(t, err)
	}
	return id
}

func GetReservationStatus(t *testing.T, db DBLike, reservationID uuid.UUID) string {
	t.Helper()

	var status string
	err := db.QueryRow(context.Background(), "SELECT status FROM stock_reservations WHERE id = $1", reservationID).Scan(&status)
	require.NoError(t, err)
	return status
}

// backdates every pending payment of the order so the reclaimer treats it as stale
func ExpirePayment(t *testing.T, db DBLike, orderID uuid.UUID) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		"UPDATE payments SET expires_at = now() - interval '1 minute' WHERE order_id = $1", orderID)
	require.NoError(t, err)
}

// inserts basic reference data needed by tests
func SeedReferenceData(pool *pgxpool.Pool) error {
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO categories (name)
		SELECT v.name FROM (VALUES ('Living Room'), ('Bedroom'), ('Outdoor')) AS v(name)
		WHERE NOT EXISTS (SELECT 1 FROM categories c WHERE c.name = v.name);
	`)
	if err != nil {
		return err
	}

	return nil
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables and reseeds reference data
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations', 'atlas_schema_revisions')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return SeedReferenceData(pool)
}
