package repository

import (
	"context"
	"time"

	"storefront-checkout/internal/domain/voucher"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const findVoucherByCodeSQL = `
SELECT v.id, v.code, v.discount_type, v.discount_value::text, v.max_discount_amount,
       v.min_purchase_amount, v.usage_limit, v.usage_count, v.usage_limit_per_user,
       v.start_date, v.end_date, v.is_active,
       ARRAY(SELECT vp.product_id::text FROM voucher_products vp WHERE vp.voucher_id = v.id),
       ARRAY(SELECT vc.category_id::text FROM voucher_categories vc WHERE vc.voucher_id = v.id)
FROM vouchers v
WHERE v.code = $1`

const countVoucherUsageSQL = `
SELECT count(*) FROM voucher_usage WHERE voucher_id = $1 AND user_id = $2`

// Fails when the global cap was reached by a concurrent checkout. The row lock
// it takes also serializes the per-user recount that follows.
const incrementVoucherUsageSQL = `
UPDATE vouchers
SET usage_count = usage_count + 1, updated_at = now()
WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`

const decrementVoucherUsageSQL = `
UPDATE vouchers
SET usage_count = GREATEST(usage_count - 1, 0), updated_at = now()
WHERE id = $1`

const insertVoucherUsageSQL = `
INSERT INTO voucher_usage (id, voucher_id, user_id, order_id, used_at)
VALUES ($1, $2, $3, $4, $5)`

const deleteVoucherUsageByOrderSQL = `
DELETE FROM voucher_usage WHERE order_id = $1`

type VoucherRepository struct {
	db db.DBTX
}

func NewVoucherRepository(db db.DBTX) *VoucherRepository {
	return &VoucherRepository{db: db}
}

func (r *VoucherRepository) FindByCode(ctx context.Context, code voucher.Code) (*voucher.Voucher, error) {
	var (
		p             voucher.Params
		discountValue string
		maxDiscount   pgtype.Int8
		usageLimit    pgtype.Int4
		usageCount    int32
		perUser       int32
		products      []string
		categories    []string
	)
	err := r.db.QueryRow(ctx, findVoucherByCodeSQL, code.String()).Scan(
		&p.ID, &p.Code, &p.DiscountType, &discountValue, &maxDiscount,
		&p.MinPurchaseAmount, &usageLimit, &usageCount, &perUser,
		&p.StartDate, &p.EndDate, &p.IsActive,
		&products, &categories,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find voucher by code", err)
	}

	p.DiscountValue, err = pgconv.DecimalFromText(discountValue)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid voucher discount value", err)
	}
	p.MaxDiscountAmount = pgconv.Int64PtrFromPgtype(maxDiscount)
	if usageLimit.Valid {
		limit := int(usageLimit.Int32)
		p.UsageLimit = &limit
	}
	p.UsageCount = int(usageCount)
	p.UsageLimitPerUser = int(perUser)

	if p.EligibleProducts, err = parseUUIDs(products); err != nil {
		return nil, infra.WrapRepoErr("invalid voucher product id", err)
	}
	if p.EligibleCategories, err = parseUUIDs(categories); err != nil {
		return nil, infra.WrapRepoErr("invalid voucher category id", err)
	}

	v, err := voucher.Reconstruct(p)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid voucher row", err)
	}
	return v, nil
}

func (r *VoucherRepository) CountUserUsage(ctx context.Context, voucherID, userID uuid.UUID) (int, error) {
	var n int64
	if err := r.db.QueryRow(ctx, countVoucherUsageSQL, voucherID, userID).Scan(&n); err != nil {
		return 0, infra.WrapRepoErr("failed to count voucher usage", err)
	}
	return int(n), nil
}

func (r *VoucherRepository) IncrementUsage(ctx context.Context, voucherID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, incrementVoucherUsageSQL, voucherID)
	if err != nil {
		return false, infra.WrapRepoErr("failed to increment voucher usage", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *VoucherRepository) DecrementUsage(ctx context.Context, voucherID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, decrementVoucherUsageSQL, voucherID); err != nil {
		return infra.WrapRepoErr("failed to decrement voucher usage", err)
	}
	return nil
}

func (r *VoucherRepository) InsertUsage(ctx context.Context, voucherID, userID, orderID uuid.UUID, usedAt time.Time) error {
	if _, err := r.db.Exec(ctx, insertVoucherUsageSQL, uuid.New(), voucherID, userID, orderID, usedAt); err != nil {
		return infra.WrapRepoErr("failed to insert voucher usage", err)
	}
	return nil
}

func (r *VoucherRepository) DeleteUsageByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteVoucherUsageByOrderSQL, orderID)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to delete voucher usage", err)
	}
	return tag.RowsAffected(), nil
}

func parseUUIDs(in []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(in))
	for _, s := range in {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
