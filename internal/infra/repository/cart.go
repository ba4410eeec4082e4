package repository

import (
	"context"
	"time"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const findCartByUserSQL = `
SELECT id, user_id, session_id, expires_at, updated_at FROM carts WHERE user_id = $1`

const findCartBySessionSQL = `
SELECT id, user_id, session_id, expires_at, updated_at FROM carts WHERE session_id = $1`

const selectCartItemsSQL = `
SELECT id, variant_id, quantity, unit_price
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at, id`

const insertCartSQL = `
INSERT INTO carts (id, user_id, session_id, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`

const upsertCartItemSQL = `
INSERT INTO cart_items (id, cart_id, variant_id, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (cart_id, variant_id)
DO UPDATE SET quantity = EXCLUDED.quantity, unit_price = EXCLUDED.unit_price, updated_at = now()`

const deleteCartItemSQL = `
DELETE FROM cart_items WHERE cart_id = $1 AND variant_id = $2`

const touchCartSQL = `
UPDATE carts SET expires_at = $2, updated_at = $3 WHERE id = $1`

const deleteCartSQL = `
DELETE FROM carts WHERE id = $1`

const deleteCheckedOutCartSQL = `
DELETE FROM carts WHERE id = $1 AND updated_at = $2`

const deleteExpiredCartsSQL = `
DELETE FROM carts
WHERE id IN (
    SELECT id FROM carts
    WHERE expires_at IS NOT NULL AND expires_at < $1
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)`

type CartRepository struct {
	db db.DBTX
}

func NewCartRepository(db db.DBTX) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) FindByOwner(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	query, arg := findCartByUserSQL, owner.UserID
	if owner.IsGuest() {
		query, arg = findCartBySessionSQL, owner.SessionID
	}

	var (
		id                uuid.UUID
		userID, sessionID pgtype.UUID
		expiresAt         pgtype.Timestamptz
		updatedAt         time.Time
	)
	if err := r.db.QueryRow(ctx, query, *arg).Scan(&id, &userID, &sessionID, &expiresAt, &updatedAt); err != nil {
		return nil, infra.WrapRepoErr("failed to find cart", err)
	}

	rows, err := r.db.Query(ctx, selectCartItemsSQL, id)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get cart items", err)
	}
	defer rows.Close()

	var items []cart.Item
	for rows.Next() {
		var (
			itemID, variantID uuid.UUID
			qty               int32
			unitPrice         int64
		)
		if err := rows.Scan(&itemID, &variantID, &qty, &unitPrice); err != nil {
			return nil, infra.WrapRepoErr("failed to scan cart item", err)
		}
		items = append(items, cart.ReconstructItem(itemID, variantID, int(qty), unitPrice))
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate cart items", err)
	}

	loaded := cart.Owner{
		UserID:    pgconv.UUIDPtrFromPgtype(userID),
		SessionID: pgconv.UUIDPtrFromPgtype(sessionID),
	}
	return cart.ReconstructCart(id, loaded, items, pgconv.TimePtrFromPgtype(expiresAt), updatedAt), nil
}

func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	owner := c.Owner()
	_, err := r.db.Exec(ctx, insertCartSQL,
		c.ID(),
		pgconv.UUIDPtrToPgtype(owner.UserID),
		pgconv.UUIDPtrToPgtype(owner.SessionID),
		pgconv.TimePtrToPgtype(c.ExpiresAt()),
		c.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create cart", err)
	}
	return nil
}

func (r *CartRepository) UpsertItem(ctx context.Context, cartID uuid.UUID, item cart.Item) error {
	_, err := r.db.Exec(ctx, upsertCartItemSQL, item.ID(), cartID, item.VariantID(), item.Quantity(), item.UnitPrice())
	if err != nil {
		return infra.WrapRepoErr("failed to upsert cart item", err)
	}
	return nil
}

func (r *CartRepository) DeleteItem(ctx context.Context, cartID, variantID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, deleteCartItemSQL, cartID, variantID); err != nil {
		return infra.WrapRepoErr("failed to delete cart item", err)
	}
	return nil
}

func (r *CartRepository) Touch(ctx context.Context, c *cart.Cart) error {
	if _, err := r.db.Exec(ctx, touchCartSQL, c.ID(), pgconv.TimePtrToPgtype(c.ExpiresAt()), c.UpdatedAt()); err != nil {
		return infra.WrapRepoErr("failed to touch cart", err)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, deleteCartSQL, cartID); err != nil {
		return infra.WrapRepoErr("failed to delete cart", err)
	}
	return nil
}

func (r *CartRepository) DeleteCheckedOut(ctx context.Context, cartID uuid.UUID, version time.Time) error {
	tag, err := r.db.Exec(ctx, deleteCheckedOutCartSQL, cartID, version)
	if err != nil {
		return infra.WrapRepoErr("failed to delete checked out cart", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("cart changed or already checked out", nil, infra.KindNotFound)
	}
	return nil
}

func (r *CartRepository) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteExpiredCartsSQL, now, limit)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to delete expired carts", err)
	}
	return tag.RowsAffected(), nil
}
