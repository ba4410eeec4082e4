package repository

import (
	"context"
	"time"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/infra/db"
	"storefront-checkout/internal/infra/repository/converter"
	"storefront-checkout/internal/pkg/pgconv"

	"github.com/google/uuid"
)

const insertOrderSQL = `
INSERT INTO orders
    (id, order_number, checkout_id, user_id, status, currency,
     subtotal_amount, discount_amount, shipping_amount, total_amount,
     voucher_id, voucher_code, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`

const insertOrderItemSQL = `
INSERT INTO order_items
    (id, order_id, variant_id, product_id, product_name, variant_name, sku,
     unit_price, original_price, quantity, line_total, flash_sale_product_id, reservation_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const insertPaymentSQL = `
INSERT INTO payments (id, order_id, method, amount, status, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

const insertShippingSQL = `
INSERT INTO shipping
    (id, order_id, recipient, phone, line1, city, province, postal_code, shipping_cost, status, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const selectOrderColumns = `
SELECT id, order_number, checkout_id, user_id, status, currency,
       subtotal_amount, discount_amount, shipping_amount, total_amount,
       voucher_id, voucher_code, created_at, updated_at
FROM orders
WHERE id = $1`

const selectOrderItemsSQL = `
SELECT id, variant_id, product_id, product_name, variant_name, sku,
       unit_price, original_price, quantity, flash_sale_product_id, reservation_id
FROM order_items
WHERE order_id = $1
ORDER BY variant_id`

const selectPaymentSQL = `
SELECT id, method, amount, status, provider_transaction_id, redirect_url, expires_at, paid_at
FROM payments
WHERE order_id = $1`

const selectShippingSQL = `
SELECT id, recipient, phone, line1, city, province, postal_code, shipping_cost,
       courier, tracking_number, status, shipped_at, delivered_at
FROM shipping
WHERE order_id = $1`

const updateOrderStatusSQL = `
UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

const updatePaymentStatusSQL = `
UPDATE payments SET status = $2, paid_at = $3, updated_at = $4 WHERE order_id = $1`

const updateShippingStatusSQL = `
UPDATE shipping
SET status = $2, courier = $3, tracking_number = $4, shipped_at = $5, delivered_at = $6, updated_at = $7
WHERE order_id = $1`

const updatePaymentSessionSQL = `
UPDATE payments
SET provider_transaction_id = $2, redirect_url = $3, updated_at = now()
WHERE order_id = $1`

const listExpiredPendingSQL = `
SELECT o.id
FROM orders o
JOIN payments p ON p.order_id = o.id
WHERE o.status = 'pending_payment' AND p.status = 'pending' AND p.expires_at < $1
ORDER BY p.expires_at
LIMIT $2
FOR UPDATE OF o SKIP LOCKED`

type OrderRepository struct {
	db db.DBTX
}

func NewOrderRepository(db db.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.db.Exec(ctx, insertOrderSQL,
		o.ID(), o.OrderNumber(), o.CheckoutID(), o.UserID(), o.Status().String(), o.Currency(),
		o.Subtotal(), o.Discount(), o.ShippingAmount(), o.Total(),
		pgconv.UUIDPtrToPgtype(o.VoucherID()), pgconv.StringPtrToPgtype(o.VoucherCode()),
		o.CreatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to insert order", err)
	}

	for _, it := range o.Items() {
		_, err = r.db.Exec(ctx, insertOrderItemSQL,
			it.ID, o.ID(), it.VariantID, it.ProductID, it.ProductName, it.VariantName, it.SKU,
			it.UnitPrice, it.OriginalPrice, it.Quantity, it.LineTotal(),
			pgconv.UUIDPtrToPgtype(it.FlashSaleProductID), it.ReservationID,
		)
		if err != nil {
			return infra.WrapRepoErr("failed to insert order item", err)
		}
	}

	p := o.Payment()
	_, err = r.db.Exec(ctx, insertPaymentSQL, p.ID, o.ID(), string(p.Method), p.Amount, string(p.Status), p.ExpiresAt, o.CreatedAt())
	if err != nil {
		return infra.WrapRepoErr("failed to insert payment", err)
	}

	s := o.Shipping()
	_, err = r.db.Exec(ctx, insertShippingSQL,
		s.ID, o.ID(), s.Address.Recipient, s.Address.Phone, s.Address.Line1, s.Address.City,
		s.Address.Province, s.Address.PostalCode, s.Cost, string(s.Status), o.CreatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to insert shipping", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.load(ctx, selectOrderColumns, id)
}

func (r *OrderRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.load(ctx, selectOrderColumns+"\nFOR UPDATE", id)
}

func (r *OrderRepository) load(ctx context.Context, query string, id uuid.UUID) (*order.Order, error) {
	var o converter.OrderRow
	err := r.db.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.OrderNumber, &o.CheckoutID, &o.UserID, &o.Status, &o.Currency,
		&o.SubtotalAmount, &o.DiscountAmount, &o.ShippingAmount, &o.TotalAmount,
		&o.VoucherID, &o.VoucherCode, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get order", err)
	}

	rows, err := r.db.Query(ctx, selectOrderItemsSQL, id)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get order items", err)
	}
	var items []converter.OrderItemRow
	for rows.Next() {
		var it converter.OrderItemRow
		if err := rows.Scan(
			&it.ID, &it.VariantID, &it.ProductID, &it.ProductName, &it.VariantName, &it.SKU,
			&it.UnitPrice, &it.OriginalPrice, &it.Quantity, &it.FlashSaleProductID, &it.ReservationID,
		); err != nil {
			rows.Close()
			return nil, infra.WrapRepoErr("failed to scan order item", err)
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order items", err)
	}

	var p converter.PaymentRow
	err = r.db.QueryRow(ctx, selectPaymentSQL, id).Scan(
		&p.ID, &p.Method, &p.Amount, &p.Status, &p.ProviderTransactionID, &p.RedirectURL, &p.ExpiresAt, &p.PaidAt,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get payment", err)
	}

	var s converter.ShippingRow
	err = r.db.QueryRow(ctx, selectShippingSQL, id).Scan(
		&s.ID, &s.Recipient, &s.Phone, &s.Line1, &s.City, &s.Province, &s.PostalCode, &s.ShippingCost,
		&s.Courier, &s.TrackingNumber, &s.Status, &s.ShippedAt, &s.DeliveredAt,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get shipping", err)
	}

	out, err := converter.OrderToDomain(o, items, p, s)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid order row", err)
	}
	return out, nil
}

// UpdateState persists status, payment and shipping fields after a transition.
func (r *OrderRepository) UpdateState(ctx context.Context, o *order.Order) error {
	now := o.UpdatedAt()
	if _, err := r.db.Exec(ctx, updateOrderStatusSQL, o.ID(), o.Status().String(), now); err != nil {
		return infra.WrapRepoErr("failed to update order status", err)
	}

	p := o.Payment()
	if _, err := r.db.Exec(ctx, updatePaymentStatusSQL, o.ID(), string(p.Status), pgconv.TimePtrToPgtype(p.PaidAt), now); err != nil {
		return infra.WrapRepoErr("failed to update payment status", err)
	}

	s := o.Shipping()
	_, err := r.db.Exec(ctx, updateShippingStatusSQL, o.ID(), string(s.Status),
		pgconv.StringPtrToPgtype(s.Courier), pgconv.StringPtrToPgtype(s.TrackingNumber),
		pgconv.TimePtrToPgtype(s.ShippedAt), pgconv.TimePtrToPgtype(s.DeliveredAt), now,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update shipping status", err)
	}
	return nil
}

func (r *OrderRepository) UpdatePaymentSession(ctx context.Context, orderID uuid.UUID, transactionID, redirectURL string) error {
	tag, err := r.db.Exec(ctx, updatePaymentSessionSQL, orderID, transactionID, redirectURL)
	if err != nil {
		return infra.WrapRepoErr("failed to update payment session", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
	}
	return nil
}

func (r *OrderRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, listExpiredPendingSQL, now, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list expired orders", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate expired orders", err)
	}
	return ids, nil
}
