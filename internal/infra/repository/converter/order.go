package converter

import (
	"time"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderRow mirrors the orders table.
type OrderRow struct {
	ID             uuid.UUID
	OrderNumber    string
	CheckoutID     uuid.UUID
	UserID         uuid.UUID
	Status         string
	Currency       string
	SubtotalAmount int64
	DiscountAmount int64
	ShippingAmount int64
	TotalAmount    int64
	VoucherID      pgtype.UUID
	VoucherCode    pgtype.Text
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItemRow struct {
	ID                 uuid.UUID
	VariantID          uuid.UUID
	ProductID          uuid.UUID
	ProductName        string
	VariantName        string
	SKU                string
	UnitPrice          int64
	OriginalPrice      int64
	Quantity           int32
	FlashSaleProductID pgtype.UUID
	ReservationID      uuid.UUID
}

type PaymentRow struct {
	ID                    uuid.UUID
	Method                string
	Amount                int64
	Status                string
	ProviderTransactionID pgtype.Text
	RedirectURL           pgtype.Text
	ExpiresAt             time.Time
	PaidAt                pgtype.Timestamptz
}

type ShippingRow struct {
	ID             uuid.UUID
	Recipient      string
	Phone          string
	Line1          string
	City           string
	Province       string
	PostalCode     string
	ShippingCost   int64
	Courier        pgtype.Text
	TrackingNumber pgtype.Text
	Status         string
	ShippedAt      pgtype.Timestamptz
	DeliveredAt    pgtype.Timestamptz
}

func OrderToDomain(o OrderRow, items []OrderItemRow, p PaymentRow, s ShippingRow) (*order.Order, error) {
	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return nil, err
	}

	domainItems := make([]order.Item, 0, len(items))
	for _, it := range items {
		domainItems = append(domainItems, order.Item{
			ID:                 it.ID,
			VariantID:          it.VariantID,
			ProductID:          it.ProductID,
			ProductName:        it.ProductName,
			VariantName:        it.VariantName,
			SKU:                it.SKU,
			UnitPrice:          it.UnitPrice,
			OriginalPrice:      it.OriginalPrice,
			Quantity:           int(it.Quantity),
			FlashSaleProductID: pgconv.UUIDPtrFromPgtype(it.FlashSaleProductID),
			ReservationID:      it.ReservationID,
		})
	}

	return order.Reconstruct(order.ReconstructParams{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CheckoutID:  o.CheckoutID,
		UserID:      o.UserID,
		Status:      status,
		Currency:    o.Currency,
		Subtotal:    o.SubtotalAmount,
		Discount:    o.DiscountAmount,
		Shipping:    o.ShippingAmount,
		Total:       o.TotalAmount,
		VoucherID:   pgconv.UUIDPtrFromPgtype(o.VoucherID),
		VoucherCode: pgconv.StringPtrFromPgtype(o.VoucherCode),
		Items:       domainItems,
		Payment: order.Payment{
			ID:                    p.ID,
			Method:                order.PaymentMethod(p.Method),
			Amount:                p.Amount,
			Status:                order.PaymentStatus(p.Status),
			ProviderTransactionID: pgconv.StringPtrFromPgtype(p.ProviderTransactionID),
			RedirectURL:           pgconv.StringPtrFromPgtype(p.RedirectURL),
			ExpiresAt:             p.ExpiresAt,
			PaidAt:                pgconv.TimePtrFromPgtype(p.PaidAt),
		},
		ShippingRec: order.Shipping{
			ID: s.ID,
			Address: order.Address{
				Recipient:  s.Recipient,
				Phone:      s.Phone,
				Line1:      s.Line1,
				City:       s.City,
				Province:   s.Province,
				PostalCode: s.PostalCode,
			},
			Cost:           s.ShippingCost,
			Courier:        pgconv.StringPtrFromPgtype(s.Courier),
			TrackingNumber: pgconv.StringPtrFromPgtype(s.TrackingNumber),
			Status:         order.ShippingStatus(s.Status),
			ShippedAt:      pgconv.TimePtrFromPgtype(s.ShippedAt),
			DeliveredAt:    pgconv.TimePtrFromPgtype(s.DeliveredAt),
		},
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}), nil
}
