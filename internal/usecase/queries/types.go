package queries

import (
	"time"

	"storefront-checkout/internal/domain/order"

	"github.com/google/uuid"
)

// CartView shows cart lines at the price captured when added next to the
// current catalog price.
type CartView struct {
	ID        uuid.UUID      `json:"id"`
	Items     []CartLineView `json:"items"`
	Subtotal  int64          `json:"subtotal"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type CartLineView struct {
	VariantID    uuid.UUID `json:"variant_id"`
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	VariantName  string    `json:"variant_name"`
	SKU          string    `json:"sku"`
	Quantity     int       `json:"quantity"`
	UnitPrice    int64     `json:"unit_price"`
	CurrentPrice int64     `json:"current_price"`
	FlashSale    bool      `json:"flash_sale"`
	Active       bool      `json:"active"`
	LineTotal    int64     `json:"line_total"`
}

type OrderItemView struct {
	VariantID     uuid.UUID `json:"variant_id"`
	ProductName   string    `json:"product_name"`
	VariantName   string    `json:"variant_name"`
	SKU           string    `json:"sku"`
	Quantity      int       `json:"quantity"`
	UnitPrice     int64     `json:"unit_price"`
	OriginalPrice int64     `json:"original_price"`
	LineTotal     int64     `json:"line_total"`
	FlashSale     bool      `json:"flash_sale"`
}

type PaymentView struct {
	Method        string     `json:"method"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	TransactionID *string    `json:"transaction_id,omitempty"`
	RedirectURL   *string    `json:"redirect_url,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

type ShippingView struct {
	Recipient      string     `json:"recipient"`
	Phone          string     `json:"phone"`
	Line1          string     `json:"line1"`
	City           string     `json:"city"`
	Province       string     `json:"province"`
	PostalCode     string     `json:"postal_code"`
	Cost           int64      `json:"cost"`
	Courier        *string    `json:"courier,omitempty"`
	TrackingNumber *string    `json:"tracking_number,omitempty"`
	Status         string     `json:"status"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

type OrderView struct {
	ID             uuid.UUID       `json:"id"`
	OrderNumber    string          `json:"order_number"`
	UserID         uuid.UUID       `json:"user_id"`
	Status         string          `json:"status"`
	Currency       string          `json:"currency"`
	Subtotal       int64           `json:"subtotal"`
	Discount       int64           `json:"discount"`
	ShippingAmount int64           `json:"shipping_amount"`
	Total          int64           `json:"total"`
	VoucherCode    *string         `json:"voucher_code,omitempty"`
	Items          []OrderItemView `json:"items"`
	Payment        PaymentView     `json:"payment"`
	Shipping       ShippingView    `json:"shipping"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type OrderListItem struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	Currency    string    `json:"currency"`
	Total       int64     `json:"total"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type AvailabilityView struct {
	VariantID uuid.UUID `json:"variant_id"`
	Available int       `json:"available"`
	InStock   bool      `json:"in_stock"`
}

// ToOrderView flattens the aggregate for API responses.
func ToOrderView(o *order.Order) *OrderView {
	items := make([]OrderItemView, 0, len(o.Items()))
	for _, it := range o.Items() {
		items = append(items, OrderItemView{
			VariantID:     it.VariantID,
			ProductName:   it.ProductName,
			VariantName:   it.VariantName,
			SKU:           it.SKU,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			OriginalPrice: it.OriginalPrice,
			LineTotal:     it.LineTotal(),
			FlashSale:     it.FlashSaleProductID != nil,
		})
	}

	p, s := o.Payment(), o.Shipping()
	return &OrderView{
		ID:             o.ID(),
		OrderNumber:    o.OrderNumber(),
		UserID:         o.UserID(),
		Status:         o.Status().String(),
		Currency:       o.Currency(),
		Subtotal:       o.Subtotal(),
		Discount:       o.Discount(),
		ShippingAmount: o.ShippingAmount(),
		Total:          o.Total(),
		VoucherCode:    o.VoucherCode(),
		Items:          items,
		Payment: PaymentView{
			Method:        string(p.Method),
			Amount:        p.Amount,
			Status:        string(p.Status),
			TransactionID: p.ProviderTransactionID,
			RedirectURL:   p.RedirectURL,
			ExpiresAt:     p.ExpiresAt,
			PaidAt:        p.PaidAt,
		},
		Shipping: ShippingView{
			Recipient:      s.Address.Recipient,
			Phone:          s.Address.Phone,
			Line1:          s.Address.Line1,
			City:           s.Address.City,
			Province:       s.Address.Province,
			PostalCode:     s.Address.PostalCode,
			Cost:           s.Cost,
			Courier:        s.Courier,
			TrackingNumber: s.TrackingNumber,
			Status:         string(s.Status),
			ShippedAt:      s.ShippedAt,
			DeliveredAt:    s.DeliveredAt,
		},
		CreatedAt: o.CreatedAt(),
		UpdatedAt: o.UpdatedAt(),
	}
}
