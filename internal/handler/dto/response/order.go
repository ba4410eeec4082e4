package response

import (
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/queries"
)

type OrderResponse struct {
	ID             string              `json:"id"`
	OrderNumber    string              `json:"order_number"`
	UserID         string              `json:"user_id"`
	Status         string              `json:"status"`
	Currency       string              `json:"currency"`
	Subtotal       int64               `json:"subtotal"`
	Discount       int64               `json:"discount"`
	ShippingAmount int64               `json:"shipping_amount"`
	Total          int64               `json:"total"`
	VoucherCode    *string             `json:"voucher_code,omitempty"`
	Items          []OrderItemResponse `json:"items"`
	Payment        PaymentResponse     `json:"payment"`
	Shipping       ShippingResponse    `json:"shipping"`
	CreatedAt      int64               `json:"created_at"`
	UpdatedAt      int64               `json:"updated_at"`
}

type OrderItemResponse struct {
	VariantID     string `json:"variant_id"`
	ProductName   string `json:"product_name"`
	VariantName   string `json:"variant_name"`
	SKU           string `json:"sku"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unit_price"`
	OriginalPrice int64  `json:"original_price"`
	LineTotal     int64  `json:"line_total"`
	FlashSale     bool   `json:"flash_sale"`
}

type PaymentResponse struct {
	Method        string  `json:"method"`
	Amount        int64   `json:"amount"`
	Status        string  `json:"status"`
	TransactionID *string `json:"transaction_id,omitempty"`
	RedirectURL   *string `json:"redirect_url,omitempty"`
	ExpiresAt     int64   `json:"expires_at"`
	PaidAt        *int64  `json:"paid_at,omitempty"`
}

type ShippingResponse struct {
	Recipient      string  `json:"recipient"`
	Phone          string  `json:"phone"`
	Line1          string  `json:"line1"`
	City           string  `json:"city"`
	Province       string  `json:"province"`
	PostalCode     string  `json:"postal_code"`
	Cost           int64   `json:"cost"`
	Courier        *string `json:"courier,omitempty"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
	Status         string  `json:"status"`
	ShippedAt      *int64  `json:"shipped_at,omitempty"`
	DeliveredAt    *int64  `json:"delivered_at,omitempty"`
}

func FromOrderView(v *queries.OrderView) (*OrderResponse, error) {
	res := &OrderResponse{}
	if err := copyInto(res, v); err != nil {
		return nil, err
	}
	return res, nil
}

type CheckoutResponse struct {
	Order *OrderResponse `json:"order"`
	// PaymentPending is set when the order was placed but no payment session
	// could be opened yet.
	PaymentPending bool `json:"payment_pending"`
}

func FromCheckoutResult(r *commands.CheckoutResult) (*CheckoutResponse, error) {
	o, err := FromOrderView(queries.ToOrderView(r.Order))
	if err != nil {
		return nil, err
	}
	return &CheckoutResponse{Order: o, PaymentPending: r.PaymentPending}, nil
}

type OrderListItemResponse struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	Currency    string `json:"currency"`
	Total       int64  `json:"total"`
	ItemCount   int    `json:"item_count"`
	CreatedAt   int64  `json:"created_at"`
}

func FromOrderList(items []*queries.OrderListItem) []*OrderListItemResponse {
	res := make([]*OrderListItemResponse, len(items))
	for i, it := range items {
		res[i] = &OrderListItemResponse{
			ID:          it.ID.String(),
			OrderNumber: it.OrderNumber,
			Status:      it.Status,
			Currency:    it.Currency,
			Total:       it.Total,
			ItemCount:   it.ItemCount,
			CreatedAt:   it.CreatedAt.Unix(),
		}
	}
	return res
}

type VoucherPreviewResponse struct {
	Code           string `json:"code"`
	DiscountType   string `json:"discount_type"`
	Subtotal       int64  `json:"subtotal"`
	DiscountAmount int64  `json:"discount_amount"`
	FreeShipping   bool   `json:"free_shipping"`
}

func FromVoucherPreview(p *commands.VoucherPreview) *VoucherPreviewResponse {
	return &VoucherPreviewResponse{
		Code:           p.Code,
		DiscountType:   string(p.DiscountType),
		Subtotal:       p.Subtotal,
		DiscountAmount: p.DiscountAmount,
		FreeShipping:   p.FreeShipping,
	}
}
