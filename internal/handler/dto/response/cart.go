package response

import (
	"storefront-checkout/internal/usecase/queries"

	"github.com/google/uuid"
)

type CartResponse struct {
	ID        string             `json:"id"`
	Items     []CartLineResponse `json:"items"`
	Subtotal  int64              `json:"subtotal"`
	ExpiresAt *int64             `json:"expires_at,omitempty"`
	UpdatedAt int64              `json:"updated_at"`
}

type CartLineResponse struct {
	VariantID    string `json:"variant_id"`
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	VariantName  string `json:"variant_name"`
	SKU          string `json:"sku"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	CurrentPrice int64  `json:"current_price"`
	FlashSale    bool   `json:"flash_sale"`
	Active       bool   `json:"active"`
	LineTotal    int64  `json:"line_total"`
}

func FromCartView(v *queries.CartView) (*CartResponse, error) {
	res := &CartResponse{}
	if err := copyInto(res, v); err != nil {
		return nil, err
	}
	if v.ID == uuid.Nil {
		res.ID = ""
	}
	if res.Items == nil {
		res.Items = []CartLineResponse{}
	}
	return res, nil
}

type AvailabilityResponse struct {
	VariantID string `json:"variant_id"`
	Available int    `json:"available"`
	InStock   bool   `json:"in_stock"`
}

func FromAvailabilityView(v *queries.AvailabilityView) *AvailabilityResponse {
	return &AvailabilityResponse{
		VariantID: v.VariantID.String(),
		Available: v.Available,
		InStock:   v.InStock,
	}
}
