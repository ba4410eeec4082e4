//go:build unit || e2e

package builder

import (
	"time"

	reqdto "storefront-checkout/internal/handler/dto/request"
	"storefront-checkout/internal/usecase/queries"

	"github.com/google/uuid"
)

type CartBuilder struct {
	CartID    uuid.UUID
	VariantID uuid.UUID
	Quantity  int
	UnitPrice int64
	UpdatedAt time.Time
}

func NewCartBuilder() *CartBuilder {
	return &CartBuilder{
		CartID:    uuid.New(),
		VariantID: uuid.New(),
		Quantity:  2,
		UnitPrice: 1_250_000,
		UpdatedAt: time.Now().UTC(),
	}
}

func (b *CartBuilder) With(mutate func(*CartBuilder)) *CartBuilder {
	mutate(b)
	return b
}

func (b *CartBuilder) BuildAddItemRequestDTO() reqdto.AddCartItemRequest {
	return reqdto.AddCartItemRequest{VariantID: b.VariantID, Quantity: b.Quantity}
}

func (b *CartBuilder) BuildView() *queries.CartView {
	total := b.UnitPrice * int64(b.Quantity)
	return &queries.CartView{
		ID: b.CartID,
		Items: []queries.CartLineView{{
			VariantID:    b.VariantID,
			ProductID:    uuid.New(),
			ProductName:  "Walnut Coffee Table",
			VariantName:  "120cm",
			SKU:          "WAL-CT-120",
			Quantity:     b.Quantity,
			UnitPrice:    b.UnitPrice,
			CurrentPrice: b.UnitPrice,
			Active:       true,
			LineTotal:    total,
		}},
		Subtotal:  total,
		UpdatedAt: b.UpdatedAt,
	}
}
