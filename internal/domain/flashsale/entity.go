package flashsale

import (
	"errors"
	"fmt"
	"time"

	"storefront-checkout/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrInvalidFlashSalePrice = errors.New("flash sale price exceeds original price")
	ErrInvalidSoldCount      = errors.New("sold count out of bounds")
)

// SoldOutError is returned when an allocation would push sold_count past
// stock_limit or the sale window is closed.
type SoldOutError struct {
	FlashSaleProductID uuid.UUID
	VariantID          uuid.UUID
	Requested          int
	Remaining          int
}

func (e *SoldOutError) Error() string {
	return fmt.Sprintf("flash sale product %s sold out: requested %d, remaining %d",
		e.FlashSaleProductID, e.Requested, e.Remaining)
}

func (e *SoldOutError) Unwrap() error {
	return errs.ErrFlashSaleSoldOut
}

type Window struct {
	start  time.Time
	end    time.Time
	active bool
}

func NewWindow(start, end time.Time, active bool) Window {
	return Window{start: start, end: end, active: active}
}

func (w Window) Contains(t time.Time) bool {
	return w.active && !t.Before(w.start) && t.Before(w.end)
}

func (w Window) Start() time.Time { return w.start }
func (w Window) End() time.Time   { return w.end }

// Product is a flash-sale price and stock pool layered over one variant.
type Product struct {
	id             uuid.UUID
	flashSaleID    uuid.UUID
	productID      uuid.UUID
	variantID      uuid.UUID
	originalPrice  int64
	flashSalePrice int64
	stockLimit     *int
	soldCount      int
	window         Window
}

type Params struct {
	ID             uuid.UUID
	FlashSaleID    uuid.UUID
	ProductID      uuid.UUID
	VariantID      uuid.UUID
	OriginalPrice  int64
	FlashSalePrice int64
	StockLimit     *int
	SoldCount      int
	Window         Window
}

func Reconstruct(p Params) (*Product, error) {
	if p.FlashSalePrice > p.OriginalPrice || p.FlashSalePrice < 0 {
		return nil, ErrInvalidFlashSalePrice
	}
	if p.SoldCount < 0 || (p.StockLimit != nil && p.SoldCount > *p.StockLimit) {
		return nil, ErrInvalidSoldCount
	}
	return &Product{
		id:             p.ID,
		flashSaleID:    p.FlashSaleID,
		productID:      p.ProductID,
		variantID:      p.VariantID,
		originalPrice:  p.OriginalPrice,
		flashSalePrice: p.FlashSalePrice,
		stockLimit:     p.StockLimit,
		soldCount:      p.SoldCount,
		window:         p.Window,
	}, nil
}

func (p *Product) ID() uuid.UUID          { return p.id }
func (p *Product) FlashSaleID() uuid.UUID { return p.flashSaleID }
func (p *Product) ProductID() uuid.UUID   { return p.productID }
func (p *Product) VariantID() uuid.UUID   { return p.variantID }
func (p *Product) OriginalPrice() int64   { return p.originalPrice }
func (p *Product) FlashSalePrice() int64  { return p.flashSalePrice }
func (p *Product) StockLimit() *int       { return p.stockLimit }
func (p *Product) SoldCount() int         { return p.soldCount }
func (p *Product) Window() Window         { return p.window }

func (p *Product) IsLive(now time.Time) bool {
	return p.window.Contains(now)
}

// Remaining returns -1 when the pool is uncapped.
func (p *Product) Remaining() int {
	if p.stockLimit == nil {
		return -1
	}
	return *p.stockLimit - p.soldCount
}

// CanAllocate mirrors the conditional UPDATE the allocator runs, so callers can
// fail fast before touching the database.
func (p *Product) CanAllocate(qty int, now time.Time) error {
	if qty <= 0 {
		return ErrInvalidSoldCount
	}
	if !p.IsLive(now) {
		return p.soldOut(qty)
	}
	if p.stockLimit != nil && p.soldCount+qty > *p.stockLimit {
		return p.soldOut(qty)
	}
	return nil
}

func (p *Product) soldOut(qty int) *SoldOutError {
	remaining := p.Remaining()
	if remaining < 0 || !p.window.active {
		remaining = 0
	}
	return &SoldOutError{
		FlashSaleProductID: p.id,
		VariantID:          p.variantID,
		Requested:          qty,
		Remaining:          remaining,
	}
}
