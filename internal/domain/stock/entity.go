package stock

import (
	"errors"
	"fmt"
	"time"

	"storefront-checkout/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidStockRecord  = errors.New("reserved quantity out of bounds")
	ErrReservationNotHeld  = errors.New("reservation is not held")
	ErrInvalidReservation  = errors.New("invalid reservation")
	ErrUnknownReservStatus = errors.New("unknown reservation status")
)

// InsufficientStockError names the variant and the units that were still available
// when the reservation was attempted.
type InsufficientStockError struct {
	VariantID uuid.UUID
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	name := e.VariantID.String()
	if e.SKU != "" {
		name = e.SKU
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return errs.ErrInsufficientStock
}

// Record mirrors one product_stock row. Available is derived, never stored.
type Record struct {
	variantID uuid.UUID
	quantity  int
	reserved  int
	updatedAt time.Time
}

func NewRecord(variantID uuid.UUID, quantity, reserved int, updatedAt time.Time) (*Record, error) {
	if quantity < 0 || reserved < 0 || reserved > quantity {
		return nil, ErrInvalidStockRecord
	}
	return &Record{
		variantID: variantID,
		quantity:  quantity,
		reserved:  reserved,
		updatedAt: updatedAt,
	}, nil
}

func (r *Record) VariantID() uuid.UUID { return r.variantID }
func (r *Record) Quantity() int        { return r.quantity }
func (r *Record) Reserved() int        { return r.reserved }
func (r *Record) UpdatedAt() time.Time { return r.updatedAt }

func (r *Record) Available() int {
	return r.quantity - r.reserved
}

func (r *Record) CanReserve(qty int) bool {
	return qty > 0 && r.Available() >= qty
}

func ValidateQuantity(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}
