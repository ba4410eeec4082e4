package cart

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"storefront-checkout/internal/pkg/errs"

	"github.com/google/uuid"
)

// UnavailableItemError names a cart line whose variant is unknown or inactive.
type UnavailableItemError struct {
	VariantID uuid.UUID
}

func (e *UnavailableItemError) Error() string {
	return fmt.Sprintf("variant %s is no longer available", e.VariantID)
}

func (e *UnavailableItemError) Unwrap() error {
	return errs.ErrItemUnavailable
}

// FlashOffer is a live flash-sale price for a variant. Remaining is nil when
// the pool has no stock limit.
type FlashOffer struct {
	FlashSaleProductID uuid.UUID
	Price              int64
	Remaining          *int
}

// Covers reports whether the pool can still take qty units.
func (o *FlashOffer) Covers(qty int) bool {
	return o.Remaining == nil || qty <= *o.Remaining
}

// CatalogEntry is the current catalog view of a variant.
type CatalogEntry struct {
	VariantID   uuid.UUID
	ProductID   uuid.UUID
	CategoryID  *uuid.UUID
	ProductName string
	VariantName string
	SKU         string
	Price       int64
	Active      bool
	Flash       *FlashOffer
}

type Line struct {
	VariantID          uuid.UUID
	ProductID          uuid.UUID
	CategoryID         *uuid.UUID
	ProductName        string
	VariantName        string
	SKU                string
	Quantity           int
	UnitPrice          int64
	OriginalPrice      int64
	CartPrice          int64
	FlashSaleProductID *uuid.UUID
}

func (l Line) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

func (l Line) PriceChanged() bool {
	return l.UnitPrice != l.CartPrice
}

// Snapshot is an immutable, re-priced copy of a cart taken when checkout
// begins. Lines are ordered by variant id so concurrent checkouts lock stock
// rows in the same order.
type Snapshot struct {
	cartID  uuid.UUID
	owner   Owner
	version time.Time
	lines   []Line
}

// Reprice builds a snapshot against current catalog prices. Client or
// add-time prices are never trusted.
func Reprice(c *Cart, catalog map[uuid.UUID]CatalogEntry) (*Snapshot, error) {
	if c.IsEmpty() {
		return nil, errs.ErrCartEmpty
	}

	lines := make([]Line, 0, len(c.items))
	for _, it := range c.items {
		entry, ok := catalog[it.variantID]
		if !ok || !entry.Active {
			return nil, &UnavailableItemError{VariantID: it.variantID}
		}

		line := Line{
			VariantID:     it.variantID,
			ProductID:     entry.ProductID,
			CategoryID:    entry.CategoryID,
			ProductName:   entry.ProductName,
			VariantName:   entry.VariantName,
			SKU:           entry.SKU,
			Quantity:      it.quantity,
			UnitPrice:     entry.Price,
			OriginalPrice: entry.Price,
			CartPrice:     it.unitPrice,
		}
		// a line the pool cannot cover falls back to the regular price
		if entry.Flash != nil && entry.Flash.Price < entry.Price && entry.Flash.Covers(it.quantity) {
			id := entry.Flash.FlashSaleProductID
			line.FlashSaleProductID = &id
			line.UnitPrice = entry.Flash.Price
		}
		lines = append(lines, line)
	}

	slices.SortFunc(lines, func(a, b Line) int {
		return bytes.Compare(a.VariantID[:], b.VariantID[:])
	})

	return &Snapshot{cartID: c.id, owner: c.owner, version: c.updatedAt, lines: lines}, nil
}

func (s *Snapshot) CartID() uuid.UUID { return s.cartID }
func (s *Snapshot) Owner() Owner      { return s.owner }

// Version is the cart's updated_at when the snapshot was taken.
func (s *Snapshot) Version() time.Time { return s.version }

// Lines returns a copy so the snapshot stays immutable.
func (s *Snapshot) Lines() []Line {
	return slices.Clone(s.lines)
}

func (s *Snapshot) Subtotal() int64 {
	var total int64
	for _, l := range s.lines {
		total += l.LineTotal()
	}
	return total
}

func (s *Snapshot) VariantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.lines))
	for i, l := range s.lines {
		ids[i] = l.VariantID
	}
	return ids
}

func (s *Snapshot) HasPriceChanges() bool {
	for _, l := range s.lines {
		if l.PriceChanged() {
			return true
		}
	}
	return false
}
