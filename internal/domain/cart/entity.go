package cart

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const MaxLineQuantity = 99

var (
	ErrInvalidOwner      = errors.New("cart must belong to a user or a session")
	ErrInvalidQuantity   = errors.New("quantity must be between 1 and 99")
	ErrItemNotInCart     = errors.New("item not in cart")
	ErrNegativeUnitPrice = errors.New("unit price cannot be negative")
)

// Owner identifies who a cart belongs to. Exactly one of the fields is set.
type Owner struct {
	UserID    *uuid.UUID
	SessionID *uuid.UUID
}

func UserOwner(id uuid.UUID) Owner    { return Owner{UserID: &id} }
func SessionOwner(id uuid.UUID) Owner { return Owner{SessionID: &id} }

func (o Owner) IsGuest() bool {
	return o.UserID == nil && o.SessionID != nil
}

func (o Owner) Validate() error {
	if (o.UserID == nil) == (o.SessionID == nil) {
		return ErrInvalidOwner
	}
	return nil
}

type Item struct {
	id        uuid.UUID
	variantID uuid.UUID
	quantity  int
	unitPrice int64
}

func NewItem(variantID uuid.UUID, qty int, unitPrice int64) (Item, error) {
	if qty < 1 || qty > MaxLineQuantity {
		return Item{}, ErrInvalidQuantity
	}
	if unitPrice < 0 {
		return Item{}, ErrNegativeUnitPrice
	}
	return Item{id: uuid.New(), variantID: variantID, quantity: qty, unitPrice: unitPrice}, nil
}

func ReconstructItem(id, variantID uuid.UUID, qty int, unitPrice int64) Item {
	return Item{id: id, variantID: variantID, quantity: qty, unitPrice: unitPrice}
}

func (i Item) ID() uuid.UUID        { return i.id }
func (i Item) VariantID() uuid.UUID { return i.variantID }
func (i Item) Quantity() int        { return i.quantity }

// UnitPrice is the price captured when the item was added.
func (i Item) UnitPrice() int64 { return i.unitPrice }

func (i Item) LineTotal() int64 {
	return i.unitPrice * int64(i.quantity)
}

type Cart struct {
	id        uuid.UUID
	owner     Owner
	items     []Item
	expiresAt *time.Time
	updatedAt time.Time
}

// NewCart gives guest carts an expiry; user carts live until checkout.
func NewCart(owner Owner, now time.Time, guestTTL time.Duration) (*Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	c := &Cart{id: uuid.New(), owner: owner, updatedAt: now}
	if owner.IsGuest() {
		exp := now.Add(guestTTL)
		c.expiresAt = &exp
	}
	return c, nil
}

func ReconstructCart(id uuid.UUID, owner Owner, items []Item, expiresAt *time.Time, updatedAt time.Time) *Cart {
	return &Cart{id: id, owner: owner, items: items, expiresAt: expiresAt, updatedAt: updatedAt}
}

func (c *Cart) ID() uuid.UUID         { return c.id }
func (c *Cart) Owner() Owner          { return c.owner }
func (c *Cart) Items() []Item         { return c.items }
func (c *Cart) ExpiresAt() *time.Time { return c.expiresAt }
func (c *Cart) UpdatedAt() time.Time  { return c.updatedAt }

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

func (c *Cart) IsExpired(now time.Time) bool {
	return c.expiresAt != nil && now.After(*c.expiresAt)
}

func (c *Cart) Find(variantID uuid.UUID) (Item, bool) {
	for _, it := range c.items {
		if it.variantID == variantID {
			return it, true
		}
	}
	return Item{}, false
}

// AddItem merges quantities for a variant already in the cart and refreshes
// the price snapshot to the price seen now.
func (c *Cart) AddItem(variantID uuid.UUID, qty int, unitPrice int64) (Item, error) {
	for idx, it := range c.items {
		if it.variantID != variantID {
			continue
		}
		merged, err := NewItem(variantID, it.quantity+qty, unitPrice)
		if err != nil {
			return Item{}, err
		}
		merged.id = it.id
		c.items[idx] = merged
		return merged, nil
	}

	item, err := NewItem(variantID, qty, unitPrice)
	if err != nil {
		return Item{}, err
	}
	c.items = append(c.items, item)
	return item, nil
}

func (c *Cart) SetQuantity(variantID uuid.UUID, qty int) (Item, error) {
	for idx, it := range c.items {
		if it.variantID != variantID {
			continue
		}
		if qty < 1 || qty > MaxLineQuantity {
			return Item{}, ErrInvalidQuantity
		}
		c.items[idx].quantity = qty
		return c.items[idx], nil
	}
	return Item{}, ErrItemNotInCart
}

func (c *Cart) RemoveItem(variantID uuid.UUID) error {
	for idx, it := range c.items {
		if it.variantID == variantID {
			c.items = append(c.items[:idx], c.items[idx+1:]...)
			return nil
		}
	}
	return ErrItemNotInCart
}

func (c *Cart) Touch(now time.Time, guestTTL time.Duration) {
	c.updatedAt = now
	if c.owner.IsGuest() {
		exp := now.Add(guestTTL)
		c.expiresAt = &exp
	}
}

func (c *Cart) Subtotal() int64 {
	var total int64
	for _, it := range c.items {
		total += it.LineTotal()
	}
	return total
}
