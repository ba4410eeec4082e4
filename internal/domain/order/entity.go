package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/voucher"
	"storefront-checkout/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrNoItems              = errors.New("order must contain at least one item")
	ErrReservationMismatch  = errors.New("every order line needs exactly one reservation")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrNegativeShipping     = errors.New("shipping cost cannot be negative")
)

// IllegalTransitionError names the rejected move.
type IllegalTransitionError struct {
	OrderID uuid.UUID
	From    Status
	To      Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("order %s: illegal transition %s -> %s", e.OrderID, e.From, e.To)
}

func (e *IllegalTransitionError) Unwrap() error {
	return errs.ErrIllegalStateTransition
}

type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodVirtual      PaymentMethod = "virtual_account"
	PaymentMethodCard         PaymentMethod = "credit_card"
	PaymentMethodEWallet      PaymentMethod = "e_wallet"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentMethodBankTransfer, PaymentMethodVirtual, PaymentMethodCard, PaymentMethodEWallet:
		return m, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// Address is copied onto the shipping record so later edits to the address
// book never change a placed order.
type Address struct {
	Recipient  string
	Phone      string
	Line1      string
	City       string
	Province   string
	PostalCode string
}

type Item struct {
	ID                 uuid.UUID
	VariantID          uuid.UUID
	ProductID          uuid.UUID
	ProductName        string
	VariantName        string
	SKU                string
	UnitPrice          int64
	OriginalPrice      int64
	Quantity           int
	FlashSaleProductID *uuid.UUID
	ReservationID      uuid.UUID
}

func (i Item) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

type Payment struct {
	ID                    uuid.UUID
	Method                PaymentMethod
	Amount                int64
	Status                PaymentStatus
	ProviderTransactionID *string
	RedirectURL           *string
	ExpiresAt             time.Time
	PaidAt                *time.Time
}

type Shipping struct {
	ID             uuid.UUID
	Address        Address
	Cost           int64
	Courier        *string
	TrackingNumber *string
	Status         ShippingStatus
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
}

type Order struct {
	id          uuid.UUID
	orderNumber string
	checkoutID  uuid.UUID
	userID      uuid.UUID
	status      Status
	currency    string
	subtotal    int64
	discount    int64
	shipping    int64
	total       int64
	voucherID   *uuid.UUID
	voucherCode *string
	items       []Item
	payment     Payment
	ship        Shipping
	createdAt   time.Time
	updatedAt   time.Time
}

type NewParams struct {
	CheckoutID     uuid.UUID
	UserID         uuid.UUID
	Currency       string
	Snapshot       *cart.Snapshot
	ReservationIDs map[uuid.UUID]uuid.UUID // variant id -> reservation id
	Voucher        *voucher.Decision
	ShippingCost   int64
	Address        Address
	PaymentMethod  PaymentMethod
	PaymentExpiry  time.Duration
	Now            time.Time
}

// New assembles a pending_payment order from a re-priced snapshot. Totals are
// computed here and nowhere else.
func New(p NewParams) (*Order, error) {
	lines := p.Snapshot.Lines()
	if len(lines) == 0 {
		return nil, ErrNoItems
	}
	if len(p.ReservationIDs) != len(lines) {
		return nil, ErrReservationMismatch
	}
	if p.ShippingCost < 0 {
		return nil, ErrNegativeShipping
	}
	if _, err := ParsePaymentMethod(string(p.PaymentMethod)); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		resID, ok := p.ReservationIDs[l.VariantID]
		if !ok {
			return nil, ErrReservationMismatch
		}
		items = append(items, Item{
			ID:                 uuid.New(),
			VariantID:          l.VariantID,
			ProductID:          l.ProductID,
			ProductName:        l.ProductName,
			VariantName:        l.VariantName,
			SKU:                l.SKU,
			UnitPrice:          l.UnitPrice,
			OriginalPrice:      l.OriginalPrice,
			Quantity:           l.Quantity,
			FlashSaleProductID: l.FlashSaleProductID,
			ReservationID:      resID,
		})
	}

	id := uuid.New()
	o := &Order{
		id:          id,
		orderNumber: NumberFor(id, p.Now),
		checkoutID:  p.CheckoutID,
		userID:      p.UserID,
		status:      StatusPendingPayment,
		currency:    p.Currency,
		subtotal:    p.Snapshot.Subtotal(),
		shipping:    p.ShippingCost,
		items:       items,
		createdAt:   p.Now,
		updatedAt:   p.Now,
	}

	if p.Voucher != nil {
		vid, code := p.Voucher.VoucherID, p.Voucher.Code.String()
		o.voucherID = &vid
		o.voucherCode = &code
		o.discount = p.Voucher.DiscountAmount
		if p.Voucher.FreeShipping {
			o.shipping = 0
		}
	}

	o.total = o.subtotal - o.discount + o.shipping
	if o.total < 0 {
		o.total = 0
	}

	o.payment = Payment{
		ID:        uuid.New(),
		Method:    p.PaymentMethod,
		Amount:    o.total,
		Status:    PaymentPending,
		ExpiresAt: p.Now.Add(p.PaymentExpiry),
	}
	o.ship = Shipping{
		ID:      uuid.New(),
		Address: p.Address,
		Cost:    o.shipping,
		Status:  ShippingPending,
	}
	return o, nil
}

// NumberFor derives a human readable order number, e.g. ORD-20250401-1A2B3C4D.
func NumberFor(id uuid.UUID, now time.Time) string {
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), hex[:8])
}

type ReconstructParams struct {
	ID          uuid.UUID
	OrderNumber string
	CheckoutID  uuid.UUID
	UserID      uuid.UUID
	Status      Status
	Currency    string
	Subtotal    int64
	Discount    int64
	Shipping    int64
	Total       int64
	VoucherID   *uuid.UUID
	VoucherCode *string
	Items       []Item
	Payment     Payment
	ShippingRec Shipping
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func Reconstruct(p ReconstructParams) *Order {
	return &Order{
		id:          p.ID,
		orderNumber: p.OrderNumber,
		checkoutID:  p.CheckoutID,
		userID:      p.UserID,
		status:      p.Status,
		currency:    p.Currency,
		subtotal:    p.Subtotal,
		discount:    p.Discount,
		shipping:    p.Shipping,
		total:       p.Total,
		voucherID:   p.VoucherID,
		voucherCode: p.VoucherCode,
		items:       p.Items,
		payment:     p.Payment,
		ship:        p.ShippingRec,
		createdAt:   p.CreatedAt,
		updatedAt:   p.UpdatedAt,
	}
}

func (o *Order) ID() uuid.UUID           { return o.id }
func (o *Order) OrderNumber() string     { return o.orderNumber }
func (o *Order) CheckoutID() uuid.UUID   { return o.checkoutID }
func (o *Order) UserID() uuid.UUID       { return o.userID }
func (o *Order) Status() Status          { return o.status }
func (o *Order) Currency() string        { return o.currency }
func (o *Order) Subtotal() int64         { return o.subtotal }
func (o *Order) Discount() int64         { return o.discount }
func (o *Order) ShippingAmount() int64   { return o.shipping }
func (o *Order) Total() int64            { return o.total }
func (o *Order) VoucherID() *uuid.UUID   { return o.voucherID }
func (o *Order) VoucherCode() *string    { return o.voucherCode }
func (o *Order) Items() []Item           { return o.items }
func (o *Order) Payment() Payment        { return o.payment }
func (o *Order) Shipping() Shipping      { return o.ship }
func (o *Order) CreatedAt() time.Time    { return o.createdAt }
func (o *Order) UpdatedAt() time.Time    { return o.updatedAt }
func (o *Order) HasVoucher() bool        { return o.voucherID != nil }
func (o *Order) IsAwaitingPayment() bool { return o.status == StatusPendingPayment }

// Transition moves the order to the requested status and returns the side
// effects the caller must apply in the same transaction. Requesting the
// current status is a no-op.
func (o *Order) Transition(to Status, now time.Time) (Effect, error) {
	if _, ok := validNext[to]; !ok {
		return Effect{}, ErrUnknownStatus
	}
	if o.status == to {
		return effectFor(o.status, to), nil
	}
	if !CanTransition(o.status, to) {
		return Effect{}, &IllegalTransitionError{OrderID: o.id, From: o.status, To: to}
	}

	eff := effectFor(o.status, to)
	o.status = to
	o.updatedAt = now

	if eff.Payment != "" {
		o.payment.Status = eff.Payment
		if eff.Payment == PaymentPaid {
			paidAt := now
			o.payment.PaidAt = &paidAt
		}
	}
	if eff.Shipping != "" {
		o.ship.Status = eff.Shipping
		switch eff.Shipping {
		case ShippingShipped:
			t := now
			o.ship.ShippedAt = &t
		case ShippingDelivered:
			t := now
			o.ship.DeliveredAt = &t
		}
	}
	return eff, nil
}

// SetTracking records courier details; only meaningful before delivery.
func (o *Order) SetTracking(courier, trackingNumber string) {
	if courier != "" {
		o.ship.Courier = &courier
	}
	if trackingNumber != "" {
		o.ship.TrackingNumber = &trackingNumber
	}
}

// AttachPaymentSession stores the provider's reference after checkout commits.
func (o *Order) AttachPaymentSession(transactionID, redirectURL string) {
	o.payment.ProviderTransactionID = &transactionID
	o.payment.RedirectURL = &redirectURL
}

func (o *Order) PaymentExpired(now time.Time) bool {
	return o.status == StatusPendingPayment && now.After(o.payment.ExpiresAt)
}
