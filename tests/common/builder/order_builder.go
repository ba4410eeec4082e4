//go:build unit || e2e

package builder

import (
	"testing"
	"time"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/domain/voucher"
	reqdto "storefront-checkout/internal/handler/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type OrderLine struct {
	VariantID uuid.UUID
	Name      string
	SKU       string
	Quantity  int
	Price     int64
}

type OrderBuilder struct {
	UserID        uuid.UUID
	AddressID     uuid.UUID
	Lines         []OrderLine
	ShippingCost  int64
	PaymentMethod order.PaymentMethod
	Voucher       *voucher.Decision
	Status        order.Status
	Now           time.Time
}

func NewOrderBuilder() *OrderBuilder {
	return &OrderBuilder{
		UserID:    uuid.New(),
		AddressID: uuid.New(),
		Lines: []OrderLine{
			{VariantID: uuid.New(), Name: "Rattan Lounge Chair", SKU: "RTN-LC-NAT", Quantity: 1, Price: 2_450_000},
		},
		ShippingCost:  50_000,
		PaymentMethod: order.PaymentMethodBankTransfer,
		Status:        order.StatusPendingPayment,
		Now:           time.Now().UTC(),
	}
}

func (b *OrderBuilder) With(mutate func(*OrderBuilder)) *OrderBuilder {
	mutate(b)
	return b
}

// BuildDomain walks the order through the state machine up to Status.
func (b *OrderBuilder) BuildDomain(t *testing.T) *order.Order {
	t.Helper()
	c, err := cart.NewCart(cart.UserOwner(b.UserID), b.Now, time.Hour)
	require.NoError(t, err)

	catalog := make(map[uuid.UUID]cart.CatalogEntry, len(b.Lines))
	reservations := make(map[uuid.UUID]uuid.UUID, len(b.Lines))
	for _, l := range b.Lines {
		_, err := c.AddItem(l.VariantID, l.Quantity, l.Price)
		require.NoError(t, err)
		catalog[l.VariantID] = cart.CatalogEntry{
			VariantID: l.VariantID, ProductID: uuid.New(), ProductName: l.Name, SKU: l.SKU, Price: l.Price, Active: true,
		}
		reservations[l.VariantID] = uuid.New()
	}
	snap, err := cart.Reprice(c, catalog)
	require.NoError(t, err)

	o, err := order.New(order.NewParams{
		CheckoutID:     uuid.New(),
		UserID:         b.UserID,
		Currency:       "IDR",
		Snapshot:       snap,
		ReservationIDs: reservations,
		Voucher:        b.Voucher,
		ShippingCost:   b.ShippingCost,
		Address:        order.Address{Recipient: "Dewi Lestari", Phone: "+628111111", Line1: "Jl. Kemang Raya 10", City: "Jakarta Selatan", Province: "DKI Jakarta", PostalCode: "12730"},
		PaymentMethod:  b.PaymentMethod,
		PaymentExpiry:  24 * time.Hour,
		Now:            b.Now,
	})
	require.NoError(t, err)

	for _, st := range pathTo(b.Status) {
		_, err := o.Transition(st, b.Now)
		require.NoError(t, err)
	}
	return o
}

func (b *OrderBuilder) BuildCheckoutRequestDTO() reqdto.CheckoutRequest {
	return reqdto.CheckoutRequest{
		AddressID:     b.AddressID,
		PaymentMethod: string(b.PaymentMethod),
	}
}

func pathTo(st order.Status) []order.Status {
	switch st {
	case order.StatusPaid:
		return []order.Status{order.StatusPaid}
	case order.StatusProcessing:
		return []order.Status{order.StatusPaid, order.StatusProcessing}
	case order.StatusShipped:
		return []order.Status{order.StatusPaid, order.StatusProcessing, order.StatusShipped}
	case order.StatusDelivered:
		return []order.Status{order.StatusPaid, order.StatusProcessing, order.StatusShipped, order.StatusDelivered}
	case order.StatusCancelled, order.StatusFailed:
		return []order.Status{st}
	case order.StatusRefunded:
		return []order.Status{order.StatusPaid, order.StatusRefunded}
	default:
		return nil
	}
}
