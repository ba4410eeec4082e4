package order

import (
	"errors"
)

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusRefunded       Status = "refunded"
	StatusFailed         Status = "failed"
)

var ErrUnknownStatus = errors.New("unknown order status")

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := validNext[st]; !ok {
		return "", ErrUnknownStatus
	}
	return st, nil
}

func (s Status) String() string { return string(s) }

func (s Status) IsTerminal() bool {
	return len(validNext[s]) == 0
}

var validNext = map[Status]map[Status]bool{
	StatusPendingPayment: {StatusPaid: true, StatusFailed: true, StatusCancelled: true},
	StatusPaid:           {StatusProcessing: true, StatusCancelled: true, StatusRefunded: true},
	StatusProcessing:     {StatusShipped: true, StatusCancelled: true, StatusRefunded: true},
	StatusShipped:        {StatusDelivered: true},
	StatusDelivered:      {},
	StatusCancelled:      {},
	StatusRefunded:       {},
	StatusFailed:         {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

type ShippingStatus string

const (
	ShippingPending    ShippingStatus = "pending"
	ShippingProcessing ShippingStatus = "processing"
	ShippingShipped    ShippingStatus = "shipped"
	ShippingDelivered  ShippingStatus = "delivered"
	ShippingReturned   ShippingStatus = "returned"
)

// Effect lists what the persistence layer must do alongside a status change.
// A zero Payment or Shipping means the record is left untouched.
type Effect struct {
	From           Status
	To             Status
	RestoreStock   bool
	ReverseVoucher bool
	Payment        PaymentStatus
	Shipping       ShippingStatus
}

// Noop reports a same-state request, which callers treat as already applied.
func (e Effect) Noop() bool {
	return e.From == e.To
}

func effectFor(from, to Status) Effect {
	eff := Effect{From: from, To: to}
	switch {
	case from == to:
	case from == StatusPendingPayment && to == StatusPaid:
		eff.Payment = PaymentPaid
	case from == StatusPendingPayment && to == StatusFailed:
		eff.RestoreStock = true
		eff.ReverseVoucher = true
		eff.Payment = PaymentFailed
	case from == StatusPendingPayment && to == StatusCancelled:
		eff.RestoreStock = true
		eff.ReverseVoucher = true
		eff.Payment = PaymentCancelled
	case to == StatusCancelled || to == StatusRefunded:
		// voucher redemption stands once the order was paid
		eff.RestoreStock = true
		eff.Payment = PaymentRefunded
		if from == StatusProcessing {
			eff.Shipping = ShippingReturned
		}
	case to == StatusProcessing:
		eff.Shipping = ShippingProcessing
	case to == StatusShipped:
		eff.Shipping = ShippingShipped
	case to == StatusDelivered:
		eff.Shipping = ShippingDelivered
	}
	return eff
}
