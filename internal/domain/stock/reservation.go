package stock

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationHeld      ReservationStatus = "held"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationHeld, ReservationCommitted, ReservationReleased:
		return true
	default:
		return false
	}
}

func ParseReservationStatus(s string) (ReservationStatus, error) {
	st := ReservationStatus(s)
	if !st.IsValid() {
		return "", ErrUnknownReservStatus
	}
	return st, nil
}

// Reservation is a temporary hold on stock units. Its ID is the token handed
// back to the caller for commit or release.
type Reservation struct {
	id                 uuid.UUID
	checkoutID         uuid.UUID
	variantID          uuid.UUID
	quantity           int
	flashSaleProductID *uuid.UUID
	status             ReservationStatus
	expiresAt          time.Time
}

func NewReservation(checkoutID, variantID uuid.UUID, qty int, flashSaleProductID *uuid.UUID, now time.Time, ttl time.Duration) (*Reservation, error) {
	if err := ValidateQuantity(qty); err != nil {
		return nil, err
	}
	if ttl <= 0 || checkoutID == uuid.Nil || variantID == uuid.Nil {
		return nil, ErrInvalidReservation
	}
	return &Reservation{
		id:                 uuid.New(),
		checkoutID:         checkoutID,
		variantID:          variantID,
		quantity:           qty,
		flashSaleProductID: flashSaleProductID,
		status:             ReservationHeld,
		expiresAt:          now.Add(ttl),
	}, nil
}

func ReconstructReservation(
	id, checkoutID, variantID uuid.UUID,
	qty int,
	flashSaleProductID *uuid.UUID,
	status ReservationStatus,
	expiresAt time.Time,
) *Reservation {
	return &Reservation{
		id:                 id,
		checkoutID:         checkoutID,
		variantID:          variantID,
		quantity:           qty,
		flashSaleProductID: flashSaleProductID,
		status:             status,
		expiresAt:          expiresAt,
	}
}

func (r *Reservation) ID() uuid.UUID                  { return r.id }
func (r *Reservation) CheckoutID() uuid.UUID          { return r.checkoutID }
func (r *Reservation) VariantID() uuid.UUID           { return r.variantID }
func (r *Reservation) Quantity() int                  { return r.quantity }
func (r *Reservation) FlashSaleProductID() *uuid.UUID { return r.flashSaleProductID }
func (r *Reservation) Status() ReservationStatus      { return r.status }
func (r *Reservation) ExpiresAt() time.Time           { return r.expiresAt }

func (r *Reservation) IsHeld() bool {
	return r.status == ReservationHeld
}

func (r *Reservation) IsExpired(now time.Time) bool {
	return r.IsHeld() && now.After(r.expiresAt)
}

// Commit and Release only move a held reservation forward; the caller treats
// ErrReservationNotHeld from Release as a no-op.
func (r *Reservation) Commit() error {
	if !r.IsHeld() {
		return ErrReservationNotHeld
	}
	r.status = ReservationCommitted
	return nil
}

func (r *Reservation) Release() error {
	if !r.IsHeld() {
		return ErrReservationNotHeld
	}
	r.status = ReservationReleased
	return nil
}
