package voucher

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Voucher struct {
	id                 uuid.UUID
	code               Code
	discountType       DiscountType
	discountValue      decimal.Decimal
	maxDiscountAmount  *int64
	minPurchaseAmount  int64
	usageLimit         *int
	usageCount         int
	usageLimitPerUser  int
	startDate          time.Time
	endDate            time.Time
	active             bool
	eligibleProducts   map[uuid.UUID]struct{}
	eligibleCategories map[uuid.UUID]struct{}
}

type Params struct {
	ID                 uuid.UUID
	Code               string
	DiscountType       string
	DiscountValue      decimal.Decimal
	MaxDiscountAmount  *int64
	MinPurchaseAmount  int64
	UsageLimit         *int
	UsageCount         int
	UsageLimitPerUser  int
	StartDate          time.Time
	EndDate            time.Time
	IsActive           bool
	EligibleProducts   []uuid.UUID
	EligibleCategories []uuid.UUID
}

func Reconstruct(p Params) (*Voucher, error) {
	code, err := NewCode(p.Code)
	if err != nil {
		return nil, err
	}
	dt, err := ParseDiscountType(p.DiscountType)
	if err != nil {
		return nil, err
	}
	if p.DiscountValue.IsNegative() {
		return nil, ErrInvalidDiscountValue
	}
	if dt == DiscountPercentage && p.DiscountValue.GreaterThan(hundred) {
		return nil, ErrInvalidDiscountValue
	}

	v := &Voucher{
		id:                 p.ID,
		code:               code,
		discountType:       dt,
		discountValue:      p.DiscountValue,
		maxDiscountAmount:  p.MaxDiscountAmount,
		minPurchaseAmount:  p.MinPurchaseAmount,
		usageLimit:         p.UsageLimit,
		usageCount:         p.UsageCount,
		usageLimitPerUser:  p.UsageLimitPerUser,
		startDate:          p.StartDate,
		endDate:            p.EndDate,
		active:             p.IsActive,
		eligibleProducts:   toSet(p.EligibleProducts),
		eligibleCategories: toSet(p.EligibleCategories),
	}
	return v, nil
}

func toSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (v *Voucher) ID() uuid.UUID                  { return v.id }
func (v *Voucher) Code() Code                     { return v.code }
func (v *Voucher) DiscountType() DiscountType     { return v.discountType }
func (v *Voucher) DiscountValue() decimal.Decimal { return v.discountValue }
func (v *Voucher) MaxDiscountAmount() *int64      { return v.maxDiscountAmount }
func (v *Voucher) MinPurchaseAmount() int64       { return v.minPurchaseAmount }
func (v *Voucher) UsageLimit() *int               { return v.usageLimit }
func (v *Voucher) UsageCount() int                { return v.usageCount }
func (v *Voucher) UsageLimitPerUser() int         { return v.usageLimitPerUser }
func (v *Voucher) StartDate() time.Time           { return v.startDate }
func (v *Voucher) EndDate() time.Time             { return v.endDate }
func (v *Voucher) IsActive() bool                 { return v.active }

func (v *Voucher) IsRestricted() bool {
	return len(v.eligibleProducts) > 0 || len(v.eligibleCategories) > 0
}

// Line is the part of a cart line the eligibility check needs.
type Line struct {
	ProductID  uuid.UUID
	CategoryID *uuid.UUID
}

type Input struct {
	Subtotal       int64
	Lines          []Line
	UserUsageCount int
	Now            time.Time
}

type Decision struct {
	VoucherID      uuid.UUID
	Code           Code
	DiscountType   DiscountType
	DiscountAmount int64
	FreeShipping   bool
}

// Validate runs the checks in a fixed order and stops at the first failure.
// It never mutates the voucher.
func (v *Voucher) Validate(in Input) (Decision, error) {
	code := v.code.String()

	if !v.active {
		return Decision{}, NewError(KindInactive, code)
	}
	if in.Now.Before(v.startDate) {
		return Decision{}, NewError(KindNotStarted, code)
	}
	if in.Now.After(v.endDate) {
		return Decision{}, NewError(KindExpired, code)
	}
	if in.Subtotal < v.minPurchaseAmount {
		return Decision{}, &Error{Kind: KindMinPurchaseNotMet, Code: code, MinPurchase: v.minPurchaseAmount}
	}
	if v.IsRestricted() && !v.matchesAny(in.Lines) {
		return Decision{}, NewError(KindNotEligible, code)
	}
	if v.usageLimit != nil && v.usageCount >= *v.usageLimit {
		return Decision{}, NewError(KindUsageLimitReached, code)
	}
	if in.UserUsageCount >= v.usageLimitPerUser {
		return Decision{}, NewError(KindPerUserLimitReached, code)
	}

	return Decision{
		VoucherID:      v.id,
		Code:           v.code,
		DiscountType:   v.discountType,
		DiscountAmount: v.DiscountFor(in.Subtotal),
		FreeShipping:   v.discountType == DiscountFreeShipping,
	}, nil
}

func (v *Voucher) matchesAny(lines []Line) bool {
	for _, l := range lines {
		if _, ok := v.eligibleProducts[l.ProductID]; ok {
			return true
		}
		if l.CategoryID != nil {
			if _, ok := v.eligibleCategories[*l.CategoryID]; ok {
				return true
			}
		}
	}
	return false
}

// DiscountFor returns the monetary discount in minor units. Fractions are
// rounded down and the result never exceeds the subtotal.
func (v *Voucher) DiscountFor(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}

	var amount int64
	switch v.discountType {
	case DiscountPercentage:
		amount = decimal.NewFromInt(subtotal).Mul(v.discountValue).Div(hundred).Floor().IntPart()
		if v.maxDiscountAmount != nil && amount > *v.maxDiscountAmount {
			amount = *v.maxDiscountAmount
		}
	case DiscountFixedAmount:
		amount = v.discountValue.Floor().IntPart()
	case DiscountFreeShipping:
		return 0
	}

	return min(amount, subtotal)
}
