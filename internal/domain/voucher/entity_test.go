//go:build unit

package voucher_test

import (
	"errors"
	"testing"
	"time"

	"storefront-checkout/internal/domain/voucher"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/pkg/ptr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func baseParams() voucher.Params {
	return voucher.Params{
		ID:                uuid.New(),
		Code:              "save10",
		DiscountType:      "percentage",
		DiscountValue:     decimal.NewFromInt(10),
		MaxDiscountAmount: ptr.Of(int64(50_000)),
		MinPurchaseAmount: 100_000,
		UsageLimitPerUser: 1,
		StartDate:         now.Add(-24 * time.Hour),
		EndDate:           now.Add(24 * time.Hour),
		IsActive:          true,
	}
}

func build(t *testing.T, mutate func(p *voucher.Params)) *voucher.Voucher {
	t.Helper()
	p := baseParams()
	if mutate != nil {
		mutate(&p)
	}
	v, err := voucher.Reconstruct(p)
	require.NoError(t, err)
	return v
}

func TestVoucher_Discount(t *testing.T) {
	t.Run("percentage cap triggers when value percent of subtotal exceeds max", func(t *testing.T) {
		v := build(t, nil)

		d, err := v.Validate(voucher.Input{Subtotal: 500_000, Now: now})
		require.NoError(t, err)
		// 10% of 500_000 is 50_000 exactly; the cap must not be what produced it.
		assert.Equal(t, int64(50_000), d.DiscountAmount)

		d, err = v.Validate(voucher.Input{Subtotal: 800_000, Now: now})
		require.NoError(t, err)
		assert.Equal(t, int64(50_000), d.DiscountAmount, "80_000 uncapped must be capped to 50_000")
		assert.Equal(t, voucher.Code("SAVE10"), d.Code)
	})

	t.Run("percentage without cap", func(t *testing.T) {
		v := build(t, func(p *voucher.Params) { p.MaxDiscountAmount = nil })
		assert.Equal(t, int64(80_000), v.DiscountFor(800_000))
	})

	t.Run("percentage rounds down", func(t *testing.T) {
		v := build(t, func(p *voucher.Params) {
			p.DiscountValue = decimal.RequireFromString("12.5")
			p.MaxDiscountAmount = nil
		})
		assert.Equal(t, int64(12_512), v.DiscountFor(100_099))
	})

	t.Run("fixed amount never exceeds subtotal", func(t *testing.T) {
		v := build(t, func(p *voucher.Params) {
			p.DiscountType = "fixed_amount"
			p.DiscountValue = decimal.NewFromInt(150_000)
			p.MinPurchaseAmount = 0
		})
		assert.Equal(t, int64(120_000), v.DiscountFor(120_000))
		assert.Equal(t, int64(150_000), v.DiscountFor(900_000))
	})

	t.Run("free shipping is a flag, not money", func(t *testing.T) {
		v := build(t, func(p *voucher.Params) {
			p.DiscountType = "free_shipping"
			p.DiscountValue = decimal.Zero
		})
		d, err := v.Validate(voucher.Input{Subtotal: 200_000, Now: now})
		require.NoError(t, err)
		assert.True(t, d.FreeShipping)
		assert.Zero(t, d.DiscountAmount)
	})
}

type validateCase struct {
	name   string
	mutate func(p *voucher.Params)
	input  func(in *voucher.Input)
	kind   voucher.ErrorKind
}

func TestVoucher_Validate(t *testing.T) {
	productID := uuid.New()
	categoryID := uuid.New()

	cases := []validateCase{
		{
			name: "valid",
		},
		{
			name:   "inactive",
			mutate: func(p *voucher.Params) { p.IsActive = false },
			kind:   voucher.KindInactive,
		},
		{
			name:   "not started",
			mutate: func(p *voucher.Params) { p.StartDate = now.Add(time.Hour) },
			kind:   voucher.KindNotStarted,
		},
		{
			name:   "expired",
			mutate: func(p *voucher.Params) { p.EndDate = now.Add(-time.Second) },
			kind:   voucher.KindExpired,
		},
		{
			name:  "below min purchase",
			input: func(in *voucher.Input) { in.Subtotal = 99_999 },
			kind:  voucher.KindMinPurchaseNotMet,
		},
		{
			name:   "restricted to product not in cart",
			mutate: func(p *voucher.Params) { p.EligibleProducts = []uuid.UUID{uuid.New()} },
			kind:   voucher.KindNotEligible,
		},
		{
			name:   "restricted to product in cart",
			mutate: func(p *voucher.Params) { p.EligibleProducts = []uuid.UUID{productID} },
		},
		{
			name:   "restricted to category in cart",
			mutate: func(p *voucher.Params) { p.EligibleCategories = []uuid.UUID{categoryID} },
		},
		{
			name: "global limit reached",
			mutate: func(p *voucher.Params) {
				p.UsageLimit = ptr.Of(5)
				p.UsageCount = 5
			},
			kind: voucher.KindUsageLimitReached,
		},
		{
			name: "global limit has one slot left",
			mutate: func(p *voucher.Params) {
				p.UsageLimit = ptr.Of(5)
				p.UsageCount = 4
			},
		},
		{
			name:  "per user limit reached",
			input: func(in *voucher.Input) { in.UserUsageCount = 1 },
			kind:  voucher.KindPerUserLimitReached,
		},
		{
			name: "expiry is checked before min purchase",
			mutate: func(p *voucher.Params) {
				p.EndDate = now.Add(-time.Hour)
			},
			input: func(in *voucher.Input) { in.Subtotal = 1 },
			kind:  voucher.KindExpired,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := build(t, c.mutate)
			in := voucher.Input{
				Subtotal: 500_000,
				Lines:    []voucher.Line{{ProductID: productID, CategoryID: &categoryID}},
				Now:      now,
			}
			if c.input != nil {
				c.input(&in)
			}

			_, err := v.Validate(in)
			if c.kind == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, voucher.IsKind(err, c.kind), "want %s, got %v", c.kind, err)
			assert.True(t, errors.Is(err, errs.ErrVoucherRejected))
		})
	}
}

func TestReconstruct(t *testing.T) {
	t.Run("rejects percentage above 100", func(t *testing.T) {
		p := baseParams()
		p.DiscountValue = decimal.NewFromInt(101)
		_, err := voucher.Reconstruct(p)
		require.ErrorIs(t, err, voucher.ErrInvalidDiscountValue)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		p := baseParams()
		p.DiscountType = "bogo"
		_, err := voucher.Reconstruct(p)
		require.ErrorIs(t, err, voucher.ErrInvalidDiscountType)
	})

	t.Run("normalizes code", func(t *testing.T) {
		c, err := voucher.NewCode("  summer-25 ")
		require.NoError(t, err)
		assert.Equal(t, voucher.Code("SUMMER-25"), c)
		_, err = voucher.NewCode("x")
		require.ErrorIs(t, err, voucher.ErrInvalidVoucherCode)
	})
}
