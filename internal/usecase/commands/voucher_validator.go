package commands

import (
	"context"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/voucher"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

type VoucherRequest struct {
	Code     string
	UserID   uuid.UUID
	Subtotal int64
	Lines    []cart.Line
}

type VoucherPreview struct {
	Code           string
	DiscountType   voucher.DiscountType
	Subtotal       int64
	DiscountAmount int64
	FreeShipping   bool
}

// VoucherValidator decides whether a code applies. Validate never writes;
// Redeem and Reverse run inside the caller's transaction.
type VoucherValidator interface {
	Validate(ctx context.Context, req VoucherRequest) (*voucher.Decision, error)
	// Preview validates against the caller's cart at current prices.
	Preview(ctx context.Context, userID uuid.UUID, code string) (*VoucherPreview, error)
	Redeem(ctx context.Context, tx shared.Tx, d voucher.Decision, userID, orderID uuid.UUID) error
	Reverse(ctx context.Context, tx shared.Tx, voucherID, orderID uuid.UUID) error
}

type voucherValidatorImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewVoucherValidator(uow shared.UnitOfWork, clock clock.Clock) VoucherValidator {
	return &voucherValidatorImpl{uow: uow, clock: clock}
}

func (v *voucherValidatorImpl) Validate(ctx context.Context, req VoucherRequest) (*voucher.Decision, error) {
	code, err := voucher.NewCode(req.Code)
	if err != nil {
		return nil, voucher.NewError(voucher.KindNotFound, req.Code)
	}

	var decision voucher.Decision
	err = v.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		vc, err := tx.Vouchers().FindByCode(ctx, code)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return voucher.NewError(voucher.KindNotFound, code.String())
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		used, err := tx.Vouchers().CountUserUsage(ctx, vc.ID(), req.UserID)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		decision, err = vc.Validate(voucher.Input{
			Subtotal:       req.Subtotal,
			Lines:          voucherLines(req.Lines),
			UserUsageCount: used,
			Now:            v.clock.Now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &decision, nil
}

func (v *voucherValidatorImpl) Preview(ctx context.Context, userID uuid.UUID, code string) (*VoucherPreview, error) {
	var snap *cart.Snapshot
	err := v.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		c, err := tx.Carts().FindByOwner(ctx, cart.UserOwner(userID))
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrCartNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		ids := make([]uuid.UUID, 0, len(c.Items()))
		for _, it := range c.Items() {
			ids = append(ids, it.VariantID())
		}
		entries, err := tx.Catalog().Entries(ctx, ids, v.clock.Now())
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		snap, err = cart.Reprice(c, entries)
		return err
	})
	if err != nil {
		return nil, err
	}

	d, err := v.Validate(ctx, VoucherRequest{
		Code:     code,
		UserID:   userID,
		Subtotal: snap.Subtotal(),
		Lines:    snap.Lines(),
	})
	if err != nil {
		return nil, err
	}
	return &VoucherPreview{
		Code:           d.Code.String(),
		DiscountType:   d.DiscountType,
		Subtotal:       snap.Subtotal(),
		DiscountAmount: d.DiscountAmount,
		FreeShipping:   d.FreeShipping,
	}, nil
}

// Redeem consumes one use. The conditional increment locks the voucher row,
// so the per-user recount below cannot race another redemption of the same
// voucher.
func (v *voucherValidatorImpl) Redeem(ctx context.Context, tx shared.Tx, d voucher.Decision, userID, orderID uuid.UUID) error {
	code := d.Code.String()

	ok, err := tx.Vouchers().IncrementUsage(ctx, d.VoucherID)
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !ok {
		return voucher.NewError(voucher.KindUsageLimitReached, code)
	}

	vc, err := tx.Vouchers().FindByCode(ctx, d.Code)
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	used, err := tx.Vouchers().CountUserUsage(ctx, d.VoucherID, userID)
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if used >= vc.UsageLimitPerUser() {
		return voucher.NewError(voucher.KindPerUserLimitReached, code)
	}

	if err := tx.Vouchers().InsertUsage(ctx, d.VoucherID, userID, orderID, v.clock.Now()); err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return nil
}

// Reverse gives the use back when an unpaid order is abandoned.
func (v *voucherValidatorImpl) Reverse(ctx context.Context, tx shared.Tx, voucherID, orderID uuid.UUID) error {
	deleted, err := tx.Vouchers().DeleteUsageByOrder(ctx, orderID)
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if deleted == 0 {
		// already reversed
		return nil
	}
	if err := tx.Vouchers().DecrementUsage(ctx, voucherID); err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return nil
}

func voucherLines(lines []cart.Line) []voucher.Line {
	out := make([]voucher.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, voucher.Line{ProductID: l.ProductID, CategoryID: l.CategoryID})
	}
	return out
}
