//go:build unit

package commands_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"storefront-checkout/internal/domain/flashsale"
	"storefront-checkout/internal/domain/stock"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/tests/common/uowtest"
	commandsmock "storefront-checkout/tests/mock/commands"
	sharedmock "storefront-checkout/tests/mock/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stockRecord(t *testing.T, variantID uuid.UUID, qty, reserved int) *stock.Record {
	t.Helper()
	rec, err := stock.NewRecord(variantID, qty, reserved, testNow)
	require.NoError(t, err)
	return rec
}

type ledgerFixture struct {
	m      *uowtest.Mocks
	flash  *commandsmock.MockFlashSaleAllocator
	cache  *sharedmock.MockAvailabilityCache
	ledger commands.StockLedger
}

func newLedgerFixture(t *testing.T) ledgerFixture {
	ctrl := gomock.NewController(t)
	m := uowtest.New(ctrl)
	flash := commandsmock.NewMockFlashSaleAllocator(ctrl)
	cache := sharedmock.NewMockAvailabilityCache(ctrl)
	return ledgerFixture{
		m:      m,
		flash:  flash,
		cache:  cache,
		ledger: commands.NewStockLedger(m.UoW, flash, cache, clock.NewMockClock(testNow), discardLogger()),
	}
}

func TestStockLedger_Reserve(t *testing.T) {
	ctx := context.Background()
	variantID := uuid.New()
	checkoutID := uuid.New()

	t.Run("success: holds units and refreshes the cache", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.m.Stock.EXPECT().ReserveUnits(gomock.Any(), variantID, 2).Return(stockRecord(t, variantID, 10, 5), true, nil)
		f.m.Stock.EXPECT().InsertReservation(gomock.Any(), gomock.Any(), testNow).
			DoAndReturn(func(_ context.Context, r *stock.Reservation, _ time.Time) error {
				assert.Equal(t, checkoutID, r.CheckoutID())
				assert.Equal(t, stock.ReservationHeld, r.Status())
				return nil
			})
		f.cache.EXPECT().SetAvailable(gomock.Any(), variantID, 5).Return(nil)

		token, err := f.ledger.Reserve(ctx, commands.ReserveRequest{
			CheckoutID: checkoutID, VariantID: variantID, SKU: "SOFA-3S-GRY", Quantity: 2, TTL: 15 * time.Minute,
		})
		require.NoError(t, err)
		assert.Equal(t, variantID, token.VariantID)
		assert.Equal(t, 2, token.Quantity)
		assert.Equal(t, testNow.Add(15*time.Minute), token.ExpiresAt)
		assert.NotEqual(t, uuid.Nil, token.ID)
	})

	t.Run("error: guard rejects when not enough is available", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.m.Stock.EXPECT().ReserveUnits(gomock.Any(), variantID, 3).Return(stockRecord(t, variantID, 5, 4), false, nil)

		_, err := f.ledger.Reserve(ctx, commands.ReserveRequest{
			CheckoutID: checkoutID, VariantID: variantID, SKU: "SOFA-3S-GRY", Quantity: 3, TTL: time.Minute,
		})
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrInsufficientStock))

		var ise *stock.InsufficientStockError
		require.True(t, errors.As(err, &ise))
		assert.Equal(t, 1, ise.Available)
		assert.Equal(t, 3, ise.Requested)
		assert.Equal(t, "SOFA-3S-GRY", ise.SKU)
	})

	t.Run("error: variant without stock row", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.m.Stock.EXPECT().ReserveUnits(gomock.Any(), variantID, 1).
			Return(nil, false, infra.WrapRepoErr("stock not found", pgx.ErrNoRows, infra.KindNotFound))

		_, err := f.ledger.Reserve(ctx, commands.ReserveRequest{
			CheckoutID: checkoutID, VariantID: variantID, Quantity: 1, TTL: time.Minute,
		})
		assert.True(t, errs.Is(err, errs.ErrInsufficientStock))
	})

	t.Run("error: non-positive quantity never reaches the database", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.ledger.Reserve(ctx, commands.ReserveRequest{
			CheckoutID: checkoutID, VariantID: variantID, Quantity: 0, TTL: time.Minute,
		})
		assert.True(t, errs.Is(err, errs.ErrDomainValidation))
	})

	t.Run("error: flash sale cap reached rolls the hold back", func(t *testing.T) {
		f := newLedgerFixture(t)
		fspID := uuid.New()
		f.m.Stock.EXPECT().ReserveUnits(gomock.Any(), variantID, 1).Return(stockRecord(t, variantID, 10, 1), true, nil)
		f.flash.EXPECT().Allocate(gomock.Any(), f.m.Tx, fspID, 1).
			Return(&flashsale.SoldOutError{FlashSaleProductID: fspID, VariantID: variantID, Requested: 1})

		_, err := f.ledger.Reserve(ctx, commands.ReserveRequest{
			CheckoutID: checkoutID, VariantID: variantID, Quantity: 1, FlashSaleProductID: &fspID, TTL: time.Minute,
		})
		assert.True(t, errs.Is(err, errs.ErrFlashSaleSoldOut))
	})

	t.Run("success: cache failure does not fail the reservation", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.m.Stock.EXPECT().ReserveUnits(gomock.Any(), variantID, 1).Return(stockRecord(t, variantID, 3, 1), true, nil)
		f.m.Stock.EXPECT().InsertReservation(gomock.Any(), gomock.Any(), testNow).Return(nil)
		f.cache.EXPECT().SetAvailable(gomock.Any(), variantID, 2).Return(errors.New("redis down"))

		_, err := f.ledger.Reserve(ctx, commands.ReserveRequest{
			CheckoutID: checkoutID, VariantID: variantID, Quantity: 1, TTL: time.Minute,
		})
		assert.NoError(t, err)
	})
}

func TestStockLedger_Commit(t *testing.T) {
	ctx := context.Background()
	variantID := uuid.New()

	t.Run("success: moves units from reserved to sold", func(t *testing.T) {
		f := newLedgerFixture(t)
		res := stock.ReconstructReservation(uuid.New(), uuid.New(), variantID, 2, nil, stock.ReservationHeld, testNow.Add(-time.Minute))
		f.m.Stock.EXPECT().GetReservationForUpdate(gomock.Any(), res.ID()).Return(res, nil)
		f.m.Stock.EXPECT().CommitUnits(gomock.Any(), variantID, 2).Return(stockRecord(t, variantID, 8, 0), nil)
		f.m.Stock.EXPECT().UpdateReservationStatus(gomock.Any(), res.ID(), stock.ReservationCommitted, testNow).Return(nil)

		// expired but still held: committing is allowed
		err := f.ledger.Commit(ctx, f.m.Tx, commands.ReservationToken{ID: res.ID(), VariantID: variantID, Quantity: 2})
		assert.NoError(t, err)
	})

	t.Run("error: released reservation cannot be committed", func(t *testing.T) {
		f := newLedgerFixture(t)
		res := stock.ReconstructReservation(uuid.New(), uuid.New(), variantID, 2, nil, stock.ReservationReleased, testNow)
		f.m.Stock.EXPECT().GetReservationForUpdate(gomock.Any(), res.ID()).Return(res, nil)

		err := f.ledger.Commit(ctx, f.m.Tx, commands.ReservationToken{ID: res.ID()})
		assert.True(t, errs.Is(err, errs.ErrReservationExpired))
	})

	t.Run("error: unknown reservation", func(t *testing.T) {
		f := newLedgerFixture(t)
		id := uuid.New()
		f.m.Stock.EXPECT().GetReservationForUpdate(gomock.Any(), id).
			Return(nil, infra.WrapRepoErr("reservation not found", pgx.ErrNoRows))

		err := f.ledger.Commit(ctx, f.m.Tx, commands.ReservationToken{ID: id})
		assert.True(t, errs.Is(err, errs.ErrReservationExpired))
	})
}

func TestStockLedger_Release(t *testing.T) {
	ctx := context.Background()
	variantID := uuid.New()

	t.Run("success: returns units and flash allocation", func(t *testing.T) {
		f := newLedgerFixture(t)
		fspID := uuid.New()
		res := stock.ReconstructReservation(uuid.New(), uuid.New(), variantID, 1, &fspID, stock.ReservationHeld, testNow.Add(time.Minute))
		f.m.Stock.EXPECT().GetReservationForUpdate(gomock.Any(), res.ID()).Return(res, nil)
		f.m.Stock.EXPECT().ReleaseUnits(gomock.Any(), variantID, 1).Return(stockRecord(t, variantID, 4, 0), nil)
		f.flash.EXPECT().Deallocate(gomock.Any(), f.m.Tx, fspID, 1).Return(nil)
		f.m.Stock.EXPECT().UpdateReservationStatus(gomock.Any(), res.ID(), stock.ReservationReleased, testNow).Return(nil)
		f.cache.EXPECT().SetAvailable(gomock.Any(), variantID, 4).Return(nil)

		assert.NoError(t, f.ledger.Release(ctx, commands.ReservationToken{ID: res.ID()}))
	})

	t.Run("success: already committed or released holds are skipped", func(t *testing.T) {
		f := newLedgerFixture(t)
		committed := stock.ReconstructReservation(uuid.New(), uuid.New(), variantID, 1, nil, stock.ReservationCommitted, testNow)
		missing := uuid.New()
		f.m.Stock.EXPECT().GetReservationForUpdate(gomock.Any(), committed.ID()).Return(committed, nil)
		f.m.Stock.EXPECT().GetReservationForUpdate(gomock.Any(), missing).
			Return(nil, infra.WrapRepoErr("reservation not found", pgx.ErrNoRows))

		err := f.ledger.Release(ctx, commands.ReservationToken{ID: committed.ID()}, commands.ReservationToken{ID: missing})
		assert.NoError(t, err)
	})

	t.Run("success: nothing to release", func(t *testing.T) {
		f := newLedgerFixture(t)
		assert.NoError(t, f.ledger.Release(ctx))
	})
}

func TestStockLedger_ReleaseExpired(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	a, b := uuid.New(), uuid.New()
	resA := stock.ReconstructReservation(uuid.New(), uuid.New(), a, 2, nil, stock.ReservationHeld, testNow.Add(-time.Minute))
	resB := stock.ReconstructReservation(uuid.New(), uuid.New(), b, 1, nil, stock.ReservationHeld, testNow.Add(-time.Second))

	f.m.Stock.EXPECT().ListExpiredHeld(gomock.Any(), testNow, 50).Return([]*stock.Reservation{resA, resB}, nil)
	for _, r := range []*stock.Reservation{resA, resB} {
		f.m.Stock.EXPECT().GetReservationForUpdate(gomock.Any(), r.ID()).Return(r, nil)
		f.m.Stock.EXPECT().ReleaseUnits(gomock.Any(), r.VariantID(), r.Quantity()).
			Return(stockRecord(t, r.VariantID(), 5, 0), nil)
		f.m.Stock.EXPECT().UpdateReservationStatus(gomock.Any(), r.ID(), stock.ReservationReleased, testNow).Return(nil)
		f.cache.EXPECT().SetAvailable(gomock.Any(), r.VariantID(), 5).Return(nil)
	}

	n, err := f.ledger.ReleaseExpired(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStockLedger_Restore(t *testing.T) {
	ctx := context.Background()
	variantID, fspID := uuid.New(), uuid.New()

	t.Run("success: plain variant", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.m.Stock.EXPECT().RestoreUnits(gomock.Any(), variantID, 2).Return(stockRecord(t, variantID, 7, 0), nil)
		assert.NoError(t, f.ledger.Restore(ctx, f.m.Tx, variantID, 2, nil))
	})

	t.Run("success: flash sale line gives the allocation back", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.m.Stock.EXPECT().RestoreUnits(gomock.Any(), variantID, 1).Return(stockRecord(t, variantID, 7, 0), nil)
		f.flash.EXPECT().Deallocate(gomock.Any(), f.m.Tx, fspID, 1).Return(nil)
		assert.NoError(t, f.ledger.Restore(ctx, f.m.Tx, variantID, 1, &fspID))
	})

	t.Run("error: database failure is marked", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.m.Stock.EXPECT().RestoreUnits(gomock.Any(), variantID, 1).Return(nil, errors.New("connection reset"))
		err := f.ledger.Restore(ctx, f.m.Tx, variantID, 1, nil)
		assert.True(t, errs.Is(err, errs.ErrDatabaseOperationFailed))
	})
}

func TestFlashSaleAllocator(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	limit := 5

	newAllocator := func(t *testing.T) (*uowtest.Mocks, commands.FlashSaleAllocator) {
		m := uowtest.New(gomock.NewController(t))
		return m, commands.NewFlashSaleAllocator(clock.NewMockClock(testNow))
	}

	t.Run("success: guard accepts", func(t *testing.T) {
		m, a := newAllocator(t)
		m.FlashSales.EXPECT().Allocate(gomock.Any(), id, 2, testNow).Return(true, nil)
		assert.NoError(t, a.Allocate(ctx, m.Tx, id, 2))
	})

	t.Run("error: cap reached reports what is left", func(t *testing.T) {
		m, a := newAllocator(t)
		variantID := uuid.New()
		p, err := flashsale.Reconstruct(flashsale.Params{
			ID: id, FlashSaleID: uuid.New(), ProductID: uuid.New(), VariantID: variantID,
			OriginalPrice: 2_000_000, FlashSalePrice: 1_500_000, StockLimit: &limit, SoldCount: 4,
			Window: flashsale.NewWindow(testNow.Add(-time.Hour), testNow.Add(time.Hour), true),
		})
		require.NoError(t, err)
		m.FlashSales.EXPECT().Allocate(gomock.Any(), id, 2, testNow).Return(false, nil)
		m.FlashSales.EXPECT().GetProduct(gomock.Any(), id).Return(p, nil)

		err = a.Allocate(ctx, m.Tx, id, 2)
		var soe *flashsale.SoldOutError
		require.True(t, errors.As(err, &soe))
		assert.Equal(t, 1, soe.Remaining)
		assert.Equal(t, variantID, soe.VariantID)
	})

	t.Run("error: sale outside its window", func(t *testing.T) {
		m, a := newAllocator(t)
		p, err := flashsale.Reconstruct(flashsale.Params{
			ID: id, FlashSaleID: uuid.New(), ProductID: uuid.New(), VariantID: uuid.New(),
			OriginalPrice: 2_000_000, FlashSalePrice: 1_500_000, StockLimit: &limit,
			Window: flashsale.NewWindow(testNow.Add(-2*time.Hour), testNow.Add(-time.Hour), true),
		})
		require.NoError(t, err)
		m.FlashSales.EXPECT().Allocate(gomock.Any(), id, 1, testNow).Return(false, nil)
		m.FlashSales.EXPECT().GetProduct(gomock.Any(), id).Return(p, nil)

		assert.True(t, errs.Is(a.Allocate(ctx, m.Tx, id, 1), errs.ErrFlashSaleSoldOut))
	})

	t.Run("success: deallocate", func(t *testing.T) {
		m, a := newAllocator(t)
		m.FlashSales.EXPECT().Deallocate(gomock.Any(), id, 2).Return(nil)
		assert.NoError(t, a.Deallocate(ctx, m.Tx, id, 2))
	})
}
