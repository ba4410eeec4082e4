//go:build unit || e2e

package uowtest

import (
	"context"

	"storefront-checkout/internal/usecase/shared"
	sharedmock "storefront-checkout/tests/mock/shared"

	"go.uber.org/mock/gomock"
)

// Mocks is a unit of work whose transactions run the callback straight
// against one mock Tx, plus the repositories that Tx hands out.
type Mocks struct {
	UoW         *sharedmock.MockUnitOfWork
	Tx          *sharedmock.MockTx
	Stock       *sharedmock.MockStockRepository
	FlashSales  *sharedmock.MockFlashSaleRepository
	Vouchers    *sharedmock.MockVoucherRepository
	Orders      *sharedmock.MockOrderRepository
	Carts       *sharedmock.MockCartRepository
	Catalog     *sharedmock.MockCatalogReader
	Idempotency *sharedmock.MockIdempotencyRepository
	Outbox      *sharedmock.MockOutboxRepository
}

func New(ctrl *gomock.Controller) *Mocks {
	m := &Mocks{
		UoW:         sharedmock.NewMockUnitOfWork(ctrl),
		Tx:          sharedmock.NewMockTx(ctrl),
		Stock:       sharedmock.NewMockStockRepository(ctrl),
		FlashSales:  sharedmock.NewMockFlashSaleRepository(ctrl),
		Vouchers:    sharedmock.NewMockVoucherRepository(ctrl),
		Orders:      sharedmock.NewMockOrderRepository(ctrl),
		Carts:       sharedmock.NewMockCartRepository(ctrl),
		Catalog:     sharedmock.NewMockCatalogReader(ctrl),
		Idempotency: sharedmock.NewMockIdempotencyRepository(ctrl),
		Outbox:      sharedmock.NewMockOutboxRepository(ctrl),
	}

	m.Tx.EXPECT().Stock().Return(m.Stock).AnyTimes()
	m.Tx.EXPECT().FlashSales().Return(m.FlashSales).AnyTimes()
	m.Tx.EXPECT().Vouchers().Return(m.Vouchers).AnyTimes()
	m.Tx.EXPECT().Orders().Return(m.Orders).AnyTimes()
	m.Tx.EXPECT().Carts().Return(m.Carts).AnyTimes()
	m.Tx.EXPECT().Catalog().Return(m.Catalog).AnyTimes()
	m.Tx.EXPECT().Idempotency().Return(m.Idempotency).AnyTimes()
	m.Tx.EXPECT().Outbox().Return(m.Outbox).AnyTimes()

	run := func(ctx context.Context, fn func(context.Context, shared.Tx) error) error {
		return fn(ctx, m.Tx)
	}
	m.UoW.EXPECT().Within(gomock.Any(), gomock.Any()).DoAndReturn(run).AnyTimes()
	m.UoW.EXPECT().WithinReadOnly(gomock.Any(), gomock.Any()).DoAndReturn(run).AnyTimes()
	m.UoW.EXPECT().WithDB(gomock.Any(), gomock.Any()).DoAndReturn(run).AnyTimes()
	return m
}
