//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/tests/common/uowtest"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newCartUseCase(t *testing.T) (*uowtest.Mocks, *clock.MockClock, commands.CartCommands) {
	ctrl := gomock.NewController(t)
	m := uowtest.New(ctrl)
	clk := clock.NewMockClock(testNow)
	return m, clk, commands.NewCartUseCase(m.UoW, clk, config.NewTestConfig(), discardLogger())
}

func catalogEntry(variantID uuid.UUID, price int64) cart.CatalogEntry {
	return cart.CatalogEntry{
		VariantID: variantID, ProductID: uuid.New(), ProductName: "Oak Chair", VariantName: "natural",
		SKU: "OAK-NAT", Price: price, Active: true,
	}
}

func notFound() error {
	return infra.WrapRepoErr("cart not found", pgx.ErrNoRows)
}

func TestCartCommands_AddItem(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	variantID := uuid.New()

	t.Run("success: first item creates the cart", func(t *testing.T) {
		m, _, uc := newCartUseCase(t)
		m.Catalog.EXPECT().Entries(gomock.Any(), []uuid.UUID{variantID}, testNow).
			Return(map[uuid.UUID]cart.CatalogEntry{variantID: catalogEntry(variantID, 1_200_000)}, nil)
		m.Carts.EXPECT().FindByOwner(gomock.Any(), cart.UserOwner(userID)).Return(nil, notFound())
		m.Carts.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		m.Carts.EXPECT().UpsertItem(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, it cart.Item) error {
				assert.Equal(t, 2, it.Quantity())
				assert.Equal(t, int64(1_200_000), it.UnitPrice())
				return nil
			})
		m.Carts.EXPECT().Touch(gomock.Any(), gomock.Any()).Return(nil)

		require.NoError(t, uc.AddItem(ctx, cart.UserOwner(userID), variantID, 2))
	})

	t.Run("success: flash price is captured", func(t *testing.T) {
		m, _, uc := newCartUseCase(t)
		entry := catalogEntry(variantID, 1_200_000)
		entry.Flash = &cart.FlashOffer{FlashSaleProductID: uuid.New(), Price: 899_000}
		existing, err := cart.NewCart(cart.UserOwner(userID), testNow, time.Hour)
		require.NoError(t, err)

		m.Catalog.EXPECT().Entries(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(map[uuid.UUID]cart.CatalogEntry{variantID: entry}, nil)
		m.Carts.EXPECT().FindByOwner(gomock.Any(), gomock.Any()).Return(existing, nil)
		m.Carts.EXPECT().UpsertItem(gomock.Any(), existing.ID(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, it cart.Item) error {
				assert.Equal(t, int64(899_000), it.UnitPrice())
				return nil
			})
		m.Carts.EXPECT().Touch(gomock.Any(), existing).Return(nil)

		require.NoError(t, uc.AddItem(ctx, cart.UserOwner(userID), variantID, 1))
	})

	t.Run("error: inactive variant", func(t *testing.T) {
		m, _, uc := newCartUseCase(t)
		entry := catalogEntry(variantID, 1_200_000)
		entry.Active = false
		m.Catalog.EXPECT().Entries(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(map[uuid.UUID]cart.CatalogEntry{variantID: entry}, nil)

		err := uc.AddItem(ctx, cart.UserOwner(userID), variantID, 1)
		assert.True(t, errs.Is(err, errs.ErrItemUnavailable))
	})

	t.Run("error: quantity over the line maximum", func(t *testing.T) {
		m, _, uc := newCartUseCase(t)
		existing, err := cart.NewCart(cart.UserOwner(userID), testNow, time.Hour)
		require.NoError(t, err)
		_, err = existing.AddItem(variantID, 98, 1_200_000)
		require.NoError(t, err)

		m.Catalog.EXPECT().Entries(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(map[uuid.UUID]cart.CatalogEntry{variantID: catalogEntry(variantID, 1_200_000)}, nil)
		m.Carts.EXPECT().FindByOwner(gomock.Any(), gomock.Any()).Return(existing, nil)

		err = uc.AddItem(ctx, cart.UserOwner(userID), variantID, 2)
		assert.True(t, errs.Is(err, errs.ErrDomainValidation))
	})

	t.Run("success: expired guest cart is replaced", func(t *testing.T) {
		m, clk, uc := newCartUseCase(t)
		session := uuid.New()
		stale, err := cart.NewCart(cart.SessionOwner(session), testNow, time.Hour)
		require.NoError(t, err)
		clk.Add(2 * time.Hour)

		m.Catalog.EXPECT().Entries(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(map[uuid.UUID]cart.CatalogEntry{variantID: catalogEntry(variantID, 1_200_000)}, nil)
		m.Carts.EXPECT().FindByOwner(gomock.Any(), gomock.Any()).Return(stale, nil)
		m.Carts.EXPECT().Delete(gomock.Any(), stale.ID()).Return(nil)
		m.Carts.EXPECT().Create(gomock.Any(), gomock.Not(stale)).Return(nil)
		m.Carts.EXPECT().UpsertItem(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		m.Carts.EXPECT().Touch(gomock.Any(), gomock.Any()).Return(nil)

		require.NoError(t, uc.AddItem(ctx, cart.SessionOwner(session), variantID, 1))
	})
}

func TestCartCommands_UpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	variantID := uuid.New()

	withItem := func(t *testing.T) *cart.Cart {
		c, err := cart.NewCart(cart.UserOwner(userID), testNow, time.Hour)
		require.NoError(t, err)
		_, err = c.AddItem(variantID, 1, 500_000)
		require.NoError(t, err)
		return c
	}

	t.Run("success: update quantity", func(t *testing.T) {
		m, _, uc := newCartUseCase(t)
		c := withItem(t)
		m.Carts.EXPECT().FindByOwner(gomock.Any(), gomock.Any()).Return(c, nil)
		m.Carts.EXPECT().UpsertItem(gomock.Any(), c.ID(), gomock.Any()).Return(nil)
		m.Carts.EXPECT().Touch(gomock.Any(), c).Return(nil)

		require.NoError(t, uc.UpdateItem(ctx, cart.UserOwner(userID), variantID, 5))
		it, _ := c.Find(variantID)
		assert.Equal(t, 5, it.Quantity())
	})

	t.Run("error: update missing line", func(t *testing.T) {
		m, _, uc := newCartUseCase(t)
		m.Carts.EXPECT().FindByOwner(gomock.Any(), gomock.Any()).Return(withItem(t), nil)

		err := uc.UpdateItem(ctx, cart.UserOwner(userID), uuid.New(), 5)
		assert.True(t, errs.Is(err, errs.ErrDomainValidation))
	})

	t.Run("success: remove line", func(t *testing.T) {
		m, _, uc := newCartUseCase(t)
		c := withItem(t)
		m.Carts.EXPECT().FindByOwner(gomock.Any(), gomock.Any()).Return(c, nil)
		m.Carts.EXPECT().DeleteItem(gomock.Any(), c.ID(), variantID).Return(nil)
		m.Carts.EXPECT().Touch(gomock.Any(), c).Return(nil)

		require.NoError(t, uc.RemoveItem(ctx, cart.UserOwner(userID), variantID))
		assert.True(t, c.IsEmpty())
	})

	t.Run("error: no cart", func(t *testing.T) {
		m, _, uc := newCartUseCase(t)
		m.Carts.EXPECT().FindByOwner(gomock.Any(), gomock.Any()).Return(nil, notFound())

		err := uc.RemoveItem(ctx, cart.UserOwner(userID), variantID)
		assert.True(t, errs.Is(err, errs.ErrCartNotFound))
	})

	t.Run("success: clearing a missing cart is a no-op", func(t *testing.T) {
		m, _, uc := newCartUseCase(t)
		m.Carts.EXPECT().FindByOwner(gomock.Any(), gomock.Any()).Return(nil, notFound())

		require.NoError(t, uc.Clear(ctx, cart.UserOwner(userID)))
	})
}

func TestCartCommands_MergeGuest(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	session := uuid.New()
	chair, table := uuid.New(), uuid.New()

	t.Run("success: quantities merge up to the line maximum", func(t *testing.T) {
		m, _, uc := newCartUseCase(t)
		guest, err := cart.NewCart(cart.SessionOwner(session), testNow, time.Hour)
		require.NoError(t, err)
		_, err = guest.AddItem(chair, 10, 500_000)
		require.NoError(t, err)
		_, err = guest.AddItem(table, 1, 3_000_000)
		require.NoError(t, err)

		mine, err := cart.NewCart(cart.UserOwner(userID), testNow, time.Hour)
		require.NoError(t, err)
		_, err = mine.AddItem(chair, 95, 500_000)
		require.NoError(t, err)

		m.Carts.EXPECT().FindByOwner(gomock.Any(), cart.SessionOwner(session)).Return(guest, nil)
		m.Carts.EXPECT().FindByOwner(gomock.Any(), cart.UserOwner(userID)).Return(mine, nil)
		m.Carts.EXPECT().UpsertItem(gomock.Any(), mine.ID(), gomock.Any()).Return(nil).Times(2)
		m.Carts.EXPECT().Delete(gomock.Any(), guest.ID()).Return(nil)
		m.Carts.EXPECT().Touch(gomock.Any(), mine).Return(nil)

		require.NoError(t, uc.MergeGuest(ctx, session, userID))
		it, ok := mine.Find(chair)
		require.True(t, ok)
		assert.Equal(t, cart.MaxLineQuantity, it.Quantity())
		_, ok = mine.Find(table)
		assert.True(t, ok)
	})

	t.Run("success: nothing to merge", func(t *testing.T) {
		m, _, uc := newCartUseCase(t)
		m.Carts.EXPECT().FindByOwner(gomock.Any(), cart.SessionOwner(session)).Return(nil, notFound())

		require.NoError(t, uc.MergeGuest(ctx, session, userID))
	})
}

func TestCartCommands_PurgeExpired(t *testing.T) {
	m, _, uc := newCartUseCase(t)
	m.Carts.EXPECT().DeleteExpired(gomock.Any(), testNow, 500).Return(int64(3), nil)

	n, err := uc.PurgeExpired(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
