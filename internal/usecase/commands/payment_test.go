//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/tests/common/uowtest"
	commandsmock "storefront-checkout/tests/mock/commands"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPaymentCommands_RetryPayment(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	setup := func(t *testing.T, now time.Time) (*uowtest.Mocks, *commandsmock.MockPaymentProvider, commands.PaymentCommands) {
		ctrl := gomock.NewController(t)
		m := uowtest.New(ctrl)
		provider := commandsmock.NewMockPaymentProvider(ctrl)
		return m, provider, commands.NewPaymentUseCase(m.UoW, provider, clock.NewMockClock(now), discardLogger())
	}

	t.Run("success: new session is stored", func(t *testing.T) {
		m, provider, uc := setup(t, testNow.Add(time.Hour))
		o := placedOrder(t, userID, nil)
		m.Orders.EXPECT().Get(gomock.Any(), o.ID()).Return(o, nil)
		provider.EXPECT().InitiatePayment(gomock.Any(), o.ID(), o.Total(), order.PaymentMethodBankTransfer).
			Return(&commands.PaymentSession{TransactionID: "trx-2", RedirectURL: "https://pay.example/trx-2"}, nil)
		m.Orders.EXPECT().UpdatePaymentSession(gomock.Any(), o.ID(), "trx-2", "https://pay.example/trx-2").Return(nil)

		got, err := uc.RetryPayment(ctx, userID, o.ID())
		require.NoError(t, err)
		require.NotNil(t, got.Payment().ProviderTransactionID)
		assert.Equal(t, "trx-2", *got.Payment().ProviderTransactionID)
	})

	t.Run("error: provider unavailable", func(t *testing.T) {
		m, provider, uc := setup(t, testNow.Add(time.Hour))
		o := placedOrder(t, userID, nil)
		m.Orders.EXPECT().Get(gomock.Any(), o.ID()).Return(o, nil)
		provider.EXPECT().InitiatePayment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("503"))

		_, err := uc.RetryPayment(ctx, userID, o.ID())
		assert.True(t, errs.Is(err, errs.ErrPaymentProviderUnavailable))
	})

	t.Run("error: payment window closed", func(t *testing.T) {
		m, _, uc := setup(t, testNow.Add(25*time.Hour))
		o := placedOrder(t, userID, nil)
		m.Orders.EXPECT().Get(gomock.Any(), o.ID()).Return(o, nil)

		_, err := uc.RetryPayment(ctx, userID, o.ID())
		assert.True(t, errs.Is(err, errs.ErrIllegalStateTransition))
	})

	t.Run("error: already paid", func(t *testing.T) {
		m, _, uc := setup(t, testNow.Add(time.Hour))
		o := placedOrder(t, userID, nil)
		_, err := o.Transition(order.StatusPaid, testNow)
		require.NoError(t, err)
		m.Orders.EXPECT().Get(gomock.Any(), o.ID()).Return(o, nil)

		_, err = uc.RetryPayment(ctx, userID, o.ID())
		assert.True(t, errs.Is(err, errs.ErrIllegalStateTransition))
	})

	t.Run("error: another customer's order", func(t *testing.T) {
		m, _, uc := setup(t, testNow.Add(time.Hour))
		o := placedOrder(t, uuid.New(), nil)
		m.Orders.EXPECT().Get(gomock.Any(), o.ID()).Return(o, nil)

		_, err := uc.RetryPayment(ctx, userID, o.ID())
		assert.True(t, errs.Is(err, errs.ErrOrderNotFound))
	})

	t.Run("error: unknown order", func(t *testing.T) {
		m, _, uc := setup(t, testNow.Add(time.Hour))
		id := uuid.New()
		m.Orders.EXPECT().Get(gomock.Any(), id).Return(nil, infra.WrapRepoErr("failed to get order", pgx.ErrNoRows))

		_, err := uc.RetryPayment(ctx, userID, id)
		assert.True(t, errs.Is(err, errs.ErrOrderNotFound))
	})
}
