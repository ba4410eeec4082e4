//go:build unit

package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/infra/messaging"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/shared"
	"storefront-checkout/internal/worker"
	"storefront-checkout/tests/common/uowtest"
	commandsmock "storefront-checkout/tests/mock/commands"
	sharedmock "storefront-checkout/tests/mock/shared"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Reclaimer
// =============================================================================

type reclaimerFixture struct {
	m       *uowtest.Mocks
	ledger  *commandsmock.MockStockLedger
	orders  *commandsmock.MockOrderCommands
	carts   *commandsmock.MockCartCommands
	subject *worker.Reclaimer
}

func newReclaimerFixture(t *testing.T, batch int) reclaimerFixture {
	ctrl := gomock.NewController(t)
	f := reclaimerFixture{
		m:      uowtest.New(ctrl),
		ledger: commandsmock.NewMockStockLedger(ctrl),
		orders: commandsmock.NewMockOrderCommands(ctrl),
		carts:  commandsmock.NewMockCartCommands(ctrl),
	}
	f.subject = worker.NewReclaimer(f.ledger, f.orders, f.carts, f.m.UoW, clock.NewMockClock(testNow), batch, discardLogger())
	return f
}

func TestReclaimer_ReclaimReservations(t *testing.T) {
	t.Run("success: drains full batches until a short one", func(t *testing.T) {
		f := newReclaimerFixture(t, 10)
		gomock.InOrder(
			f.ledger.EXPECT().ReleaseExpired(gomock.Any(), 10).Return(10, nil),
			f.ledger.EXPECT().ReleaseExpired(gomock.Any(), 10).Return(10, nil),
			f.ledger.EXPECT().ReleaseExpired(gomock.Any(), 10).Return(3, nil),
		)
		require.NoError(t, f.subject.ReclaimReservations(context.Background()))
	})

	t.Run("error: ledger failure stops the pass", func(t *testing.T) {
		f := newReclaimerFixture(t, 10)
		f.ledger.EXPECT().ReleaseExpired(gomock.Any(), 10).Return(0, errs.ErrDatabaseOperationFailed)
		err := f.subject.ReclaimReservations(context.Background())
		assert.True(t, errs.Is(err, errs.ErrDatabaseOperationFailed))
	})
}

func TestReclaimer_RunOnce(t *testing.T) {
	f := newReclaimerFixture(t, 50)
	gomock.InOrder(
		f.ledger.EXPECT().ReleaseExpired(gomock.Any(), 50).Return(2, nil),
		f.orders.EXPECT().ExpireUnpaid(gomock.Any(), 50).Return(1, nil),
		f.carts.EXPECT().PurgeExpired(gomock.Any(), 50).Return(int64(4), nil),
		f.m.Idempotency.EXPECT().DeleteExpired(gomock.Any(), testNow).Return(int64(7), nil),
	)
	require.NoError(t, f.subject.RunOnce(context.Background()))
}

func TestReclaimer_RunOnceStopsAtFirstError(t *testing.T) {
	f := newReclaimerFixture(t, 50)
	f.ledger.EXPECT().ReleaseExpired(gomock.Any(), 50).Return(0, nil)
	f.orders.EXPECT().ExpireUnpaid(gomock.Any(), 50).Return(0, errors.New("boom"))

	require.Error(t, f.subject.RunOnce(context.Background()))
}

// =============================================================================
// Outbox relay
// =============================================================================

func outboxEvents(n int) []shared.OutboxEvent {
	out := make([]shared.OutboxEvent, n)
	for i := range out {
		out[i] = shared.OutboxEvent{ID: uuid.New(), AggregateID: uuid.New(), EventType: shared.EventOrderPaid, EventVersion: 1, Payload: []byte(`{}`)}
	}
	return out
}

func idsOf(events []shared.OutboxEvent) []uuid.UUID {
	ids := make([]uuid.UUID, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	return ids
}

func TestOutboxRelay_RelayOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("success: batch published and marked", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := uowtest.New(ctrl)
		pub := sharedmock.NewMockEventPublisher(ctrl)
		events := outboxEvents(3)

		m.Outbox.EXPECT().ClaimBatch(gomock.Any(), 10).Return(events, nil)
		pub.EXPECT().Publish(gomock.Any(), events).Return(nil)
		m.Outbox.EXPECT().MarkPublished(gomock.Any(), idsOf(events), testNow).Return(nil)

		n, err := worker.NewOutboxRelay(m.UoW, pub, clock.NewMockClock(testNow), 10, discardLogger()).RelayOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("success: nothing pending", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := uowtest.New(ctrl)
		m.Outbox.EXPECT().ClaimBatch(gomock.Any(), 10).Return(nil, nil)

		n, err := worker.NewOutboxRelay(m.UoW, sharedmock.NewMockEventPublisher(ctrl), clock.NewMockClock(testNow), 10, discardLogger()).RelayOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("error: broker down keeps rows for retry", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := uowtest.New(ctrl)
		pub := sharedmock.NewMockEventPublisher(ctrl)
		events := outboxEvents(2)

		m.Outbox.EXPECT().ClaimBatch(gomock.Any(), 10).Return(events, nil)
		pub.EXPECT().Publish(gomock.Any(), events).Return(errors.New("kafka: leader not available"))
		m.Outbox.EXPECT().MarkFailed(gomock.Any(), idsOf(events)).Return(nil)

		n, err := worker.NewOutboxRelay(m.UoW, pub, clock.NewMockClock(testNow), 10, discardLogger()).RelayOnce(ctx)
		require.Error(t, err)
		assert.Zero(t, n)
	})
}

func TestOutboxRelay_Drain(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := uowtest.New(ctrl)
	pub := sharedmock.NewMockEventPublisher(ctrl)
	full, rest := outboxEvents(2), outboxEvents(1)

	gomock.InOrder(
		m.Outbox.EXPECT().ClaimBatch(gomock.Any(), 2).Return(full, nil),
		m.Outbox.EXPECT().ClaimBatch(gomock.Any(), 2).Return(rest, nil),
	)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	m.Outbox.EXPECT().MarkPublished(gomock.Any(), gomock.Any(), testNow).Return(nil).Times(2)

	require.NoError(t, worker.NewOutboxRelay(m.UoW, pub, clock.NewMockClock(testNow), 2, discardLogger()).Drain(context.Background()))
}

// =============================================================================
// Payment events
// =============================================================================

func paymentMessage(t *testing.T, eventID string, ev commands.PaymentEvent) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	value, err := json.Marshal(messaging.Envelope{
		EventID:      eventID,
		EventType:    messaging.EventPaymentNotified,
		EventVersion: 1,
		OccurredAt:   testNow,
		Producer:     "storefront-checkout-test",
		Payload:      payload,
	})
	require.NoError(t, err)
	return kafka.Message{Topic: "payment.events", Key: []byte(ev.OrderID.String()), Value: value}
}

func TestPaymentEventHandler_Handle(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()
	ev := commands.PaymentEvent{OrderID: orderID, TransactionID: "trx-1", Outcome: commands.PaymentOutcomeSuccess}

	testCases := []struct {
		name    string
		msg     func(t *testing.T) kafka.Message
		setup   func(orders *commandsmock.MockOrderCommands, dedup *sharedmock.MockDeduper)
		wantErr bool
	}{
		{
			name: "success: first delivery applied",
			msg:  func(t *testing.T) kafka.Message { return paymentMessage(t, "trx-1:success", ev) },
			setup: func(orders *commandsmock.MockOrderCommands, dedup *sharedmock.MockDeduper) {
				dedup.EXPECT().FirstSeen(gomock.Any(), "payment-event", "trx-1:success").Return(true, nil)
				orders.EXPECT().ApplyPaymentEvent(gomock.Any(), ev).Return(&order.Order{}, nil)
			},
		},
		{
			name: "success: duplicate delivery skipped",
			msg:  func(t *testing.T) kafka.Message { return paymentMessage(t, "trx-1:success", ev) },
			setup: func(orders *commandsmock.MockOrderCommands, dedup *sharedmock.MockDeduper) {
				dedup.EXPECT().FirstSeen(gomock.Any(), "payment-event", "trx-1:success").Return(false, nil)
			},
		},
		{
			name: "success: dedup outage still applies",
			msg:  func(t *testing.T) kafka.Message { return paymentMessage(t, "trx-1:success", ev) },
			setup: func(orders *commandsmock.MockOrderCommands, dedup *sharedmock.MockDeduper) {
				dedup.EXPECT().FirstSeen(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))
				orders.EXPECT().ApplyPaymentEvent(gomock.Any(), ev).Return(&order.Order{}, nil)
			},
		},
		{
			name: "success: illegal transition acknowledged",
			msg:  func(t *testing.T) kafka.Message { return paymentMessage(t, "trx-1:success", ev) },
			setup: func(orders *commandsmock.MockOrderCommands, dedup *sharedmock.MockDeduper) {
				dedup.EXPECT().FirstSeen(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
				orders.EXPECT().ApplyPaymentEvent(gomock.Any(), ev).
					Return(nil, &order.IllegalTransitionError{OrderID: orderID, From: order.StatusCancelled, To: order.StatusPaid})
			},
		},
		{
			name: "success: malformed envelope dropped",
			msg:  func(t *testing.T) kafka.Message { return kafka.Message{Value: []byte("{not json")} },
			setup: func(orders *commandsmock.MockOrderCommands, dedup *sharedmock.MockDeduper) {},
		},
		{
			name: "success: other event types ignored",
			msg: func(t *testing.T) kafka.Message {
				value, err := json.Marshal(messaging.Envelope{EventID: "x", EventType: shared.EventOrderPaid, Payload: json.RawMessage(`{}`)})
				require.NoError(t, err)
				return kafka.Message{Value: value}
			},
			setup: func(orders *commandsmock.MockOrderCommands, dedup *sharedmock.MockDeduper) {},
		},
		{
			name: "error: transient failure forgets the id for redelivery",
			msg:  func(t *testing.T) kafka.Message { return paymentMessage(t, "trx-1:success", ev) },
			setup: func(orders *commandsmock.MockOrderCommands, dedup *sharedmock.MockDeduper) {
				dedup.EXPECT().FirstSeen(gomock.Any(), gomock.Any(), "trx-1:success").Return(true, nil)
				orders.EXPECT().ApplyPaymentEvent(gomock.Any(), ev).Return(nil, errs.Mark(errors.New("conn reset"), errs.ErrDatabaseOperationFailed))
				dedup.EXPECT().Forget(gomock.Any(), "payment-event", "trx-1:success").Return(nil)
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			orders := commandsmock.NewMockOrderCommands(ctrl)
			dedup := sharedmock.NewMockDeduper(ctrl)
			tc.setup(orders, dedup)

			err := worker.NewPaymentEventHandler(orders, dedup, discardLogger()).Handle(ctx, tc.msg(t))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
