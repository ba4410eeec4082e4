package shared

import (
	"context"
	"time"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/flashsale"
	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/domain/stock"
	"storefront-checkout/internal/domain/voucher"
	"storefront-checkout/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinReadOnly: Read-only transaction for multi-table consistent reads
	WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: Single query operations using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx hands out repositories bound to one connection or transaction.
type Tx interface {
	Stock() StockRepository
	FlashSales() FlashSaleRepository
	Vouchers() VoucherRepository
	Orders() OrderRepository
	Carts() CartRepository
	Catalog() CatalogReader
	Idempotency() IdempotencyRepository
	Outbox() OutboxRepository
	DB() db.DBTX
}

type StockRepository interface {
	Get(ctx context.Context, variantID uuid.UUID) (*stock.Record, error)
	// ReserveUnits increments reserved_quantity only when enough units are
	// available. ok is false when the guard rejected the update; the returned
	// record then reflects current levels.
	ReserveUnits(ctx context.Context, variantID uuid.UUID, qty int) (rec *stock.Record, ok bool, err error)
	CommitUnits(ctx context.Context, variantID uuid.UUID, qty int) (*stock.Record, error)
	ReleaseUnits(ctx context.Context, variantID uuid.UUID, qty int) (*stock.Record, error)
	RestoreUnits(ctx context.Context, variantID uuid.UUID, qty int) (*stock.Record, error)

	InsertReservation(ctx context.Context, r *stock.Reservation, now time.Time) error
	GetReservationForUpdate(ctx context.Context, id uuid.UUID) (*stock.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, status stock.ReservationStatus, now time.Time) error
	ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]*stock.Reservation, error)
}

type FlashSaleRepository interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*flashsale.Product, error)
	// Allocate bumps sold_count when the sale is live and the cap allows it.
	Allocate(ctx context.Context, id uuid.UUID, qty int, now time.Time) (bool, error)
	Deallocate(ctx context.Context, id uuid.UUID, qty int) error
}

type VoucherRepository interface {
	FindByCode(ctx context.Context, code voucher.Code) (*voucher.Voucher, error)
	CountUserUsage(ctx context.Context, voucherID, userID uuid.UUID) (int, error)
	IncrementUsage(ctx context.Context, voucherID uuid.UUID) (bool, error)
	DecrementUsage(ctx context.Context, voucherID uuid.UUID) error
	InsertUsage(ctx context.Context, voucherID, userID, orderID uuid.UUID, usedAt time.Time) error
	DeleteUsageByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *order.Order) error
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error)
	UpdateState(ctx context.Context, o *order.Order) error
	UpdatePaymentSession(ctx context.Context, orderID uuid.UUID, transactionID, redirectURL string) error
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type CartRepository interface {
	FindByOwner(ctx context.Context, owner cart.Owner) (*cart.Cart, error)
	Create(ctx context.Context, c *cart.Cart) error
	UpsertItem(ctx context.Context, cartID uuid.UUID, item cart.Item) error
	DeleteItem(ctx context.Context, cartID, variantID uuid.UUID) error
	Touch(ctx context.Context, c *cart.Cart) error
	Delete(ctx context.Context, cartID uuid.UUID) error
	// DeleteCheckedOut removes the cart only while it still carries the given
	// updated_at. A cart that was modified or already removed reports KindNotFound.
	DeleteCheckedOut(ctx context.Context, cartID uuid.UUID, version time.Time) error
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}

type CatalogReader interface {
	// Entries returns current prices and live flash offers keyed by variant id.
	// Unknown variants are simply absent.
	Entries(ctx context.Context, variantIDs []uuid.UUID, now time.Time) (map[uuid.UUID]cart.CatalogEntry, error)
	Address(ctx context.Context, userID, addressID uuid.UUID) (*order.Address, error)
}

type IdempotencyRepository interface {
	// TryInsert is false when a live row for the key already exists.
	TryInsert(ctx context.Context, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error)
	Get(ctx context.Context, key, userID uuid.UUID) (*IdempotencyRecord, error)
	Complete(ctx context.Context, key, userID, orderID uuid.UUID) error
	Delete(ctx context.Context, key, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type OutboxRepository interface {
	Append(ctx context.Context, ev OutboxEvent) error
	ClaimBatch(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, ids []uuid.UUID) error
}
