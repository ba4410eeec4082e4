package commands

import (
	"context"
	"log/slog"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

type CartCommands interface {
	AddItem(ctx context.Context, owner cart.Owner, variantID uuid.UUID, qty int) error
	UpdateItem(ctx context.Context, owner cart.Owner, variantID uuid.UUID, qty int) error
	RemoveItem(ctx context.Context, owner cart.Owner, variantID uuid.UUID) error
	Clear(ctx context.Context, owner cart.Owner) error
	// MergeGuest moves a guest cart into the user's cart after login.
	MergeGuest(ctx context.Context, sessionID, userID uuid.UUID) error
	PurgeExpired(ctx context.Context, limit int) (int64, error)
}

type cartUseCaseImpl struct {
	uow    shared.UnitOfWork
	clock  clock.Clock
	cfg    config.CheckoutConfig
	logger *slog.Logger
}

func NewCartUseCase(uow shared.UnitOfWork, clock clock.Clock, cfg config.Config, logger *slog.Logger) CartCommands {
	return &cartUseCaseImpl{
		uow:    uow,
		clock:  clock,
		cfg:    cfg.Checkout,
		logger: logger,
	}
}

func (c *cartUseCaseImpl) AddItem(ctx context.Context, owner cart.Owner, variantID uuid.UUID, qty int) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := c.clock.Now()

		entries, err := tx.Catalog().Entries(ctx, []uuid.UUID{variantID}, now)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		entry, ok := entries[variantID]
		if !ok || !entry.Active {
			return &cart.UnavailableItemError{VariantID: variantID}
		}
		price := entry.Price
		if entry.Flash != nil {
			price = entry.Flash.Price
		}

		ct, err := c.findOrCreate(ctx, tx, owner)
		if err != nil {
			return err
		}
		item, err := ct.AddItem(variantID, qty, price)
		if err != nil {
			return errs.Mark(err, errs.ErrDomainValidation)
		}
		if err := tx.Carts().UpsertItem(ctx, ct.ID(), item); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return c.touch(ctx, tx, ct)
	})
}

func (c *cartUseCaseImpl) UpdateItem(ctx context.Context, owner cart.Owner, variantID uuid.UUID, qty int) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		ct, err := c.find(ctx, tx, owner)
		if err != nil {
			return err
		}
		item, err := ct.SetQuantity(variantID, qty)
		if err != nil {
			return errs.Mark(err, errs.ErrDomainValidation)
		}
		if err := tx.Carts().UpsertItem(ctx, ct.ID(), item); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return c.touch(ctx, tx, ct)
	})
}

func (c *cartUseCaseImpl) RemoveItem(ctx context.Context, owner cart.Owner, variantID uuid.UUID) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		ct, err := c.find(ctx, tx, owner)
		if err != nil {
			return err
		}
		if err := ct.RemoveItem(variantID); err != nil {
			return errs.Mark(err, errs.ErrDomainValidation)
		}
		if err := tx.Carts().DeleteItem(ctx, ct.ID(), variantID); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return c.touch(ctx, tx, ct)
	})
}

func (c *cartUseCaseImpl) Clear(ctx context.Context, owner cart.Owner) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		ct, err := c.find(ctx, tx, owner)
		if err != nil {
			if errs.Is(err, errs.ErrCartNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Carts().Delete(ctx, ct.ID()); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return nil
	})
}

func (c *cartUseCaseImpl) MergeGuest(ctx context.Context, sessionID, userID uuid.UUID) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		guest, err := c.find(ctx, tx, cart.SessionOwner(sessionID))
		if err != nil {
			if errs.Is(err, errs.ErrCartNotFound) {
				return nil
			}
			return err
		}

		target, err := c.findOrCreate(ctx, tx, cart.UserOwner(userID))
		if err != nil {
			return err
		}

		for _, it := range guest.Items() {
			qty := it.Quantity()
			if existing, ok := target.Find(it.VariantID()); ok {
				qty = min(qty, cart.MaxLineQuantity-existing.Quantity())
			}
			if qty <= 0 {
				continue
			}
			merged, err := target.AddItem(it.VariantID(), qty, it.UnitPrice())
			if err != nil {
				return errs.Mark(err, errs.ErrDomainValidation)
			}
			if err := tx.Carts().UpsertItem(ctx, target.ID(), merged); err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
		}

		if err := tx.Carts().Delete(ctx, guest.ID()); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		c.logger.InfoContext(ctx, "guest cart merged", "session_id", sessionID, "user_id", userID, "items", len(guest.Items()))
		return c.touch(ctx, tx, target)
	})
}

func (c *cartUseCaseImpl) PurgeExpired(ctx context.Context, limit int) (int64, error) {
	var n int64
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		n, err = tx.Carts().DeleteExpired(ctx, c.clock.Now(), limit)
		return err
	})
	if err != nil {
		return 0, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return n, nil
}

func (c *cartUseCaseImpl) find(ctx context.Context, tx shared.Tx, owner cart.Owner) (*cart.Cart, error) {
	ct, err := tx.Carts().FindByOwner(ctx, owner)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrCartNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if ct.IsExpired(c.clock.Now()) {
		return nil, errs.ErrCartNotFound
	}
	return ct, nil
}

func (c *cartUseCaseImpl) findOrCreate(ctx context.Context, tx shared.Tx, owner cart.Owner) (*cart.Cart, error) {
	ct, err := tx.Carts().FindByOwner(ctx, owner)
	if err == nil && !ct.IsExpired(c.clock.Now()) {
		return ct, nil
	}
	if err != nil && !infra.IsKind(err, infra.KindNotFound) {
		if errs.Is(err, cart.ErrInvalidOwner) {
			return nil, errs.Mark(err, errs.ErrDomainValidation)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if ct != nil {
		// expired guest cart: start over under the same session
		if err := tx.Carts().Delete(ctx, ct.ID()); err != nil {
			return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
	}

	ct, err = cart.NewCart(owner, c.clock.Now(), c.cfg.GuestCartTTL)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDomainValidation)
	}
	if err := tx.Carts().Create(ctx, ct); err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return ct, nil
}

func (c *cartUseCaseImpl) touch(ctx context.Context, tx shared.Tx, ct *cart.Cart) error {
	ct.Touch(c.clock.Now(), c.cfg.GuestCartTTL)
	if err := tx.Carts().Touch(ctx, ct); err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return nil
}
