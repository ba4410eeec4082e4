package queries

import (
	"context"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

type CartQueries interface {
	// Get returns an empty view when the owner has no cart yet.
	Get(ctx context.Context, owner cart.Owner) (*CartView, error)
}

type cartQueriesImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewCartQueries(uow shared.UnitOfWork, clock clock.Clock) CartQueries {
	return &cartQueriesImpl{uow: uow, clock: clock}
}

func (q *cartQueriesImpl) Get(ctx context.Context, owner cart.Owner) (*CartView, error) {
	if err := owner.Validate(); err != nil {
		return nil, errs.Mark(err, errs.ErrDomainValidation)
	}

	view := &CartView{Items: []CartLineView{}}
	err := q.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := q.clock.Now()
		c, err := tx.Carts().FindByOwner(ctx, owner)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil
			}
			return err
		}
		if c.IsExpired(now) {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(c.Items()))
		for _, it := range c.Items() {
			ids = append(ids, it.VariantID())
		}
		entries, err := tx.Catalog().Entries(ctx, ids, now)
		if err != nil {
			return err
		}

		view.ID = c.ID()
		view.ExpiresAt = c.ExpiresAt()
		view.UpdatedAt = c.UpdatedAt()
		view.Items = toCartLines(c.Items(), entries)
		view.Subtotal = c.Subtotal()
		return nil
	})
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return view, nil
}

func toCartLines(items []cart.Item, entries map[uuid.UUID]cart.CatalogEntry) []CartLineView {
	lines := make([]CartLineView, 0, len(items))
	for _, it := range items {
		line := CartLineView{
			VariantID: it.VariantID(),
			Quantity:  it.Quantity(),
			UnitPrice: it.UnitPrice(),
			LineTotal: it.LineTotal(),
		}
		if e, ok := entries[it.VariantID()]; ok {
			line.ProductID = e.ProductID
			line.ProductName = e.ProductName
			line.VariantName = e.VariantName
			line.SKU = e.SKU
			line.Active = e.Active
			line.CurrentPrice = e.Price
			if e.Flash != nil {
				line.CurrentPrice = e.Flash.Price
				line.FlashSale = true
			}
		}
		lines = append(lines, line)
	}
	return lines
}
