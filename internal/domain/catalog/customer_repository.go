package catalog

import (
	"context"
	"time"
)

// CustomerRepository gives access to the customer documents holding shops and products
type CustomerRepository interface {
	// FindByShopID finds the customer owning the given shop.
	// Returns shared.ErrNotFound when no customer owns the shop.
	FindByShopID(ctx context.Context, shopID string) (*Customer, error)

	// MarkProductsExported flags the given products of a shop as sent to the
	// logistics provider at the given time
	MarkProductsExported(ctx context.Context, shopID string, productIDs []string, at time.Time) error

	// Ping checks the store is reachable
	Ping(ctx context.Context) error
}
