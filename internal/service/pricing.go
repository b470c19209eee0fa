package service

import (
	"context"

	"github.com/shopspring/decimal"
)

// ResolvePrice returns the unit price for item. The catalog is consulted when
// useCatalogPrice is set or the item carries no caller price.
func ResolvePrice(ctx context.Context, catalog productReader, item ItemInput, useCatalogPrice bool) (decimal.Decimal, error) {
	if amount, ok := item.Price.Amount(); ok && !useCatalogPrice {
		return amount, nil
	}
	product, err := catalog.Product(ctx, item.ProductID)
	if err != nil {
		return decimal.Zero, err
	}
	return product.Price, nil
}
