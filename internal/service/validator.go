package service

import (
	"context"
	"fmt"

	"stockflow/internal/domain"
)

// ItemInput is a candidate line item as received from the caller.
type ItemInput struct {
	ProductID int64
	Quantity  int
	Price     domain.PriceChoice
}

type productReader interface {
	Product(ctx context.Context, id int64) (domain.Product, error)
}

// ValidateItemShape checks the batch without touching storage. Every item is
// checked before any is accepted.
func ValidateItemShape(items []ItemInput) error {
	if len(items) == 0 {
		return domain.NewValidationError("items", "at least one item is required")
	}
	for i, item := range items {
		if item.ProductID <= 0 {
			return domain.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if item.Quantity <= 0 {
			return domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be greater than 0")
		}
		if item.Quantity > domain.MaxQuantity {
			return domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i),
				fmt.Sprintf("must not exceed %d", domain.MaxQuantity))
		}
		if amount, ok := item.Price.Amount(); ok {
			if err := domain.CheckPrice(amount); err != nil {
				return domain.NewValidationError(fmt.Sprintf("items[%d].price", i), err.Error())
			}
		}
	}
	return nil
}

// ValidateItems runs the shape checks and then requires every referenced
// product to exist and be active. It returns the products it loaded.
func ValidateItems(ctx context.Context, catalog productReader, items []ItemInput) (map[int64]domain.Product, error) {
	if err := ValidateItemShape(items); err != nil {
		return nil, err
	}
	products := make(map[int64]domain.Product, len(items))
	for i, item := range items {
		if _, seen := products[item.ProductID]; seen {
			continue
		}
		product, err := catalog.Product(ctx, item.ProductID)
		if err != nil {
			if domain.IsNotFoundError(err) {
				return nil, domain.NewValidationError(
					fmt.Sprintf("items[%d].product_id", i),
					fmt.Sprintf("product %d does not exist", item.ProductID),
				)
			}
			return nil, err
		}
		if !product.Active {
			return nil, domain.NewValidationError(
				fmt.Sprintf("items[%d].product_id", i),
				fmt.Sprintf("product %d is inactive", item.ProductID),
			)
		}
		products[item.ProductID] = product
	}
	return products, nil
}
